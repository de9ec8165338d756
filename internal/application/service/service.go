package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"eventbus/internal/appers"
	"eventbus/internal/application/entity"
	"eventbus/internal/application/repo"
	"eventbus/internal/transport/push"
	"eventbus/pkg/config"
	"eventbus/pkg/metrics"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

type Service interface {
	Publish(ctx context.Context, req *entity.PublishRequest) (uuid.UUID, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error)

	Subscribe(ctx context.Context, req *entity.SubscribeRequest) (uuid.UUID, bool, error)
	Unsubscribe(ctx context.Context, id uuid.UUID) error

	Poll(ctx context.Context, subscriber string, max int) ([]entity.PolledDelivery, error)
	Acknowledge(ctx context.Context, id uuid.UUID) error
	ReplayDeadLetter(ctx context.Context, id uuid.UUID) error

	QueryAudit(ctx context.Context, q *entity.AuditQuery) (*entity.AuditPage, error)
	SweepExpiredEvents(ctx context.Context)
	DispatchRun(ctx context.Context)

	HealthCheck(ctx context.Context) (dbHealthy bool, stats *entity.BusStats, err error)
}

type ServiceImpl struct {
	repo         repo.Repo
	transactions repo.Transactions
	sender       push.Sender
	logger       *zap.SugaredLogger
	busCfg       *config.Bus
	dispCfg      *config.Dispatcher
	m            *metrics.Metrics

	// published_at монотонно неубывает в рамках процесса
	clockMu       sync.Mutex
	lastPublished time.Time
}

func NewService(
	repo repo.Repo,
	transactions repo.Transactions,
	sender push.Sender,
	logger *zap.SugaredLogger,
	busCfg *config.Bus,
	dispCfg *config.Dispatcher,
	m *metrics.Metrics) *ServiceImpl {
	return &ServiceImpl{
		repo:         repo,
		transactions: transactions,
		sender:       sender,
		logger:       logger,
		busCfg:       busCfg,
		dispCfg:      dispCfg,
		m:            m,
	}
}

// HealthCheck проверяет доступность БД и собирает агрегаты шины
func (s *ServiceImpl) HealthCheck(ctx context.Context) (bool, *entity.BusStats, error) {
	dbErr := s.repo.HealthCheck(ctx)
	if dbErr != nil {
		return false, nil, dbErr
	}

	stats, err := s.repo.BusStats(ctx)
	if err != nil {
		s.logger.Errorf("bus stats failed: %v", err)
		return true, nil, err
	}

	return true, stats, nil
}

// Publish валидирует конверт, присваивает серверные id/метки времени и
// транзакционно пишет событие вместе с fan-out доставок. Возврат без ошибки
// гарантирует: событие durable и доставки созданы.
func (s *ServiceImpl) Publish(ctx context.Context, req *entity.PublishRequest) (uuid.UUID, error) {
	if max := s.busCfg.MaxPayloadBytes; max > 0 && len(req.Payload) > max {
		s.logger.Warnf("[source: %s] payload of %d bytes exceeds limit %d", req.Source, len(req.Payload), max)
		return uuid.Nil, appers.ErrPayloadTooLarge
	}
	if len(req.Payload) > 0 && !json.Valid(req.Payload) {
		return uuid.Nil, appers.ErrInvalidPayload
	}
	// Приоритет проверяется и здесь: Publish вызывается не только из HTTP
	if req.Priority != "" && !entity.Priority(req.Priority).Valid() {
		return uuid.Nil, appers.ErrUnknownPriority
	}

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}

	evt := entity.NewEvent(id, req, s.publishTime())
	s.logger.Debugf("[event: %s] Publish started, type=%s source=%s priority=%s",
		evt.ID, evt.EventType, evt.Source, evt.Priority)

	if _, err := s.transactions.PublishEvent(ctx, evt); err != nil {
		return uuid.Nil, err
	}

	return evt.ID, nil
}

// publishTime выдаёт метку published_at, монотонно неубывающую в рамках процесса
func (s *ServiceImpl) publishTime() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	now := time.Now().UTC()
	if now.Before(s.lastPublished) {
		now = s.lastPublished
	}
	s.lastPublished = now
	return now
}

func (s *ServiceImpl) GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	s.logger.Debugf("[event: %s] GetEvent started", id)

	return s.repo.GetEvent(ctx, id)
}

func (s *ServiceImpl) Subscribe(ctx context.Context, req *entity.SubscribeRequest) (uuid.UUID, bool, error) {
	mode := entity.DeliveryMode(req.DeliveryMode)
	if mode == entity.ModePush && req.CallbackURL == "" {
		return uuid.Nil, false, appers.ErrCallbackRequired
	}

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, false, err
	}

	sub := &entity.Subscription{
		ID:           id,
		Subscriber:   req.Subscriber,
		EventTypes:   entity.NormalizeEventTypes(req.EventTypes),
		Filter:       req.Filter,
		DeliveryMode: mode,
		CallbackURL:  req.CallbackURL,
		Active:       true,
	}

	s.logger.Debugf("[subscriber: %s] Subscribe started, mode=%s types=%v",
		sub.Subscriber, sub.DeliveryMode, sub.EventTypes)

	return s.transactions.Subscribe(ctx, sub)
}

// Unsubscribe — soft delete: новые fan-out'ы прекращаются, уже созданные
// доставки доводятся до завершения
func (s *ServiceImpl) Unsubscribe(ctx context.Context, id uuid.UUID) error {
	s.logger.Debugf("[subscription: %s] Unsubscribe started", id)

	return s.repo.DeactivateSubscription(ctx, id)
}

func (s *ServiceImpl) Poll(ctx context.Context, subscriber string, max int) ([]entity.PolledDelivery, error) {
	if max <= 0 {
		max = 10
	}
	if limit := s.busCfg.MaxPollItems; limit > 0 && max > limit {
		max = limit
	}

	s.logger.Debugf("[subscriber: %s] Poll started, max=%d", subscriber, max)

	return s.repo.PollDeliveries(ctx, subscriber, s.busCfg.PollVisibility, max)
}

func (s *ServiceImpl) Acknowledge(ctx context.Context, id uuid.UUID) error {
	s.logger.Debugf("[delivery: %s] Acknowledge started", id)

	return s.repo.AcknowledgeDelivery(ctx, id)
}

func (s *ServiceImpl) QueryAudit(ctx context.Context, q *entity.AuditQuery) (*entity.AuditPage, error) {
	s.logger.Debugf("QueryAudit started: type=%s source=%s status=%s", q.EventType, q.Source, q.Status)

	return s.repo.QueryAudit(ctx, q)
}

func (s *ServiceImpl) SweepExpiredEvents(ctx context.Context) {
	_, _ = s.repo.DeleteExpiredEvents(ctx)
}
