package use_cases

import (
	"context"

	"eventbus/internal/application/entity"
	"eventbus/internal/application/service"
	"eventbus/pkg/config"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

type UseCaser interface {
	Publish(ctx context.Context, req *entity.PublishRequest) (uuid.UUID, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	Subscribe(ctx context.Context, req *entity.SubscribeRequest) (uuid.UUID, bool, error)
	Unsubscribe(ctx context.Context, id uuid.UUID) error
	Poll(ctx context.Context, subscriber string, max int) ([]entity.PolledDelivery, error)
	Acknowledge(ctx context.Context, id uuid.UUID) error
	ReplayDeadLetter(ctx context.Context, id uuid.UUID) error
	QueryAudit(ctx context.Context, q *entity.AuditQuery) (*entity.AuditPage, error)
	SweepExpiredEvents(ctx context.Context)
	RunDispatcher(ctx context.Context)

	HealthCheck(ctx context.Context) (dbHealthy bool, stats *entity.BusStats, err error)
}

type UseCase struct {
	service service.Service
	logger  *zap.SugaredLogger
	conf    *config.Config
}

func NewUseCase(service service.Service, logger *zap.SugaredLogger, conf *config.Config) *UseCase {
	return &UseCase{
		service: service,
		logger:  logger,
		conf:    conf,
	}
}

func (u *UseCase) HealthCheck(ctx context.Context) (bool, *entity.BusStats, error) {
	return u.service.HealthCheck(ctx)
}

func (u *UseCase) Publish(ctx context.Context, req *entity.PublishRequest) (uuid.UUID, error) {
	u.logger.Debugf("[type: %s, source: %s] Publish started", req.EventType, req.Source)
	return u.service.Publish(ctx, req)
}

func (u *UseCase) GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	u.logger.Debugf("[event: %s] GetEvent started", id)
	return u.service.GetEvent(ctx, id)
}

func (u *UseCase) Subscribe(ctx context.Context, req *entity.SubscribeRequest) (uuid.UUID, bool, error) {
	u.logger.Debugf("[subscriber: %s] Subscribe started", req.Subscriber)
	return u.service.Subscribe(ctx, req)
}

func (u *UseCase) Unsubscribe(ctx context.Context, id uuid.UUID) error {
	u.logger.Debugf("[subscription: %s] Unsubscribe started", id)
	return u.service.Unsubscribe(ctx, id)
}

func (u *UseCase) Poll(ctx context.Context, subscriber string, max int) ([]entity.PolledDelivery, error) {
	u.logger.Debugf("[subscriber: %s] Poll started", subscriber)
	return u.service.Poll(ctx, subscriber, max)
}

func (u *UseCase) Acknowledge(ctx context.Context, id uuid.UUID) error {
	u.logger.Debugf("[delivery: %s] Acknowledge started", id)
	return u.service.Acknowledge(ctx, id)
}

func (u *UseCase) ReplayDeadLetter(ctx context.Context, id uuid.UUID) error {
	u.logger.Infof("[delivery: %s] ReplayDeadLetter started", id)
	return u.service.ReplayDeadLetter(ctx, id)
}

func (u *UseCase) QueryAudit(ctx context.Context, q *entity.AuditQuery) (*entity.AuditPage, error) {
	u.logger.Debugf("QueryAudit started")
	return u.service.QueryAudit(ctx, q)
}

func (u *UseCase) SweepExpiredEvents(ctx context.Context) {
	u.logger.Info("SweepExpiredEvents called")
	u.service.SweepExpiredEvents(ctx)
}

func (u *UseCase) RunDispatcher(ctx context.Context) {
	u.logger.Debug("dispatcher started")
	u.service.DispatchRun(ctx)
}
