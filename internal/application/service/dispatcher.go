package service

import (
	"context"
	"encoding/json"
	"time"

	"eventbus/internal/application/common"
	"eventbus/internal/application/entity"

	"github.com/gofrs/uuid"
)

// Тип служебного события, публикуемого шиной при уходе доставки в dead letter.
// Мониторинговые агенты подписываются на него как на обычное событие.
const deadLetterEventType = "delivery_dead_lettered"

const busSource = "EVENT_BUS"

// DispatchRun — цикл диспетчера push-доставок: резервирует пачки due-доставок
// лизингом и раздаёт их пулу воркеров. Каждая доставка исполняется ровно одним
// воркером за раз (лизинг эксклюзивен).
func (s *ServiceImpl) DispatchRun(ctx context.Context) {
	s.logger.Infow("dispatcher started",
		"workers", s.dispCfg.Workers, "batch", s.dispCfg.BatchSize, "lease", s.dispCfg.Lease.String())

	jobs := make(chan entity.PushJob, s.dispCfg.BatchSize*2)

	// стартуем воркеров
	for i := 0; i < s.dispCfg.Workers; i++ {
		go s.worker(ctx, i, jobs)
	}

	ticker := time.NewTicker(s.dispCfg.PollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("dispatcher stopping")
			return
		case <-ticker.C:
			batch, err := s.repo.ReservePushBatch(ctx, s.dispCfg.Lease, s.dispCfg.BatchSize)
			if err != nil {
				s.logger.Errorw("reserve push batch failed", "err", err)
				continue
			}

			s.logger.Debugf("len jobs: %d, len batch: %d", len(jobs), len(batch))
			for _, j := range batch {
				select {
				case jobs <- j:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (s *ServiceImpl) worker(ctx context.Context, id int, jobs <-chan entity.PushJob) {
	s.logger.Infow("worker started", "id", id)
	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("worker stopping", "id", id)
			return
		case j := <-jobs:
			s.ProcessOne(ctx, id, j)
		}
	}
}

// ProcessOne выполняет одну push-попытку (экспортируем для тестирования).
// Попытка ограничена жёстким таймаутом, чтобы медленный подписчик не
// останавливал пул.
func (s *ServiceImpl) ProcessOne(ctx context.Context, wid int, j entity.PushJob) {
	s.logger.Debugf("[delivery %s] push attempt started, workerID: %d, retry_count: %d",
		j.DeliveryID, wid, j.RetryCount)

	// Задание могло пролежать в канале дольше лизинга, и строку перерезервировал
	// следующий тик. Переподтверждаем захват: без него доставку исполняли бы
	// два воркера одновременно.
	claimed, err := s.repo.ReclaimDelivery(ctx, j.DeliveryID, j.LeasedUntil, s.dispCfg.Lease)
	if err != nil {
		s.logger.Errorf("[delivery %s] reclaim failed: %v", j.DeliveryID, err)
		return
	}
	if !claimed {
		s.logger.Debugf("[delivery %s] lease lost, skipping stale job", j.DeliveryID)
		return
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.dispCfg.AttemptTimeout)
	err = s.sender.Send(attemptCtx, &j)
	cancel()

	if err == nil {
		// обновление в БД; воркер держит лизинг, гонок по строке нет
		if err := s.repo.MarkDelivered(ctx, j.DeliveryID); err != nil {
			// доставка уже ушла подписчику; лизинг истечёт и попытка повторится —
			// подписчик обязан дедуплицировать по event_id
			s.logger.Errorf("[delivery %s] mark delivered failed: %v", j.DeliveryID, err)
			return
		}
		_ = s.repo.TouchSubscriptionDelivery(ctx, j.SubscriptionID)

		if s.m != nil {
			s.m.Delivery.PushOperationsTotal.WithLabelValues("delivered").Inc()
			s.m.Delivery.PushSuccessAttempts.WithLabelValues(j.Subscriber).Observe(float64(j.RetryCount + 1))
		}
		s.logger.Infof("[delivery %s] delivered to %s", j.DeliveryID, j.Subscriber)
		return
	}

	s.logger.Warnf("[delivery %s] push attempt failed, retry_count=%d, err: %v",
		j.DeliveryID, j.RetryCount, err)
	s.retryOrDeadLetter(ctx, &j, err.Error())
}

// retryOrDeadLetter применяет фиксированное расписание: 1s, 5s, 15s.
// Провал при retry_count уже на ceiling'е — dead letter, не четвёртый ретрай.
func (s *ServiceImpl) retryOrDeadLetter(ctx context.Context, j *entity.PushJob, errMsg string) {
	if j.RetryCount >= s.dispCfg.MaxRetries {
		moved, err := s.repo.MarkDeadLetter(ctx, j.DeliveryID, errMsg)
		if err != nil {
			s.logger.Errorf("[delivery %s] mark dead_letter failed: %v", j.DeliveryID, err)
			return
		}
		if !moved {
			// доставку успели подтвердить во время попытки — dead letter'а нет
			s.logger.Debugf("[delivery %s] dead_letter is a no-op, status is terminal", j.DeliveryID)
			return
		}

		if s.m != nil {
			s.m.Delivery.PushOperationsTotal.WithLabelValues("dead_letter").Inc()
			s.m.Delivery.DeadLettersTotal.Inc()
		}
		s.logger.Errorf("[delivery %s] moved to dead_letter after %d retries, subscriber=%s",
			j.DeliveryID, j.RetryCount, j.Subscriber)

		s.emitDeadLetterEvent(ctx, j)
		return
	}

	next := time.Now().UTC().Add(common.RetryBackoff(j.RetryCount + 1))
	if err := s.repo.MarkFailedWithBackoff(ctx, j.DeliveryID, next, errMsg); err != nil {
		s.logger.Errorf("[delivery %s] mark failed failed: %v", j.DeliveryID, err)
		return
	}
	if s.m != nil {
		s.m.Delivery.PushOperationsTotal.WithLabelValues("retry").Inc()
	}
}

// emitDeadLetterEvent публикует critical-событие о dead letter'е, если включено
// в конфиге. События самой шины не порождают вторичных уведомлений — иначе
// недоступный мониторинговый подписчик зациклил бы шину на самой себе.
func (s *ServiceImpl) emitDeadLetterEvent(ctx context.Context, j *entity.PushJob) {
	if !s.busCfg.DeadLetterEvents {
		return
	}
	if j.Event.Source == busSource {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"delivery_id":     j.DeliveryID.String(),
		"event_id":        j.Event.ID.String(),
		"event_type":      j.Event.EventType,
		"subscription_id": j.SubscriptionID.String(),
		"subscriber":      j.Subscriber,
	})
	if err != nil {
		s.logger.Errorf("[delivery %s] marshal dead letter payload: %v", j.DeliveryID, err)
		return
	}

	req := &entity.PublishRequest{
		EventType: deadLetterEventType,
		Source:    busSource,
		Payload:   payload,
		Priority:  string(entity.PriorityCritical),
	}
	if _, err := s.Publish(ctx, req); err != nil {
		s.logger.Errorf("[delivery %s] publish %s failed: %v", j.DeliveryID, deadLetterEventType, err)
	}
}

// ReplayDeadLetter возвращает dead letter в pending с обнулённым счётчиком —
// ручное восстановление после устранения причины на стороне подписчика
func (s *ServiceImpl) ReplayDeadLetter(ctx context.Context, id uuid.UUID) error {
	s.logger.Infof("[delivery: %s] ReplayDeadLetter started", id)

	if err := s.repo.ReplayDeadLetter(ctx, id); err != nil {
		return err
	}
	if s.m != nil {
		s.m.Delivery.ReplaysTotal.Inc()
	}
	return nil
}
