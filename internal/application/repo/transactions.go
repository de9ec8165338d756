package repo

import (
	"context"
	"fmt"

	"eventbus/internal/application/entity"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

type Transactions interface {
	PublishEvent(ctx context.Context, evt *entity.Event) (int, error)
	Subscribe(ctx context.Context, sub *entity.Subscription) (uuid.UUID, bool, error)
}

// TxRunner — шов транзакции: db.Postgres реализует его через
// tx-in-context, тесты подставляют сквозной прогон
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TransactionsImpl struct {
	repo   Repo
	tx     TxRunner
	logger *zap.SugaredLogger
}

func NewTransactions(repo Repo, tx TxRunner, logger *zap.SugaredLogger) *TransactionsImpl {
	return &TransactionsImpl{repo: repo, tx: tx, logger: logger}
}

// PublishEvent — транзакционный fan-out: событие и все его pending-доставки
// пишутся одной транзакцией. Либо создаются все доставки, либо ни одной;
// благодаря уникальному ключу (event_id, subscription_id) повторный прогон
// fan-out после сбоя идемпотентен.
// Возвращает число созданных доставок.
func (t *TransactionsImpl) PublishEvent(ctx context.Context, evt *entity.Event) (int, error) {
	fanout := 0

	err := t.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := t.repo.InsertEvent(ctx, evt); err != nil {
			t.logger.Errorf("[event: %s] insert event failed: %v", evt.ID, err)
			return err
		}

		subs, err := t.repo.ListActiveSubscriptions(ctx, evt.EventType)
		if err != nil {
			t.logger.Errorf("[event: %s] list subscriptions failed: %v", evt.ID, err)
			return err
		}

		for _, sub := range subs {
			if !sub.Matches(evt) {
				continue
			}

			deliveryID, err := uuid.NewV4()
			if err != nil {
				return fmt.Errorf("generate delivery id: %w", err)
			}

			d := entity.Delivery{
				ID:             deliveryID,
				EventID:        evt.ID,
				SubscriptionID: sub.ID,
				Subscriber:     sub.Subscriber,
				Status:         entity.DeliveryPending,
			}
			if err := t.repo.InsertDelivery(ctx, &d); err != nil {
				t.logger.Errorf("[event: %s] insert delivery for subscription %s failed: %v",
					evt.ID, sub.ID, err)
				return err
			}
			fanout++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	t.logger.Debugf("[event: %s] fan-out created %d deliveries", evt.ID, fanout)
	return fanout, nil
}

// Subscribe идемпотентна по (subscriber, нормализованный event_types):
// повторная регистрация возвращает существующий subscription_id.
// Возвращает (id, created).
func (t *TransactionsImpl) Subscribe(ctx context.Context, sub *entity.Subscription) (uuid.UUID, bool, error) {
	var id uuid.UUID
	created := false

	err := t.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, found, err := t.repo.FindActiveSubscription(ctx, sub.Subscriber, sub.EventTypes)
		if err != nil {
			return err
		}
		if found {
			t.logger.Infof("[subscriber: %s] idempotent hit: subscription %s already exists",
				sub.Subscriber, existing)
			id = existing
			return nil
		}

		if err := t.repo.InsertSubscription(ctx, sub); err != nil {
			return err
		}
		id = sub.ID
		created = true
		return nil
	})
	if err != nil {
		return uuid.Nil, false, err
	}

	return id, created, nil
}
