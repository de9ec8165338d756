package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventbus/internal/appers"
	"eventbus/internal/application/common"
	"eventbus/internal/application/entity"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *RepoImpl) InsertDelivery(ctx context.Context, d *entity.Delivery) error {
	r.logger.Debugf("[delivery: %s] InsertDelivery started, event: %s, subscription: %s",
		d.ID, d.EventID, d.SubscriptionID)

	_, err := r.db.Exec(ctx, insertDeliveryQuery,
		d.ID, d.EventID, d.SubscriptionID, d.Subscriber)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}

	return nil
}

func (r *RepoImpl) ReservePushBatch(ctx context.Context, lease time.Duration, limit int) ([]entity.PushJob, error) {
	r.logger.Debugf("[lease: %s, limit: %d] ReservePushBatch started", lease, limit)

	rows, err := r.db.Query(ctx, reservePushBatchQuery, common.PgInterval(lease), limit)
	if err != nil {
		return nil, fmt.Errorf("reserve push batch: %w", err)
	}
	defer rows.Close()

	var res []entity.PushJob
	for rows.Next() {
		var j entity.PushJob
		var priority string
		var payload, metadata []byte
		if err := rows.Scan(
			&j.DeliveryID, &j.Event.ID, &j.SubscriptionID, &j.Subscriber, &j.RetryCount, &j.LeasedUntil,
			&j.CallbackURL,
			&j.Event.EventType, &j.Event.Source, &payload, &priority,
			&metadata, &j.Event.PublishedAt, &j.Event.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan reserved delivery: %w", err)
		}
		j.Event.Priority = entity.Priority(priority)
		j.Event.Payload = payload
		if err := unmarshalJSONB(metadata, &j.Event.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		res = append(res, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reserve rows err: %w", err)
	}

	return res, nil
}

// ReclaimDelivery атомарно переподтверждает лизинг перед исполнением.
// false — лизинг успел истечь и строку перерезервировал другой тик
// (или доставка уже не pending); такое задание исполнять нельзя.
func (r *RepoImpl) ReclaimDelivery(ctx context.Context, id uuid.UUID, leasedUntil time.Time, lease time.Duration) (bool, error) {
	result, err := r.db.Exec(ctx, reclaimDeliveryQuery, id, leasedUntil, common.PgInterval(lease))
	if err != nil {
		return false, fmt.Errorf("reclaim delivery: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *RepoImpl) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, markDeliveredQuery, id)
	if err != nil {
		return fmt.Errorf("delivery mark delivered: %w", err)
	}
	if result.RowsAffected() == 0 {
		// подписчик успел подтвердить доставку во время попытки
		r.logger.Debugf("[delivery: %s] mark delivered is a no-op, status is terminal", id)
	}
	return nil
}

func (r *RepoImpl) MarkFailedWithBackoff(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time, errMsg string) error {
	_, err := r.db.Exec(ctx, markFailedWithBackoffQuery, id, nextAttemptAt, errMsg)
	if err != nil {
		return fmt.Errorf("delivery mark failed: %w", err)
	}
	return nil
}

// MarkDeadLetter возвращает false, если переход не состоялся: доставку успели
// подтвердить, и dead letter'а не было
func (r *RepoImpl) MarkDeadLetter(ctx context.Context, id uuid.UUID, errMsg string) (bool, error) {
	result, err := r.db.Exec(ctx, markDeadLetterQuery, id, errMsg)
	if err != nil {
		return false, fmt.Errorf("delivery mark dead_letter: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// PollDeliveries выдаёт pending pull-доставки подписчика в порядке приоритета,
// затем published_at, и ставит на каждую лизинг видимости claimed_until.
// Статус не меняется: до Acknowledge доставка остаётся pending.
func (r *RepoImpl) PollDeliveries(ctx context.Context, subscriber string, visibility time.Duration, limit int) ([]entity.PolledDelivery, error) {
	r.logger.Debugf("[subscriber: %s, limit: %d] PollDeliveries started", subscriber, limit)

	rows, err := r.db.Query(ctx, pollDeliveriesQuery, subscriber, common.PgInterval(visibility), limit)
	if err != nil {
		return nil, fmt.Errorf("poll deliveries: %w", err)
	}
	defer rows.Close()

	res := make([]entity.PolledDelivery, 0)
	for rows.Next() {
		var d entity.PolledDelivery
		var priority string
		var payload, metadata []byte
		if err := rows.Scan(
			&d.DeliveryID, &d.RetryCount,
			&d.Event.ID, &d.Event.EventType, &d.Event.Source, &payload, &priority,
			&metadata, &d.Event.PublishedAt, &d.Event.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan polled delivery: %w", err)
		}
		d.Event.Priority = entity.Priority(priority)
		d.Event.Payload = payload
		if err := unmarshalJSONB(metadata, &d.Event.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		res = append(res, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("poll rows err: %w", err)
	}

	return res, nil
}

// AcknowledgeDelivery идемпотентна: повторный ack уже подтверждённой доставки — no-op
func (r *RepoImpl) AcknowledgeDelivery(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, acknowledgeDeliveryQuery, id)
	if err != nil {
		return fmt.Errorf("acknowledge delivery: %w", err)
	}
	if result.RowsAffected() > 0 {
		r.logger.Debugf("[delivery: %s] acknowledged", id)
		return nil
	}

	// Ничего не обновили: либо доставки нет, либо она уже в терминальном статусе
	var status string
	err = r.db.QueryRow(ctx, getDeliveryStatusQuery, id).Scan(&status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return appers.ErrDeliveryNotFound
	case err != nil:
		return fmt.Errorf("get delivery status: %w", err)
	}

	r.logger.Debugf("[delivery: %s] ack is a no-op, status=%s", id, status)
	return nil
}

func (r *RepoImpl) ReplayDeadLetter(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, replayDeadLetterQuery, id)
	if err != nil {
		return fmt.Errorf("replay dead letter: %w", err)
	}
	if result.RowsAffected() > 0 {
		r.logger.Infof("[delivery: %s] dead letter replayed", id)
		return nil
	}

	var status string
	err = r.db.QueryRow(ctx, getDeliveryStatusQuery, id).Scan(&status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return appers.ErrDeliveryNotFound
	case err != nil:
		return fmt.Errorf("get delivery status: %w", err)
	}
	return appers.ErrDeliveryNotDeadLettered
}
