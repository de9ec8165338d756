package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eventbus/internal/appers"
	"eventbus/internal/application/entity"
	"eventbus/pkg/db"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type Repo interface {
	InsertEvent(ctx context.Context, evt *entity.Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	DeleteExpiredEvents(ctx context.Context) (int64, error)

	InsertSubscription(ctx context.Context, sub *entity.Subscription) error
	FindActiveSubscription(ctx context.Context, subscriber string, eventTypes []string) (uuid.UUID, bool, error)
	DeactivateSubscription(ctx context.Context, id uuid.UUID) error
	ListActiveSubscriptions(ctx context.Context, eventType string) ([]*entity.Subscription, error)
	TouchSubscriptionDelivery(ctx context.Context, id uuid.UUID) error

	InsertDelivery(ctx context.Context, d *entity.Delivery) error
	ReservePushBatch(ctx context.Context, lease time.Duration, limit int) ([]entity.PushJob, error)
	ReclaimDelivery(ctx context.Context, id uuid.UUID, leasedUntil time.Time, lease time.Duration) (bool, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	MarkFailedWithBackoff(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time, errMsg string) error
	MarkDeadLetter(ctx context.Context, id uuid.UUID, errMsg string) (bool, error)
	PollDeliveries(ctx context.Context, subscriber string, visibility time.Duration, limit int) ([]entity.PolledDelivery, error)
	AcknowledgeDelivery(ctx context.Context, id uuid.UUID) error
	ReplayDeadLetter(ctx context.Context, id uuid.UUID) error

	QueryAudit(ctx context.Context, q *entity.AuditQuery) (*entity.AuditPage, error)
	BusStats(ctx context.Context) (*entity.BusStats, error)
	HealthCheck(ctx context.Context) error
}

type RepoImpl struct {
	db     db.DB
	logger *zap.SugaredLogger
}

func NewRepo(db db.DB, logger *zap.SugaredLogger) *RepoImpl {
	return &RepoImpl{db: db, logger: logger}
}

func (r *RepoImpl) HealthCheck(ctx context.Context) error {
	// Проверяем доступность БД через простой запрос
	var result int
	err := r.db.QueryRow(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// ===== EVENTS =====

func (r *RepoImpl) InsertEvent(ctx context.Context, evt *entity.Event) error {
	r.logger.Debugf("[event: %s] start inserting into DB", evt.ID)

	metadata, err := marshalJSONB(evt.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	payload := []byte(evt.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}

	var insertedID uuid.UUID
	err = r.db.QueryRow(ctx, insertEventQuery,
		evt.ID, evt.EventType, evt.Source, payload, string(evt.Priority),
		metadata, evt.PublishedAt, evt.ExpiresAt).Scan(&insertedID)

	switch {
	case err == nil:
		r.logger.Debugf("[event: %s] inserted into DB successfully", evt.ID)
		return nil
	case errors.Is(err, pgx.ErrNoRows), isDuplicateKeyError(err):
		// id генерируется сервером, конфликт практически невозможен
		r.logger.Warnf("[event: %s] inserting event: already exists", evt.ID)
		return nil
	default:
		r.logger.Errorf("[event: %s] error inserting into DB: %v", evt.ID, err)
		return fmt.Errorf("error inserting into DB: %w", err)
	}
}

func (r *RepoImpl) GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	r.logger.Debugf("[event: %s] start getting from DB", id)

	var evt entity.Event
	var priority string
	var payload, metadata []byte
	err := r.db.QueryRow(ctx, getEventQuery, id).Scan(
		&evt.ID, &evt.EventType, &evt.Source, &payload, &priority,
		&metadata, &evt.PublishedAt, &evt.ExpiresAt)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, appers.ErrEventNotFound
	case err != nil:
		r.logger.Errorf("[event: %s] error getting from DB: %v", id, err)
		return nil, fmt.Errorf("error getting from DB: %w", err)
	}

	evt.Priority = entity.Priority(priority)
	evt.Payload = payload
	if err := unmarshalJSONB(metadata, &evt.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &evt, nil
}

func (r *RepoImpl) DeleteExpiredEvents(ctx context.Context) (int64, error) {
	r.logger.Info("start deleting expired events from DB")

	result, err := r.db.Exec(ctx, deleteExpiredEventsQuery)
	if err != nil {
		r.logger.Errorf("error deleting expired events from DB: %v", err)
		return 0, fmt.Errorf("error deleting expired events from DB: %w", err)
	}
	rowsAffected := result.RowsAffected()
	if rowsAffected == 0 {
		r.logger.Info("no expired events to delete")
		return 0, nil
	}
	r.logger.Infof("deleted %d expired events from DB (deliveries cascaded)", rowsAffected)
	return rowsAffected, nil
}

// ===== SUBSCRIPTIONS =====

func (r *RepoImpl) InsertSubscription(ctx context.Context, sub *entity.Subscription) error {
	r.logger.Debugf("[subscription: %s] start inserting into DB", sub.ID)

	filter, err := marshalJSONB(sub.Filter)
	if err != nil {
		return fmt.Errorf("marshal filter: %w", err)
	}

	var insertedID uuid.UUID
	err = r.db.QueryRow(ctx, insertSubscriptionQuery,
		sub.ID, sub.Subscriber, sub.EventTypes, filter,
		string(sub.DeliveryMode), sub.CallbackURL).Scan(&insertedID)
	if err != nil {
		r.logger.Errorf("[subscription: %s] error inserting into DB: %v", sub.ID, err)
		return fmt.Errorf("error inserting into DB: %w", err)
	}

	r.logger.Debugf("[subscription: %s] inserted into DB successfully", sub.ID)
	return nil
}

func (r *RepoImpl) FindActiveSubscription(ctx context.Context, subscriber string, eventTypes []string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, findActiveSubscriptionQuery, subscriber, eventTypes).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return uuid.Nil, false, nil
	case err != nil:
		return uuid.Nil, false, fmt.Errorf("find subscription: %w", err)
	}
	return id, true, nil
}

func (r *RepoImpl) DeactivateSubscription(ctx context.Context, id uuid.UUID) error {
	r.logger.Debugf("[subscription: %s] start deactivating in DB", id)

	result, err := r.db.Exec(ctx, deactivateSubscriptionQuery, id)
	if err != nil {
		r.logger.Errorf("[subscription: %s] error deactivating in DB: %v", id, err)
		return fmt.Errorf("error deactivating in DB: %w", err)
	}
	if result.RowsAffected() == 0 {
		r.logger.Warnf("[subscription: %s] no rows deactivated", id)
		return appers.ErrSubscriptionNotFound
	}
	r.logger.Debugf("[subscription: %s] deactivated in DB successfully", id)
	return nil
}

func (r *RepoImpl) ListActiveSubscriptions(ctx context.Context, eventType string) ([]*entity.Subscription, error) {
	rows, err := r.db.Query(ctx, listActiveSubscriptionsQuery, eventType)
	if err != nil {
		r.logger.Errorf("[type: %s] error listing subscriptions: %v", eventType, err)
		return nil, fmt.Errorf("error listing subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

func (r *RepoImpl) TouchSubscriptionDelivery(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, touchSubscriptionDeliveryQuery, id)
	if err != nil {
		return fmt.Errorf("touch subscription: %w", err)
	}
	return nil
}

func scanSubscriptions(rows pgx.Rows) ([]*entity.Subscription, error) {
	subs := make([]*entity.Subscription, 0)
	for rows.Next() {
		var sub entity.Subscription
		var mode string
		var filter []byte
		err := rows.Scan(&sub.ID, &sub.Subscriber, &sub.EventTypes, &filter,
			&mode, &sub.CallbackURL, &sub.Active, &sub.CreatedAt, &sub.LastDeliveryAt)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.DeliveryMode = entity.DeliveryMode(mode)
		if err := unmarshalJSONB(filter, &sub.Filter); err != nil {
			return nil, fmt.Errorf("unmarshal filter: %w", err)
		}
		subs = append(subs, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("subscription rows err: %w", err)
	}
	return subs, nil
}

// ===== helpers =====

func marshalJSONB(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func unmarshalJSONB(raw []byte, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// isDuplicateKeyError проверяет, является ли ошибка ошибкой дубликата ключа (SQLSTATE 23505)
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
