package repo

import (
	"context"
	"fmt"
	"strings"

	"eventbus/internal/application/entity"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// QueryAudit — read-only выборка событий с их доставками для отладки и
// комплаенса. Никаких мутаций: только SELECT.
func (r *RepoImpl) QueryAudit(ctx context.Context, q *entity.AuditQuery) (*entity.AuditPage, error) {
	where, args := buildAuditWhere(q)

	limit := q.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	countQuery := "SELECT count(*) FROM events" + where
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("audit count: %w", err)
	}

	pageQuery := fmt.Sprintf(
		`SELECT id, event_type, source, payload, priority, metadata, published_at, expires_at
FROM events%s
ORDER BY published_at DESC
LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)

	rows, err := r.db.Query(ctx, pageQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("audit events: %w", err)
	}
	defer rows.Close()

	records := make([]entity.AuditRecord, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var evt entity.Event
		var priority string
		var payload, metadata []byte
		if err := rows.Scan(&evt.ID, &evt.EventType, &evt.Source, &payload, &priority,
			&metadata, &evt.PublishedAt, &evt.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		evt.Priority = entity.Priority(priority)
		evt.Payload = payload
		if err := unmarshalJSONB(metadata, &evt.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		records = append(records, entity.AuditRecord{Event: evt, Deliveries: []entity.Delivery{}})
		ids = append(ids, evt.ID.String())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit rows err: %w", err)
	}

	if len(ids) > 0 {
		if err := r.attachDeliveries(ctx, records, ids); err != nil {
			return nil, err
		}
	}

	return &entity.AuditPage{
		Records: records,
		Limit:   limit,
		Offset:  offset,
		Total:   total,
	}, nil
}

func (r *RepoImpl) attachDeliveries(ctx context.Context, records []entity.AuditRecord, ids []string) error {
	rows, err := r.db.Query(ctx, auditDeliveriesForEventsQuery, ids)
	if err != nil {
		return fmt.Errorf("audit deliveries: %w", err)
	}
	defer rows.Close()

	byEvent := make(map[string]int, len(records))
	for i, rec := range records {
		byEvent[rec.Event.ID.String()] = i
	}

	for rows.Next() {
		var d entity.Delivery
		var status string
		if err := rows.Scan(&d.ID, &d.EventID, &d.SubscriptionID, &d.Subscriber, &status,
			&d.RetryCount, &d.NextAttemptAt, &d.DeliveredAt, &d.AcknowledgedAt,
			&d.ErrorMessage, &d.CreatedAt); err != nil {
			return fmt.Errorf("scan audit delivery: %w", err)
		}
		d.Status = entity.DeliveryStatus(status)
		if i, ok := byEvent[d.EventID.String()]; ok {
			records[i].Deliveries = append(records[i].Deliveries, d)
		}
	}
	return rows.Err()
}

// buildAuditWhere собирает WHERE из заполненных полей запроса
func buildAuditWhere(q *entity.AuditQuery) (string, []any) {
	cond := make([]string, 0, 5)
	args := make([]any, 0, 5)
	i := 1

	add := func(expr string, value any) {
		cond = append(cond, fmt.Sprintf(expr, i))
		args = append(args, value)
		i++
	}

	if q.EventType != "" {
		add("event_type = $%d", q.EventType)
	}
	if q.Source != "" {
		add("source = $%d", q.Source)
	}
	if !q.From.IsZero() {
		add("published_at >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("published_at <= $%d", q.To)
	}
	if q.Status != "" {
		add("EXISTS (SELECT 1 FROM deliveries d WHERE d.event_id = events.id AND d.status = $%d)", string(q.Status))
	}

	if len(cond) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(cond, " AND "), args
}

func (r *RepoImpl) BusStats(ctx context.Context) (*entity.BusStats, error) {
	var s entity.BusStats
	err := r.db.QueryRow(ctx, busStatsQuery).Scan(
		&s.EventsTotal, &s.EventsLastHour, &s.Subscribers, &s.DeliverySuccessRate)
	if err != nil {
		return nil, fmt.Errorf("bus stats: %w", err)
	}
	return &s, nil
}
