package repo

import (
	"testing"
	"time"

	"eventbus/internal/application/entity"

	"github.com/stretchr/testify/assert"
)

func TestBuildAuditWhere(t *testing.T) {
	t.Run("пустой запрос — без WHERE", func(t *testing.T) {
		where, args := buildAuditWhere(&entity.AuditQuery{})
		assert.Empty(t, where)
		assert.Empty(t, args)
	})

	t.Run("одно условие", func(t *testing.T) {
		where, args := buildAuditWhere(&entity.AuditQuery{EventType: "task_created"})
		assert.Equal(t, " WHERE event_type = $1", where)
		assert.Equal(t, []any{"task_created"}, args)
	})

	t.Run("плейсхолдеры нумеруются подряд", func(t *testing.T) {
		from := time.Date(2026, 1, 20, 11, 0, 0, 0, time.UTC)
		to := from.Add(8 * time.Hour)

		where, args := buildAuditWhere(&entity.AuditQuery{
			EventType: "task_created",
			Source:    "agent-1",
			From:      from,
			To:        to,
			Status:    entity.DeliveryDeadLetter,
		})

		assert.Equal(t,
			" WHERE event_type = $1 AND source = $2 AND published_at >= $3 AND published_at <= $4"+
				" AND EXISTS (SELECT 1 FROM deliveries d WHERE d.event_id = events.id AND d.status = $5)",
			where)
		assert.Equal(t, []any{"task_created", "agent-1", from, to, "dead_letter"}, args)
	})

	t.Run("диапазон без остальных фильтров", func(t *testing.T) {
		from := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
		where, args := buildAuditWhere(&entity.AuditQuery{From: from})
		assert.Equal(t, " WHERE published_at >= $1", where)
		assert.Len(t, args, 1)
	})
}
