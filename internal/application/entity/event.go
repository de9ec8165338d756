package entity

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// DefaultPriority используется, если издатель не указал приоритет
const DefaultPriority = PriorityNormal

// Окна хранения по приоритетам
var retentionByPriority = map[Priority]time.Duration{
	PriorityCritical: 90 * 24 * time.Hour,
	PriorityHigh:     30 * 24 * time.Hour,
	PriorityNormal:   7 * 24 * time.Hour,
	PriorityLow:      24 * time.Hour,
}

func (p Priority) Valid() bool {
	_, ok := retentionByPriority[p]
	return ok
}

// Retention возвращает окно хранения события данного приоритета
func (p Priority) Retention() time.Duration {
	if d, ok := retentionByPriority[p]; ok {
		return d
	}
	return retentionByPriority[DefaultPriority]
}

type Event struct {
	ID          uuid.UUID         `json:"event_id"`
	EventType   string            `json:"event_type"`
	Source      string            `json:"source"`
	Payload     json.RawMessage   `json:"payload"`
	Priority    Priority          `json:"priority"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// PublishRequest — тело запроса POST /events
type PublishRequest struct {
	EventType string            `json:"event_type" validate:"required,min=1,max=200"`
	Source    string            `json:"source" validate:"required,min=1,max=100"`
	Payload   json.RawMessage   `json:"payload"`
	Priority  string            `json:"priority" validate:"omitempty,priority"`
	Metadata  map[string]string `json:"metadata"`
}

// NewEvent собирает хранимое событие из запроса публикации.
// expires_at выводится из published_at и окна хранения приоритета.
func NewEvent(id uuid.UUID, req *PublishRequest, publishedAt time.Time) *Event {
	p := Priority(req.Priority)
	if req.Priority == "" {
		p = DefaultPriority
	}

	return &Event{
		ID:          id,
		EventType:   req.EventType,
		Source:      req.Source,
		Payload:     req.Payload,
		Priority:    p,
		Metadata:    req.Metadata,
		PublishedAt: publishedAt,
		ExpiresAt:   publishedAt.Add(p.Retention()),
	}
}
