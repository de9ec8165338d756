package entity

import (
	"sort"
	"time"

	"github.com/gofrs/uuid"
)

type DeliveryMode string

const (
	ModePush DeliveryMode = "push"
	ModePull DeliveryMode = "pull"
)

func (m DeliveryMode) Valid() bool {
	return m == ModePush || m == ModePull
}

// Filter — необязательный предикат подписки поверх source/priority/metadata.
// Пустой фильтр пропускает всё.
type Filter struct {
	Sources    []string          `json:"sources,omitempty"`
	Priorities []Priority        `json:"priorities,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Matches проверяет событие против фильтра. Каждое заполненное измерение
// должно совпасть; metadata сравнивается по всем указанным ключам.
func (f *Filter) Matches(evt *Event) bool {
	if f == nil {
		return true
	}

	if len(f.Sources) > 0 && !containsString(f.Sources, evt.Source) {
		return false
	}

	if len(f.Priorities) > 0 {
		found := false
		for _, p := range f.Priorities {
			if p == evt.Priority {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for k, v := range f.Metadata {
		if evt.Metadata[k] != v {
			return false
		}
	}

	return true
}

type Subscription struct {
	ID             uuid.UUID    `json:"subscription_id"`
	Subscriber     string       `json:"subscriber"`
	EventTypes     []string     `json:"event_types"` // пустой набор = все типы
	Filter         *Filter      `json:"filter,omitempty"`
	DeliveryMode   DeliveryMode `json:"delivery_mode"`
	CallbackURL    string       `json:"callback_url,omitempty"`
	Active         bool         `json:"active"`
	CreatedAt      time.Time    `json:"created_at"`
	LastDeliveryAt *time.Time   `json:"last_delivery_at,omitempty"`
}

// WantsType сообщает, интересует ли подписку данный тип события
func (s *Subscription) WantsType(eventType string) bool {
	if len(s.EventTypes) == 0 {
		return true
	}
	return containsString(s.EventTypes, eventType)
}

// Matches — полный предикат диспетчера: тип + фильтр
func (s *Subscription) Matches(evt *Event) bool {
	return s.WantsType(evt.EventType) && s.Filter.Matches(evt)
}

// SubscribeRequest — тело запроса POST /subscriptions
type SubscribeRequest struct {
	Subscriber   string   `json:"subscriber" validate:"required,min=1,max=100"`
	EventTypes   []string `json:"event_types" validate:"omitempty,dive,min=1,max=200"`
	Filter       *Filter  `json:"filter"`
	DeliveryMode string   `json:"delivery_mode" validate:"required,oneof=push pull"`
	CallbackURL  string   `json:"callback_url" validate:"omitempty,callback_url"`
}

// NormalizeEventTypes сортирует и дедуплицирует набор типов.
// Нормализованная форма — ключ идемпотентности повторной подписки.
func NormalizeEventTypes(types []string) []string {
	if len(types) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(types))
	out := make([]string, 0, len(types))
	for _, t := range types {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
