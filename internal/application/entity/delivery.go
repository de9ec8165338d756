package entity

import (
	"time"

	"github.com/gofrs/uuid"
)

type DeliveryStatus string

const (
	DeliveryPending      DeliveryStatus = "pending"
	DeliveryDelivered    DeliveryStatus = "delivered"
	DeliveryAcknowledged DeliveryStatus = "acknowledged"
	DeliveryFailed       DeliveryStatus = "failed"
	DeliveryDeadLetter   DeliveryStatus = "dead_letter"
)

// Delivery — обязательство доставить одно событие одной подписке.
// Создаётся pending при fan-out, уникально по паре (event_id, subscription_id).
type Delivery struct {
	ID             uuid.UUID      `json:"delivery_id"`
	EventID        uuid.UUID      `json:"event_id"`
	SubscriptionID uuid.UUID      `json:"subscription_id"`
	Subscriber     string         `json:"subscriber"`
	Status         DeliveryStatus `json:"status"`
	RetryCount     int            `json:"retry_count"`
	NextAttemptAt  time.Time      `json:"next_attempt_at"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// PolledDelivery — элемент ответа Poll: доставка вместе с конвертом события.
// event_id в конверте — ключ идемпотентности для потребителя.
type PolledDelivery struct {
	DeliveryID uuid.UUID `json:"delivery_id"`
	Event      Event     `json:"event"`
	RetryCount int       `json:"retry_count"`
}

// PushJob — зарезервированная push-доставка вместе со всем необходимым
// для попытки: адресом callback и конвертом события.
// LeasedUntil — метка лизинга на момент резервирования; перед исполнением
// воркер переподтверждает захват по ней.
type PushJob struct {
	DeliveryID     uuid.UUID
	SubscriptionID uuid.UUID
	Subscriber     string
	CallbackURL    string
	RetryCount     int
	LeasedUntil    time.Time
	Event          Event
}

// AckRequest — тело запроса POST /ack
type AckRequest struct {
	DeliveryID string `json:"delivery_id" validate:"required,uuid4"`
}
