package entity

import "time"

// AuditQuery — параметры read-only запроса GET /audit.
// Любое поле необязательно; пустой запрос листает все события.
type AuditQuery struct {
	EventType string
	Source    string
	From      time.Time
	To        time.Time
	Status    DeliveryStatus // фильтр по статусу доставок события
	Limit     int
	Offset    int
}

// AuditRecord — событие вместе с его доставками
type AuditRecord struct {
	Event      Event      `json:"event"`
	Deliveries []Delivery `json:"deliveries"`
}

// AuditPage — страница выдачи аудита
type AuditPage struct {
	Records []AuditRecord `json:"records"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	Total   int64         `json:"total"`
}
