package entity

// BusStats агрегаты для health check
type BusStats struct {
	EventsTotal         int64   `json:"events_total"`
	EventsLastHour      int64   `json:"events_last_hour"`
	Subscribers         int64   `json:"subscribers"`
	DeliverySuccessRate float64 `json:"delivery_success_rate"`
}

// HealthCheckResponse структура ответа для health check
type HealthCheckResponse struct {
	Status  bool            `json:"status" example:"true"`
	Message string          `json:"message" example:"success"`
	Version string          `json:"version" example:"0.1.0"`
	Checks  HealthCheckData `json:"checks"`
	Stats   BusStats        `json:"stats"`
}

// HealthCheckData детали проверок
type HealthCheckData struct {
	Database HealthCheckItem `json:"database"`
}

// HealthCheckItem информация о проверке компонента
type HealthCheckItem struct {
	Status bool   `json:"status" example:"true"`
	Type   string `json:"type" example:"postgresql"`
	Error  string `json:"error,omitempty" example:"Database connection failed"`
}
