package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventbus/internal/appers"
	"eventbus/internal/application/common"
	"eventbus/internal/application/entity"
	use_cases "eventbus/internal/application/use-cases"
	"eventbus/pkg/validator"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

type Handler interface {
	Publish(c *fiber.Ctx) error
	GetEvent(c *fiber.Ctx) error
	Subscribe(c *fiber.Ctx) error
	Unsubscribe(c *fiber.Ctx) error
	Poll(c *fiber.Ctx) error
	Acknowledge(c *fiber.Ctx) error
	ReplayDeadLetter(c *fiber.Ctx) error
	QueryAudit(c *fiber.Ctx) error
	HealthCheck(c *fiber.Ctx) error
}

type HandlerImpl struct {
	usecase use_cases.UseCaser
	logger  *zap.SugaredLogger
}

func NewBusHandler(usecase use_cases.UseCaser, logger *zap.SugaredLogger) *HandlerImpl {
	return &HandlerImpl{
		usecase: usecase,
		logger:  logger,
	}
}

// formatValidationErrors форматирует ошибки валидации в понятный формат для клиента
func formatValidationErrors(err error) fiber.Map {
	var errors []string
	if validationErrors, ok := err.(playgroundvalidator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			tag := e.Tag()
			var message string
			switch tag {
			case "required":
				message = fmt.Sprintf("поле '%s' обязательно для заполнения", field)
			case "min":
				message = fmt.Sprintf("поле '%s' должно содержать минимум %s символов", field, e.Param())
			case "max":
				message = fmt.Sprintf("поле '%s' должно содержать максимум %s символов", field, e.Param())
			case "priority":
				message = fmt.Sprintf("поле '%s' должно быть одним из critical/high/normal/low", field)
			case "callback_url":
				message = fmt.Sprintf("поле '%s' должно быть абсолютным http(s) URL", field)
			case "oneof":
				message = fmt.Sprintf("поле '%s' должно быть одним из: %s", field, e.Param())
			case "uuid4":
				message = fmt.Sprintf("поле '%s' должно быть UUID", field)
			default:
				message = fmt.Sprintf("поле '%s' не прошло валидацию: %s", field, tag)
			}
			errors = append(errors, message)
		}
	} else {
		errors = append(errors, err.Error())
	}
	return fiber.Map{
		"error":   "validation failed",
		"details": errors,
	}
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Params(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("невалидный %s: должен быть UUID", name)
	}
	return id, nil
}

// HealthCheck godoc
// @Summary     Проверка состояния шины
// @Description Проверяет доступность PostgreSQL и возвращает агрегаты: events_total, events_last_hour, subscribers, delivery_success_rate.
// @Accept      json
// @Produce     json
// @Success     200   {object} entity.HealthCheckResponse "Сервис доступен"
// @Failure     503   {object} entity.HealthCheckResponse "База данных недоступна"
// @tags        Health
// @Router      /health [get]
func (h *HandlerImpl) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	dbHealthy, stats, _ := h.usecase.HealthCheck(ctx)

	health := fiber.Map{
		"status":  dbHealthy,
		"message": "success",
		"version": common.Version,
		"checks": fiber.Map{
			"database": fiber.Map{
				"status": dbHealthy,
				"type":   "postgresql",
			},
		},
	}
	if stats != nil {
		health["stats"] = stats
	}
	if !dbHealthy {
		health["checks"].(fiber.Map)["database"].(fiber.Map)["error"] = "Database connection failed"
		health["message"] = "Some services are unavailable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(health)
	}

	return c.Status(fiber.StatusOK).JSON(health)
}

// Publish godoc
// @Summary     Публикация события
// @Description Валидирует конверт и durable-персистит событие вместе с fan-out доставок по активным подпискам. Возвращает server-generated event_id.
// @Accept      json
// @Produce     json
// @Param       body  body     entity.PublishRequest  true  "Конверт события"
// @Success     201   {object} map[string]string
// @Failure     400
// @Failure     500
// @tags        Event
// @Router      /events [post]
func (h *HandlerImpl) Publish(c *fiber.Ctx) error {
	var req entity.PublishRequest
	err := c.BodyParser(&req)
	if err != nil {
		h.logger.Errorf("error parsing body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	// Валидация конверта
	if err = validator.Validate.Struct(&req); err != nil {
		h.logger.Warnf("validation error: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(formatValidationErrors(err))
	}

	id, err := h.usecase.Publish(c.Context(), &req)
	if err != nil {
		return appers.SanitizeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"event_id": id.String()})
}

// GetEvent godoc
// @Summary     Получение события по id
// @Produce     json
// @Param       id   path     string  true  "ID события"
// @Success     200  {object} entity.Event
// @Failure     400
// @Failure     404
// @tags        Event
// @Router      /events/{id} [get]
func (h *HandlerImpl) GetEvent(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	evt, err := h.usecase.GetEvent(c.Context(), id)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(evt)
}

// Subscribe godoc
// @Summary     Регистрация подписки
// @Description Идемпотентна по (subscriber, event_types): повторная регистрация возвращает существующий subscription_id.
// @Accept      json
// @Produce     json
// @Param       body  body     entity.SubscribeRequest  true  "Параметры подписки"
// @Success     200   {object} map[string]string "Подписка уже существовала"
// @Success     201   {object} map[string]string "Подписка создана"
// @Failure     400
// @Failure     500
// @tags        Subscription
// @Router      /subscriptions [post]
func (h *HandlerImpl) Subscribe(c *fiber.Ctx) error {
	var req entity.SubscribeRequest
	err := c.BodyParser(&req)
	if err != nil {
		h.logger.Errorf("error parsing body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err = validator.Validate.Struct(&req); err != nil {
		h.logger.Warnf("validation error: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(formatValidationErrors(err))
	}

	id, created, err := h.usecase.Subscribe(c.Context(), &req)
	if err != nil {
		return appers.SanitizeError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"subscription_id": id.String()})
}

// Unsubscribe godoc
// @Summary     Отписка
// @Description Soft delete: уже созданные доставки доводятся до завершения, новые fan-out'ы для подписки не создаются.
// @Produce     json
// @Param       id   path     string  true  "ID подписки"
// @Success     200
// @Failure     400
// @Failure     404
// @tags        Subscription
// @Router      /subscriptions/{id} [delete]
func (h *HandlerImpl) Unsubscribe(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	err = h.usecase.Unsubscribe(c.Context(), id)
	switch {
	case errors.Is(err, appers.ErrSubscriptionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"description": err.Error()})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"description": err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"description": "ok"})
}

// Poll godoc
// @Summary     Выборка pull-доставок
// @Description Возвращает pending доставки подписчика: critical раньше high раньше normal раньше low, внутри приоритета по published_at. Выдача не помечает доставку delivered — требуется явный Acknowledge.
// @Produce     json
// @Param       subscriber  path   string  true   "Идентификатор подписчика"
// @Param       max         query  int     false  "Максимум элементов"
// @Success     200  {array}  entity.PolledDelivery
// @Failure     500
// @tags        Delivery
// @Router      /poll/{subscriber} [get]
func (h *HandlerImpl) Poll(c *fiber.Ctx) error {
	subscriber := c.Params("subscriber")
	max := c.QueryInt("max", 10)

	items, err := h.usecase.Poll(c.Context(), subscriber, max)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(items)
}

// Acknowledge godoc
// @Summary     Подтверждение обработки доставки
// @Description Идемпотентна: повторный ack уже подтверждённой доставки — no-op, не ошибка.
// @Accept      json
// @Produce     json
// @Param       body  body     entity.AckRequest  true  "ID доставки"
// @Success     200
// @Failure     400
// @Failure     404
// @tags        Delivery
// @Router      /ack [post]
func (h *HandlerImpl) Acknowledge(c *fiber.Ctx) error {
	var req entity.AckRequest
	err := c.BodyParser(&req)
	if err != nil {
		h.logger.Errorf("error parsing body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err = validator.Validate.Struct(&req); err != nil {
		h.logger.Warnf("validation error: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(formatValidationErrors(err))
	}

	id, _ := uuid.FromString(req.DeliveryID)
	err = h.usecase.Acknowledge(c.Context(), id)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"description": "ok"})
}

// ReplayDeadLetter godoc
// @Summary     Повтор dead letter доставки
// @Description Операторское действие: возвращает dead letter в pending с retry_count=0 после устранения причины сбоя.
// @Produce     json
// @Param       id   path     string  true  "ID доставки"
// @Success     200
// @Failure     400
// @Failure     404
// @Failure     409
// @tags        Delivery
// @Router      /deadletter/{id}/replay [post]
func (h *HandlerImpl) ReplayDeadLetter(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	err = h.usecase.ReplayDeadLetter(c.Context(), id)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"description": "ok"})
}

// QueryAudit godoc
// @Summary     Read-only аудит событий и доставок
// @Description Пагинированная выборка по типу, источнику, временному диапазону и статусу доставки. Не мутирует состояние.
// @Produce     json
// @Param       event_type  query  string  false  "Тип события"
// @Param       source      query  string  false  "Источник"
// @Param       from        query  string  false  "Начало диапазона published_at (RFC3339)"
// @Param       to          query  string  false  "Конец диапазона published_at (RFC3339)"
// @Param       status      query  string  false  "Статус доставки"
// @Param       limit       query  int     false  "Размер страницы"
// @Param       offset      query  int     false  "Смещение"
// @Success     200  {object} entity.AuditPage
// @Failure     400
// @tags        Audit
// @Router      /audit [get]
func (h *HandlerImpl) QueryAudit(c *fiber.Ctx) error {
	q := entity.AuditQuery{
		EventType: c.Query("event_type"),
		Source:    c.Query("source"),
		Status:    entity.DeliveryStatus(c.Query("status")),
		Limit:     c.QueryInt("limit", 0),
		Offset:    c.QueryInt("offset", 0),
	}

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid from format, expected RFC3339 (e.g., 2026-01-20T11:00:00Z)",
			})
		}
		q.From = t.UTC()
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid to format, expected RFC3339 (e.g., 2026-01-20T19:00:00Z)",
			})
		}
		q.To = t.UTC()
	}

	page, err := h.usecase.QueryAudit(c.Context(), &q)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(page)
}
