package appers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

type ErrorResp struct {
	StatusCode int    `json:"statusCode,omitempty"`
	StatusDesc string `json:"statusDesc,omitempty"`
}

func (e ErrorResp) Error() string {
	return e.StatusDesc
}

var (
	ErrEventNotFound = ErrorResp{
		http.StatusNotFound,
		"событие не найдено",
	}
	ErrSubscriptionNotFound = ErrorResp{
		http.StatusNotFound,
		"подписка не найдена",
	}
	ErrDeliveryNotFound = ErrorResp{
		http.StatusNotFound,
		"доставка не найдена",
	}
	ErrDeliveryNotDeadLettered = ErrorResp{
		http.StatusConflict,
		"доставка не находится в dead letter",
	}
	ErrPayloadTooLarge = ErrorResp{
		StatusCode: http.StatusBadRequest,
		StatusDesc: "payload превышает максимальный размер",
	}
	ErrInvalidPayload = ErrorResp{
		StatusCode: http.StatusBadRequest,
		StatusDesc: "payload не является валидным JSON",
	}
	ErrUnknownPriority = ErrorResp{
		StatusCode: http.StatusBadRequest,
		StatusDesc: "неизвестный приоритет, допустимы critical/high/normal/low",
	}
	ErrCallbackRequired = ErrorResp{
		StatusCode: http.StatusBadRequest,
		StatusDesc: "push-подписка требует callback_url",
	}
)

func SanitizeError(c *fiber.Ctx, err error) error {
	var errResp ErrorResp

	if ok := errors.As(err, &errResp); ok {
		return c.Status(errResp.StatusCode).JSON(fiber.Map{
			"message": errResp.StatusDesc,
		})
	} else {
		return NewErr(c, http.StatusInternalServerError, err)
	}
}

func NewErr(ctx *fiber.Ctx, status int, err error) error {
	return ctx.Status(status).JSON(fiber.Map{
		"message": err.Error(),
	})
}
