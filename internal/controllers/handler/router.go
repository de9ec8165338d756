package handler

import (
	"eventbus/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

type Router struct {
	handler Handler
	app     *fiber.App
	conf    *config.Config
	logger  *zap.SugaredLogger
}

func NewRouter(handler Handler, app *fiber.App, conf *config.Config, logger *zap.SugaredLogger) *Router {
	return &Router{
		logger:  logger,
		app:     app,
		conf:    conf,
		handler: handler,
	}
}

func (r *Router) RegisterRouter() {
	r.app.Get("/health", r.handler.HealthCheck)

	r.app.Use("/bus/swagger/*", swagger.New(swagger.Config{
		DeepLinking: false,
		URL:         "/bus/swagger/doc.json",
	}))

	// Плоские пути — контракт агентов
	r.app.Post("/events", r.handler.Publish)
	r.app.Get("/events/:id", r.handler.GetEvent)

	r.app.Post("/subscriptions", r.handler.Subscribe)
	r.app.Delete("/subscriptions/:id", r.handler.Unsubscribe)

	r.app.Get("/poll/:subscriber", r.handler.Poll)
	r.app.Post("/ack", r.handler.Acknowledge)

	r.app.Post("/deadletter/:id/replay", r.handler.ReplayDeadLetter)
	r.app.Get("/audit", r.handler.QueryAudit)
}
