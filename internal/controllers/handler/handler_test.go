package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventbus/internal/appers"
	"eventbus/internal/application/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUseCase — заглушка прикладного слоя для тестов HTTP-контракта
type fakeUseCase struct {
	publishFn     func(ctx context.Context, req *entity.PublishRequest) (uuid.UUID, error)
	getEventFn    func(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	subscribeFn   func(ctx context.Context, req *entity.SubscribeRequest) (uuid.UUID, bool, error)
	unsubscribeFn func(ctx context.Context, id uuid.UUID) error
	pollFn        func(ctx context.Context, subscriber string, max int) ([]entity.PolledDelivery, error)
	acknowledgeFn func(ctx context.Context, id uuid.UUID) error
	replayFn      func(ctx context.Context, id uuid.UUID) error
	auditFn       func(ctx context.Context, q *entity.AuditQuery) (*entity.AuditPage, error)
	healthFn      func(ctx context.Context) (bool, *entity.BusStats, error)
}

func (f *fakeUseCase) Publish(ctx context.Context, req *entity.PublishRequest) (uuid.UUID, error) {
	if f.publishFn != nil {
		return f.publishFn(ctx, req)
	}
	return uuid.Must(uuid.NewV4()), nil
}

func (f *fakeUseCase) GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	if f.getEventFn != nil {
		return f.getEventFn(ctx, id)
	}
	return nil, appers.ErrEventNotFound
}

func (f *fakeUseCase) Subscribe(ctx context.Context, req *entity.SubscribeRequest) (uuid.UUID, bool, error) {
	if f.subscribeFn != nil {
		return f.subscribeFn(ctx, req)
	}
	return uuid.Must(uuid.NewV4()), true, nil
}

func (f *fakeUseCase) Unsubscribe(ctx context.Context, id uuid.UUID) error {
	if f.unsubscribeFn != nil {
		return f.unsubscribeFn(ctx, id)
	}
	return nil
}

func (f *fakeUseCase) Poll(ctx context.Context, subscriber string, max int) ([]entity.PolledDelivery, error) {
	if f.pollFn != nil {
		return f.pollFn(ctx, subscriber, max)
	}
	return []entity.PolledDelivery{}, nil
}

func (f *fakeUseCase) Acknowledge(ctx context.Context, id uuid.UUID) error {
	if f.acknowledgeFn != nil {
		return f.acknowledgeFn(ctx, id)
	}
	return nil
}

func (f *fakeUseCase) ReplayDeadLetter(ctx context.Context, id uuid.UUID) error {
	if f.replayFn != nil {
		return f.replayFn(ctx, id)
	}
	return nil
}

func (f *fakeUseCase) QueryAudit(ctx context.Context, q *entity.AuditQuery) (*entity.AuditPage, error) {
	if f.auditFn != nil {
		return f.auditFn(ctx, q)
	}
	return &entity.AuditPage{Records: []entity.AuditRecord{}}, nil
}

func (f *fakeUseCase) SweepExpiredEvents(ctx context.Context) {}

func (f *fakeUseCase) RunDispatcher(ctx context.Context) {}

func (f *fakeUseCase) HealthCheck(ctx context.Context) (bool, *entity.BusStats, error) {
	if f.healthFn != nil {
		return f.healthFn(ctx)
	}
	return true, &entity.BusStats{}, nil
}

func newTestApp(uc *fakeUseCase) *fiber.App {
	app := fiber.New()
	h := NewBusHandler(uc, zap.NewNop().Sugar())

	app.Get("/health", h.HealthCheck)
	app.Post("/events", h.Publish)
	app.Get("/events/:id", h.GetEvent)
	app.Post("/subscriptions", h.Subscribe)
	app.Delete("/subscriptions/:id", h.Unsubscribe)
	app.Get("/poll/:subscriber", h.Poll)
	app.Post("/ack", h.Acknowledge)
	app.Post("/deadletter/:id/replay", h.ReplayDeadLetter)
	app.Get("/audit", h.QueryAudit)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var parsed map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

func TestPublishHandler(t *testing.T) {
	t.Run("валидный конверт — 201 и event_id", func(t *testing.T) {
		id := uuid.Must(uuid.NewV4())
		uc := &fakeUseCase{
			publishFn: func(ctx context.Context, req *entity.PublishRequest) (uuid.UUID, error) {
				assert.Equal(t, "task_created", req.EventType)
				return id, nil
			},
		}
		app := newTestApp(uc)

		resp, body := doJSON(t, app, http.MethodPost, "/events", fiber.Map{
			"event_type": "task_created",
			"source":     "agent-1",
			"payload":    fiber.Map{"task": "deploy"},
			"priority":   "high",
		})
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		assert.Equal(t, id.String(), body["event_id"])
	})

	t.Run("отсутствие event_type — 400", func(t *testing.T) {
		app := newTestApp(&fakeUseCase{})

		resp, body := doJSON(t, app, http.MethodPost, "/events", fiber.Map{
			"source": "agent-1",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation failed", body["error"])
	})

	t.Run("неизвестный приоритет — 400", func(t *testing.T) {
		app := newTestApp(&fakeUseCase{})

		resp, _ := doJSON(t, app, http.MethodPost, "/events", fiber.Map{
			"event_type": "task_created",
			"source":     "agent-1",
			"priority":   "urgent",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("payload больше лимита — 400", func(t *testing.T) {
		uc := &fakeUseCase{
			publishFn: func(ctx context.Context, req *entity.PublishRequest) (uuid.UUID, error) {
				return uuid.Nil, appers.ErrPayloadTooLarge
			},
		}
		app := newTestApp(uc)

		resp, _ := doJSON(t, app, http.MethodPost, "/events", fiber.Map{
			"event_type": "task_created",
			"source":     "agent-1",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetEventHandler(t *testing.T) {
	t.Run("невалидный id — 400", func(t *testing.T) {
		app := newTestApp(&fakeUseCase{})

		resp, _ := doJSON(t, app, http.MethodGet, "/events/not-a-uuid", nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("отсутствующее событие — 404", func(t *testing.T) {
		app := newTestApp(&fakeUseCase{})

		resp, _ := doJSON(t, app, http.MethodGet, "/events/"+uuid.Must(uuid.NewV4()).String(), nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestSubscribeHandler(t *testing.T) {
	t.Run("новая подписка — 201", func(t *testing.T) {
		app := newTestApp(&fakeUseCase{})

		resp, body := doJSON(t, app, http.MethodPost, "/subscriptions", fiber.Map{
			"subscriber":    "monitor",
			"event_types":   []string{"task_created"},
			"delivery_mode": "push",
			"callback_url":  "http://monitor.local/hook",
		})
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		assert.NotEmpty(t, body["subscription_id"])
	})

	t.Run("повторная регистрация — 200 и тот же id", func(t *testing.T) {
		existing := uuid.Must(uuid.NewV4())
		uc := &fakeUseCase{
			subscribeFn: func(ctx context.Context, req *entity.SubscribeRequest) (uuid.UUID, bool, error) {
				return existing, false, nil
			},
		}
		app := newTestApp(uc)

		resp, body := doJSON(t, app, http.MethodPost, "/subscriptions", fiber.Map{
			"subscriber":    "monitor",
			"delivery_mode": "pull",
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, existing.String(), body["subscription_id"])
	})

	t.Run("неизвестный delivery_mode — 400", func(t *testing.T) {
		app := newTestApp(&fakeUseCase{})

		resp, _ := doJSON(t, app, http.MethodPost, "/subscriptions", fiber.Map{
			"subscriber":    "monitor",
			"delivery_mode": "broadcast",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("невалидный callback_url — 400", func(t *testing.T) {
		app := newTestApp(&fakeUseCase{})

		resp, _ := doJSON(t, app, http.MethodPost, "/subscriptions", fiber.Map{
			"subscriber":    "monitor",
			"delivery_mode": "push",
			"callback_url":  "not-a-url",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestUnsubscribeHandler(t *testing.T) {
	t.Run("отсутствующая подписка — 404", func(t *testing.T) {
		uc := &fakeUseCase{
			unsubscribeFn: func(ctx context.Context, id uuid.UUID) error {
				return appers.ErrSubscriptionNotFound
			},
		}
		app := newTestApp(uc)

		resp, _ := doJSON(t, app, http.MethodDelete, "/subscriptions/"+uuid.Must(uuid.NewV4()).String(), nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("успешная отписка — 200", func(t *testing.T) {
		app := newTestApp(&fakeUseCase{})

		resp, _ := doJSON(t, app, http.MethodDelete, "/subscriptions/"+uuid.Must(uuid.NewV4()).String(), nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestPollHandler(t *testing.T) {
	evtID := uuid.Must(uuid.NewV4())
	uc := &fakeUseCase{
		pollFn: func(ctx context.Context, subscriber string, max int) ([]entity.PolledDelivery, error) {
			assert.Equal(t, "worker", subscriber)
			assert.Equal(t, 5, max)
			return []entity.PolledDelivery{
				{DeliveryID: uuid.Must(uuid.NewV4()), Event: entity.Event{ID: evtID}},
			}, nil
		},
	}
	app := newTestApp(uc)

	req := httptest.NewRequest(http.MethodGet, "/poll/worker?max=5", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var items []entity.PolledDelivery
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, evtID, items[0].Event.ID)
}

func TestAcknowledgeHandler(t *testing.T) {
	t.Run("валидный ack — 200", func(t *testing.T) {
		app := newTestApp(&fakeUseCase{})

		resp, _ := doJSON(t, app, http.MethodPost, "/ack", fiber.Map{
			"delivery_id": uuid.Must(uuid.NewV4()).String(),
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("невалидный delivery_id — 400", func(t *testing.T) {
		app := newTestApp(&fakeUseCase{})

		resp, _ := doJSON(t, app, http.MethodPost, "/ack", fiber.Map{
			"delivery_id": "not-a-uuid",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("отсутствующая доставка — 404", func(t *testing.T) {
		uc := &fakeUseCase{
			acknowledgeFn: func(ctx context.Context, id uuid.UUID) error {
				return appers.ErrDeliveryNotFound
			},
		}
		app := newTestApp(uc)

		resp, _ := doJSON(t, app, http.MethodPost, "/ack", fiber.Map{
			"delivery_id": uuid.Must(uuid.NewV4()).String(),
		})
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestReplayDeadLetterHandler(t *testing.T) {
	t.Run("доставка не в dead letter — 409", func(t *testing.T) {
		uc := &fakeUseCase{
			replayFn: func(ctx context.Context, id uuid.UUID) error {
				return appers.ErrDeliveryNotDeadLettered
			},
		}
		app := newTestApp(uc)

		resp, _ := doJSON(t, app, http.MethodPost,
			"/deadletter/"+uuid.Must(uuid.NewV4()).String()+"/replay", nil)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("успешный replay — 200", func(t *testing.T) {
		app := newTestApp(&fakeUseCase{})

		resp, _ := doJSON(t, app, http.MethodPost,
			"/deadletter/"+uuid.Must(uuid.NewV4()).String()+"/replay", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestQueryAuditHandler(t *testing.T) {
	t.Run("фильтры пробрасываются в запрос", func(t *testing.T) {
		var got *entity.AuditQuery
		uc := &fakeUseCase{
			auditFn: func(ctx context.Context, q *entity.AuditQuery) (*entity.AuditPage, error) {
				got = q
				return &entity.AuditPage{}, nil
			},
		}
		app := newTestApp(uc)

		req := httptest.NewRequest(http.MethodGet,
			"/audit?event_type=task_created&source=agent-1&from=2026-01-20T11:00:00Z&status=dead_letter&limit=20", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		require.NotNil(t, got)
		assert.Equal(t, "task_created", got.EventType)
		assert.Equal(t, "agent-1", got.Source)
		assert.Equal(t, entity.DeliveryDeadLetter, got.Status)
		assert.Equal(t, 20, got.Limit)
		assert.Equal(t, 2026, got.From.Year())
	})

	t.Run("невалидный from — 400", func(t *testing.T) {
		app := newTestApp(&fakeUseCase{})

		req := httptest.NewRequest(http.MethodGet, "/audit?from=yesterday", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestHealthCheckHandler(t *testing.T) {
	t.Run("БД доступна — 200 со статистикой", func(t *testing.T) {
		uc := &fakeUseCase{
			healthFn: func(ctx context.Context) (bool, *entity.BusStats, error) {
				return true, &entity.BusStats{EventsTotal: 7, Subscribers: 2, DeliverySuccessRate: 1.0}, nil
			},
		}
		app := newTestApp(uc)

		resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["status"])

		stats, ok := body["stats"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(7), stats["events_total"])
	})

	t.Run("БД недоступна — 503", func(t *testing.T) {
		uc := &fakeUseCase{
			healthFn: func(ctx context.Context) (bool, *entity.BusStats, error) {
				return false, nil, assert.AnError
			},
		}
		app := newTestApp(uc)

		resp, _ := doJSON(t, app, http.MethodGet, "/health", nil)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})
}
