package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"eventbus/internal/application/entity"
	"eventbus/pkg/httpclient"
	"eventbus/pkg/metrics"

	"go.uber.org/zap"
)

// Sender выполняет одну попытку push-доставки. Ровно одну: расписание ретраев
// ведётся диспетчером в БД, а не внутри транспорта.
type Sender interface {
	Send(ctx context.Context, job *entity.PushJob) error
}

type HTTPSender struct {
	client httpclient.HTTPClient
	logger *zap.SugaredLogger
	m      *metrics.Metrics
}

func NewHTTPSender(client httpclient.HTTPClient, logger *zap.SugaredLogger, m *metrics.Metrics) *HTTPSender {
	return &HTTPSender{
		client: client,
		logger: logger,
		m:      m,
	}
}

// Send отправляет полный конверт события POST'ом на callback_url подписчика.
// Подписчик обязан ответить 2xx, чтобы попытка считалась доставленной.
func (s *HTTPSender) Send(ctx context.Context, job *entity.PushJob) error {
	body, err := json.Marshal(job.Event)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, job.CallbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Id", job.Event.ID.String())
	req.Header.Set("X-Delivery-Id", job.DeliveryID.String())

	if s.m != nil {
		s.m.Delivery.PushInFlight.WithLabelValues(job.Subscriber).Inc()
		defer s.m.Delivery.PushInFlight.WithLabelValues(job.Subscriber).Dec()
	}

	t0 := time.Now()
	resp, err := s.client.Do(ctx, req)
	rt := time.Since(t0)

	//Metric: attempt latency: ok/error
	if s.m != nil {
		res := "ok"
		if err != nil || resp == nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
			res = "error"
		}
		s.m.Delivery.PushAttemptLatencySeconds.WithLabelValues(res).Observe(rt.Seconds())
	}

	if err != nil {
		return fmt.Errorf("push attempt: %s", classifyPushError(err))
	}
	defer func() {
		// Освобождаем соединение в пул
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push attempt: subscriber responded %d", resp.StatusCode)
	}

	s.logger.Infof("[delivery %s] pushed to %s status=%d attempt=%d rt=%s",
		job.DeliveryID, job.CallbackURL, resp.StatusCode, job.RetryCount+1, rt)
	return nil
}

// classifyPushError сводит сетевые ошибки к коротким категориям для error_message
func classifyPushError(err error) string {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return "net timeout: " + err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "attempt timeout: " + err.Error()
	}
	if errors.Is(err, context.Canceled) {
		return "canceled: " + err.Error()
	}
	return err.Error()
}
