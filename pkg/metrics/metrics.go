package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Delivery DeliveryMetrics
	API      APIMetrics
	Repo     RepoMetrics
	Go       GoMetrics
}

type DeliveryMetrics struct {
	// Push-доставка подписчикам
	PushAttemptLatencySeconds *prometheus.HistogramVec
	PushOperationsTotal       *prometheus.CounterVec
	PushSuccessAttempts       *prometheus.HistogramVec
	PushInFlight              *prometheus.GaugeVec

	DeadLettersTotal prometheus.Counter
	ReplaysTotal     prometheus.Counter
}

type APIMetrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

type RepoMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	DurationSeconds *prometheus.HistogramVec
	InFlight        *prometheus.GaugeVec
}

type GoMetrics struct {
	InternalGoroutines *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Delivery: DeliveryMetrics{
			PushAttemptLatencySeconds: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "eventbus",
				Subsystem: "delivery",
				Name:      "push_attempt_latency_seconds",
				Help:      "Latency per single push attempt.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"result"}), // ok|error

			PushOperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: "eventbus",
				Subsystem: "delivery",
				Name:      "push_operations_total",
				Help:      "Total push attempts by result.",
			}, []string{"result"}), // delivered|retry|dead_letter|canceled

			PushSuccessAttempts: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "eventbus",
				Subsystem: "delivery",
				Name:      "push_success_attempts",
				Help:      "Attempt number on which push delivery succeeded.",
				Buckets:   []float64{1, 2, 3, 4},
			}, []string{"subscriber"}),

			PushInFlight: f.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "eventbus",
				Subsystem: "delivery",
				Name:      "push_inflight",
				Help:      "Push attempts currently in flight.",
			}, []string{"subscriber"}),

			DeadLettersTotal: f.NewCounter(prometheus.CounterOpts{
				Namespace: "eventbus",
				Subsystem: "delivery",
				Name:      "dead_letters_total",
				Help:      "Deliveries moved to dead letter after exhausting retries.",
			}),

			ReplaysTotal: f.NewCounter(prometheus.CounterOpts{
				Namespace: "eventbus",
				Subsystem: "delivery",
				Name:      "replays_total",
				Help:      "Dead-lettered deliveries replayed by an operator.",
			}),
		},

		API: APIMetrics{
			HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: "eventbus",
				Subsystem: "api",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by method, path and status.",
			}, []string{"method", "path", "status"}),

			HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "eventbus",
				Subsystem: "api",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			}, []string{"method", "path", "status"}),
		},
		Repo: RepoMetrics{
			RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
				Namespace: "eventbus",
				Subsystem: "db",
				Name:      "requests_total",
				Help:      "Total DB requests by operation, name, result and error kind.",
			}, []string{"op", "name", "result", "error_kind"}),

			DurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "eventbus",
				Subsystem: "db",
				Name:      "request_duration_seconds",
				Help:      "DB request duration in seconds.",
				// DB обычно быстрее/короче HTTP, но хвосты бывают.
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			}, []string{"op", "name", "result"}),

			InFlight: f.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "eventbus",
				Subsystem: "db",
				Name:      "inflight",
				Help:      "Number of in-flight DB requests.",
			}, []string{"op", "name"}),
		},
		Go: GoMetrics{
			InternalGoroutines: f.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "eventbus",
				Subsystem: "go",
				Name:      "internal_goroutines",
				Help:      "Number of running internal goroutines by name.",
			}, []string{"name"}),
		},
	}
}
