// metrics — Prometheus-коллекторы шлюза.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы ротации refresh-токена.
const (
	RefreshRotated  = "rotated"  // бэкенд выдал новую пару
	RefreshShared   = "shared"   // пара взята у параллельной ротации (singleflight или кэш)
	RefreshRejected = "rejected" // бэкенд ответил не-2xx
	RefreshNoToken  = "no_token" // refresh-cookie отсутствует, сеть не трогали
	RefreshError    = "error"    // транспорт или разбор ответа
)

type Metrics struct {
	BackendRequests *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec
	Refreshes       *prometheus.CounterVec
	AuthRetries     prometheus.Counter
	BreakerState    *prometheus.GaugeVec
}

// New регистрирует коллекторы в reg. nil — prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		BackendRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanad_gateway_backend_requests_total",
				Help: "Backend requests by path and status class.",
			},
			[]string{"path", "class"},
		),
		BackendLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sanad_gateway_backend_request_duration_seconds",
				Help:    "Backend request latency in seconds.",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"path"},
		),
		Refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sanad_gateway_token_refresh_total",
				Help: "Refresh token rotations by outcome.",
			},
			[]string{"outcome"},
		),
		AuthRetries: f.NewCounter(
			prometheus.CounterOpts{
				Name: "sanad_gateway_auth_retries_total",
				Help: "Requests retried once after a 401 and a successful refresh.",
			},
		),
		BreakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sanad_gateway_breaker_state",
				Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
			},
			[]string{"name"},
		),
	}
}

// StatusClass — "2xx", "4xx" и т.д.; 0 (ошибка транспорта) даёт "error".
func StatusClass(code int) string {
	if code <= 0 {
		return "error"
	}

	return strconv.Itoa(code/100) + "xx"
}
