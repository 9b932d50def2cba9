package interceptors

import (
	"net/http"
	"time"

	"github.com/pribylovaa/sanad-gateway/internal/metrics"
)

// WithMetrics считает вызовы бэкенда по пути и классу статуса и их длительность.
// Пути бэкенда фиксированы, кардинальность метки path ограничена.
func WithMetrics(m *metrics.Metrics) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		if m == nil {
			return next
		}

		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			code := 0
			if err == nil {
				code = resp.StatusCode
			}
			m.BackendRequests.WithLabelValues(req.URL.Path, metrics.StatusClass(code)).Inc()
			m.BackendLatency.WithLabelValues(req.URL.Path).Observe(time.Since(start).Seconds())

			return resp, err
		})
	}
}
