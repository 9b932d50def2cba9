package clients

import (
	"log/slog"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/pribylovaa/sanad-gateway/internal/config"
	"github.com/pribylovaa/sanad-gateway/internal/metrics"
)

// NewBreaker создаёт circuit breaker перед бэкендом.
// Размыкается при доле неуспехов >= FailureRatio, если запросов в окне не меньше MinRequests.
func NewBreaker(name string, cfg config.BreakerConfig, log *slog.Logger, m *metrics.Metrics) *gobreaker.CircuitBreaker[*http.Response] {
	if log == nil {
		log = slog.Default()
	}
	if m != nil {
		m.BreakerState.WithLabelValues(name).Set(0)
	}

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < cfg.MinRequests || c.Requests == 0 {
				return false
			}
			ratio := float64(c.TotalFailures) / float64(c.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker_state_changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if m != nil {
				m.BreakerState.WithLabelValues(name).Set(stateValue(to))
			}
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
