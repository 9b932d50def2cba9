package clients

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker/v2"

	"github.com/pribylovaa/sanad-gateway/internal/clients/interceptors"
	"github.com/pribylovaa/sanad-gateway/internal/config"
	"github.com/pribylovaa/sanad-gateway/internal/metrics"
)

// Backend — HTTP-клиент сервиса анализа иснадов.
type Backend struct {
	BaseURL string
	HTTP    *http.Client
}

// New собирает транспорт к бэкенду.
// Цепочка: metadata -> timeout -> logging -> metrics -> breaker (api или auth) -> base.
// base == nil означает http.DefaultTransport.
func New(cfg config.Config, log *slog.Logger, m *metrics.Metrics, base http.RoundTripper) (*Backend, error) {
	const op = "internal/clients/New"

	baseURL := strings.TrimRight(cfg.Backend.BaseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, baseURL)
	}

	rt := interceptors.Chain(base,
		interceptors.WithMetadata(cfg.Backend.UserAgent),
		interceptors.WithTimeout(cfg.Timeouts.Backend),
		interceptors.WithLogging(log),
		interceptors.WithMetrics(m),
		interceptors.WithBreakers(splitBreakers(u.Path, cfg.Breaker, log, m)),
	)

	return &Backend{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Transport: rt,
			// Редиректы бэкенда не следуем: Authorization не должен утечь на чужой хост.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Имена брейкеров (метка name у метрики состояния).
const (
	BreakerAPI  = "sanad-api"
	BreakerAuth = "sanad-auth"
)

// splitBreakers — отдельный брейкер для /auth/*: сбой сервиса анализа
// не должен блокировать refresh и logout.
func splitBreakers(basePath string, cfg config.BreakerConfig, log *slog.Logger, m *metrics.Metrics) interceptors.BreakerFor {
	api := NewBreaker(BreakerAPI, cfg, log, m)
	auth := NewBreaker(BreakerAuth, cfg, log, m)

	return func(r *http.Request) *gobreaker.CircuitBreaker[*http.Response] {
		if strings.HasPrefix(strings.TrimPrefix(r.URL.Path, basePath), "/auth/") {
			return auth
		}
		return api
	}
}

// URL склеивает базовый адрес и путь бэкенда.
func (b *Backend) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return b.BaseURL + path
}
