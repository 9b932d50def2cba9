// gateway — единственный путь вызовов бэкенда с авторизацией.
//
// Gateway держит пару токенов в cookie запроса (session.Jar), решает,
// когда её обновлять, подставляет Bearer и один раз прозрачно повторяет
// запрос после 401. Общего изменяемого состояния о токенах нет: всё,
// что относится к пользователю, приходит с Jar конкретного запроса.
package gateway

import (
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/sanad-gateway/internal/cache"
	"github.com/pribylovaa/sanad-gateway/internal/clients"
	"github.com/pribylovaa/sanad-gateway/internal/metrics"
)

// Пути бэкенда, которыми управляет сам шлюз.
const (
	PathRefresh = "/auth/refresh"
	PathLogout  = "/auth/logout"
)

// maxBodyBytes — предел чтения тела ответа бэкенда.
const maxBodyBytes = 8 << 20

type Gateway struct {
	backend  *clients.Backend
	cache    cache.RotationCache
	graceTTL time.Duration
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time

	inflight singleflight.Group
}

// Options — необязательные зависимости Gateway.
type Options struct {
	// Cache — кэш ротаций между репликами; nil означает cache.Noop.
	Cache cache.RotationCache
	// GraceTTL — сколько живёт запись о ротации в Cache.
	GraceTTL time.Duration
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	// Now подменяется в тестах.
	Now func() time.Time
}

func New(b *clients.Backend, opts Options) *Gateway {
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.GraceTTL <= 0 {
		opts.GraceTTL = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Gateway{
		backend:  b,
		cache:    opts.Cache,
		graceTTL: opts.GraceTTL,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		now:      opts.Now,
	}
}

func (g *Gateway) countRefresh(outcome string) {
	if g.metrics != nil {
		g.metrics.Refreshes.WithLabelValues(outcome).Inc()
	}
}
