package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/pribylovaa/sanad-gateway/internal/http/handlers"
	"github.com/pribylovaa/sanad-gateway/internal/http/middleware"
	"github.com/pribylovaa/sanad-gateway/internal/session"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration

	// CORSOrigins — origin фронтенда; пустой список отключает CORS.
	CORSOrigins []string

	// AuthRequests за AuthWindow — лимит login/register на IP; 0 отключает лимит.
	AuthRequests int
	AuthWindow   time.Duration

	// FrontendDir — каталог собранного фронтенда; пустой — только API.
	FrontendDir string
	// Protected — префиксы страниц, закрытых route guard.
	Protected []string

	Cookies session.Options
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(gw handlers.Gateway, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if len(opts.CORSOrigins) > 0 {
		root.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true, // токены ходят в cookie
			MaxAge:           300,
		}))
	}
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(gw, opts.Cookies)

	root.Route("/api", func(r chi.Router) {
		registerRoutes(r, h, opts)
	})

	if opts.FrontendDir != "" {
		guard := middleware.Guard(opts.Protected, gw, opts.Cookies)
		root.Handle("/*", guard(frontend(opts.FrontendDir)))
	}

	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, opts Options) {
	// auth
	r.Group(func(r chi.Router) {
		if opts.AuthRequests > 0 && opts.AuthWindow > 0 {
			r.Use(httprate.LimitByIP(opts.AuthRequests, opts.AuthWindow))
		}
		r.Post("/auth/login", h.Login)
		r.Post("/auth/register", h.Register)
	})
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/me", h.Me)
	r.Get("/auth/sessions", h.Sessions)

	// sanad
	r.Post("/sanad/extract-narrators", h.ExtractNarrators)
	r.Post("/sanad/analyze-narrator", h.AnalyzeNarrator)
	r.Post("/sanad/analyze-chain", h.AnalyzeChain)
	r.Post("/sanad/extract-and-analyze", h.ExtractAndAnalyze)
	r.Get("/sanad/user/extractions", h.UserExtractions)
	r.Get("/sanad/user/analyses", h.UserAnalyses)
}
