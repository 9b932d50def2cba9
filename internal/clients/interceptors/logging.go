package interceptors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/sanad-gateway/pkg/log"
	"github.com/pribylovaa/sanad-gateway/pkg/redact"
)

// WithLogging — логирование исходящих вызовов.
// Поведение:
//   - берёт X-Request-Id из запроса (или генерирует новый UUID и добавляет в клон);
//   - кладёт обогащённый логгер в контекст запроса (pkg/log);
//   - пишет одну финальную запись msg="backend": status, dur (и err при ошибке транспорта).
//
// Безопасность: тело не логируется, вместо Authorization пишется заглушка auth.
func WithLogging(base *slog.Logger) Interceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := req.Header.Get("X-Request-Id")
			if rid == "" {
				rid = uuid.NewString()
				req = req.Clone(req.Context())
				req.Header.Set("X-Request-Id", rid)
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
			)
			if req.Header.Get("Authorization") != "" {
				l = l.With(slog.String("auth", redact.Token()))
			}
			req = req.WithContext(log.Into(req.Context(), l))

			resp, err := next.RoundTrip(req)
			if err != nil {
				l.Warn("backend",
					slog.Int("status", 0),
					slog.Duration("dur", time.Since(start)),
					slog.String("err", err.Error()),
				)
				return nil, err
			}

			l.Info("backend",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}
