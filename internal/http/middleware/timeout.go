package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout ограничивает обработку запроса сроком d; d <= 0 отключает мидлвар.
// Более ранний дедлайн родителя сохраняется: WithTimeout его не продлевает.
// Отдельный вызов бэкенда ограничен ещё и своим таймаутом (interceptors.WithTimeout).
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
