package interceptors

import "net/http"

type CtxKey string

const CtxRequestID CtxKey = "request_id"

// WithMetadata добавляет в исходящий запрос заголовки:
//   - X-Request-Id (если есть в контексте и не задан вызывающим),
//   - User-Agent (если передан параметром).
//
// Исходный *http.Request не меняется: заголовки пишутся в клон.
func WithMetadata(userAgent string) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			rid, _ := req.Context().Value(CtxRequestID).(string)
			setRID := rid != "" && req.Header.Get("X-Request-Id") == ""

			if !setRID && userAgent == "" {
				return next.RoundTrip(req)
			}

			out := req.Clone(req.Context())
			if setRID {
				out.Header.Set("X-Request-Id", rid)
			}
			if userAgent != "" {
				out.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(out)
		})
	}
}
