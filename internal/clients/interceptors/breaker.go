package interceptors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// serverError — 5xx-ответ, засчитываемый брейкеру как неуспех.
// Наружу ответ отдаётся как есть.
type serverError struct {
	resp *http.Response
}

func (e *serverError) Error() string { return fmt.Sprintf("backend status %d", e.resp.StatusCode) }

// BreakerFor выбирает брейкер для запроса; nil — вызов без брейкера.
type BreakerFor func(*http.Request) *gobreaker.CircuitBreaker[*http.Response]

// WithBreaker пропускает все вызовы через один circuit breaker.
func WithBreaker(cb *gobreaker.CircuitBreaker[*http.Response]) Interceptor {
	if cb == nil {
		return func(next http.RoundTripper) http.RoundTripper { return next }
	}

	return WithBreakers(func(*http.Request) *gobreaker.CircuitBreaker[*http.Response] { return cb })
}

// WithBreakers пропускает вызов через брейкер, выбранный pick.
// Неуспех — ошибка транспорта или статус >= 500. При открытом брейкере
// возвращается ошибка, оборачивающая gobreaker.ErrOpenState / ErrTooManyRequests;
// тело запроса в этом случае закрывается, как того требует http.RoundTripper.
func WithBreakers(pick BreakerFor) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			const op = "interceptors.WithBreakers"

			cb := pick(req)
			if cb == nil {
				return next.RoundTrip(req)
			}

			resp, err := cb.Execute(func() (*http.Response, error) {
				resp, err := next.RoundTrip(req)
				if err != nil {
					return nil, err
				}
				if resp.StatusCode >= http.StatusInternalServerError {
					return resp, &serverError{resp: resp}
				}

				return resp, nil
			})

			var se *serverError
			if errors.As(err, &se) {
				return se.resp, nil
			}
			if err != nil {
				if Rejected(err) && req.Body != nil {
					_ = req.Body.Close()
				}
				return nil, fmt.Errorf("%s: %w", op, err)
			}

			return resp, nil
		})
	}
}

// Rejected — вызов не отправлялся: брейкер разомкнут или полуоткрыт и занят.
func Rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
