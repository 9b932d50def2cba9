// interceptors — цепочка http.RoundTripper для исходящих вызовов к бэкенду.
package interceptors

import "net/http"

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Interceptor оборачивает транспорт.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// Chain собирает транспорт: первый интерсептор — внешний.
// base == nil означает http.DefaultTransport.
func Chain(base http.RoundTripper, ics ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(ics) - 1; i >= 0; i-- {
		base = ics[i](base)
	}

	return base
}
