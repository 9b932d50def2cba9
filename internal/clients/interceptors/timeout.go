package interceptors

import (
	"context"
	"io"
	"net/http"
	"time"
)

// WithTimeout ограничивает исходящий вызов дедлайном не позже now+d.
//
// Контракт:
//  1. d <= 0 — запрос уходит без изменений;
//  2. более ранний дедлайн родительского контекста сохраняется;
//  3. контекст отменяется при закрытии тела ответа (или сразу при ошибке),
//     поэтому тело можно дочитать после возврата из RoundTrip.
//
// По истечении дедлайна транспорт вернёт ошибку, оборачивающую
// context.DeadlineExceeded.
func WithTimeout(d time.Duration) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		if d <= 0 {
			return next
		}

		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx, cancel := context.WithTimeout(req.Context(), d)

			resp, err := next.RoundTrip(req.WithContext(ctx))
			if err != nil {
				cancel()
				return nil, err
			}

			resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		})
	}
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
