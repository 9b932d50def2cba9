package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationFailed — токен получить не удалось или 401 повторился
	// после единственного цикла refresh-и-повтор. Cookie к этому моменту очищены.
	ErrAuthenticationFailed = errors.New("authentication failed: please log in again")

	// ErrInvalidResponse — бэкенд вернул 2xx с телом, которое не является JSON.
	ErrInvalidResponse = errors.New("invalid backend response")

	// ErrBackendUnavailable — refresh не отправлялся: брейкер /auth/* разомкнут.
	// Cookie не очищаются, оборачивает ошибку gobreaker.
	ErrBackendUnavailable = errors.New("auth backend unavailable")
)

// APIError — не-2xx ответ бэкенда (кроме обработанного 401).
// Message — поле error, затем detail, затем текст тела, затем "API error <status>".
// Для обмена учётных данных Message может быть пустым: подставляет вызывающий.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error %d", e.Status)
	}

	return e.Message
}
