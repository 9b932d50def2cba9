// errors стандартизирует ответы об ошибках HTTP-слоя шлюза.
// На вход он принимает ошибку (валидации, авторизации, бэкенда, транспорта),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - тело {"error": "<сообщение>"}.
//
// Сообщения бэкенда отдаются как есть, внутренние детали (транспорт, паники) — нет.
package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/pribylovaa/sanad-gateway/internal/gateway"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationError — некорректное тело запроса; до бэкенда не доходит.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation — конструктор ValidationError.
func Validation(msg string) error { return &ValidationError{Message: msg} }

// Messages — тексты, зависящие от маршрута.
type Messages struct {
	// Unauthenticated — ответ на gateway.ErrAuthenticationFailed.
	Unauthenticated string
	// Fallback — ответ на ошибку без собственного сообщения.
	Fallback string
}

// Default — тексты прокси-маршрутов.
var Default = Messages{
	Unauthenticated: "Authentication required",
	Fallback:        "Internal server error",
}

// ToHTTP — маппинг с сообщениями по умолчанию.
func ToHTTP(err error) (int, ErrorResponse) { return Default.ToHTTP(err) }

// WriteError — запись ошибки с сообщениями по умолчанию.
func WriteError(w http.ResponseWriter, r *http.Request, err error) { Default.Write(w, r, err) }

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500, чтобы не послать "200 OK" с телом ошибки;
//   - *ValidationError — 400 с её сообщением;
//   - gateway.ErrAuthenticationFailed — 401 с m.Unauthenticated;
//   - *gateway.APIError — статус и сообщение бэкенда (пустое — m.Fallback,
//     статус < 400 — 500);
//   - брейкер разомкнут — 503;
//   - DeadlineExceeded — 504, Canceled — 499;
//   - прочее — 500 с m.Fallback.
func (m Messages) ToHTTP(err error) (int, ErrorResponse) {
	m = m.withDefaults()

	if err == nil {
		return http.StatusInternalServerError, ErrorResponse{Error: m.Fallback}
	}

	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return http.StatusBadRequest, ErrorResponse{Error: ve.Message}
	}

	if stderrors.Is(err, gateway.ErrAuthenticationFailed) {
		return http.StatusUnauthorized, ErrorResponse{Error: m.Unauthenticated}
	}

	var ae *gateway.APIError
	if stderrors.As(err, &ae) {
		msg := ae.Message
		if msg == "" {
			msg = m.Fallback
		}
		status := ae.Status
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		return status, ErrorResponse{Error: msg}
	}

	switch {
	case stderrors.Is(err, gateway.ErrBackendUnavailable),
		stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "backend unavailable"}
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "backend timeout"}
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, ErrorResponse{Error: "canceled"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: m.Fallback}
	}
}

// Write — хелпер для HTTP-хендлеров: статус, Content-Type и тело.
// Request ID для трассировки уже есть в заголовке X-Request-Id ответа.
func (m Messages) Write(w http.ResponseWriter, _ *http.Request, err error) {
	status, resp := m.ToHTTP(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (m Messages) withDefaults() Messages {
	if m.Unauthenticated == "" {
		m.Unauthenticated = Default.Unauthenticated
	}
	if m.Fallback == "" {
		m.Fallback = Default.Fallback
	}

	return m
}
