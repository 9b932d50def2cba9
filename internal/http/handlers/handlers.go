package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/pribylovaa/sanad-gateway/internal/errors"
	"github.com/pribylovaa/sanad-gateway/internal/gateway"
	"github.com/pribylovaa/sanad-gateway/internal/models"
	"github.com/pribylovaa/sanad-gateway/internal/session"
	logctx "github.com/pribylovaa/sanad-gateway/pkg/log"
)

// maxRequestBytes — предел тела входящего запроса.
const maxRequestBytes = 1 << 20

// Gateway — то, что хендлерам нужно от gateway.Gateway.
type Gateway interface {
	Dispatch(ctx context.Context, jar session.Jar, req gateway.Request) (json.RawMessage, error)
	Refresh(ctx context.Context, jar session.Jar) string
	Exchange(ctx context.Context, jar session.Jar, path string, body []byte) (*models.AuthResponse, error)
	Logout(ctx context.Context, jar session.Jar)
}

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	GW      Gateway
	Cookies session.Options

	validate *validator.Validate
}

func New(gw Gateway, cookies session.Options) *Handlers {
	return &Handlers{
		GW:       gw,
		Cookies:  cookies,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// jar — cookie-хранилище текущего запроса.
func (h *Handlers) jar(w http.ResponseWriter, r *http.Request) session.Jar {
	return session.New(w, r, h.Cookies)
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// readBody вычитывает тело запроса с ограничением размера.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apierrors.Validation("request body too large")
		}
		return nil, err
	}

	return b, nil
}

// decodeValid разбирает JSON в dst и проверяет теги validate.
// Поля берутся только по точным именам keys: декодер JSON сопоставляет имена
// без учёта регистра, и {"HADITH_TEXT": ...} иначе прошёл бы проверку.
// Битый JSON, отсутствующий ключ, неверный тип и провал валидации — одна ValidationError с msg.
func (h *Handlers) decodeValid(body []byte, dst any, msg string, keys ...string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return apierrors.Validation(msg)
	}

	exact := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			return apierrors.Validation(msg)
		}
		exact[k] = v
	}

	b, err := json.Marshal(exact)
	if err != nil {
		return apierrors.Validation(msg)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return apierrors.Validation(msg)
	}
	if err := h.validate.Struct(dst); err != nil {
		return apierrors.Validation(msg)
	}

	return nil
}

// fail логирует ошибку (кроме валидации) и пишет ответ.
func fail(w http.ResponseWriter, r *http.Request, op string, msgs apierrors.Messages, err error) {
	var ve *apierrors.ValidationError
	if !errors.As(err, &ve) {
		logctx.From(r.Context()).Warn(op+"_failed", slog.String("err", err.Error()))
	}

	msgs.Write(w, r, err)
}
