package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	apierrors "github.com/pribylovaa/sanad-gateway/internal/errors"
	"github.com/pribylovaa/sanad-gateway/internal/gateway"
	"github.com/pribylovaa/sanad-gateway/internal/models"
	logctx "github.com/pribylovaa/sanad-gateway/pkg/log"
	"github.com/pribylovaa/sanad-gateway/pkg/redact"
)

// Пути авторизации бэкенда.
const (
	backendLogin    = "/auth/login"
	backendRegister = "/auth/register"
	backendMe       = "/auth/me"
	backendSessions = "/auth/sessions"
)

var (
	meMessages = apierrors.Messages{
		Unauthenticated: "Not authenticated",
		Fallback:        "Failed to get user profile",
	}
	sessionsMessages = apierrors.Messages{
		Unauthenticated: "Not authenticated",
		Fallback:        "Failed to get user sessions",
	}
)

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	h.exchange(w, r, "login", backendLogin, &models.LoginRequest{}, []string{"email", "password"},
		"Email and password are required", "Invalid credentials", "Login successful")
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	h.exchange(w, r, "register", backendRegister, &models.RegisterRequest{}, []string{"email", "username", "password", "full_name"},
		"All fields are required", "Registration failed", "Registration successful")
}

// exchange — общий путь login/register: валидация, обмен, cookie, только профиль в ответе.
func (h *Handlers) exchange(w http.ResponseWriter, r *http.Request, op, path string, dst any, keys []string, invalid, rejected, okMsg string) {
	body, err := readBody(w, r)
	if err != nil {
		fail(w, r, op, apierrors.Default, err)
		return
	}

	if err := h.decodeValid(body, dst, invalid, keys...); err != nil {
		fail(w, r, op, apierrors.Default, err)
		return
	}

	r = r.WithContext(logctx.With(r.Context(), slog.String("email", redact.Email(emailOf(dst)))))

	res, err := h.GW.Exchange(r.Context(), h.jar(w, r), path, body)
	if err != nil {
		msgs := apierrors.Default
		var ae *gateway.APIError
		if errors.As(err, &ae) {
			msgs.Fallback = rejected
		}
		fail(w, r, op, msgs, err)
		return
	}

	logctx.From(r.Context()).Info(op + "_ok")
	writeJSON(w, http.StatusOK, models.UserEnvelope{User: res.User, Message: okMsg})
}

func emailOf(req any) string {
	switch v := req.(type) {
	case *models.LoginRequest:
		return v.Email
	case *models.RegisterRequest:
		return v.Email
	default:
		return ""
	}
}

// Refresh — ротация по запросу браузера (например, из route guard фронтенда).
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	jar := h.jar(w, r)

	if jar.Refresh() == "" {
		writeJSON(w, http.StatusUnauthorized, apierrors.ErrorResponse{Error: "No refresh token found"})
		return
	}

	if h.GW.Refresh(r.Context(), jar) == "" {
		writeJSON(w, http.StatusUnauthorized, apierrors.ErrorResponse{Error: "Token refresh failed"})
		return
	}

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Tokens refreshed successfully"})
}

// Logout всегда успешен для клиента: cookie удаляются независимо от бэкенда.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.GW.Logout(r.Context(), h.jar(w, r))
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	out, err := h.GW.Dispatch(r.Context(), h.jar(w, r), gateway.Request{Method: http.MethodGet, Path: backendMe})
	if err != nil {
		fail(w, r, "me", meMessages, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		User json.RawMessage `json:"user"`
	}{User: out})
}

func (h *Handlers) Sessions(w http.ResponseWriter, r *http.Request) {
	out, err := h.GW.Dispatch(r.Context(), h.jar(w, r), gateway.Request{Method: http.MethodGet, Path: backendSessions})
	if err != nil {
		fail(w, r, "sessions", sessionsMessages, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
