package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/pribylovaa/sanad-gateway/internal/models"
	"github.com/pribylovaa/sanad-gateway/internal/session"
	"github.com/pribylovaa/sanad-gateway/pkg/log"
)

// Exchange — обмен учётных данных на пару токенов (login/register) без авторизации.
// Успех: пара сохраняется в jar, ответ возвращается целиком (токены наружу
// отдаёт только вызывающий, и он этого не делает).
// Не-2xx: *APIError со статусом бэкенда; Message — error/detail или пусто.
func (g *Gateway) Exchange(ctx context.Context, jar session.Jar, path string, body []byte) (*models.AuthResponse, error) {
	const op = "gateway.Exchange"

	res, err := g.do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !res.ok() {
		msg, _ := jsonErrorMessage(res.body)
		return nil, &APIError{Status: res.status, Message: msg}
	}

	var out models.AuthResponse
	if err := json.Unmarshal(res.body, &out); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, ErrInvalidResponse)
	}
	if err := validPair(out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	jar.SetPair(out.Pair())

	return &out, nil
}

// Logout — best effort POST /auth/logout с текущим access-токеном, затем
// безусловное удаление обеих cookie. Ошибки бэкенда только логируются.
func (g *Gateway) Logout(ctx context.Context, jar session.Jar) {
	defer jar.Clear()

	token := jar.Access()
	if token == "" {
		return
	}

	l := log.From(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.backend.URL(PathLogout), http.NoBody)
	if err != nil {
		l.Warn("backend_logout_failed", slog.String("err", err.Error()))
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := g.backend.HTTP.Do(req)
	if err != nil {
		l.Warn("backend_logout_failed", slog.String("err", err.Error()))
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.Info("backend_logout_rejected", slog.Int("status", resp.StatusCode))
	}
}
