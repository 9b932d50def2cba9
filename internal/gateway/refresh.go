package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/pribylovaa/sanad-gateway/internal/cache"
	"github.com/pribylovaa/sanad-gateway/internal/clients/interceptors"
	"github.com/pribylovaa/sanad-gateway/internal/metrics"
	"github.com/pribylovaa/sanad-gateway/internal/models"
	"github.com/pribylovaa/sanad-gateway/internal/session"
	"github.com/pribylovaa/sanad-gateway/pkg/log"
	"github.com/pribylovaa/sanad-gateway/pkg/redact"
)

var errRefreshRejected = errors.New("refresh rejected")

// ValidAccessToken возвращает пригодный access-токен или "".
// Нет токена, он истекает в пределах ExpiryBuffer или не читается — Refresh.
// Никогда не возвращает ошибку.
func (g *Gateway) ValidAccessToken(ctx context.Context, jar session.Jar) string {
	token, _, _ := g.validAccessToken(ctx, jar)
	return token
}

// validAccessToken дополнительно сообщает, был ли выполнен Refresh,
// и возвращает ошибку, если бэкенд авторизации недоступен (брейкер).
func (g *Gateway) validAccessToken(ctx context.Context, jar session.Jar) (string, bool, error) {
	token := jar.Access()
	if token != "" && !needsRefresh(token, g.now()) {
		return token, false, nil
	}

	token, err := g.refresh(ctx, jar)
	return token, true, err
}

// Refresh ротирует пару токенов.
//   - нет refresh-токена — "" без сетевого вызова;
//   - бэкенд ответил не-2xx — обе cookie очищаются, "";
//   - ошибка транспорта или разбора — обе cookie очищаются, "";
//   - брейкер не пропустил вызов — "", cookie не трогаются: запрос не отправлялся;
//   - успех — новая пара в cookie, возвращается новый access-токен.
//
// Параллельные вызовы с одним refresh-токеном схлопываются (singleflight
// внутри процесса, кэш ротаций между репликами). Ошибку не возвращает.
func (g *Gateway) Refresh(ctx context.Context, jar session.Jar) string {
	token, _ := g.refresh(ctx, jar)
	return token
}

// refresh — Refresh с ошибкой ErrBackendUnavailable для отклонённого брейкером вызова.
func (g *Gateway) refresh(ctx context.Context, jar session.Jar) (string, error) {
	rt := jar.Refresh()
	if rt == "" {
		g.countRefresh(metrics.RefreshNoToken)
		return "", nil
	}

	key := cache.Hash(rt)
	l := log.From(ctx).With(slog.String("op", "gateway.Refresh"), slog.String("rt", redact.Fingerprint(rt)))

	// Ротацию не отменяет отключившийся клиент: её результат ждут и другие запросы.
	rotateCtx := log.Into(context.WithoutCancel(ctx), l)

	// Исход считается один раз на вызов: ведущий — внутри rotate, остальные — здесь.
	leader := false
	v, err, _ := g.inflight.Do(key, func() (any, error) {
		leader = true
		return g.rotate(rotateCtx, rt, key)
	})
	if err != nil {
		if interceptors.Rejected(err) {
			l.Warn("token_refresh_skipped", slog.String("err", err.Error()))
			return "", fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		if !errors.Is(err, errRefreshRejected) {
			l.Warn("token_refresh_failed", slog.String("err", err.Error()))
		}
		jar.Clear()
		return "", nil
	}
	if !leader {
		g.countRefresh(metrics.RefreshShared)
	}

	pair := v.(models.TokenPair)
	jar.SetPair(pair)

	return pair.AccessToken, nil
}

// rotate выполняет одну ротацию: сначала кэш, затем бэкенд.
// Ошибки кэша только логируются.
func (g *Gateway) rotate(ctx context.Context, rt, key string) (models.TokenPair, error) {
	const op = "gateway.rotate"
	l := log.From(ctx)

	if p, ok, err := g.cache.Get(ctx, key); err != nil {
		l.Warn("rotation_cache_get_failed", slog.String("err", err.Error()))
	} else if ok {
		g.countRefresh(metrics.RefreshShared)
		return *p, nil
	}

	body, err := json.Marshal(models.RefreshRequest{RefreshToken: rt})
	if err != nil {
		g.countRefresh(metrics.RefreshError)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.backend.URL(PathRefresh), bytes.NewReader(body))
	if err != nil {
		g.countRefresh(metrics.RefreshError)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := g.backend.HTTP.Do(req)
	if err != nil {
		g.countRefresh(metrics.RefreshError)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		g.countRefresh(metrics.RefreshRejected)
		l.Info("token_refresh_rejected", slog.Int("status", resp.StatusCode))
		return models.TokenPair{}, errRefreshRejected
	}

	var out models.AuthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		g.countRefresh(metrics.RefreshError)
		return models.TokenPair{}, fmt.Errorf("%s: decode: %w", op, err)
	}
	if err := validPair(out); err != nil {
		g.countRefresh(metrics.RefreshError)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair := out.Pair()
	if err := g.cache.Set(ctx, key, pair, g.graceTTL); err != nil {
		l.Warn("rotation_cache_set_failed", slog.String("err", err.Error()))
	}

	g.countRefresh(metrics.RefreshRotated)
	l.Info("token_refreshed", slog.String("new_rt", redact.Fingerprint(pair.RefreshToken)))

	return pair, nil
}

// validPair проверяет ответ с токенами: оба токена и положительный expires_in.
// expires_in <= 0 дал бы cookie без Max-Age, то есть сессионные.
func validPair(a models.AuthResponse) error {
	switch {
	case a.AccessToken == "" || a.RefreshToken == "":
		return fmt.Errorf("%w: empty token", ErrInvalidResponse)
	case a.ExpiresIn <= 0:
		return fmt.Errorf("%w: expires_in must be positive, got %d", ErrInvalidResponse, a.ExpiresIn)
	default:
		return nil
	}
}
