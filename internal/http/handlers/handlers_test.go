package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/sanad-gateway/internal/clients"
	"github.com/pribylovaa/sanad-gateway/internal/config"
	"github.com/pribylovaa/sanad-gateway/internal/gateway"
	"github.com/pribylovaa/sanad-gateway/internal/metrics"
	"github.com/pribylovaa/sanad-gateway/internal/models"
	"github.com/pribylovaa/sanad-gateway/internal/session"
	logctx "github.com/pribylovaa/sanad-gateway/pkg/log"
)

var silent = slog.New(slog.NewTextHandler(io.Discard, nil))

func freshJWT(t *testing.T) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

// backend — фейковый сервис анализа: ответы по пути, запись тел запросов.
type backend struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  map[string]int
	routes map[string]http.HandlerFunc
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.calls[r.URL.Path]++
	b.bodies[r.URL.Path] = body
	h := b.routes[r.URL.Path]
	b.mu.Unlock()

	if h == nil {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (b *backend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func (b *backend) body(path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[path]
}

func newHandlers(t *testing.T, routes map[string]http.HandlerFunc) (*Handlers, *backend) {
	t.Helper()

	fb := &backend{bodies: map[string][]byte{}, calls: map[string]int{}, routes: routes}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		Backend:  config.BackendConfig{BaseURL: srv.URL},
		Timeouts: config.TimeoutConfig{Backend: 2 * time.Second},
		Breaker:  config.BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureRatio: 1, MinRequests: 1000},
	}
	m := metrics.New(prometheus.NewRegistry())
	b, err := clients.New(cfg, silent, m, nil)
	require.NoError(t, err)

	gw := gateway.New(b, gateway.Options{Metrics: m, Logger: silent})
	return New(gw, session.Options{}), fb
}

func reply(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
}

func do(h http.HandlerFunc, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, rd)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func cookiesOf(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestProxy_ValidationErrors_NeverReachBackend(t *testing.T) {
	t.Parallel()

	h, fb := newHandlers(t, map[string]http.HandlerFunc{})

	tests := []struct {
		name    string
		handler http.HandlerFunc
		body    string
		want    string
	}{
		{"extract_missing", h.ExtractNarrators, `{}`, "hadith_text is required and must be a string"},
		{"extract_empty", h.ExtractNarrators, `{"hadith_text":""}`, "hadith_text is required and must be a string"},
		{"extract_number", h.ExtractNarrators, `{"hadith_text":42}`, "hadith_text is required and must be a string"},
		{"extract_malformed", h.ExtractNarrators, `{"hadith_text":`, "hadith_text is required and must be a string"},
		{"narrator_missing", h.AnalyzeNarrator, `{"name":"x"}`, "narrator_name is required and must be a string"},
		{"chain_string", h.AnalyzeChain, `{"sanad_chain":"a, b"}`, "sanad_chain is required and must be an array"},
		{"chain_missing", h.AnalyzeChain, `{}`, "sanad_chain is required and must be an array"},
		{"combined_missing", h.ExtractAndAnalyze, `{"text":"x"}`, "hadith_text is required and must be a string"},
		{"extract_upper_key", h.ExtractNarrators, `{"HADITH_TEXT":"x"}`, "hadith_text is required and must be a string"},
		{"extract_mixed_case_key", h.ExtractNarrators, `{"Hadith_Text":"x"}`, "hadith_text is required and must be a string"},
		{"extract_empty_with_upper_twin", h.ExtractNarrators, `{"hadith_text":"","HADITH_TEXT":"x"}`, "hadith_text is required and must be a string"},
		{"narrator_upper_key", h.AnalyzeNarrator, `{"NARRATOR_NAME":"x"}`, "narrator_name is required and must be a string"},
		{"chain_upper_key", h.AnalyzeChain, `{"Sanad_Chain":["a"]}`, "sanad_chain is required and must be an array"},
		{"combined_upper_key", h.ExtractAndAnalyze, `{"HADITH_TEXT":"x"}`, "hadith_text is required and must be a string"},
		{"body_null", h.ExtractNarrators, `null`, "hadith_text is required and must be a string"},
		{"body_array", h.AnalyzeChain, `[["a"]]`, "sanad_chain is required and must be an array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(tt.handler, http.MethodPost, "/", tt.body, &http.Cookie{Name: "sc_access", Value: "tok"})
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Equal(t, tt.want, decode(t, w)["error"])
		})
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	require.Empty(t, fb.calls)
}

func TestProxy_ForwardsBodyUnchanged(t *testing.T) {
	t.Parallel()

	h, fb := newHandlers(t, map[string]http.HandlerFunc{
		backendAnalyzeChain: reply(http.StatusOK, map[string]any{"grade": "sahih"}),
	})

	in := `{"sanad_chain":["Malik","Nafi","Ibn Umar"],"extra":true}`
	w := do(h.AnalyzeChain, http.MethodPost, "/", in, &http.Cookie{Name: "sc_access", Value: freshJWT(t)})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "sahih", decode(t, w)["grade"])
	require.JSONEq(t, in, string(fb.body(backendAnalyzeChain)))
	require.True(t, bytes.Equal([]byte(in), fb.body(backendAnalyzeChain)))
}

func TestProxy_NoCookies_AuthenticationRequired(t *testing.T) {
	t.Parallel()

	h, fb := newHandlers(t, map[string]http.HandlerFunc{
		backendExtractNarrators: reply(http.StatusUnauthorized, map[string]any{"detail": "Not authenticated"}),
	})

	w := do(h.ExtractNarrators, http.MethodPost, "/", `{"hadith_text":"haddathana"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Authentication required", decode(t, w)["error"])
	require.Equal(t, 1, fb.count(backendExtractNarrators))
}

func TestProxy_BackendError_RelayedWithFallback(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t, map[string]http.HandlerFunc{
		backendAnalyzeNarrator:   reply(http.StatusUnprocessableEntity, map[string]any{"detail": "unknown narrator"}),
		backendExtractNarrators:  reply(http.StatusBadGateway, map[string]any{}),
		backendExtractAndAnalyze: reply(http.StatusInternalServerError, map[string]any{"error": "model offline"}),
	})
	ck := &http.Cookie{Name: "sc_access", Value: freshJWT(t)}

	w := do(h.AnalyzeNarrator, http.MethodPost, "/", `{"narrator_name":"X"}`, ck)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "unknown narrator", decode(t, w)["error"])

	w = do(h.ExtractNarrators, http.MethodPost, "/", `{"hadith_text":"t"}`, ck)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Equal(t, "API error 502", decode(t, w)["error"])

	w = do(h.ExtractAndAnalyze, http.MethodPost, "/", `{"hadith_text":"t"}`, ck)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "model offline", decode(t, w)["error"])
}

func TestUserHistory_Wrapped(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t, map[string]http.HandlerFunc{
		backendUserExtractions: reply(http.StatusOK, []map[string]any{{"id": 1}}),
		backendUserAnalyses:    reply(http.StatusOK, []map[string]any{}),
	})
	ck := &http.Cookie{Name: "sc_access", Value: freshJWT(t)}

	w := do(h.UserExtractions, http.MethodGet, "/", "", ck)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"extractions":[{"id":1}]}`, w.Body.String())

	w = do(h.UserAnalyses, http.MethodGet, "/", "", ck)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"analyses":[]}`, w.Body.String())
}

func TestLogin_SetsCookies_TokensNotInBody(t *testing.T) {
	t.Parallel()

	access := freshJWT(t)
	h, fb := newHandlers(t, map[string]http.HandlerFunc{
		backendLogin: reply(http.StatusOK, models.AuthResponse{
			AccessToken:  access,
			RefreshToken: "refresh-1",
			TokenType:    "bearer",
			ExpiresIn:    900,
			User:         &models.User{ID: "u1", Email: "a@b.c", Username: "abc"},
		}),
	})

	in := `{"email":"a@b.c","password":"secret"}`
	w := do(h.Login, http.MethodPost, "/", in)
	require.Equal(t, http.StatusOK, w.Code)

	out := decode(t, w)
	require.Equal(t, "Login successful", out["message"])
	require.Equal(t, "abc", out["user"].(map[string]any)["username"])
	require.NotContains(t, w.Body.String(), access)
	require.NotContains(t, w.Body.String(), "refresh-1")
	require.NotContains(t, w.Body.String(), "access_token")

	ck := cookiesOf(w)
	require.Equal(t, access, ck["sc_access"].Value)
	require.Equal(t, 900, ck["sc_access"].MaxAge)
	require.Equal(t, "refresh-1", ck["sc_refresh"].Value)
	require.Equal(t, 3600, ck["sc_refresh"].MaxAge)
	require.True(t, ck["sc_access"].HttpOnly)

	require.Equal(t, in, string(fb.body(backendLogin)))
}

func TestLogin_Validation_And_BackendRejection(t *testing.T) {
	t.Parallel()

	h, fb := newHandlers(t, map[string]http.HandlerFunc{
		backendLogin: reply(http.StatusUnauthorized, map[string]any{"detail": "Incorrect email or password"}),
	})

	w := do(h.Login, http.MethodPost, "/", `{"email":"a@b.c"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Email and password are required", decode(t, w)["error"])

	w = do(h.Login, http.MethodPost, "/", `{"Email":"a@b.c","PASSWORD":"x"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Email and password are required", decode(t, w)["error"])
	require.Zero(t, fb.count(backendLogin))

	w = do(h.Login, http.MethodPost, "/", `{"email":"a@b.c","password":"bad"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Incorrect email or password", decode(t, w)["error"])
	require.Empty(t, cookiesOf(w))
}

func TestLogin_BackendRejectionWithoutMessage_Fallback(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t, map[string]http.HandlerFunc{
		backendLogin: reply(http.StatusForbidden, map[string]any{}),
	})

	w := do(h.Login, http.MethodPost, "/", `{"email":"a@b.c","password":"x"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Invalid credentials", decode(t, w)["error"])
}

func TestRegister_RequiresAllFields(t *testing.T) {
	t.Parallel()

	h, fb := newHandlers(t, map[string]http.HandlerFunc{
		backendRegister: reply(http.StatusBadRequest, map[string]any{"detail": "Email already registered"}),
	})

	w := do(h.Register, http.MethodPost, "/", `{"email":"a@b.c","username":"u","password":"p"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "All fields are required", decode(t, w)["error"])
	require.Zero(t, fb.count(backendRegister))

	w = do(h.Register, http.MethodPost, "/", `{"email":"a@b.c","username":"u","password":"p","full_name":"F"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Email already registered", decode(t, w)["error"])
}

func TestRefresh_Endpoint(t *testing.T) {
	t.Parallel()

	h, fb := newHandlers(t, map[string]http.HandlerFunc{
		gateway.PathRefresh: func(w http.ResponseWriter, r *http.Request) {
			var req models.RefreshRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.RefreshToken != "good" {
				reply(http.StatusUnauthorized, map[string]any{"detail": "invalid"})(w, r)
				return
			}
			reply(http.StatusOK, models.AuthResponse{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: 60})(w, r)
		},
	})

	w := do(h.Refresh, http.MethodPost, "/", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "No refresh token found", decode(t, w)["error"])
	require.Zero(t, fb.count(gateway.PathRefresh))

	w = do(h.Refresh, http.MethodPost, "/", "", &http.Cookie{Name: "sc_refresh", Value: "bad"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Token refresh failed", decode(t, w)["error"])
	require.Equal(t, -1, cookiesOf(w)["sc_refresh"].MaxAge)

	w = do(h.Refresh, http.MethodPost, "/", "", &http.Cookie{Name: "sc_refresh", Value: "good"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Tokens refreshed successfully", decode(t, w)["message"])
	require.Equal(t, "a2", cookiesOf(w)["sc_access"].Value)
	require.Equal(t, "r2", cookiesOf(w)["sc_refresh"].Value)
}

func TestLogout_AlwaysSucceeds_AndClearsCookies(t *testing.T) {
	t.Parallel()

	h, fb := newHandlers(t, map[string]http.HandlerFunc{
		gateway.PathLogout: reply(http.StatusInternalServerError, map[string]any{"error": "db down"}),
	})

	w := do(h.Logout, http.MethodPost, "/", "",
		&http.Cookie{Name: "sc_access", Value: "tok"},
		&http.Cookie{Name: "sc_refresh", Value: "rt"},
	)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Logged out successfully", decode(t, w)["message"])
	require.Equal(t, 1, fb.count(gateway.PathLogout))

	ck := cookiesOf(w)
	require.Equal(t, -1, ck["sc_access"].MaxAge)
	require.Equal(t, -1, ck["sc_refresh"].MaxAge)

	w = do(h.Logout, http.MethodPost, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestMe_And_Sessions(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t, map[string]http.HandlerFunc{
		backendMe:       reply(http.StatusOK, models.User{ID: "u1", Username: "abc"}),
		backendSessions: reply(http.StatusOK, map[string]any{"sessions": []any{}}),
	})
	ck := &http.Cookie{Name: "sc_access", Value: freshJWT(t)}

	w := do(h.Me, http.MethodGet, "/", "", ck)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "abc", decode(t, w)["user"].(map[string]any)["username"])

	w = do(h.Sessions, http.MethodGet, "/", "", ck)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"sessions":[]}`, w.Body.String())
}

func TestMe_Unauthenticated(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t, map[string]http.HandlerFunc{
		backendMe:       reply(http.StatusUnauthorized, map[string]any{}),
		backendSessions: reply(http.StatusUnauthorized, map[string]any{}),
	})

	w := do(h.Me, http.MethodGet, "/", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Not authenticated", decode(t, w)["error"])

	w = do(h.Sessions, http.MethodGet, "/", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Not authenticated", decode(t, w)["error"])
}

func TestReadBody_TooLarge(t *testing.T) {
	t.Parallel()

	h, fb := newHandlers(t, map[string]http.HandlerFunc{})

	big := `{"hadith_text":"` + strings.Repeat("a", maxRequestBytes) + `"}`
	w := do(h.ExtractNarrators, http.MethodPost, "/", big)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "request body too large", decode(t, w)["error"])
	require.Zero(t, fb.count(backendExtractNarrators))
}

func TestLogin_LogsRedactedEmail(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t, map[string]http.HandlerFunc{
		backendLogin: reply(http.StatusUnauthorized, map[string]any{"detail": "nope"}),
	})

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"scholar@example.com","password":"pw-secret"}`))
	r = r.WithContext(logctx.Into(r.Context(), l))
	w := httptest.NewRecorder()
	h.Login(w, r)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, buf.String(), "login_failed")
	require.Contains(t, buf.String(), "sc***@example.com")
	require.NotContains(t, buf.String(), "scholar@")
	require.NotContains(t, buf.String(), "pw-secret")
}

func TestLogin_ThenProxy_UsesCookieBearer_AndRelaysIdenticalJSON(t *testing.T) {
	t.Parallel()

	access := freshJWT(t)
	const relayed = `{"narrators":[{"name":"Malik ibn Anas","grade":"thiqa"},{"name":"Nafi","grade":"thiqa"}],"count":2}`

	var mu sync.Mutex
	var bearer string
	h, fb := newHandlers(t, map[string]http.HandlerFunc{
		backendLogin: reply(http.StatusOK, models.AuthResponse{
			AccessToken:  access,
			RefreshToken: "refresh-1",
			ExpiresIn:    3600,
			User:         &models.User{ID: "u1", Username: "abc"},
		}),
		backendExtractNarrators: func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			bearer = r.Header.Get("Authorization")
			mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, relayed)
		},
	})

	login := do(h.Login, http.MethodPost, "/", `{"email":"a@b.c","password":"secret"}`)
	require.Equal(t, http.StatusOK, login.Code)

	ck := cookiesOf(login)
	require.Equal(t, 3600, ck["sc_access"].MaxAge)
	require.Equal(t, 14400, ck["sc_refresh"].MaxAge)

	// Браузер присылает полученные cookie обратно.
	in := `{"hadith_text":"haddathana Malik an Nafi"}`
	w := do(h.ExtractNarrators, http.MethodPost, "/", in,
		&http.Cookie{Name: ck["sc_access"].Name, Value: ck["sc_access"].Value},
		&http.Cookie{Name: ck["sc_refresh"].Name, Value: ck["sc_refresh"].Value},
	)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, relayed, strings.TrimSpace(w.Body.String()))

	mu.Lock()
	require.Equal(t, "Bearer "+access, bearer)
	mu.Unlock()

	require.Equal(t, in, string(fb.body(backendExtractNarrators)))
	require.Equal(t, 1, fb.count(backendExtractNarrators))
	require.Zero(t, fb.count(gateway.PathRefresh))
	require.Empty(t, w.Result().Cookies())
}
