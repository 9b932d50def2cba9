package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/pribylovaa/sanad-gateway/internal/session"
)

// Request — один вызов бэкенда.
type Request struct {
	Method string
	Path   string
	// Body уходит без изменений; nil — запрос без тела.
	Body   []byte
	Header http.Header
}

// state — состояние Dispatch. Переходы:
//
//	noToken/hasToken --401--> refreshing --новый токен--> retrying --2xx--> done
//	                                     \--нет токена--> failed   \--иначе--> failed
//	noToken/hasToken --иначе--> done
//
// В refreshing попадают не более одного раза, из retrying назад пути нет.
type state int

const (
	stateNoToken state = iota
	stateHasToken
	stateRefreshing
	stateRetrying
	stateFailed
	stateDone
)

type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool { return r.status >= 200 && r.status <= 299 }

// Dispatch выполняет вызов бэкенда с авторизацией и возвращает тело 2xx-ответа.
//   - 401 — ровно один Refresh и не более одного повтора, если токен сменился;
//     неудача — cookie очищаются, ErrAuthenticationFailed;
//   - прочие не-2xx — *APIError со статусом и сообщением бэкенда, без повторов;
//   - ошибка транспорта возвращается обёрнутой;
//   - refresh, отклонённый брейкером, — ErrBackendUnavailable, cookie сохраняются.
func (g *Gateway) Dispatch(ctx context.Context, jar session.Jar, req Request) (json.RawMessage, error) {
	const op = "gateway.Dispatch"

	token, refreshed, err := g.validAccessToken(ctx, jar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st := stateHasToken
	if token == "" {
		st = stateNoToken
	}

	var res *response
	for {
		switch st {
		case stateNoToken, stateHasToken:
			r, err := g.do(ctx, req, token)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			res = r
			switch {
			case r.status != http.StatusUnauthorized:
				st = stateDone
			case refreshed:
				// Токен уже обновлялся в этом вызове: второго refresh не будет.
				st = stateFailed
			default:
				st = stateRefreshing
			}

		case stateRefreshing:
			tried := token
			token, err = g.refresh(ctx, jar)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			refreshed = true
			if token == "" || token == tried {
				st = stateFailed
				continue
			}
			st = stateRetrying

		case stateRetrying:
			if g.metrics != nil {
				g.metrics.AuthRetries.Inc()
			}
			r, err := g.do(ctx, req, token)
			if err != nil {
				return nil, fmt.Errorf("%s: retry: %w", op, err)
			}
			if !r.ok() {
				st = stateFailed
				continue
			}
			res = r
			st = stateDone

		case stateFailed:
			jar.Clear()
			return nil, ErrAuthenticationFailed

		case stateDone:
			if !res.ok() {
				return nil, &APIError{Status: res.status, Message: errorMessage(res.status, res.body)}
			}
			return decodeBody(res.body)
		}
	}
}

// do отправляет запрос с токеном (если он есть) и вычитывает тело.
func (g *Gateway) do(ctx context.Context, req Request, token string) (*response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	hr, err := http.NewRequestWithContext(ctx, method, g.backend.URL(req.Path), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hr.Header.Add(k, v)
		}
	}
	if token != "" {
		hr.Header.Set("Authorization", "Bearer "+token)
	}
	if hr.Header.Get("Content-Type") == "" {
		hr.Header.Set("Content-Type", "application/json")
	}
	hr.Header.Set("Cache-Control", "no-store")

	resp, err := g.backend.HTTP.Do(hr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	return &response{status: resp.StatusCode, body: b}, nil
}

// decodeBody проверяет, что 2xx-тело — JSON. Пустое тело — null.
func decodeBody(b []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(b) {
		return nil, ErrInvalidResponse
	}

	return json.RawMessage(b), nil
}

// errorMessage: поле error, затем detail, затем текст тела, затем "API error <status>".
// Тело-JSON без этих полей даёт "API error <status>".
func errorMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("API error %d", status)

	if msg, isJSON := jsonErrorMessage(body); isJSON {
		if msg != "" {
			return msg
		}
		return fallback
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}

	return fallback
}

// jsonErrorMessage достаёт error или detail из JSON-тела.
// detail-не-строка (например, список ошибок валидации) отдаётся как JSON-текст.
func jsonErrorMessage(body []byte) (string, bool) {
	var eb struct {
		Error  json.RawMessage `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &eb) != nil {
		return "", false
	}

	for _, raw := range []json.RawMessage{eb.Error, eb.Detail} {
		if s := rawText(raw); s != "" {
			return s, true
		}
	}

	return "", true
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}
