package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pribylovaa/sanad-gateway/internal/session"
)

// Refresher — ротация пары токенов по cookie запроса (gateway.Gateway).
type Refresher interface {
	Refresh(ctx context.Context, jar session.Jar) string
}

// Guard защищает страницы фронтенда с путями под prefixes:
//  1. есть access-cookie — запрос проходит;
//  2. есть только refresh-cookie — пробуем Refresh; запрос проходит
//     и при неудаче (cookie к этому моменту уже очищены);
//  3. нет ни одной — 302 на /?login=true&redirect=<path>.
func Guard(prefixes []string, rf Refresher, opts session.Options) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !protected(r.URL.Path, prefixes) {
				next.ServeHTTP(w, r)
				return
			}

			jar := session.New(w, r, opts)
			access, refresh := jar.Access(), jar.Refresh()

			if access == "" && refresh != "" && rf != nil {
				rf.Refresh(r.Context(), jar)
			}

			if access != "" || refresh != "" {
				next.ServeHTTP(w, r)
				return
			}

			q := url.Values{}
			q.Set("login", "true")
			q.Set("redirect", r.URL.Path)
			http.Redirect(w, r, "/?"+q.Encode(), http.StatusFound)
		})
	}
}

func protected(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
