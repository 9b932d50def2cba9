// session — cookie-хранилище пары токенов одного входящего запроса.
//
// Jar живёт ровно один запрос: читает cookie из *http.Request и пишет
// Set-Cookie в http.ResponseWriter. Глобального состояния нет.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/sanad-gateway/internal/models"
)

// Jar — токены текущего запроса.
// Запись видна последующему чтению в рамках того же запроса.
type Jar interface {
	Access() string
	Refresh() string
	SetPair(p models.TokenPair)
	Clear()
}

// Options — имена и флаги cookie.
type Options struct {
	AccessName  string
	RefreshName string
	Secure      bool
}

func (o Options) withDefaults() Options {
	if o.AccessName == "" {
		o.AccessName = "sc_access"
	}
	if o.RefreshName == "" {
		o.RefreshName = "sc_refresh"
	}

	return o
}

// HTTPJar — Jar поверх пары (w, r).
type HTTPJar struct {
	w    http.ResponseWriter
	opts Options

	access  string
	refresh string
}

func New(w http.ResponseWriter, r *http.Request, opts Options) *HTTPJar {
	opts = opts.withDefaults()

	j := &HTTPJar{w: w, opts: opts}
	if c, err := r.Cookie(opts.AccessName); err == nil {
		j.access = c.Value
	}
	if c, err := r.Cookie(opts.RefreshName); err == nil {
		j.refresh = c.Value
	}

	return j
}

func (j *HTTPJar) Access() string  { return j.access }
func (j *HTTPJar) Refresh() string { return j.refresh }

// SetPair сохраняет пару: access живёт ExpiresIn секунд, refresh — в 4 раза дольше.
func (j *HTTPJar) SetPair(p models.TokenPair) {
	j.access, j.refresh = p.AccessToken, p.RefreshToken

	j.set(j.cookie(j.opts.AccessName, p.AccessToken, p.AccessMaxAge()))
	j.set(j.cookie(j.opts.RefreshName, p.RefreshToken, p.RefreshMaxAge()))
}

// Clear удаляет обе cookie.
func (j *HTTPJar) Clear() {
	j.access, j.refresh = "", ""

	for _, name := range []string{j.opts.AccessName, j.opts.RefreshName} {
		c := j.cookie(name, "", -1)
		c.Expires = time.Unix(0, 0)
		j.set(c)
	}
}

func (j *HTTPJar) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   j.opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// set заменяет ранее выставленный в этом ответе Set-Cookie с тем же именем.
func (j *HTTPJar) set(c *http.Cookie) {
	h := j.w.Header()
	prefix := c.Name + "="

	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}

	http.SetCookie(j.w, c)
}
