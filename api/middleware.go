// Package api wires the REST and WebSocket edge: HTTP handlers translate
// requests into identity/store/authz/ws/voice calls and translate their
// results (or errors) back into the wire formats spec'd for each surface.
package api

import (
	"net/http"

	"hermes/identity"
	"hermes/pkg"
)

// Middleware holds the one cross-cutting HTTP concern every protected
// route needs: resolving the caller from their session.
type Middleware struct {
	identity   *identity.Service
	cookieName string
}

func NewMiddleware(svc *identity.Service, cookieName string) *Middleware {
	return &Middleware{identity: svc, cookieName: cookieName}
}

// Require resolves the caller's session — from the session cookie or,
// failing that, a ?token= query parameter — and rejects the request with
// 401 if neither is present or valid. Both transports resolve through the
// same identity.Service.Resolve path, so a WebSocket upgrade (which can't
// carry custom headers) and a plain fetch() both work.
func (m *Middleware) Require(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.sessionToken(r)
		user, err := m.identity.Resolve(r.Context(), token)
		if err != nil {
			pkg.Error(w, err)
			return
		}
		next(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (m *Middleware) sessionToken(r *http.Request) string {
	if c, err := r.Cookie(m.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}
