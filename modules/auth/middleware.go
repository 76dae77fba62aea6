package auth

import (
	"net/http"
	"strings"

	"github.com/stackblog/authkit/svc/auth"
)

const (
	bearerPrefix       = "Bearer "
	refreshTokenHeader = "X-Refresh-Token"
)

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// RequireAuth authenticates the request by its bearer access token. The
// identity is re-read from the datastore on every request, so revocation and
// deletion take effect immediately. Expired tokens are reported distinctly
// from invalid ones so clients know when a refresh is worth attempting.
func (m *Module) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			m.respondErrorCode(w, http.StatusUnauthorized, "unauthorized", "Authentication required.")
			return
		}

		user, err := m.svc.ResolveUser(r.Context(), token)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// OptionalAuth resolves the identity when a valid bearer token is present and
// proceeds without one otherwise. Handlers read the result via
// auth.UserFromContext.
func (m *Module) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if user, err := m.svc.ResolveUser(r.Context(), token); err == nil {
				r = r.WithContext(auth.SetUser(r.Context(), user))
			}
		}
		next.ServeHTTP(w, r)
	})
}
