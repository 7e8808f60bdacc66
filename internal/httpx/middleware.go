package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/urbandrip/storefront-api/internal/auth"
)

type claimsKey struct{}

type Authenticator struct {
	Issuer *auth.Issuer
}

// ClaimsFrom returns the claims stored by the auth middleware.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func (a *Authenticator) authenticate(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearer(r)
		if tok == "" && allowQuery {
			tok = r.URL.Query().Get("token")
		}
		if tok == "" {
			writeMsg(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		claims, err := a.Issuer.Parse(tok)
		if err != nil {
			writeMsg(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// RequireAuth accepts only an Authorization: Bearer header.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return a.authenticate(next, false)
}

// RequireAuthOrQuery also accepts ?token=, for links the browser opens
// directly (the order PDF).
func (a *Authenticator) RequireAuthOrQuery(next http.Handler) http.Handler {
	return a.authenticate(next, true)
}

// RequireRole must run after one of the auth middlewares.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := ClaimsFrom(r.Context())
			if !ok {
				writeMsg(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if c.Role != role {
				writeMsg(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
