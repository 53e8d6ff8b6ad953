// ABOUTME: Access control for the admin API.
// ABOUTME: Checks the operator bearer token and rejects browser requests from non-local origins.

package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	apierr "github.com/2389/rokcore/internal/errors"
)

type contextKey string

const operatorContextKey contextKey = "operator"

// loopbackHosts are the origin host names trusted without further checks
var loopbackHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// Middleware requires "Authorization: Bearer <token>" on every request when
// token is set. An empty token leaves the API open to anything that can reach it.
func Middleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got := extractToken(r.Header.Get("Authorization"))
				if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
					apierr.WriteError(w, http.StatusUnauthorized, apierr.ErrUnauthorized, "missing or invalid admin token")
					return
				}
			}
			ctx := context.WithValue(r.Context(), operatorContextKey, operatorFrom(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocalOnly rejects requests whose Origin header names a non-loopback host.
// Requests without an Origin come from non-browser clients and pass.
func LocalOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !LocalOrigin(r) {
			apierr.WriteError(w, http.StatusForbidden, apierr.ErrForbiddenOrigin, "cross-origin requests are not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LocalOrigin reports whether r carries no Origin or one whose host is loopback
func LocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return loopbackHosts[strings.ToLower(u.Hostname())]
}

// OperatorFromContext returns who issued the request, for audit logs
func OperatorFromContext(ctx context.Context) string {
	operator, ok := ctx.Value(operatorContextKey).(string)
	if !ok || operator == "" {
		return "admin"
	}
	return operator
}

func extractToken(authHeader string) string {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// operatorFrom names the caller by remote address; the token identifies no one
func operatorFrom(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "admin"
	}
	return "admin@" + r.RemoteAddr
}
