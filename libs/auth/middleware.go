package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/clinicagenda/libs/httpx"
)

// RequireSession rejects requests without a valid bearer token and stores the
// resulting Session in the request context.
func RequireSession(v *Verifier, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			s, err := v.Parse(raw)
			if err != nil {
				if logger != nil && !errors.Is(err, ErrInvalidToken) {
					logger.Warn("token verification failed", "err", err)
				}
				httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// RequireRole wraps a handler that only the given roles may call.
func RequireRole(next http.Handler, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := SessionFromContext(r.Context())
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !s.HasRole(roles...) {
			httpx.WriteError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TenantKey buckets rate limits per tenant once a session is known.
func TenantKey(r *http.Request) string {
	if s, err := SessionFromContext(r.Context()); err == nil {
		return "tenant:" + s.TenantID
	}
	return "ip:" + httpx.ClientIP(r)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
