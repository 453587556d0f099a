// Package auth guards the host-facing hook with a shared bearer secret.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"idvgate/pkg/requestcontext"
)

const bearerPrefix = "Bearer "

// RequireHookSecret rejects requests whose bearer token does not match secret.
// An empty secret disables the check (local development).
func RequireHookSecret(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, bearerPrefix)
			if !found || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "hook secret mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", requestcontext.ClientIP(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"hook secret required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
