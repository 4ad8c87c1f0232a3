package core

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"vaichover/internal/types"
)

// DispatchKeyMiddleware guards operator endpoints with a shared key. The
// request must carry "Authorization: Bearer <key>" where key matches the
// bcrypt hash. An empty hash disables the check, which is how local
// development runs.
//
// Failures return 401 with distinct codes:
//   - auth_token_missing: no Authorization header or empty Bearer token.
//   - auth_token_invalid: the key does not match the hash.
func DispatchKeyMiddleware(hash types.SecretString, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hash.IsSet() {
				next.ServeHTTP(w, r)
				return
			}

			token := extractBearerToken(r.Header.Get("Authorization"))
			if token == "" {
				Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Bearer token is required", nil))
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(hash.Unmask()), []byte(token)); err != nil {
				if logger != nil {
					logger.Warn("dispatch key rejected",
						slog.String("path", r.URL.Path),
						slog.String("remote_addr", r.RemoteAddr),
					)
				}
				Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "Invalid dispatch key", nil))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken parses "Bearer <token>" (case-insensitive scheme per
// RFC 7235). Returns empty string if the format is invalid.
func extractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}
