package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/api-sage/account-ledger-service/internal/logger"
)

// IdentityHeader carries the end-user identity verified by the upstream
// identity provider. The ledger trusts this value completely once the channel
// credentials check out; it performs no authentication of its own.
const IdentityHeader = "X-Authenticated-User"

type contextKey string

const usernameContextKey contextKey = "username"

// Identity authenticates the calling channel with Basic credentials and lifts
// the verified username from the identity header into the request context.
func Identity(channelID, channelKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if channelID == "" || channelKey == "" {
				logger.Error("identity middleware missing server configuration", nil, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				http.Error(w, "server auth configuration is missing", http.StatusInternalServerError)
				return
			}

			id, key, ok := r.BasicAuth()
			if !ok || !secureEqual(id, channelID) || !secureEqual(key, channelKey) {
				logger.Info("identity middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "invalid_or_missing",
				})
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			username := strings.TrimSpace(r.Header.Get(IdentityHeader))
			if username == "" {
				logger.Info("identity middleware missing identity header", logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), usernameContextKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UsernameFromContext returns the authenticated username injected by Identity.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameContextKey).(string)
	return username, ok && username != ""
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
