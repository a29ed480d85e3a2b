package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/freema/docsgate/internal/apperror"
	"github.com/freema/docsgate/internal/logger"
)

// BearerAuth guards relayed calls with a shared gateway token. The header is
// consumed here; the relay sets its own service token when one is configured.
func BearerAuth(expected string) func(http.Handler) http.Handler {
	want := []byte(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), want) != 1 {
				logger.FromContext(r.Context()).Debug("relay call rejected", "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="docsgate"`)
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   apperror.ErrUnauthorized.Error(),
					"message": "missing or invalid Bearer token",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
