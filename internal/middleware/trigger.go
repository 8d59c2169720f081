package middleware

import (
	"crypto/subtle"
	"net/http"
)

// TriggerTokenHeader authenticates the out-of-band reconcile trigger.
const TriggerTokenHeader = "X-Reconcile-Token"

// RequireTriggerToken gates internal cron-style endpoints with a shared
// secret header. An empty configured token disables the endpoint
// entirely rather than leaving it open.
func RequireTriggerToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeAuthError(w, http.StatusForbidden, "trigger endpoint disabled", "trigger_disabled")
				return
			}
			got := r.Header.Get(TriggerTokenHeader)
			if subtle.ConstantTimeCompare([]byte(token), []byte(got)) != 1 {
				writeAuthError(w, http.StatusUnauthorized, "invalid trigger token", "auth_invalid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
