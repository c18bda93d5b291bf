package auth

import (
	"encoding/json"
	"net/http"
)

// HeaderAPIKey carries the client's key on authenticated requests
const HeaderAPIKey = "X-API-Key"

// RequireKey rejects requests whose X-API-Key header does not belong to a
// registered user.
func (h *Handler) RequireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderAPIKey)
		if _, err := h.repo.VerifyKey(key); err != nil {
			h.log.Warn().Str("path", r.URL.Path).Msg("Rejected request with invalid api key")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"message": "FORBIDDEN",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
