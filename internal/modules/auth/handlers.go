package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/tradebook/internal/domain"
	"github.com/rs/zerolog"
)

// Handler handles API key HTTP requests and authentication middleware
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new auth handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "auth").Logger(),
	}
}

// HandleGetAPIKey exchanges username/password headers for the caller's API
// key. Credentials travel in headers so they never land in access logs.
// GET /api/apikey
func (h *Handler) HandleGetAPIKey(w http.ResponseWriter, r *http.Request) {
	username := r.Header.Get("username")
	password := r.Header.Get("password")

	user, err := h.repo.GetByCredentials(username, password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			h.writeError(w, http.StatusForbidden, "FORBIDDEN")
			return
		}
		h.log.Error().Err(err).Msg("Credential lookup failed")
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch api key")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    map[string]string{"apikey": user.APIKey},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": message})
}
