// Package api provides HTTP handlers for the game API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/itqan/nahw-station/internal/media"
	"github.com/itqan/nahw-station/internal/session"
)

// Handler provides common handler utilities.
type Handler struct {
	sessions *session.Manager
	media    *media.Client
	isDev    bool
}

// NewHandler creates a new Handler with common dependencies. The dev
// flag comes from config.IsDevelopment and controls cookie security and
// origin checks.
func NewHandler(sessions *session.Manager, mediaClient *media.Client, isDev bool) *Handler {
	return &Handler{
		sessions: sessions,
		media:    mediaClient,
		isDev:    isDev,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
