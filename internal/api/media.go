package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/itqan/nahw-station/internal/media"
)

// MediaHandler proxies illustration and narration requests to the media
// service and serves the sound effect registry.
type MediaHandler struct {
	*Handler
}

// NewMediaHandler creates the media API handler.
func NewMediaHandler(base *Handler) *MediaHandler {
	return &MediaHandler{Handler: base}
}

// RegisterRoutes registers the media routes.
func (h *MediaHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/media", func(r chi.Router) {
		r.Get("/sounds", h.Sounds)
		r.Post("/narrate", h.Narrate)
		r.Post("/illustrate", h.Illustrate)
	})
}

// Sounds returns the sound effect registry for the client to preload.
func (h *MediaHandler) Sounds(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{"sounds": media.SoundEffects})
}

type narrateRequest struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// Narrate returns spoken audio for the given text. A missing media
// service answers 503 and the client plays on silently.
func (h *MediaHandler) Narrate(w http.ResponseWriter, r *http.Request) {
	var req narrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		Error(w, http.StatusBadRequest, "text is required")
		return
	}

	data, contentType, err := h.media.Narrate(r.Context(), req.Text, req.Options)
	h.writeMedia(w, data, contentType, err)
}

type illustrateRequest struct {
	Prompt string `json:"prompt"`
}

// Illustrate returns an image generated for the prompt.
func (h *MediaHandler) Illustrate(w http.ResponseWriter, r *http.Request) {
	var req illustrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		Error(w, http.StatusBadRequest, "prompt is required")
		return
	}

	data, contentType, err := h.media.Illustrate(r.Context(), req.Prompt)
	h.writeMedia(w, data, contentType, err)
}

func (h *MediaHandler) writeMedia(w http.ResponseWriter, data []byte, contentType string, err error) {
	if err != nil {
		if errors.Is(err, media.ErrDisabled) {
			Error(w, http.StatusServiceUnavailable, "media service not configured")
			return
		}
		Error(w, http.StatusBadGateway, "media service request failed")
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
