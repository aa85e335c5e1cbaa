package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/itqan/nahw-station/internal/identity"
)

// EventsHandler streams session events (sync indicator changes,
// progress updates) to the browser over WebSocket.
type EventsHandler struct {
	*Handler
	allowedOrigin string
}

// NewEventsHandler creates the event stream handler.
func NewEventsHandler(base *Handler, allowedOrigin string) *EventsHandler {
	return &EventsHandler{Handler: base, allowedOrigin: allowedOrigin}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	username := identity.PlayerFromContext(r.Context())
	s, ok := h.sessions.Get(username)
	if !ok {
		http.Error(w, `{"error":"no active session"}`, http.StatusUnauthorized)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "username", username)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "username", username)
		}
	}()

	s.Subscribe(ws)
	defer s.Unsubscribe(ws)
	slog.Info("Event subscriber connected", "username", username, "ip", r.RemoteAddr)

	// Reads keep the connection's liveness visible; the only inbound
	// message the client sends is a ping.
	h.readLoop(r.Context(), ws, s.Touch, username)
	slog.Info("Event subscriber disconnected", "username", username)
}

func (h *EventsHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

type clientMessage struct {
	Type string `json:"type"`
}

func (h *EventsHandler) readLoop(ctx context.Context, ws *websocket.Conn, touch func(), username string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "username", username)
			} else {
				slog.Debug("WebSocket read error", "error", err, "username", username)
			}
			return
		}
		touch()

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			if err := ws.Write(ctx, websocket.MessageText, []byte(`{"type":"pong"}`)); err != nil {
				slog.Debug("Failed to send pong", "error", err, "username", username)
				return
			}
		}
	}
}
