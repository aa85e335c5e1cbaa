package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
)

const eventWriteTimeout = 5 * time.Second

// event is one message pushed to subscribed browsers: sync indicator
// changes and progress updates.
type event struct {
	Type       string `json:"type"`
	Status     string `json:"status,omitempty"`
	StationID  int    `json:"stationId,omitempty"`
	Score      int    `json:"score,omitempty"`
	TotalScore int    `json:"totalScore,omitempty"`
	Completed  int    `json:"completed,omitempty"`
}

// Subscribe registers a websocket connection for session events.
func (s *Session) Subscribe(conn *websocket.Conn) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs[conn] = struct{}{}
}

// Unsubscribe removes a websocket connection.
func (s *Session) Unsubscribe(conn *websocket.Conn) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	delete(s.subs, conn)
}

// broadcast sends an event to every subscriber. Write failures drop the
// connection; losing an indicator update never affects gameplay.
func (s *Session) broadcast(ev event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("failed to encode session event", "type", ev.Type, "error", err)
		return
	}

	username := s.Username()

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for conn := range s.subs {
		ctx, cancel := context.WithTimeout(context.Background(), eventWriteTimeout)
		err := conn.Write(ctx, websocket.MessageText, raw)
		cancel()
		if err != nil {
			slog.Debug("dropping stale event subscriber", "username", username, "error", err)
			_ = conn.Close(websocket.StatusNormalClosure, "write failed")
			delete(s.subs, conn)
		}
	}
}
