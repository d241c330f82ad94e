package admin

import (
	"encoding/json"
	"net/http"

	"github.com/apestel/hardwire/internal/hwerr"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type liveUpdateFrame struct {
	Event         string `json:"event"`
	TransactionID string `json:"transaction_id"`
	FilePath      string `json:"file_path"`
	ReadBytes     int64  `json:"read_bytes"`
	TotalBytes    int64  `json:"total_bytes"`
}

// handleLiveUpdate implements GET /admin/live_update?token=<jwt>: an
// authenticated websocket forwarding the progress bus as JSON frames.
// No client-to-server messages are interpreted; disconnection
// releases the bus subscription.
func (s *Server) handleLiveUpdate(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindAuthMissing, "missing token"))
		return
	}
	if _, err := s.tokens.Verify(token); err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindAuthInvalid, "invalid token", err))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("admin: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := s.bus.Subscribe()
	defer cancel()

	for evt := range events {
		frame := liveUpdateFrame{
			Event:         "download_progress",
			TransactionID: evt.TransactionID,
			FilePath:      evt.FilePath,
			ReadBytes:     evt.ReadBytes,
			TotalBytes:    evt.TotalBytes,
		}
		payload, err := json.Marshal(frame)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
