package services

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	client := newClient(h, conn)
	if !h.add(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(h.cfg.WriteWait))
		_ = conn.Close()
		return
	}
	client.log.Info("websocket connected")

	go client.writePump()
	client.readPump()
}
