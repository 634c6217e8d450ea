package broadcast

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// NewUpgrader returns the websocket upgrader used by ServeWS. Origin checks
// are left to the deployment's reverse proxy.
func NewUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// ServeWS upgrades the request to a websocket, registers it under clientID
// and blocks until the peer goes away. Inbound frames are read and
// discarded; they only keep the connection alive.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, upgrader *websocket.Upgrader, clientID string) {
	log := h.logger.With(slog.String("client_id", clientID))

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := NewWSConn(ws)
	if err := h.Connect(clientID, conn); err != nil {
		log.Warn("rejecting websocket", slog.String("error", err.Error()))
		_ = conn.Close()
		return
	}
	defer func() {
		h.Disconnect(clientID, conn)
		_ = conn.Close()
		log.Debug("client channel disconnected")
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go keepAlive(ctx, conn)

	ws.SetReadLimit(maxInboundMessage)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket closed unexpectedly", slog.String("error", err.Error()))
			}
			return
		}
	}
}

func keepAlive(ctx context.Context, conn *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
