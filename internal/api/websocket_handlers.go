// internal/api/websocket_handlers.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StatusWebSocket streams the connection status of one session. The
// current status is sent right after the handshake.
func (h *Handler) StatusWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	snap, err := h.sessions.Snapshot(sessionID)
	if err != nil {
		h.fail(c, err, MsgRequestFailed)
		return
	}

	conn, err := h.hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	client := newStatusClient(conn, sessionID)
	if msg, err := encodeStatus(sessionID, snap.ConnectionStatus); err == nil {
		client.send <- msg
	}
	if !h.hub.subscribe(client) {
		// never reached the hub, so the send channel is ours to close
		client.Close()
		close(client.send)
		return
	}

	go h.writeStatus(client)
	h.readStatus(client)
}

// readStatus discards client messages and keeps the read deadline alive
// until the connection drops.
func (h *Handler) readStatus(client *StatusClient) {
	defer h.hub.unsubscribe(client)

	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", zap.String("session_id", client.sessionID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Handler) writeStatus(client *StatusClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
