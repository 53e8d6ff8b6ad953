// ABOUTME: Websocket console for the admin API.
// ABOUTME: Each text frame is run as a console line and the output is sent back.

package admin

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2389/rokcore/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     auth.LocalOrigin,
}

func (h *Handlers) consoleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	operator := auth.OperatorFromContext(r.Context())
	h.logger.Info("console session opened", "operator", operator)
	defer h.logger.Info("console session closed", "operator", operator)

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("console read failed", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		line := strings.TrimSpace(string(msg))
		if line == "" {
			continue
		}

		output := h.host.Console(line)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(output)); err != nil {
			h.logger.Warn("console write failed", "error", err)
			return
		}
	}
}
