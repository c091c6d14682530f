package handler

import (
	"crypton/backend/internal/chathub"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		},
	}
}

// ServeWebSocket subscribes the caller to live events of one room.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	caller := callerFrom(c)
	roomID := c.Query("room_id")
	if roomID == "" {
		h.respondMessage(c, http.StatusBadRequest, "error.bad_request")
		return
	}

	if err := h.Rooms.AuthorizeSubscription(c.Request.Context(), caller, roomID); err != nil {
		h.respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Printf("WARNING: Websocket upgrade failed for %s: %v", caller.UserID, err)
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, caller.UserID, roomID)
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}
	client.Run()
}
