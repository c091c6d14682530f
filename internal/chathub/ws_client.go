package chathub

import (
	"crypton/backend/internal/models"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// WebSocketClient implements Client over a gorilla websocket. Messages are
// posted over HTTP; the socket only delivers events.
type WebSocketClient struct {
	UserID string
	RoomID string
	Conn   *websocket.Conn
	Hub    *ManagerService
	Send   chan models.RoomEvent
}

func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, userID, roomID string) *WebSocketClient {
	return &WebSocketClient{
		UserID: userID,
		RoomID: roomID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.RoomEvent, sendBuffer),
	}
}

func (c *WebSocketClient) GetUserID() string                       { return c.UserID }
func (c *WebSocketClient) GetRoomID() string                       { return c.RoomID }
func (c *WebSocketClient) GetSendChannel() chan<- models.RoomEvent { return c.Send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump keeps the read deadline fresh and detects disconnects. Anything the
// client sends is discarded.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARNING: Websocket read error for %s: %v", c.UserID, err)
			}
			return
		}
	}
}

// writePump writes each event as one JSON text frame and pings periodically.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(event); err != nil {
				log.Printf("WARNING: Websocket write error for %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
