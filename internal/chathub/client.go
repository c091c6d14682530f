package chathub

import "crypton/backend/internal/models"

// Client is the interface for a realtime subscriber connection. It abstracts
// the underlying transport so the hub can manage clients uniformly.
type Client interface {
	// GetUserID returns the identifier of the user behind the connection.
	GetUserID() string
	// GetRoomID returns the room the client subscribed to.
	GetRoomID() string

	// GetSendChannel returns the channel the hub delivers room events on.
	GetSendChannel() chan<- models.RoomEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the send channel, which ends the write pump.
	Close()
}
