package models

import "time"

// Room event types pushed to realtime subscribers.
const (
	EventMessagePosted = "message_posted"
)

// RoomEvent is the realtime notification fanned out to room subscribers.
// It only ever carries ciphertext; subscribers decrypt with the raw room key.
type RoomEvent struct {
	Type       string    `json:"type"`
	RoomID     string    `json:"room_id"`
	MessageID  string    `json:"message_id"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Ciphertext string    `json:"ciphertext"`
	Timestamp  time.Time `json:"timestamp"`
}
