package config

import "time"

const (
	// Retention
	MaxRoomMessages = 100

	// Names
	MaxUsernameLength = 20
	MaxRoomNameLength = 100
	DefaultRoomName   = "New room"
	AnonNamePrefix    = "Anon_"

	// Messages
	MaxMessageLength = 4000

	// Session
	TokenTTL    = 72 * time.Hour
	TokenIssuer = "crypton-service"

	// Password hashing
	DefaultBcryptCost = 10
)
