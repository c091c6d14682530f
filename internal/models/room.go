package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomKind controls how reads and writes to a room are gated.
type RoomKind string

const (
	RoomPublic       RoomKind = "public"
	RoomPrivate      RoomKind = "private"
	RoomAnnouncement RoomKind = "announcement"
)

// Valid reports whether k is one of the known kinds.
func (k RoomKind) Valid() bool {
	switch k {
	case RoomPublic, RoomPrivate, RoomAnnouncement:
		return true
	}
	return false
}

// RequiresPassword reports whether a room of this kind stores a password hash.
func (k RoomKind) RequiresPassword() bool {
	return k == RoomPrivate || k == RoomAnnouncement
}

// Room is a group conversation with its own symmetric key.
type Room struct {
	// ID is the opaque room identifier (UUID).
	ID string `gorm:"primaryKey;size:36" json:"id"`
	// Name is the display name shown in room listings.
	Name string `gorm:"size:100;not null" json:"name"`
	// Kind is one of public, private or announcement.
	Kind RoomKind `gorm:"size:16;not null;default:public" json:"kind"`
	// Key holds the 32 raw key bytes generated at creation. It never changes.
	Key []byte `gorm:"not null" json:"-"`
	// PasswordHash is the bcrypt hash of the room password. Only private and
	// announcement rooms created with a password carry one.
	PasswordHash *string `gorm:"size:128" json:"-"`
	// CreatorID references the user who created the room.
	CreatorID string `gorm:"size:36;index" json:"creator_id"`
	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"created"`
}

// StoredHash returns the password hash or "" when none is stored.
func (r *Room) StoredHash() string {
	if r.PasswordHash == nil {
		return ""
	}
	return *r.PasswordHash
}

func (r *Room) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}
