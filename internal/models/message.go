package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a stored, encrypted room message.
// Seq is the insertion sequence and breaks ties between equal timestamps, so
// (CreatedAt, Seq) gives the total order used for both history and eviction.
type Message struct {
	Seq uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	// ID is the public, opaque message identifier.
	ID     string `gorm:"size:36;uniqueIndex;not null" json:"id"`
	RoomID string `gorm:"size:36;not null;index:idx_room_time,priority:1" json:"room_id"`
	UserID string `gorm:"size:36;not null" json:"user_id"`
	// Ciphertext is base64(iv) ":" base64(ct).
	Ciphertext string    `gorm:"type:text;not null" json:"ciphertext"`
	CreatedAt  time.Time `gorm:"index:idx_room_time,priority:2" json:"timestamp"`

	Author *User `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
