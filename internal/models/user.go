package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an anonymous participant. It is created on first contact and only
// its display name ever changes afterwards.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Username  string    `gorm:"size:50;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate is a GORM hook that runs before the row is inserted.
// It assigns a fresh UUID if the ID has not been set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
