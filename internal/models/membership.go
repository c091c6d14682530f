package models

import "time"

// Membership records that a user joined a room. The composite unique index
// guarantees at most one row per (room, user).
type Membership struct {
	ID       uint      `gorm:"primaryKey"`
	RoomID   string    `gorm:"size:36;not null;uniqueIndex:idx_room_user"`
	UserID   string    `gorm:"size:36;not null;uniqueIndex:idx_room_user"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}
