package storage

import (
	"context"
	"crypton/backend/internal/models"
	"crypton/backend/internal/retention"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// messageLog implements retention.Log on top of a gorm handle, which may be a
// transaction.
type messageLog struct {
	db *gorm.DB
}

func (l messageLog) CountMessages(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&models.Message{}).Where("room_id = ?", roomID).Count(&count).Error
	return count, err
}

func (l messageLog) DeleteOldestMessages(ctx context.Context, roomID string, n int64) error {
	if n <= 0 {
		return nil
	}

	var seqs []uint64
	err := l.db.WithContext(ctx).Model(&models.Message{}).
		Where("room_id = ?", roomID).
		Order("created_at asc, seq asc").
		Limit(int(n)).
		Pluck("seq", &seqs).Error
	if err != nil {
		return err
	}
	if len(seqs) == 0 {
		return nil
	}
	return l.db.WithContext(ctx).Where("seq IN ?", seqs).Delete(&models.Message{}).Error
}

func (l messageLog) RecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := l.db.WithContext(ctx).
		Preload("Author").
		Where("room_id = ?", roomID).
		Order("created_at desc, seq desc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	// Newest-first from the query, oldest-first for callers.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// AppendMessage inserts msg and enforces the room's retention bound in one
// transaction. The room row is locked first so concurrent posts to the same
// room are serialised and never leave it above or below the bound.
func (s *Service) AppendMessage(ctx context.Context, msg *models.Message, policy retention.Policy) (int64, error) {
	var evicted int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRoom(tx, msg.RoomID); err != nil {
			return err
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		var err error
		evicted, err = policy.Enforce(ctx, messageLog{db: tx}, msg.RoomID)
		return err
	})
	if err != nil {
		log.Printf("ERROR: Failed to save message for room %s: %v", msg.RoomID, err)
		return 0, err
	}
	return evicted, nil
}

// TrimRoom applies the retention bound without inserting anything.
func (s *Service) TrimRoom(ctx context.Context, roomID string, policy retention.Policy) (int64, error) {
	var evicted int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRoom(tx, roomID); err != nil {
			return err
		}
		var err error
		evicted, err = policy.Enforce(ctx, messageLog{db: tx}, roomID)
		return err
	})
	return evicted, err
}

func lockRoom(tx *gorm.DB, roomID string) error {
	var room models.Room
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", roomID).
		Take(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("room %s: %w", roomID, models.ErrNotFound)
	}
	return err
}

func (s *Service) CountMessages(ctx context.Context, roomID string) (int64, error) {
	return messageLog{db: s.DB}.CountMessages(ctx, roomID)
}

func (s *Service) DeleteOldestMessages(ctx context.Context, roomID string, n int64) error {
	return messageLog{db: s.DB}.DeleteOldestMessages(ctx, roomID, n)
}

func (s *Service) RecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	return messageLog{db: s.DB}.RecentMessages(ctx, roomID, limit)
}

// LastActivity returns the timestamp of the newest message, or nil for an
// empty room.
func (s *Service) LastActivity(ctx context.Context, roomID string) (*time.Time, error) {
	var msg models.Message
	err := s.DB.WithContext(ctx).
		Select("created_at").
		Where("room_id = ?", roomID).
		Order("created_at desc, seq desc").
		Take(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg.CreatedAt, nil
}
