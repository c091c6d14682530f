// Package retention keeps each room's message log bounded.
package retention

import (
	"context"
	"crypton/backend/internal/models"
	"fmt"
)

// Log is a room-scoped message sequence ordered by (timestamp, insertion order).
type Log interface {
	CountMessages(ctx context.Context, roomID string) (int64, error)
	// DeleteOldestMessages removes the n first messages of the room's order.
	DeleteOldestMessages(ctx context.Context, roomID string, n int64) error
	// RecentMessages returns up to limit newest messages, oldest first.
	RecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
}

// Policy bounds a room to Limit messages.
type Policy struct {
	Limit int
}

// Enforce evicts the oldest messages beyond the limit and reports how many
// were removed. Callers run it in the same transaction as the insert it follows.
func (p Policy) Enforce(ctx context.Context, log Log, roomID string) (int64, error) {
	count, err := log.CountMessages(ctx, roomID)
	if err != nil {
		return 0, fmt.Errorf("count messages in room %s: %w", roomID, err)
	}

	excess := count - int64(p.Limit)
	if excess <= 0 {
		return 0, nil
	}

	if err := log.DeleteOldestMessages(ctx, roomID, excess); err != nil {
		return 0, fmt.Errorf("evict %d messages in room %s: %w", excess, roomID, err)
	}
	return excess, nil
}

// FetchRecent returns the retained window, oldest first. It uses the same
// ordering as Enforce, so the recent window and the retained window coincide.
func (p Policy) FetchRecent(ctx context.Context, log Log, roomID string) ([]models.Message, error) {
	msgs, err := log.RecentMessages(ctx, roomID, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch recent messages in room %s: %w", roomID, err)
	}
	return msgs, nil
}
