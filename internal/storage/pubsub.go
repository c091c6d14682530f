package storage

import (
	"context"
	"crypton/backend/internal/models"
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

const roomChannelPrefix = "room:"

// RoomChannel is the Redis channel realtime events for roomID are published on.
func RoomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}

// localBus delivers events to subscribers in this process when Redis is not
// configured. The zero value is ready to use.
type localBus struct {
	mu   sync.Mutex
	subs map[chan models.RoomEvent]struct{}
}

func (b *localBus) subscribe(ctx context.Context) <-chan models.RoomEvent {
	ch := make(chan models.RoomEvent, 64)
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[chan models.RoomEvent]struct{})
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

func (b *localBus) publish(event models.RoomEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			log.Printf("WARNING: Dropping room event for %s, subscriber is full", event.RoomID)
		}
	}
}

// PublishRoomEvent fans an event out to every server instance through Redis,
// or to local subscribers only when Redis is disabled.
func (s *Service) PublishRoomEvent(ctx context.Context, event models.RoomEvent) error {
	if s.Redis == nil {
		s.bus.publish(event)
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode room event: %w", err)
	}
	return s.Redis.Publish(ctx, RoomChannel(event.RoomID), payload).Err()
}

// SubscribeRoomEvents listens on every room channel until ctx is cancelled.
// The returned channel is closed when the subscription ends.
func (s *Service) SubscribeRoomEvents(ctx context.Context) <-chan models.RoomEvent {
	if s.Redis == nil {
		return s.bus.subscribe(ctx)
	}

	out := make(chan models.RoomEvent)

	pubsub := s.Redis.PSubscribe(ctx, roomChannelPrefix+"*")
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event models.RoomEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("ERROR: Failed to decode room event from %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
