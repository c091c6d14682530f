// Package events streams room lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	k "github.com/segmentio/kafka-go"
)

// Event types.
const (
	RoomCreated     = "room.created"
	RoomJoined      = "room.joined"
	MessagePosted   = "message.posted"
	MessagesEvicted = "messages.evicted"
)

// Event never carries plaintext, key or password material.
type Event struct {
	Type      string    `json:"type"`
	RoomID    string    `json:"room_id"`
	RoomKind  string    `json:"room_kind,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Count     int64     `json:"count,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...k.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by room ID, so a room's events stay
// ordered within one partition.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &k.Writer{
		Addr:         k.TCP(brokers...),
		Topic:        topic,
		Balancer:     &k.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: k.RequireOne,
		Async:        true,
	}
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	return p.w.WriteMessages(ctx, k.Message{
		Key:   []byte(event.RoomID),
		Value: value,
		Time:  event.At,
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// Nop discards every event. It is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// New returns a KafkaPublisher, or Nop when brokers is empty.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return Nop{}
	}
	return NewKafkaPublisher(brokers, topic)
}
