// Package room orchestrates the room security core: key material, password
// gates, encrypted posting and bounded history.
package room

import (
	"context"
	"crypton/backend/internal/access"
	"crypton/backend/internal/config"
	"crypton/backend/internal/events"
	"crypton/backend/internal/identity"
	"crypton/backend/internal/keying"
	"crypton/backend/internal/metrics"
	"crypton/backend/internal/models"
	"crypton/backend/internal/password"
	"crypton/backend/internal/retention"
	"crypton/backend/internal/storage"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"
)

type Service struct {
	store     storage.Storage
	hasher    password.Hasher
	policy    *access.Policy
	retention retention.Policy
	events    events.Publisher
	metrics   *metrics.Metrics
}

// NewService wires the core. pub and m may be nil.
func NewService(store storage.Storage, hasher password.Hasher, pub events.Publisher, m *metrics.Metrics) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store:     store,
		hasher:    hasher,
		policy:    access.NewPolicy(hasher),
		retention: retention.Policy{Limit: config.MaxRoomMessages},
		events:    pub,
		metrics:   m,
	}
}

type CreateRoomInput struct {
	Name     string
	Kind     models.RoomKind
	Password string
}

// KeyGrant hands the raw room key to a creator or a member.
type KeyGrant struct {
	RoomID         string          `json:"room_id"`
	RoomName       string          `json:"room_name"`
	Kind           models.RoomKind `json:"kind"`
	IsPrivate      bool            `json:"is_private"`
	IsAnnouncement bool            `json:"is_announcement"`
	// RoomKey is the base64 raw key, not the derived cipher key.
	RoomKey string `json:"room_key"`
}

type HistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Summary struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Kind           models.RoomKind `json:"kind"`
	IsPrivate      bool            `json:"is_private"`
	IsAnnouncement bool            `json:"is_announcement"`
	UserCount      int64           `json:"user_count"`
	MessageCount   int64           `json:"message_count"`
	Created        time.Time       `json:"created"`
	LastActivity   time.Time       `json:"last_activity"`
}

// ResolveKind maps an explicit kind or the legacy boolean flags to a RoomKind.
// An explicit kind wins; among the flags announcement takes precedence.
func ResolveKind(kind string, isPrivate, isAnnouncement bool) (models.RoomKind, error) {
	if kind != "" {
		k := models.RoomKind(strings.ToLower(strings.TrimSpace(kind)))
		if !k.Valid() {
			return "", fmt.Errorf("unknown room kind %q: %w", kind, models.ErrInvalidInput)
		}
		return k, nil
	}
	switch {
	case isAnnouncement:
		return models.RoomAnnouncement, nil
	case isPrivate:
		return models.RoomPrivate, nil
	default:
		return models.RoomPublic, nil
	}
}

func grantFor(room *models.Room) KeyGrant {
	return KeyGrant{
		RoomID:         room.ID,
		RoomName:       room.Name,
		Kind:           room.Kind,
		IsPrivate:      room.Kind == models.RoomPrivate,
		IsAnnouncement: room.Kind == models.RoomAnnouncement,
		RoomKey:        keying.EncodeKey(room.Key),
	}
}

// CreateRoom generates the room key, hashes the password when the kind uses
// one and returns the raw key to the creator.
func (s *Service) CreateRoom(ctx context.Context, caller identity.Caller, in CreateRoomInput) (KeyGrant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = config.DefaultRoomName
	}
	if utf8.RuneCountInString(name) > config.MaxRoomNameLength {
		return KeyGrant{}, fmt.Errorf("room name longer than %d characters: %w", config.MaxRoomNameLength, models.ErrInvalidInput)
	}

	kind := in.Kind
	if kind == "" {
		kind = models.RoomPublic
	}
	if !kind.Valid() {
		return KeyGrant{}, fmt.Errorf("unknown room kind %q: %w", kind, models.ErrInvalidInput)
	}

	key, err := keying.GenerateKey()
	if err != nil {
		return KeyGrant{}, err
	}

	room := &models.Room{
		Name:      name,
		Kind:      kind,
		Key:       key,
		CreatorID: caller.UserID,
	}
	if kind.RequiresPassword() && in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return KeyGrant{}, fmt.Errorf("hash room password: %v: %w", err, models.ErrInvalidInput)
		}
		room.PasswordHash = &hash
	}

	if err := s.store.CreateRoom(ctx, room); err != nil {
		return KeyGrant{}, err
	}
	log.Printf("INFO: Room %s (%s) created by %s", room.ID, room.Kind, caller.UserID)

	s.emit(ctx, events.Event{Type: events.RoomCreated, RoomID: room.ID, RoomKind: string(room.Kind), UserID: caller.UserID})
	return grantFor(room), nil
}

// JoinRoom checks the join gate, records the membership and returns the raw key.
func (s *Service) JoinRoom(ctx context.Context, caller identity.Caller, roomID, pw string) (KeyGrant, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return KeyGrant{}, err
	}

	if err := s.policy.CanJoin(room.Kind, room.StoredHash(), pw); err != nil {
		s.metrics.Denied("join")
		return KeyGrant{}, err
	}

	created, err := s.store.AddMember(ctx, room.ID, caller.UserID)
	if err != nil {
		return KeyGrant{}, err
	}
	if created {
		s.emit(ctx, events.Event{Type: events.RoomJoined, RoomID: room.ID, UserID: caller.UserID})
	}
	return grantFor(room), nil
}

func (s *Service) PasswordStatus(ctx context.Context, roomID, pw string) (access.Status, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return access.Status{}, err
	}
	return s.policy.PasswordStatus(room.Kind, room.StoredHash(), pw), nil
}

// CanWrite reports whether a post with pw would be accepted.
func (s *Service) CanWrite(ctx context.Context, roomID, pw string) (bool, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	return s.policy.CanWrite(room.Kind, room.StoredHash(), pw), nil
}

// PostMessage encrypts text under the room key and stores it. Insert and
// retention run as one unit, so the room never exceeds its bound.
func (s *Service) PostMessage(ctx context.Context, caller identity.Caller, roomID, text, pw string) (*models.Message, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanWrite(room.Kind, room.StoredHash(), pw) {
		s.metrics.Denied("post_message")
		return nil, fmt.Errorf("password required to write in room %s: %w", room.ID, models.ErrAccessDenied)
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty message: %w", models.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > config.MaxMessageLength {
		return nil, fmt.Errorf("message longer than %d characters: %w", config.MaxMessageLength, models.ErrInvalidInput)
	}

	ciphertext, err := keying.Encrypt(keying.DeriveKey(room.Key), text)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		RoomID:     room.ID,
		UserID:     caller.UserID,
		Ciphertext: ciphertext,
		CreatedAt:  time.Now().UTC(),
	}
	evicted, err := s.store.AppendMessage(ctx, msg, s.retention)
	if err != nil {
		return nil, err
	}
	s.metrics.MessagePosted(evicted)

	event := models.RoomEvent{
		Type:       models.EventMessagePosted,
		RoomID:     room.ID,
		MessageID:  msg.ID,
		UserID:     caller.UserID,
		Username:   caller.Username,
		Ciphertext: msg.Ciphertext,
		Timestamp:  msg.CreatedAt,
	}
	if err := s.store.PublishRoomEvent(ctx, event); err != nil {
		log.Printf("WARNING: Failed to publish realtime event for room %s: %v", room.ID, err)
	}

	s.emit(ctx, events.Event{Type: events.MessagePosted, RoomID: room.ID, UserID: caller.UserID, MessageID: msg.ID})
	if evicted > 0 {
		s.emit(ctx, events.Event{Type: events.MessagesEvicted, RoomID: room.ID, Count: evicted})
	}
	return msg, nil
}

// FetchHistory decrypts the retained window with the caller-supplied raw key.
// Entries that fail to decrypt carry keying.Undecryptable; the fetch itself
// only fails on a lookup miss or an undecodable key.
func (s *Service) FetchHistory(ctx context.Context, roomID, rawKey string) ([]HistoryEntry, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	raw, err := keying.DecodeKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, models.ErrInvalidKey)
	}
	key := keying.DeriveKey(raw)

	msgs, err := s.retention.FetchRecent(ctx, s.store, room.ID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(msgs))
	failed := 0
	for _, m := range msgs {
		text, ok := keying.Decrypt(key, m.Ciphertext)
		if !ok {
			failed++
		}
		entries = append(entries, HistoryEntry{
			ID:        m.ID,
			UserID:    m.UserID,
			Username:  authorName(m),
			Message:   text,
			Timestamp: m.CreatedAt,
		})
	}
	s.metrics.Undecryptable(failed)
	return entries, nil
}

func authorName(m models.Message) string {
	if m.Author == nil {
		return "unknown"
	}
	return m.Author.Username
}

// AuthorizeSubscription decides whether caller may receive live events for roomID.
func (s *Service) AuthorizeSubscription(ctx context.Context, caller identity.Caller, roomID string) error {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	member, err := s.store.IsMember(ctx, room.ID, caller.UserID)
	if err != nil {
		return err
	}
	if !s.policy.CanRead(room.Kind, member) {
		s.metrics.Denied("subscribe")
		return fmt.Errorf("join room %s first: %w", room.ID, models.ErrAccessDenied)
	}
	return nil
}

func (s *Service) RoomInfo(ctx context.Context, roomID string) (Summary, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return Summary{}, err
	}
	return s.summarize(ctx, room)
}

func (s *Service) ListRooms(ctx context.Context) ([]Summary, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(rooms))
	for i := range rooms {
		sum, err := s.summarize(ctx, &rooms[i])
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *Service) summarize(ctx context.Context, room *models.Room) (Summary, error) {
	users, err := s.store.CountMembers(ctx, room.ID)
	if err != nil {
		return Summary{}, err
	}
	msgs, err := s.store.CountMessages(ctx, room.ID)
	if err != nil {
		return Summary{}, err
	}
	last, err := s.store.LastActivity(ctx, room.ID)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		ID:             room.ID,
		Name:           room.Name,
		Kind:           room.Kind,
		IsPrivate:      room.Kind == models.RoomPrivate,
		IsAnnouncement: room.Kind == models.RoomAnnouncement,
		UserCount:      users,
		MessageCount:   msgs,
		Created:        room.CreatedAt,
		LastActivity:   room.CreatedAt,
	}
	if last != nil {
		sum.LastActivity = *last
	}
	return sum, nil
}

// emit publishes to the event stream. Failures are logged and never fail the
// operation that produced the event.
func (s *Service) emit(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("WARNING: Failed to publish %s event for room %s: %v", event.Type, event.RoomID, err)
	}
}
