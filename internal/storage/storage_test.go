package storage_test

import (
	"context"
	"crypton/backend/internal/models"
	"crypton/backend/internal/retention"
	"crypton/backend/internal/storage"
	"crypton/backend/internal/storage/storagetest"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *storage.Service {
	return storagetest.NewSQLite(t)
}

func seedRoom(t *testing.T, s *storage.Service) (*models.User, *models.Room) {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Username: "Anon_test"}
	require.NoError(t, s.CreateUser(ctx, user))
	room := &models.Room{Name: "Team", Kind: models.RoomPublic, Key: make([]byte, 32), CreatorID: user.ID}
	require.NoError(t, s.CreateRoom(ctx, room))
	return user, room
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &models.User{Username: "Anon_1234abcd"}
	require.NoError(t, s.CreateUser(ctx, user))
	assert.NotEmpty(t, user.ID)

	require.NoError(t, s.RenameUser(ctx, user.ID, "alice"))
	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, s.RenameUser(ctx, "missing", "bob"), models.ErrNotFound)
}

func TestRooms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, room := seedRoom(t, s)

	got, err := s.GetRoomByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "Team", got.Name)
	assert.Len(t, got.Key, 32)
	assert.Empty(t, got.StoredHash())

	_, err = s.GetRoomByID(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)

	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestAddMember_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, room := seedRoom(t, s)

	created, err := s.AddMember(ctx, room.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.AddMember(ctx, room.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, created)

	count, err := s.CountMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	member, err := s.IsMember(ctx, room.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, member)

	member, err = s.IsMember(ctx, room.ID, "stranger")
	require.NoError(t, err)
	assert.False(t, member)
}

func TestAddMember_ConcurrentJoins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, room := seedRoom(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddMember(ctx, room.ID, user.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := s.CountMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestAppendMessage_EnforcesRetention(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, room := seedRoom(t, s)
	policy := retention.Policy{Limit: 100}

	base := time.Now()
	var evictedTotal int64
	for i := 1; i <= 105; i++ {
		msg := &models.Message{
			RoomID:     room.ID,
			UserID:     user.ID,
			Ciphertext: fmt.Sprintf("ct-%d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Millisecond),
		}
		evicted, err := s.AppendMessage(ctx, msg, policy)
		require.NoError(t, err)
		evictedTotal += evicted
	}
	assert.EqualValues(t, 5, evictedTotal)

	count, err := s.CountMessages(ctx, room.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 100, count)

	recent, err := s.RecentMessages(ctx, room.ID, 100)
	require.NoError(t, err)
	require.Len(t, recent, 100)
	assert.Equal(t, "ct-6", recent[0].Ciphertext)
	assert.Equal(t, "ct-105", recent[99].Ciphertext)
	require.NotNil(t, recent[0].Author)
	assert.Equal(t, "Anon_test", recent[0].Author.Username)

	last, err := s.LastActivity(ctx, room.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.WithinDuration(t, base.Add(105*time.Millisecond), *last, time.Millisecond)
}

func TestAppendMessage_ConcurrentPostsStayBounded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, room := seedRoom(t, s)
	policy := retention.Policy{Limit: 10}

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := &models.Message{RoomID: room.ID, UserID: user.ID, Ciphertext: fmt.Sprint(i)}
			_, err := s.AppendMessage(ctx, msg, policy)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, err := s.CountMessages(ctx, room.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, count)
}

func TestAppendMessage_UnknownRoom(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AppendMessage(context.Background(), &models.Message{RoomID: "missing", UserID: "u"}, retention.Policy{Limit: 100})

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTrimRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, room := seedRoom(t, s)

	for i := 0; i < 5; i++ {
		_, err := s.AppendMessage(ctx, &models.Message{RoomID: room.ID, UserID: user.ID, Ciphertext: fmt.Sprint(i)}, retention.Policy{Limit: 100})
		require.NoError(t, err)
	}

	evicted, err := s.TrimRoom(ctx, room.ID, retention.Policy{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, evicted)

	recent, err := s.RecentMessages(ctx, room.ID, 100)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].Ciphertext)
	assert.Equal(t, "4", recent[1].Ciphertext)
}

func TestLastActivity_EmptyRoom(t *testing.T) {
	s := newTestStore(t)
	_, room := seedRoom(t, s)

	last, err := s.LastActivity(context.Background(), room.ID)

	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestDeleteRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, room := seedRoom(t, s)
	_, err := s.AddMember(ctx, room.ID, user.ID)
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, &models.Message{RoomID: room.ID, UserID: user.ID, Ciphertext: "x"}, retention.Policy{Limit: 100})
	require.NoError(t, err)

	require.NoError(t, s.DeleteRoom(ctx, room.ID))

	_, err = s.GetRoomByID(ctx, room.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	count, err := s.CountMessages(ctx, room.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.ErrorIs(t, s.DeleteRoom(ctx, room.ID), models.ErrNotFound)
}

func TestRoomEvents_WithoutRedis(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	events := s.SubscribeRoomEvents(ctx)
	require.NoError(t, s.PublishRoomEvent(ctx, models.RoomEvent{Type: models.EventMessagePosted, RoomID: "r"}))

	select {
	case got := <-events:
		assert.Equal(t, "r", got.RoomID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "room:r", storage.RoomChannel("r"))
}
