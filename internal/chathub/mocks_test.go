package chathub_test

import (
	"context"
	"crypton/backend/internal/models"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockClient is a test double for the chathub.Client interface.
type MockClient struct {
	mock.Mock
	userID string
	roomID string
	send   chan models.RoomEvent

	mu     sync.Mutex
	closed bool
}

func newMockClient(userID, roomID string, buffer int) *MockClient {
	c := &MockClient{
		userID: userID,
		roomID: roomID,
		send:   make(chan models.RoomEvent, buffer),
	}
	c.On("Close").Return().Maybe()
	return c
}

func (c *MockClient) GetUserID() string                       { return c.userID }
func (c *MockClient) GetRoomID() string                       { return c.roomID }
func (c *MockClient) GetSendChannel() chan<- models.RoomEvent { return c.send }

func (c *MockClient) Run() {
	c.Called()
}

func (c *MockClient) Close() {
	c.Called()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *MockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// DrainMessages returns everything queued on the send channel.
func (c *MockClient) DrainMessages() []models.RoomEvent {
	var events []models.RoomEvent
	for {
		select {
		case e := <-c.send:
			events = append(events, e)
		default:
			return events
		}
	}
}

// MockEventSource is a chathub.EventSource fed by the test.
type MockEventSource struct {
	mock.Mock
	ch chan models.RoomEvent
}

func newMockEventSource() *MockEventSource {
	s := &MockEventSource{ch: make(chan models.RoomEvent, 10)}
	s.On("SubscribeRoomEvents", mock.Anything).Return()
	return s
}

func (s *MockEventSource) SubscribeRoomEvents(ctx context.Context) <-chan models.RoomEvent {
	s.Called(ctx)
	return s.ch
}
