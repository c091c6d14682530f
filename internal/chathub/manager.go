package chathub

import (
	"context"
	"crypton/backend/internal/metrics"
	"crypton/backend/internal/models"
	"log"
	"sync"
)

// EventSource yields room events from every server instance.
type EventSource interface {
	SubscribeRoomEvents(ctx context.Context) <-chan models.RoomEvent
}

// ManagerService owns the connected clients. Registration, removal and
// fan-out all happen on the Run goroutine.
type ManagerService struct {
	mu      sync.RWMutex
	clients map[Client]struct{}

	RegisterCh   chan Client
	UnregisterCh chan Client
	BroadcastCh  chan models.RoomEvent

	Source  EventSource
	Metrics *metrics.Metrics

	done chan struct{}
}

func NewManagerService(src EventSource, m *metrics.Metrics) *ManagerService {
	return &ManagerService{
		clients:      make(map[Client]struct{}),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		BroadcastCh:  make(chan models.RoomEvent, 256),
		Source:       src,
		Metrics:      m,
		done:         make(chan struct{}),
	}
}

// Run processes hub traffic until ctx is cancelled, then closes every client.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.done)
	if m.Source != nil {
		m.StartPubSubListener(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return

		case client := <-m.RegisterCh:
			m.mu.Lock()
			m.clients[client] = struct{}{}
			m.mu.Unlock()
			m.Metrics.ClientConnected()
			log.Printf("INFO: Client %s subscribed to room %s", client.GetUserID(), client.GetRoomID())

		case client := <-m.UnregisterCh:
			m.remove(client)

		case event := <-m.BroadcastCh:
			m.broadcast(event)
		}
	}
}

func (m *ManagerService) broadcast(event models.RoomEvent) {
	var slow []Client

	m.mu.RLock()
	for client := range m.clients {
		if client.GetRoomID() != event.RoomID {
			continue
		}
		select {
		case client.GetSendChannel() <- event:
		default:
			slow = append(slow, client)
		}
	}
	m.mu.RUnlock()

	for _, client := range slow {
		log.Printf("WARNING: Dropping slow client %s in room %s", client.GetUserID(), client.GetRoomID())
		m.remove(client)
	}
}

// remove closes a client once; later unregistrations of it are ignored.
func (m *ManagerService) remove(client Client) {
	m.mu.Lock()
	_, ok := m.clients[client]
	delete(m.clients, client)
	m.mu.Unlock()

	if ok {
		client.Close()
		m.Metrics.ClientDisconnected()
	}
}

func (m *ManagerService) closeAll() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[Client]struct{})
	m.mu.Unlock()

	for client := range clients {
		client.Close()
		m.Metrics.ClientDisconnected()
	}
}

// Register adds a client to the hub. It does not block once the hub has stopped.
func (m *ManagerService) Register(client Client) bool {
	select {
	case m.RegisterCh <- client:
		return true
	case <-m.done:
		return false
	}
}

// Unregister hands a client back to the hub. It does not block once the hub
// has stopped.
func (m *ManagerService) Unregister(client Client) {
	select {
	case m.UnregisterCh <- client:
	case <-m.done:
	}
}

// RoomClients reports how many clients are subscribed to roomID.
func (m *ManagerService) RoomClients(roomID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for client := range m.clients {
		if client.GetRoomID() == roomID {
			n++
		}
	}
	return n
}
