package chathub

import (
	"context"
	"log"
)

// StartPubSubListener forwards events from the shared source (Redis across
// instances) into the hub's broadcast channel.
func (m *ManagerService) StartPubSubListener(ctx context.Context) {
	events := m.Source.SubscribeRoomEvents(ctx)
	go func() {
		for event := range events {
			select {
			case m.BroadcastCh <- event:
			case <-ctx.Done():
				return
			}
		}
		log.Println("INFO: Room event subscription closed")
	}()
}
