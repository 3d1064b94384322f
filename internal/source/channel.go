// Package source subscribes to the live push channel and translates channel
// messages into typed notification events for the queue controller.
package source

import (
	"encoding/json"
	"sync"
)

// Channel event names, as defined by the push channel's wire contract.
const (
	EventNotificationNew = "notification:new"
	EventTaskCreated     = "task:created"
	EventTaskUpdated     = "task:updated"
	EventTaskAssigned    = "task:assigned"
	EventCommentAdded    = "comment:added"
)

// Handler receives the raw payload of one channel message.
type Handler func(payload json.RawMessage)

// Channel is a live push channel delivering domain events as they occur.
// The server side and its authentication are external; this service is the
// channel's only consumer.
type Channel interface {
	// Subscribe registers a handler for a channel event and returns its
	// unsubscribe function. Unsubscribing is deterministic: after the
	// returned function runs, the handler receives nothing further.
	Subscribe(event string, h Handler) (unsubscribe func())

	// Connected reports channel liveness. While disconnected no messages
	// are delivered and nothing is buffered: delivery is at-most-once.
	Connected() bool
}

// frame is the wire shape of one channel message.
type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// subscribers is the arena of active subscriptions: every register hands
// back a handle whose release removes exactly that registration, so no
// handler can outlive its owner.
type subscribers struct {
	mu      sync.RWMutex
	nextID  int
	byEvent map[string]map[int]Handler
}

func newSubscribers() *subscribers {
	return &subscribers{byEvent: make(map[string]map[int]Handler)}
}

func (s *subscribers) add(event string, h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	if s.byEvent[event] == nil {
		s.byEvent[event] = make(map[int]Handler)
	}
	s.byEvent[event][id] = h

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byEvent[event], id)
	}
}

func (s *subscribers) dispatch(event string, payload json.RawMessage) {
	s.mu.RLock()
	handlers := make([]Handler, 0, len(s.byEvent[event]))
	for _, h := range s.byEvent[event] {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}
