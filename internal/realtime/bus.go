// Package realtime broadcasts newly ingested events to dashboard subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"aurora-dashboard/internal/events"
)

// SubscriberBuffer is the per-subscriber channel size. A subscriber that
// falls this far behind misses events rather than blocking publishers.
const SubscriberBuffer = 16

type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

type Subscriber interface {
	// Subscribe delivers events inserted for customerID until cancel is called
	// or ctx is done. The channel is closed afterwards.
	Subscribe(ctx context.Context, customerID int64) (<-chan events.Event, func(), error)
}

type Bus interface {
	Publisher
	Subscriber
}

// Subject is the NATS subject carrying a customer's events.
func Subject(customerID int64) string { return fmt.Sprintf("aurora.events.%d", customerID) }

// subscription is a buffered channel that can be closed once, safely,
// while deliveries are still arriving.
type subscription struct {
	customerID int64
	mu         sync.Mutex
	ch         chan events.Event
	closed     bool
}

func newSubscription(customerID int64) *subscription {
	return &subscription{customerID: customerID, ch: make(chan events.Event, SubscriberBuffer)}
}

// deliver drops events for other customers and events that do not fit the buffer.
func (s *subscription) deliver(e events.Event) bool {
	if e.CustomerID != s.customerID {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- e:
		return true
	default:
		return false
	}
}

func (s *subscription) deliverJSON(data []byte) bool {
	var e events.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return false
	}
	return s.deliver(e)
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Hub is an in-process Bus for single-instance deployments and tests.
type Hub struct {
	mu   sync.RWMutex
	subs map[int64]map[*subscription]struct{}
}

func NewHub() *Hub { return &Hub{subs: make(map[int64]map[*subscription]struct{})} }

func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[e.CustomerID] {
		s.deliver(e)
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, customerID int64) (<-chan events.Event, func(), error) {
	s := newSubscription(customerID)
	h.mu.Lock()
	if h.subs[customerID] == nil {
		h.subs[customerID] = make(map[*subscription]struct{})
	}
	h.subs[customerID][s] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			h.mu.Lock()
			delete(h.subs[customerID], s)
			if len(h.subs[customerID]) == 0 {
				delete(h.subs, customerID)
			}
			h.mu.Unlock()
			s.close()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return s.ch, cancel, nil
}

// Subscribers counts open subscriptions for a customer.
func (h *Hub) Subscribers(customerID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[customerID])
}
