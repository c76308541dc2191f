package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"aurora-dashboard/internal/events"
)

// NATSBus fans events out across API instances over core NATS subjects.
type NATSBus struct {
	nc *nats.Conn
}

// Connect dials url with reconnects enabled.
func Connect(url, name string) (*NATSBus, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSBus{nc: nc}, nil
}

func NewNATSBus(nc *nats.Conn) *NATSBus { return &NATSBus{nc: nc} }

// Publish checks ctx before publishing; core NATS publish does not take a context.
func (b *NATSBus) Publish(ctx context.Context, e events.Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.nc.Publish(Subject(e.CustomerID), data)
}

func (b *NATSBus) Subscribe(ctx context.Context, customerID int64) (<-chan events.Event, func(), error) {
	s := newSubscription(customerID)
	sub, err := b.nc.Subscribe(Subject(customerID), func(msg *nats.Msg) {
		s.deliverJSON(msg.Data)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe to %s: %w", Subject(customerID), err)
	}

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Unsubscribe()
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

// Close drains pending messages and closes the connection.
func (b *NATSBus) Close() {
	if b.nc == nil {
		return
	}
	_ = b.nc.Drain()
	b.nc.Close()
}

// Ready reports whether the connection is usable, for readiness probes.
func (b *NATSBus) Ready() bool {
	return b.nc != nil && b.nc.IsConnected()
}
