// Package event handles triggering of operations without direct dependency
// between the HTTP layer and the session layer.
package event

import (
	"sync"

	"go.uber.org/zap"
)

// Type represents the kind of event.
type Type int

const (
	// AuthRejected fires when any request is refused with 401/403.
	AuthRejected Type = iota
	// SessionCleared fires after the local session has been destroyed.
	SessionCleared
)

// Event carries the type and optional payload.
type Event struct {
	Type Type
	Data any
}

// Handler is a function invoked for each published event.
type Handler func(Event)

// Bus manages event subscriptions and publications. Publish is synchronous:
// handlers run before Publish returns, so a 401 side effect completes before
// the failing call's error reaches its caller.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]Handler
	logger      *zap.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{subscribers: make(map[Type][]Handler), logger: logger}
}

// Subscribe adds a handler for the given event type.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[t] = append(b.subscribers[t], h)
}

// Publish delivers the event to all subscribed handlers. A panicking handler
// is logged and does not stop delivery to the remaining handlers.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := b.subscribers[ev.Type]
	b.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("panic in event handler",
						zap.Int("event", int(ev.Type)),
						zap.Any("panic", r),
					)
				}
			}()
			h(ev)
		}()
	}
}
