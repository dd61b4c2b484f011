package event

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/furniro/storefront/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusStopped is returned by Publish once Stop has been called
var ErrBusStopped = errors.New("event bus stopped")

// InMemoryEventBus delivers events to subscribers on the publisher's
// goroutine. A handler that fails or panics is logged and skipped; the
// publisher and the remaining handlers are unaffected.
type InMemoryEventBus struct {
	logger  *zap.Logger
	stopped atomic.Bool

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]subscriber
}

type subscriber struct {
	handler shared.EventHandler
	// nil means every type
	types []string
}

func (s subscriber) wants(eventType string) bool {
	return s.types == nil || slices.Contains(s.types, eventType)
}

func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		logger: logger.Named("event_bus"),
		subs:   make(map[uint64]subscriber),
	}
}

// Subscribe registers handler for eventTypes, or for handler.EventTypes()
// when none are given. The returned func removes the subscription.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) (unsubscribe func()) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	sub := subscriber{handler: handler}
	if len(eventTypes) > 0 {
		sub.types = slices.Clone(eventTypes)
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = sub
	b.mu.Unlock()

	b.logger.Debug("Subscribed", zap.Uint64("subscription", id), zap.Strings("event_types", eventTypes))
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish hands each event to its subscribers in order. Handler failures
// are logged rather than returned.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.stopped.Load() {
		return ErrBusStopped
	}
	for _, e := range events {
		for _, h := range b.subscribers(e.EventType()) {
			if err := deliver(ctx, h, e); err != nil {
				b.logger.Error("Event handler failed",
					zap.String("event_type", e.EventType()),
					zap.Stringer("event_id", e.EventID()),
					zap.String("owner", e.OwnerID()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

func (b *InMemoryEventBus) subscribers(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]uint64, 0, len(b.subs))
	for id, s := range b.subs {
		if s.wants(eventType) {
			ids = append(ids, id)
		}
	}
	// Subscription order
	slices.Sort(ids)

	handlers := make([]shared.EventHandler, len(ids))
	for i, id := range ids {
		handlers[i] = b.subs[id].handler
	}
	return handlers
}

func deliver(ctx context.Context, h shared.EventHandler, e shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, e)
}

// Start reopens a stopped bus
func (b *InMemoryEventBus) Start(context.Context) error {
	b.stopped.Store(false)
	b.logger.Info("Event bus started")
	return nil
}

// Stop makes later Publish calls fail with ErrBusStopped. Subscriptions
// are kept.
func (b *InMemoryEventBus) Stop(context.Context) error {
	if b.stopped.Swap(true) {
		return nil
	}
	b.logger.Info("Event bus stopped")
	return nil
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
