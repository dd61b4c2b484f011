package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a change notification scoped to one device
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	// OwnerID is the device whose collections changed. Stream subscribers
	// only receive events for their own device.
	OwnerID() string
}

// BaseDomainEvent carries the fields every storefront event serializes
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Owner     string    `json:"owner"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID    { return e.ID }
func (e *BaseDomainEvent) EventType() string     { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }
func (e *BaseDomainEvent) OwnerID() string       { return e.Owner }

// NewBaseDomainEvent stamps a fresh id and the current UTC time
func NewBaseDomainEvent(eventType, owner string) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Owner:     owner,
	}
}

// EventHandler reacts to published events
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants; empty means all
	EventTypes() []string
}

// EventPublisher is what the collection store and checkout depend on.
// Publishing happens after the write succeeded, so a failed publish never
// rolls back a mutation.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus adds subscription and lifecycle to a publisher
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string) (unsubscribe func())
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
