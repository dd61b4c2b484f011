// Package checkout models the frozen cart snapshot shown on the checkout page
// and the simulated order confirmation.
package checkout

import (
	"time"

	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Checkout errors
var (
	ErrNoSnapshot = shared.NewDomainError("CHECKOUT_NOT_STARTED", "No checkout in progress")
	ErrEmptyCart  = shared.NewDomainError("EMPTY_CART", "Cannot check out an empty cart")
)

// Snapshot is an immutable copy of the cart taken when checkout begins.
// Later cart mutations never change it.
type Snapshot struct {
	id        uuid.UUID
	items     []collection.Entry
	total     decimal.Decimal
	createdAt time.Time
}

// NewSnapshot copies entries and computes the total once
func NewSnapshot(entries []collection.Entry) *Snapshot {
	items := make([]collection.Entry, len(entries))
	copy(items, entries)
	return &Snapshot{
		id:        uuid.New(),
		items:     items,
		total:     collection.Total(items),
		createdAt: time.Now().UTC(),
	}
}

// RestoreSnapshot rebuilds a snapshot read back from storage
func RestoreSnapshot(id uuid.UUID, entries []collection.Entry, createdAt time.Time) *Snapshot {
	s := NewSnapshot(entries)
	s.id = id
	s.createdAt = createdAt
	return s
}

// ID returns the snapshot identifier
func (s *Snapshot) ID() uuid.UUID { return s.id }

// Items returns a copy of the frozen entries
func (s *Snapshot) Items() []collection.Entry {
	out := make([]collection.Entry, len(s.items))
	copy(out, s.items)
	return out
}

// Total returns the total computed when the snapshot was taken
func (s *Snapshot) Total() decimal.Decimal { return s.total }

// CreatedAt returns when the snapshot was taken
func (s *Snapshot) CreatedAt() time.Time { return s.createdAt }

// Len returns the number of frozen entries
func (s *Snapshot) Len() int { return len(s.items) }

// IsEmpty reports whether the snapshot has no entries
func (s *Snapshot) IsEmpty() bool { return len(s.items) == 0 }

// BillingDetails are the fields collected on the checkout form.
// Only presence is checked; format validation is out of scope.
type BillingDetails struct {
	Name    string `json:"name" validate:"required,notblank"`
	Email   string `json:"email" validate:"required,notblank"`
	Address string `json:"address" validate:"required,notblank"`
	City    string `json:"city,omitempty"`
	Zip     string `json:"zip,omitempty"`
}

// Confirmation is returned after a simulated order placement
type Confirmation struct {
	OrderReference uuid.UUID       `json:"order_reference"`
	SnapshotID     uuid.UUID       `json:"snapshot_id"`
	CustomerName   string          `json:"customer_name"`
	ItemCount      int             `json:"item_count"`
	Total          decimal.Decimal `json:"total"`
	PlacedAt       time.Time       `json:"placed_at"`
}

// NewConfirmation builds a confirmation for the snapshot
func NewConfirmation(s *Snapshot, billing BillingDetails) *Confirmation {
	return &Confirmation{
		OrderReference: uuid.New(),
		SnapshotID:     s.ID(),
		CustomerName:   billing.Name,
		ItemCount:      s.Len(),
		Total:          s.Total(),
		PlacedAt:       time.Now().UTC(),
	}
}

// Event types
const (
	EventTypeCheckoutStarted   = "checkout.started"
	EventTypeCheckoutCompleted = "checkout.completed"
)

// CheckoutStartedEvent is published when a snapshot is taken
type CheckoutStartedEvent struct {
	shared.BaseDomainEvent
	SnapshotID uuid.UUID `json:"snapshot_id"`
	ItemCount  int       `json:"item_count"`
	Total      string    `json:"total"`
}

// NewCheckoutStartedEvent creates a CheckoutStartedEvent
func NewCheckoutStartedEvent(owner string, s *Snapshot) *CheckoutStartedEvent {
	return &CheckoutStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCheckoutStarted, owner),
		SnapshotID:      s.ID(),
		ItemCount:       s.Len(),
		Total:           s.Total().StringFixed(2),
	}
}

// CheckoutCompletedEvent is published after the cart was cleared
type CheckoutCompletedEvent struct {
	shared.BaseDomainEvent
	OrderReference uuid.UUID `json:"order_reference"`
	ItemCount      int       `json:"item_count"`
	Total          string    `json:"total"`
}

// NewCheckoutCompletedEvent creates a CheckoutCompletedEvent
func NewCheckoutCompletedEvent(owner string, c *Confirmation) *CheckoutCompletedEvent {
	return &CheckoutCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCheckoutCompleted, owner),
		OrderReference:  c.OrderReference,
		ItemCount:       c.ItemCount,
		Total:           c.Total.StringFixed(2),
	}
}
