package collection

import (
	"github.com/furniro/storefront/internal/domain/shared"
)

// Event types
const (
	EventTypeCollectionChanged = "collection.changed"
)

// Operations reported in CollectionChangedEvent
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpToggle = "toggle"
	OpClear  = "clear"
)

// CollectionChangedEvent is published after a mutation has been persisted
type CollectionChangedEvent struct {
	shared.BaseDomainEvent
	Collection Name   `json:"collection"`
	Operation  string `json:"operation"`
	EntryID    string `json:"entry_id,omitempty"`
	Count      int    `json:"count"`
	Total      string `json:"total"`
}

// NewCollectionChangedEvent builds the event from the persisted entries
func NewCollectionChangedEvent(owner string, name Name, op, entryID string, entries []Entry) *CollectionChangedEvent {
	return &CollectionChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCollectionChanged, owner),
		Collection:      name,
		Operation:       op,
		EntryID:         entryID,
		Count:           len(entries),
		Total:           Total(entries).StringFixed(2),
	}
}
