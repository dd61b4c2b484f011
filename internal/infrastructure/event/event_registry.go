package event

import (
	"github.com/furniro/storefront/internal/domain/checkout"
	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/domain/shared"
)

// RegisterAllEvents allows every storefront event onto the stream
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(collection.EventTypeCollectionChanged, func() shared.DomainEvent {
		return &collection.CollectionChangedEvent{}
	})
	serializer.Register(checkout.EventTypeCheckoutStarted, func() shared.DomainEvent {
		return &checkout.CheckoutStartedEvent{}
	})
	serializer.Register(checkout.EventTypeCheckoutCompleted, func() shared.DomainEvent {
		return &checkout.CheckoutCompletedEvent{}
	})
}
