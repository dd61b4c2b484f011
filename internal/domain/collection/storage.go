package collection

import (
	"context"
	"errors"
)

// CheckoutKey is the transient slot holding the checkout snapshot
const CheckoutKey = "checkoutCart"

// Storage is a device-scoped key-value store for serialized payloads.
// Backends apply their own key prefix.
type Storage interface {
	// Get returns the raw payload; found is false when the key does not exist
	Get(ctx context.Context, key string) (payload []byte, found bool, err error)

	// Set replaces the payload stored under key.
	// Returns shared.ErrQuotaExceeded when the backend refuses the size.
	Set(ctx context.Context, key string, payload []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources
	Close() error
}

// Codec errors. A store loads the collection as empty on either.
var (
	ErrMalformedPayload   = errors.New("malformed collection payload")
	ErrUnsupportedVersion = errors.New("unsupported collection schema version")
)

// Codec converts between entries and the persisted payload format
type Codec interface {
	Encode(entries []Entry) ([]byte, error)
	Decode(payload []byte) ([]Entry, error)
}

// Key builds the storage key for a device's collection or transient slot
func Key(owner, slot string) string {
	return owner + ":" + slot
}
