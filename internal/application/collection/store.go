// Package collection provides the Local Collection Store: load and mutate a
// device's cart or wishlist with exactly one persistence write per mutation.
package collection

import (
	"context"
	"errors"
	"strings"

	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/domain/shared"
	"github.com/furniro/storefront/internal/infrastructure/logger"
	"github.com/furniro/storefront/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store errors
var (
	ErrInvalidOwner       = shared.NewDomainError("INVALID_OWNER", "A device identifier is required")
	ErrStorageUnavailable = shared.NewDomainError("STORAGE_UNAVAILABLE", "Collection storage is unavailable")
)

// Metrics receives store outcomes. telemetry.StorefrontMetrics implements it.
type Metrics interface {
	RecordMutation(ctx context.Context, collection, operation, outcome string)
	RecordPersistenceFailure(ctx context.Context, collection, reason string)
	RecordPayloadDiscarded(ctx context.Context, collection, reason string)
}

// Store is the single authority over persisted collections. Every view and
// service mutates cart and wishlist through it.
type Store struct {
	storage   collection.Storage
	codec     collection.Codec
	policies  map[collection.Name]collection.DuplicatePolicy
	publisher shared.EventPublisher
	metrics   Metrics
	logger    *zap.Logger
	locks     *keyedMutex
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithPolicy sets the duplicate policy of a named collection, registering it
// if needed.
func WithPolicy(name collection.Name, policy collection.DuplicatePolicy) StoreOption {
	return func(s *Store) {
		s.policies[name] = policy
	}
}

// WithPublisher publishes a CollectionChangedEvent after each persisted mutation
func WithPublisher(publisher shared.EventPublisher) StoreOption {
	return func(s *Store) {
		s.publisher = publisher
	}
}

// WithMetrics records mutation outcomes
func WithMetrics(metrics Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = metrics
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates a store with cart and wishlist registered as unique
func NewStore(storage collection.Storage, codec collection.Codec, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		codec:   codec,
		policies: map[collection.Name]collection.DuplicatePolicy{
			collection.Cart:     collection.PolicyUnique,
			collection.Wishlist: collection.PolicyUnique,
		},
		logger: zap.NewNop(),
		locks:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the duplicate policy of name
func (s *Store) Policy(name collection.Name) (collection.DuplicatePolicy, error) {
	policy, ok := s.policies[name]
	if !ok {
		return "", unknownCollection(name)
	}
	return policy, nil
}

// Load returns the persisted entries. Absent or undecodable payloads load as
// empty; storage errors are returned.
func (s *Store) Load(ctx context.Context, owner string, name collection.Name) ([]collection.Entry, error) {
	if err := s.check(owner, name); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, "collection.load", telemetry.AttrCollection.String(name.String()))
	defer span.End()

	entries, err := s.load(ctx, owner, name)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return entries, nil
}

// Add appends entry. Under the unique policy a duplicate is a no-op with
// added=false and nothing is written.
func (s *Store) Add(ctx context.Context, owner string, name collection.Name, entry collection.Entry) ([]collection.Entry, bool, error) {
	if err := entry.Validate(); err != nil {
		return nil, false, err
	}
	policy, err := s.Policy(name)
	if err != nil {
		return nil, false, err
	}

	var added bool
	entries, err := s.mutate(ctx, owner, name, collection.OpAdd, entry.ID, func(current []collection.Entry) ([]collection.Entry, bool) {
		var next []collection.Entry
		next, added = collection.Add(current, entry, policy)
		return next, added
	})
	return entries, added, err
}

// Remove drops every entry with entryID
func (s *Store) Remove(ctx context.Context, owner string, name collection.Name, entryID string) ([]collection.Entry, error) {
	return s.mutate(ctx, owner, name, collection.OpRemove, entryID, func(current []collection.Entry) ([]collection.Entry, bool) {
		return collection.Remove(current, entryID), true
	})
}

// Toggle removes entry.ID when present, otherwise appends entry
func (s *Store) Toggle(ctx context.Context, owner string, name collection.Name, entry collection.Entry) ([]collection.Entry, bool, error) {
	if err := entry.Validate(); err != nil {
		return nil, false, err
	}

	var wasPresent bool
	entries, err := s.mutate(ctx, owner, name, collection.OpToggle, entry.ID, func(current []collection.Entry) ([]collection.Entry, bool) {
		var next []collection.Entry
		next, wasPresent = collection.Toggle(current, entry)
		return next, true
	})
	return entries, wasPresent, err
}

// Clear persists the empty sequence
func (s *Store) Clear(ctx context.Context, owner string, name collection.Name) error {
	_, err := s.mutate(ctx, owner, name, collection.OpClear, "", func([]collection.Entry) ([]collection.Entry, bool) {
		return []collection.Entry{}, true
	})
	return err
}

// Total sums the raw prices of the persisted entries
func (s *Store) Total(ctx context.Context, owner string, name collection.Name) (decimal.Decimal, error) {
	entries, err := s.Load(ctx, owner, name)
	if err != nil {
		return decimal.Zero, err
	}
	return collection.Total(entries), nil
}

// Contains reports whether an entry with id is persisted
func (s *Store) Contains(ctx context.Context, owner string, name collection.Name, id string) (bool, error) {
	entries, err := s.Load(ctx, owner, name)
	if err != nil {
		return false, err
	}
	return collection.Contains(entries, id), nil
}

// Count returns the number of persisted entries
func (s *Store) Count(ctx context.Context, owner string, name collection.Name) (int, error) {
	entries, err := s.Load(ctx, owner, name)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// mutate runs one serialized read-modify-write. apply returns the next
// sequence and whether it must be written.
func (s *Store) mutate(
	ctx context.Context,
	owner string,
	name collection.Name,
	op, entryID string,
	apply func([]collection.Entry) ([]collection.Entry, bool),
) ([]collection.Entry, error) {
	if err := s.check(owner, name); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, "collection."+op,
		telemetry.AttrCollection.String(name.String()),
		telemetry.AttrOperation.String(op),
	)
	defer span.End()

	unlock := s.locks.Lock(collection.Key(owner, name.String()))
	defer unlock()

	current, err := s.load(ctx, owner, name)
	if err != nil {
		telemetry.RecordError(span, err)
		s.recordMutation(ctx, name, op, telemetry.OutcomeFailed)
		return nil, err
	}

	next, write := apply(current)
	if !write {
		s.recordMutation(ctx, name, op, telemetry.OutcomeNoop)
		return next, nil
	}

	// Encoding and the storage write dominate CPU for large carts
	var saveErr error
	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelCollection: name.String(),
		telemetry.ProfilingLabelOperation:  op,
	}, func(ctx context.Context) {
		saveErr = s.save(ctx, owner, name, next)
	})
	if saveErr != nil {
		telemetry.RecordError(span, saveErr)
		s.recordMutation(ctx, name, op, telemetry.OutcomeFailed)
		return nil, saveErr
	}
	s.recordMutation(ctx, name, op, telemetry.OutcomeApplied)
	telemetry.SetOK(span)

	s.publish(ctx, collection.NewCollectionChangedEvent(owner, name, op, entryID, next))
	return next, nil
}

func (s *Store) load(ctx context.Context, owner string, name collection.Name) ([]collection.Entry, error) {
	payload, found, err := s.storage.Get(ctx, collection.Key(owner, name.String()))
	if err != nil {
		return nil, ErrStorageUnavailable.Wrap(err)
	}
	if !found {
		return []collection.Entry{}, nil
	}

	entries, err := s.codec.Decode(payload)
	if err != nil {
		logger.WithLogger(ctx, s.logger).Warn("discarding unreadable collection payload",
			zap.String("collection", name.String()),
			zap.Int("payload_bytes", len(payload)),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordPayloadDiscarded(ctx, name.String(), discardReason(err))
		}
		return []collection.Entry{}, nil
	}
	return entries, nil
}

func (s *Store) save(ctx context.Context, owner string, name collection.Name, entries []collection.Entry) error {
	payload, err := s.codec.Encode(entries)
	if err != nil {
		return s.writeFailed(ctx, name, shared.ErrPersistenceFailed.Wrap(err))
	}

	err = s.storage.Set(ctx, collection.Key(owner, name.String()), payload)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shared.ErrQuotaExceeded):
		return s.writeFailed(ctx, name, shared.ErrQuotaExceeded)
	default:
		return s.writeFailed(ctx, name, shared.ErrPersistenceFailed.Wrap(err))
	}
}

func (s *Store) writeFailed(ctx context.Context, name collection.Name, err error) error {
	logger.WithLogger(ctx, s.logger).Error("failed to persist collection",
		zap.String("collection", name.String()),
		zap.Error(err),
	)
	if s.metrics != nil {
		var domainErr *shared.DomainError
		reason := "unknown"
		if errors.As(err, &domainErr) {
			reason = domainErr.Code
		}
		s.metrics.RecordPersistenceFailure(ctx, name.String(), reason)
	}
	return err
}

func (s *Store) publish(ctx context.Context, event shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("failed to publish collection event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}

func (s *Store) recordMutation(ctx context.Context, name collection.Name, op, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordMutation(ctx, name.String(), op, outcome)
	}
}

func (s *Store) check(owner string, name collection.Name) error {
	if strings.TrimSpace(owner) == "" || strings.Contains(owner, ":") {
		return ErrInvalidOwner
	}
	if _, ok := s.policies[name]; !ok {
		return unknownCollection(name)
	}
	return nil
}

// unknownCollection reports a collection name the store was not configured with
func unknownCollection(name collection.Name) error {
	return collection.ErrUnknownCollection.WithMessage("Unknown collection: " + name.String())
}

func discardReason(err error) string {
	if errors.Is(err, collection.ErrUnsupportedVersion) {
		return "unsupported_version"
	}
	return "malformed"
}
