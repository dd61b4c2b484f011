// Package checkout freezes the cart into a snapshot when checkout begins and
// completes the simulated order against that snapshot.
package checkout

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/furniro/storefront/internal/domain/checkout"
	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/domain/shared"
	"github.com/furniro/storefront/internal/infrastructure/logger"
	"github.com/furniro/storefront/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartStore is the part of the collection store checkout needs
type CartStore interface {
	Load(ctx context.Context, owner string, name collection.Name) ([]collection.Entry, error)
	Clear(ctx context.Context, owner string, name collection.Name) error
}

// SnapshotCodec serializes checkout snapshots
type SnapshotCodec interface {
	EncodeSnapshot(s *checkout.Snapshot) ([]byte, error)
	DecodeSnapshot(payload []byte) (*checkout.Snapshot, error)
}

// Metrics receives checkout outcomes
type Metrics interface {
	RecordCheckoutStarted(ctx context.Context)
	RecordCheckoutCompleted(ctx context.Context, total decimal.Decimal)
}

// Service implements begin, summary and complete
type Service struct {
	cart      CartStore
	storage   collection.Storage
	codec     SnapshotCodec
	validate  *validator.Validate
	publisher shared.EventPublisher
	metrics   Metrics
	logger    *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithPublisher publishes checkout events
func WithPublisher(p shared.EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics records checkout outcomes
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a checkout service. The snapshot lives in storage under
// the device's checkoutCart key.
func NewService(cart CartStore, storage collection.Storage, codec SnapshotCodec, opts ...Option) *Service {
	s := &Service{
		cart:     cart,
		storage:  storage,
		codec:    codec,
		validate: NewValidator(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewValidator returns a validator that reports JSON field names and knows
// the notblank tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Begin loads the cart once and stores an immutable snapshot of it.
// Later cart mutations do not affect the snapshot.
func (s *Service) Begin(ctx context.Context, owner string) (*checkout.Snapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "checkout.begin")
	defer span.End()

	entries, err := s.cart.Load(ctx, owner, collection.Cart)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	snapshot := checkout.NewSnapshot(entries)
	payload, err := s.codec.EncodeSnapshot(snapshot)
	if err != nil {
		err = shared.ErrPersistenceFailed.Wrap(err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.storage.Set(ctx, collection.Key(owner, collection.CheckoutKey), payload); err != nil {
		if !errors.Is(err, shared.ErrQuotaExceeded) {
			err = shared.ErrPersistenceFailed.Wrap(err)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordCheckoutStarted(ctx)
	}
	s.publish(ctx, checkout.NewCheckoutStartedEvent(owner, snapshot))

	logger.WithLogger(ctx, s.logger).Info("checkout started",
		zap.String("snapshot_id", snapshot.ID().String()),
		zap.Int("item_count", snapshot.Len()),
		zap.String("total", snapshot.Total().StringFixed(2)),
	)
	return snapshot, nil
}

// Summary returns the stored snapshot, never the live cart.
// ErrNoSnapshot when checkout has not begun or the snapshot is unreadable.
func (s *Service) Summary(ctx context.Context, owner string) (*checkout.Snapshot, error) {
	payload, found, err := s.storage.Get(ctx, collection.Key(owner, collection.CheckoutKey))
	if err != nil {
		return nil, shared.ErrUnavailable.Wrap(err)
	}
	if !found {
		return nil, checkout.ErrNoSnapshot
	}

	snapshot, err := s.codec.DecodeSnapshot(payload)
	if err != nil {
		logger.WithLogger(ctx, s.logger).Warn("discarding unreadable checkout snapshot", zap.Error(err))
		return nil, checkout.ErrNoSnapshot
	}
	return snapshot, nil
}

// Complete validates billing details, clears the cart and drops the snapshot.
// Validation failures return validator.ValidationErrors and change nothing.
func (s *Service) Complete(ctx context.Context, owner string, billing checkout.BillingDetails) (*checkout.Confirmation, error) {
	ctx, span := telemetry.StartSpan(ctx, "checkout.complete")
	defer span.End()

	if err := s.validate.Struct(billing); err != nil {
		return nil, err
	}

	snapshot, err := s.Summary(ctx, owner)
	if err != nil {
		return nil, err
	}
	if snapshot.IsEmpty() {
		return nil, checkout.ErrEmptyCart
	}

	if err := s.cart.Clear(ctx, owner, collection.Cart); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.storage.Delete(ctx, collection.Key(owner, collection.CheckoutKey)); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("failed to drop checkout snapshot", zap.Error(err))
	}

	confirmation := checkout.NewConfirmation(snapshot, billing)
	if s.metrics != nil {
		s.metrics.RecordCheckoutCompleted(ctx, confirmation.Total)
	}
	s.publish(ctx, checkout.NewCheckoutCompletedEvent(owner, confirmation))
	telemetry.SetOK(span)

	logger.WithLogger(ctx, s.logger).Info("checkout completed",
		zap.String("order_reference", confirmation.OrderReference.String()),
		zap.Int("item_count", confirmation.ItemCount),
		zap.String("total", confirmation.Total.StringFixed(2)),
	)
	return confirmation, nil
}

func (s *Service) publish(ctx context.Context, event shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("failed to publish checkout event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}
