package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics constructor is given no meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Mutation outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeFailed  = "failed"
)

// StorefrontMetrics tracks collection mutations, persistence health and checkouts.
type StorefrontMetrics struct {
	logger *zap.Logger

	mutationsTotal     *Counter
	persistFailures    *Counter
	payloadsDiscarded  *Counter
	checkoutsStarted   *Counter
	checkoutsCompleted *Counter
	checkoutAmount     *Histogram
	activeSubscribers  *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// SubscriberCounter reports live event stream subscribers.
type SubscriberCounter interface {
	SubscriberCount() int
}

// NewStorefrontMetrics registers the storefront instruments on meter.
func NewStorefrontMetrics(meter metric.Meter, logger *zap.Logger) (*StorefrontMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	in := NewInstruments(meter)
	m := &StorefrontMetrics{logger: logger, stopChan: make(chan struct{})}
	m.mutationsTotal = in.Counter("furniro_collection_mutations_total",
		"Collection mutations by collection, operation and outcome", "{mutations}")
	m.persistFailures = in.Counter("furniro_persistence_failures_total",
		"Failed collection writes", "{writes}")
	m.payloadsDiscarded = in.Counter("furniro_payloads_discarded_total",
		"Stored payloads that could not be decoded and loaded as empty", "{payloads}")
	m.checkoutsStarted = in.Counter("furniro_checkouts_started_total",
		"Checkout snapshots taken", "{checkouts}")
	m.checkoutsCompleted = in.Counter("furniro_checkouts_completed_total",
		"Orders placed", "{checkouts}")
	m.checkoutAmount = in.Histogram("furniro_checkout_amount",
		"Total of completed checkouts", "USD", AmountBuckets...)
	m.activeSubscribers = in.Gauge("furniro_event_subscribers",
		"Connected event stream clients", "{clients}")
	if err := in.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordMutation counts one collection mutation.
func (m *StorefrontMetrics) RecordMutation(ctx context.Context, collection, operation, outcome string) {
	m.mutationsTotal.Inc(ctx,
		AttrCollection.String(collection),
		AttrOperation.String(operation),
		AttrOutcome.String(outcome),
	)
}

// RecordPersistenceFailure counts a failed write; reason is the error code.
func (m *StorefrontMetrics) RecordPersistenceFailure(ctx context.Context, collection, reason string) {
	m.persistFailures.Inc(ctx,
		AttrCollection.String(collection),
		AttrReason.String(reason),
	)
}

// RecordPayloadDiscarded counts a stored payload that loaded as empty.
func (m *StorefrontMetrics) RecordPayloadDiscarded(ctx context.Context, collection, reason string) {
	m.payloadsDiscarded.Inc(ctx,
		AttrCollection.String(collection),
		AttrReason.String(reason),
	)
}

// RecordCheckoutStarted counts a snapshot taken from the cart.
func (m *StorefrontMetrics) RecordCheckoutStarted(ctx context.Context) {
	m.checkoutsStarted.Inc(ctx)
}

// RecordCheckoutCompleted counts a placed order and its total.
func (m *StorefrontMetrics) RecordCheckoutCompleted(ctx context.Context, total decimal.Decimal) {
	m.checkoutsCompleted.Inc(ctx)
	m.checkoutAmount.Record(ctx, total.InexactFloat64())
}

// StartPeriodicCollection samples gauge values every interval until Stop or
// ctx is done. Only the first call starts a collector.
func (m *StorefrontMetrics) StartPeriodicCollection(ctx context.Context, subscribers SubscriberCounter, interval time.Duration) {
	m.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 30 * time.Second
		}
		go m.runPeriodicCollection(ctx, subscribers, interval)
	})
}

func (m *StorefrontMetrics) runPeriodicCollection(ctx context.Context, subscribers SubscriberCounter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.collect(ctx, subscribers)
	for {
		select {
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collect(ctx, subscribers)
		}
	}
}

func (m *StorefrontMetrics) collect(ctx context.Context, subscribers SubscriberCounter) {
	if subscribers == nil {
		return
	}
	m.activeSubscribers.Record(ctx, int64(subscribers.SubscriberCount()))
}

// Stop ends periodic collection.
func (m *StorefrontMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}
