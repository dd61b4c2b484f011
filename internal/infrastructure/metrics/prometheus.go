// Package metrics exposes storefront metrics on a Prometheus scrape endpoint.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Prometheus metric names.
const (
	MetricHTTPRequestsTotal     = "furniro_http_requests_total"
	MetricHTTPRequestDuration   = "furniro_http_request_duration_seconds"
	MetricHTTPInFlight          = "furniro_http_requests_in_flight"
	MetricCollectionMutations   = "furniro_collection_mutations_total"
	MetricPersistenceFailures   = "furniro_persistence_failures_total"
	MetricPayloadsDiscarded     = "furniro_payloads_discarded_total"
	MetricCheckoutsStarted      = "furniro_checkouts_started_total"
	MetricCheckoutsCompleted    = "furniro_checkouts_completed_total"
	MetricCheckoutAmountDollars = "furniro_checkout_amount_dollars"
	MetricEventSubscribers      = "furniro_event_subscribers"
)

// amountBuckets covers order totals from a single accessory to a full room.
var amountBuckets = []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Recorder holds the Prometheus collectors of the storefront.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	httpInFlight   prometheus.Gauge
	mutations      *prometheus.CounterVec
	failures       *prometheus.CounterVec
	discarded      *prometheus.CounterVec
	checkoutsStart prometheus.Counter
	checkoutsDone  prometheus.Counter
	checkoutAmount prometheus.Histogram
}

// NewRecorder creates a recorder on its own registry. Go runtime and process
// collectors are registered alongside the storefront metrics.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricHTTPRequestsTotal,
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPRequestDuration,
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricHTTPInFlight,
			Help: "Number of HTTP requests currently being served.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCollectionMutations,
			Help: "Collection mutations by collection, operation and outcome.",
		}, []string{"collection", "operation", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPersistenceFailures,
			Help: "Collection writes that failed.",
		}, []string{"collection", "reason"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPayloadsDiscarded,
			Help: "Stored payloads that could not be read and were treated as empty.",
		}, []string{"collection", "reason"}),
		checkoutsStart: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCheckoutsStarted,
			Help: "Checkout snapshots taken.",
		}),
		checkoutsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCheckoutsCompleted,
			Help: "Orders placed.",
		}),
		checkoutAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricCheckoutAmountDollars,
			Help:    "Order totals in dollars.",
			Buckets: amountBuckets,
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests,
		r.httpDuration,
		r.httpInFlight,
		r.mutations,
		r.failures,
		r.discarded,
		r.checkoutsStart,
		r.checkoutsDone,
		r.checkoutAmount,
	)
	return r
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry:          r.registry,
		EnableOpenMetrics: true,
	})
}

// RegisterSubscriberGauge exposes the live event subscriber count
func (r *Recorder) RegisterSubscriberGauge(count func() int) error {
	return r.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: MetricEventSubscribers,
		Help: "Clients currently subscribed to the event stream.",
	}, func() float64 {
		return float64(count())
	}))
}

// RequestStarted marks a request as in flight and returns the func that
// records its completion.
func (r *Recorder) RequestStarted(method, route string) func(status int) {
	start := time.Now()
	r.httpInFlight.Inc()
	return func(status int) {
		r.httpInFlight.Dec()
		r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		r.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordMutation counts a collection mutation
func (r *Recorder) RecordMutation(_ context.Context, collection, op, outcome string) {
	r.mutations.WithLabelValues(collection, op, outcome).Inc()
}

// RecordPersistenceFailure counts a failed collection write
func (r *Recorder) RecordPersistenceFailure(_ context.Context, collection, reason string) {
	r.failures.WithLabelValues(collection, reason).Inc()
}

// RecordPayloadDiscarded counts an unreadable payload loaded as empty
func (r *Recorder) RecordPayloadDiscarded(_ context.Context, collection, reason string) {
	r.discarded.WithLabelValues(collection, reason).Inc()
}

// RecordCheckoutStarted counts a checkout snapshot
func (r *Recorder) RecordCheckoutStarted(_ context.Context) {
	r.checkoutsStart.Inc()
}

// RecordCheckoutCompleted counts a placed order and observes its total
func (r *Recorder) RecordCheckoutCompleted(_ context.Context, total decimal.Decimal) {
	r.checkoutsDone.Inc()
	r.checkoutAmount.Observe(total.InexactFloat64())
}
