package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/furniro/storefront/internal/infrastructure/metrics"
	"github.com/furniro/storefront/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const unmatchedRoute = "unknown"

var responseSizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144}

// HTTPMetricsConfig picks the sinks for request metrics. Recorder feeds the
// Prometheus scrape endpoint and Meter feeds OTLP export. Either may be nil.
type HTTPMetricsConfig struct {
	Recorder *metrics.Recorder
	Meter    metric.Meter
	Logger   *zap.Logger
}

// requestObserver is told when a request starts and returns the callback
// for when it ends
type requestObserver interface {
	start(ctx context.Context, method, route string) func(status, size int)
}

type prometheusObserver struct{ recorder *metrics.Recorder }

func (o prometheusObserver) start(_ context.Context, method, route string) func(int, int) {
	done := o.recorder.RequestStarted(method, route)
	return func(status, _ int) { done(status) }
}

type otelObserver struct {
	requests *telemetry.Counter
	latency  *telemetry.Histogram
	size     *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newOTelObserver(meter metric.Meter) (*otelObserver, error) {
	in := telemetry.NewInstruments(meter)
	o := &otelObserver{
		requests: in.Counter("http_server_request_total", "HTTP requests served", "{request}"),
		latency:  in.Histogram("http_server_request_duration_seconds", "HTTP request latency", "s", telemetry.HTTPDurationBuckets...),
		size:     in.Histogram("http_server_response_size_bytes", "HTTP response body size", "By", responseSizeBuckets...),
		inFlight: in.UpDownCounter("http_server_active_requests", "HTTP requests being served", "{request}"),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *otelObserver) start(ctx context.Context, method, route string) func(int, int) {
	began := time.Now()
	o.inFlight.Add(ctx, 1)
	return func(status, size int) {
		o.inFlight.Add(ctx, -1)
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(method),
			telemetry.AttrHTTPRoute.String(route),
		}
		o.latency.RecordDuration(ctx, time.Since(began), attrs...)
		if size > 0 {
			o.size.Record(ctx, float64(size), attrs...)
		}
		o.requests.Inc(ctx, append(attrs,
			telemetry.AttrHTTPStatusCode.Int(status),
			attribute.String("http.status_class", StatusGroup(status)))...)
	}
}

// HTTPMetrics records request count, latency and in-flight requests to
// every configured sink. Routes are labelled by pattern, not by path.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	var observers []requestObserver
	if cfg.Recorder != nil {
		observers = append(observers, prometheusObserver{cfg.Recorder})
	}
	if cfg.Meter != nil {
		o, err := newOTelObserver(cfg.Meter)
		switch {
		case err == nil:
			observers = append(observers, o)
		case cfg.Logger != nil:
			cfg.Logger.Warn("OTLP HTTP metrics disabled", zap.Error(err))
		}
	}

	if len(observers) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		finish := make([]func(int, int), len(observers))
		for i, o := range observers {
			finish[i] = o.start(ctx, c.Request.Method, route)
		}

		c.Next()

		status, size := c.Writer.Status(), c.Writer.Size()
		for _, f := range finish {
			f(status, size)
		}
	}
}

// StatusGroup buckets a status code by class, "2xx" through "5xx"
func StatusGroup(statusCode int) string {
	if statusCode < 200 || statusCode > 599 {
		return "other"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}
