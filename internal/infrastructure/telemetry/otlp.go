// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// continuous profiling for the storefront.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceVersion is reported on every exported resource
const ServiceVersion = "1.0.0"

const shutdownTimeout = 10 * time.Second

// OTLP pipelines, used as the "signal" field in logs and errors
const (
	signalTraces  = "traces"
	signalMetrics = "metrics"
	signalLogs    = "logs"
)

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build %s resource: %w", serviceName, err)
	}
	return res, nil
}

func logPipelineStarted(logger *zap.Logger, signal, endpoint, serviceName string, fields ...zap.Field) {
	logger.Info("OTLP pipeline started", append([]zap.Field{
		zap.String("signal", signal),
		zap.String("collector_endpoint", endpoint),
		zap.String("service_name", serviceName),
	}, fields...)...)
}

// shutdownPipeline flushes one signal's exporter, giving up after shutdownTimeout
func shutdownPipeline(ctx context.Context, logger *zap.Logger, signal string, shutdown func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := shutdown(ctx); err != nil {
		logger.Error("OTLP pipeline shutdown failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("shutdown %s pipeline: %w", signal, err)
	}
	logger.Info("OTLP pipeline flushed", zap.String("signal", signal))
	return nil
}
