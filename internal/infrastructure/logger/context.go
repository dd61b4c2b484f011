package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	deviceIDKey
)

// WithContext stores logger on ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored on ctx, or a nop logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID records the request id on ctx and returns the request logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return withID(ctx, logger, requestIDKey, "request_id", requestID)
}

// WithDeviceID records the shopper's device id on ctx and returns the request logger
func WithDeviceID(ctx context.Context, logger *zap.Logger, deviceID string) (context.Context, *zap.Logger) {
	return withID(ctx, logger, deviceIDKey, "device_id", deviceID)
}

func withID(ctx context.Context, logger *zap.Logger, key ctxKey, field, id string) (context.Context, *zap.Logger) {
	enriched := logger.With(zap.String(field, id))
	ctx = context.WithValue(ctx, key, id)
	return WithContext(ctx, enriched), enriched
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func GetDeviceID(ctx context.Context) string {
	id, _ := ctx.Value(deviceIDKey).(string)
	return id
}

// ContextLogger logs with the trace and span ids of the span active on ctx
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L uses the request logger stored on ctx, which already carries the
// request and device ids.
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger adopts a long-lived component logger, such as a store's, and
// tags it with the request and device ids found on ctx.
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	var fields []zap.Field
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetDeviceID(ctx); id != "" {
		fields = append(fields, zap.String("device_id", id))
	}
	if len(fields) > 0 {
		logger = logger.With(fields...)
	}
	return &ContextLogger{ctx: ctx, logger: logger}
}

// With returns a child logger carrying fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

// Zap returns the underlying logger with trace fields attached
func (cl *ContextLogger) Zap() *zap.Logger {
	sc := trace.SpanContextFromContext(cl.ctx)
	if !sc.IsValid() {
		return cl.logger
	}
	return cl.logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

func (cl *ContextLogger) log(lvl zapcore.Level, msg string, fields []zap.Field) {
	// Skip this frame and the exported wrapper so caller points at the call site
	cl.Zap().WithOptions(zap.AddCallerSkip(2)).Log(lvl, msg, fields...)
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.log(zapcore.DebugLevel, msg, fields) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.log(zapcore.InfoLevel, msg, fields) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.log(zapcore.WarnLevel, msg, fields) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.log(zapcore.ErrorLevel, msg, fields) }
