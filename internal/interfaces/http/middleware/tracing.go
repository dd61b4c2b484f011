package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultServiceName names the server spans
const DefaultServiceName = "furniro-storefront"

// TracingConfig holds configuration for the tracing middleware.
// A nil TracerProvider uses the global one.
type TracingConfig struct {
	ServiceName      string
	Enabled          bool
	TracerProvider   trace.TracerProvider
	SkipPaths        []string
	SkipPathPrefixes []string
}

// DefaultTracingConfig leaves probes and event streams untraced. A stream
// span would stay open for the life of the connection.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName:      DefaultServiceName,
		Enabled:          true,
		SkipPaths:        ProbePaths,
		SkipPathPrefixes: []string{EventStreamPrefix},
	}
}

// Tracing returns OpenTelemetry tracing middleware with default configuration
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig starts a server span per request named after the route
// pattern. Pair it with SpanAttributes further down the chain.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	opts := []otelgin.Option{}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	if skip := newPathSet(cfg.SkipPaths, cfg.SkipPathPrefixes); !skip.empty() {
		opts = append(opts, otelgin.WithFilter(func(r *http.Request) bool {
			return !skip.match(r.URL.Path)
		}))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanAttributes tags the active span with the request and device ids and
// the sign-in state, then marks it failed for 4xx/5xx responses. Place it
// after Tracing, Device and OptionalJWTAuth.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if id := GetDeviceID(c); id != "" {
			span.SetAttributes(attribute.String("device_id", id))
		}
		span.SetAttributes(attribute.Bool("auth.signed_in", GetJWTClaims(c) != nil))

		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, spanErrorMessage(status))
		}
	}
}

func spanErrorMessage(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "Internal Server Error"
	case status == http.StatusUnauthorized:
		return "Unauthorized"
	case status == http.StatusNotFound:
		return "Not Found"
	case status == http.StatusTooManyRequests:
		return "Too Many Requests"
	default:
		return "Client Error"
	}
}
