package middleware

import (
	"context"
	"strings"

	"github.com/furniro/storefront/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig holds configuration for the profiling middleware
type ProfilingConfig struct {
	Enabled          bool
	SkipPaths        []string
	SkipPathPrefixes []string
}

// DefaultProfilingConfig skips probes and the event stream, which idles in
// a select and would only add noise.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:          true,
		SkipPaths:        append([]string{"/healthz"}, ProbePaths...),
		SkipPathPrefixes: []string{EventStreamPrefix},
	}
}

func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig labels CPU samples taken while serving a request with
// its route pattern and method, plus the collection for cart and wishlist routes.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	skip := newPathSet(cfg.SkipPaths, cfg.SkipPathPrefixes)

	return func(c *gin.Context) {
		if skip.match(c.Request.URL.Path) {
			c.Next()
			return
		}
		telemetry.WithProfilingLabels(c.Request.Context(), profilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) map[string]string {
	route := c.FullPath()
	labels := telemetry.HTTPRequestLabels(route, c.Request.Method)
	if name := collectionFromRoute(route); name != "" {
		labels[telemetry.ProfilingLabelCollection] = name
	}
	return labels
}

// collectionFromRoute returns "cart" or "wishlist" when that is the first
// resource after the optional /api/vN prefix.
func collectionFromRoute(route string) string {
	segments := strings.FieldsFunc(route, func(r rune) bool { return r == '/' })
	if len(segments) > 0 && segments[0] == "api" {
		segments = segments[1:]
	}
	if len(segments) > 0 && isVersionSegment(segments[0]) {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return ""
	}
	switch segments[0] {
	case "cart", "wishlist":
		return segments[0]
	}
	return ""
}

// isVersionSegment matches v1, V2 and so on
func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	return strings.Trim(segment[1:], "0123456789") == ""
}
