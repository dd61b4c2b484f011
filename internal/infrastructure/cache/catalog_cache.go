package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/furniro/storefront/internal/domain/catalog"
	"go.uber.org/zap"
)

// cacheEntry wraps a cached value with expiration time
type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// CachedProductReader decorates a ProductReader with a TTL cache.
// Errors are never cached. When the upstream catalog is unavailable an
// expired entry is served instead of failing the request.
type CachedProductReader struct {
	next    catalog.ProductReader
	ttl     time.Duration
	logger  *zap.Logger
	entries sync.Map // map[string]any holding *cacheEntry[...]

	hits   int64
	misses int64
}

// CachedProductReaderOption is a functional option for configuring the reader
type CachedProductReaderOption func(*CachedProductReader)

// WithCatalogLogger sets the logger for the cache
func WithCatalogLogger(logger *zap.Logger) CachedProductReaderOption {
	return func(c *CachedProductReader) {
		c.logger = logger
	}
}

// NewCachedProductReader wraps next with a cache holding results for ttl
func NewCachedProductReader(next catalog.ProductReader, ttl time.Duration, opts ...CachedProductReaderOption) *CachedProductReader {
	c := &CachedProductReader{
		next:   next,
		ttl:    ttl,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindAll returns every product
func (c *CachedProductReader) FindAll(ctx context.Context) ([]catalog.Product, error) {
	return cached(c, "all", func() ([]catalog.Product, error) {
		return c.next.FindAll(ctx)
	})
}

// FindByID returns a single product
func (c *CachedProductReader) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	return cached(c, "id:"+id, func() (*catalog.Product, error) {
		return c.next.FindByID(ctx, id)
	})
}

// FindRelated returns products other than excludeID
func (c *CachedProductReader) FindRelated(ctx context.Context, excludeID string, limit int) ([]catalog.Product, error) {
	key := "related:" + excludeID + ":" + strconv.Itoa(limit)
	return cached(c, key, func() ([]catalog.Product, error) {
		return c.next.FindRelated(ctx, excludeID, limit)
	})
}

// Invalidate drops every cached result
func (c *CachedProductReader) Invalidate() {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
}

// Stats returns the hit and miss counters
func (c *CachedProductReader) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

func cached[T any](c *CachedProductReader, key string, load func() (T, error)) (T, error) {
	var stale *cacheEntry[T]
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*cacheEntry[T])
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.value, nil
		}
		stale = entry
	}

	atomic.AddInt64(&c.misses, 1)
	value, err := load()
	if err != nil {
		if stale != nil && errors.Is(err, catalog.ErrCatalogUnavailable) {
			c.logger.Warn("catalog unavailable, serving stale cache entry",
				zap.String("key", key),
				zap.Error(err))
			return stale.value, nil
		}
		var zero T
		return zero, err
	}

	c.entries.Store(key, &cacheEntry[T]{value: value, expiresAt: time.Now().Add(c.ttl)})
	return value, nil
}

var _ catalog.ProductReader = (*CachedProductReader)(nil)
