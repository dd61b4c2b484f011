package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	t.Run("allows burst then blocks", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute, 0)
		defer rl.Stop()

		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow("a"), "request %d", i)
		}
		assert.False(t, rl.Allow("a"))
		assert.Equal(t, 0, rl.Remaining("a"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute, 1)
		defer rl.Stop()

		assert.True(t, rl.Allow("a"))
		assert.False(t, rl.Allow("a"))
		assert.True(t, rl.Allow("b"))
		assert.Equal(t, 2, rl.Clients())
	})

	t.Run("refills over time", func(t *testing.T) {
		rl := NewRateLimiter(100, time.Second, 1)
		defer rl.Stop()

		assert.True(t, rl.Allow("a"))
		assert.False(t, rl.Allow("a"))
		assert.Eventually(t, func() bool { return rl.Allow("a") }, time.Second, 5*time.Millisecond)
	})

	t.Run("evicts idle clients", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute, 1)
		defer rl.Stop()

		rl.Allow("a")
		rl.evictIdle(time.Now().Add(time.Hour))
		assert.Zero(t, rl.Clients())
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute, 1)
		rl.Stop()
		rl.Stop()
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, 2)
	defer rl.Stop()

	router := gin.New()
	router.Use(RequestID(), Device(DefaultDeviceConfig()), RateLimit(rl))
	router.GET("/api/v1/products", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	device := uuid.NewString()
	send := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/v1/products", nil)
		req.Header.Set(DeviceIDHeader, id)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send(device)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, send(device).Code)

	blocked := send(device)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Contains(t, blocked.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.Equal(t, "1", blocked.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send(uuid.NewString()).Code, "other devices keep their own bucket")
}

func TestRateLimitByKey(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, 1)
	defer rl.Stop()

	router := gin.New()
	router.Use(RateLimitByKey(rl, func(c *gin.Context) string { return c.GetHeader("X-Key") }))
	router.POST("/api/v1/auth/sign-in", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(key string) int {
		req := httptest.NewRequest("POST", "/api/v1/auth/sign-in", nil)
		req.Header.Set("X-Key", key)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("k1"))
	assert.Equal(t, http.StatusTooManyRequests, send("k1"))
	assert.Equal(t, http.StatusOK, send("k2"))
}
