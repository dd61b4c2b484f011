package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSecure(t *testing.T) {
	serve := func(hsts bool) http.Header {
		router := gin.New()
		router.Use(Secure(hsts))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		return w.Header()
	}

	t.Run("plain http", func(t *testing.T) {
		h := serve(false)
		assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
		assert.Contains(t, h.Get("Content-Security-Policy"), "cdn.sanity.io")
		assert.NotEmpty(t, h.Get("Permissions-Policy"))
		assert.Empty(t, h.Get("Strict-Transport-Security"))
	})

	t.Run("https", func(t *testing.T) {
		assert.Equal(t, "max-age=31536000; includeSubDomains", serve(true).Get("Strict-Transport-Security"))
		assert.Empty(t, securityHeaders.Get("Strict-Transport-Security"), "shared headers must not change")
	})
}
