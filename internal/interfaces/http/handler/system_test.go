package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/furniro/storefront/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter int

func (f fixedCounter) SubscriberCount() int { return int(f) }

func probe(t *testing.T, h *SystemHandler, path string) (int, dto.HealthResponse) {
	t.Helper()
	engine := gin.New()
	h.RegisterRoutes(engine)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var resp dto.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler("furniro-storefront", "1.0.0", fixedCounter(3))

	code, resp := probe(t, h, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "furniro-storefront", resp.Service)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, 3, resp.Subscribers)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestSystemHandler_Ready(t *testing.T) {
	ok := HealthCheck{Name: "storage", Check: func(context.Context) error { return nil }}
	down := HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	tests := []struct {
		name       string
		checks     []HealthCheck
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{"no checks", nil, http.StatusOK, "ready", nil},
		{"all passing", []HealthCheck{ok}, http.StatusOK, "ready", map[string]string{"storage": "ok"}},
		{"one failing", []HealthCheck{ok, down}, http.StatusServiceUnavailable, "not_ready",
			map[string]string{"storage": "ok", "redis": "connection refused"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler("furniro-storefront", "1.0.0", nil, tt.checks...)

			code, resp := probe(t, h, "/ready")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantChecks, resp.Checks)
			assert.Zero(t, resp.Subscribers)
		})
	}
}
