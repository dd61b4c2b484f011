package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/furniro/storefront/internal/application/identity"
	"github.com/furniro/storefront/internal/infrastructure/auth"
	"github.com/furniro/storefront/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIdentity(t *testing.T) (*identity.Service, *auth.JWTService) {
	t.Helper()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	})
	return identity.NewService(nil, jwtService, auth.NewInMemoryTokenBlacklist(), zap.NewNop()), jwtService
}

func newAuthRouter(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw)
	router.GET("/api/v1/auth/session", func(c *gin.Context) {
		c.String(http.StatusOK, GetJWTEmail(c))
	})
	return router
}

func TestJWTAuth(t *testing.T) {
	svc, jwtService := newTestIdentity(t)
	router := newAuthRouter(JWTAuth(svc, zap.NewNop()))

	token, err := jwtService.GenerateAccessToken("shopper@example.com")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + token.Token, http.StatusOK, "shopper@example.com"},
		{"missing header", "", http.StatusUnauthorized, "Authentication required"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Authentication required"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "Authentication required"},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized, "Invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestJWTAuth_RevokedToken(t *testing.T) {
	svc, jwtService := newTestIdentity(t)
	router := newAuthRouter(JWTAuth(svc, zap.NewNop()))

	token, err := jwtService.GenerateAccessToken("shopper@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(context.Background(), token.Token))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.Header.Set(AuthHeaderKey, "Bearer "+token.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalJWTAuth(t *testing.T) {
	svc, jwtService := newTestIdentity(t)
	router := newAuthRouter(OptionalJWTAuth(svc, zap.NewNop()))

	token, err := jwtService.GenerateAccessToken("shopper@example.com")
	require.NoError(t, err)

	for name, header := range map[string]string{
		"anonymous": "",
		"invalid":   "Bearer nope",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
			if header != "" {
				req.Header.Set(AuthHeaderKey, header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Body.String())
		})
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
		req.Header.Set(AuthHeaderKey, "Bearer "+token.Token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, "shopper@example.com", rec.Body.String())
	})
}

type failingAuthenticator struct{}

func (failingAuthenticator) Authenticate(context.Context, string) (*auth.Claims, error) {
	return nil, errors.New("blacklist unreachable")
}

func TestJWTAuth_BackendError(t *testing.T) {
	router := newAuthRouter(JWTAuth(failingAuthenticator{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.Header.Set(AuthHeaderKey, "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid token")
}

func TestGetJWTClaims_NotFound(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTEmail(c))
}
