package auth

import (
	"testing"
	"time"

	"github.com/furniro/storefront/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.GenerateAccessToken("  Shopper@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), token.ExpiresAt, 5*time.Second)

	claims, err := svc.ValidateAccessToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, "shopper@example.com", claims.Email)
	assert.Equal(t, "shopper@example.com", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Greater(t, claims.GetRemainingTTL(), 14*time.Minute)
}

func TestJWTService_GenerateAccessToken_MissingEmail(t *testing.T) {
	_, err := newTestJWTService().GenerateAccessToken("  ")
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestJWTService_UniqueJTI(t *testing.T) {
	svc := newTestJWTService()
	a, err := svc.GenerateAccessToken("a@example.com")
	require.NoError(t, err)
	b, err := svc.GenerateAccessToken("a@example.com")
	require.NoError(t, err)

	ca, _ := svc.ValidateAccessToken(a.Token)
	cb, _ := svc.ValidateAccessToken(b.Token)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestJWTService_ValidateAccessToken_Errors(t *testing.T) {
	svc := newTestJWTService()

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "another-secret-key-at-least-32-chars",
			AccessTokenExpiration: time.Minute,
			Issuer:                "test-issuer",
		})
		token, err := other.GenerateAccessToken("a@example.com")
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(token.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			AccessTokenExpiration: time.Minute,
			Issuer:                "someone-else",
		})
		token, err := other.GenerateAccessToken("a@example.com")
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(token.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			AccessTokenExpiration: -time.Minute,
			Issuer:                "test-issuer",
		})
		token, err := expired.GenerateAccessToken("a@example.com")
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(token.Token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong token type", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				Audience:  jwt.ClaimStrings{"test-issuer"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
			Email:     "a@example.com",
			TokenType: "refresh",
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(signed)
		assert.ErrorIs(t, err, ErrInvalidTokenType)
	})

	t.Run("no expiry", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:   "test-issuer",
				Audience: jwt.ClaimStrings{"test-issuer"},
			},
			Email:     "a@example.com",
			TokenType: TokenTypeAccess,
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("hs512 rejected", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				Audience:  jwt.ClaimStrings{"test-issuer"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
			Email:     "a@example.com",
			TokenType: TokenTypeAccess,
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(svc.secret)
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := &Claims{Email: "a@example.com", TokenType: TokenTypeAccess}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestClaims_GetRemainingTTL(t *testing.T) {
	assert.Equal(t, time.Duration(0), (&Claims{}).GetRemainingTTL())

	past := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}}
	assert.Equal(t, time.Duration(0), past.GetRemainingTTL())
}
