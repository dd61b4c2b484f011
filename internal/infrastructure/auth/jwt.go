package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/furniro/storefront/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType separates session tokens from any other token signed with the
// same secret
type TokenType string

const TokenTypeAccess TokenType = "access"

// clockSkew tolerated between the signing and validating hosts
const clockSkew = 30 * time.Second

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrMissingEmail     = errors.New("missing email in claims")
)

// Claims identify a signed-in shopper. ID is the revocation key.
type Claims struct {
	jwt.RegisteredClaims
	Email     string    `json:"email"`
	TokenType TokenType `json:"token_type"`
}

// AccessToken is the session token returned by sign-in
type AccessToken struct {
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type"`
}

// JWTService signs and checks HS256 session tokens. The issuer doubles as
// the audience.
type JWTService struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	parser   *jwt.Parser
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:   []byte(cfg.Secret),
		lifetime: cfg.AccessTokenExpiration,
		issuer:   cfg.Issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// GenerateAccessToken signs a session token for the normalized email
func (s *JWTService) GenerateAccessToken(email string) (*AccessToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrMissingEmail
	}

	issued := time.Now()
	expires := issued.Add(s.lifetime)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   email,
			Audience:  jwt.ClaimStrings{s.issuer},
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email:     email,
		TokenType: TokenTypeAccess,
	}).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &AccessToken{Token: signed, ExpiresAt: expires, TokenType: "Bearer"}, nil
}

// ValidateAccessToken returns the claims of a valid session token. Expiry
// is reported as ErrExpiredToken; every other parse failure as
// ErrInvalidToken.
func (s *JWTService) ValidateAccessToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	case claims.TokenType != TokenTypeAccess:
		return nil, ErrInvalidTokenType
	case claims.Email == "":
		return nil, ErrMissingEmail
	}
	return claims, nil
}

// GetRemainingTTL is how long a revocation of this token must be kept
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}
