// Package identity provides sign-in, sign-out and session lookup. Collections
// never depend on it; a session only tells the UI whether someone is signed in.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/furniro/storefront/internal/domain/shared"
	"github.com/furniro/storefront/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// Identity errors
var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrInvalidToken       = shared.NewDomainError("INVALID_TOKEN", "Invalid or expired token")
)

// Authenticator verifies credentials and returns the canonical email
type Authenticator interface {
	Verify(email, password string) (string, error)
}

// SignInResult is returned on successful sign-in
type SignInResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Email       string    `json:"email"`
}

// Session describes the caller's authentication state
type Session struct {
	SignedIn  bool       `json:"signed_in"`
	Email     string     `json:"email,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Service handles authentication operations
type Service struct {
	accounts  Authenticator
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	logger    *zap.Logger
}

// NewService creates an identity service
func NewService(accounts Authenticator, jwtService *auth.JWTService, blacklist auth.TokenBlacklist, logger *zap.Logger) *Service {
	return &Service{
		accounts:  accounts,
		jwt:       jwtService,
		blacklist: blacklist,
		logger:    logger,
	}
}

// SignIn verifies the credentials and issues an access token
func (s *Service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	canonical, err := s.accounts.Verify(email, password)
	if err != nil {
		s.logger.Warn("Sign-in rejected", zap.String("email", strings.ToLower(strings.TrimSpace(email))))
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(canonical)
	if err != nil {
		s.logger.Error("Failed to issue access token", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Signed in", zap.String("email", canonical))
	return &SignInResult{
		AccessToken: token.Token,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
		Email:       canonical,
	}, nil
}

// Authenticate validates a token and rejects revoked ones
func (s *Service) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// SignOut revokes the token until it would have expired.
// Signing out with a missing or invalid token is a no-op.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil
		}
		return err
	}
	if s.blacklist == nil {
		return nil
	}
	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		s.logger.Error("Failed to revoke token", zap.Error(err))
		return err
	}

	s.logger.Info("Signed out", zap.String("email", claims.Email))
	return nil
}

// Session reports whether token belongs to a signed-in user
func (s *Service) Session(ctx context.Context, token string) Session {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return Session{}
	}
	var expiresAt *time.Time
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		expiresAt = &t
	}
	return Session{SignedIn: true, Email: claims.Email, ExpiresAt: expiresAt}
}
