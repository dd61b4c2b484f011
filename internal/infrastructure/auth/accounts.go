package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown email or wrong password
var ErrInvalidCredentials = errors.New("invalid email or password")

// dummyHash keeps the unknown-account path as slow as a real comparison
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("furniro-dummy-password"), bcrypt.DefaultCost)

// AccountStore verifies sign-in credentials against configured accounts
type AccountStore struct {
	hashes map[string][]byte // lower-cased email -> bcrypt hash
}

// NewAccountStore parses "email:bcrypt-hash" entries
func NewAccountStore(entries []string) (*AccountStore, error) {
	s := &AccountStore{hashes: make(map[string][]byte, len(entries))}
	for i, entry := range entries {
		email, hash, ok := strings.Cut(entry, ":")
		email = strings.ToLower(strings.TrimSpace(email))
		hash = strings.TrimSpace(hash)
		if !ok || email == "" || hash == "" {
			return nil, fmt.Errorf("auth.accounts[%d]: expected email:bcrypt-hash", i)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("auth.accounts[%d]: invalid bcrypt hash: %w", i, err)
		}
		s.hashes[email] = []byte(hash)
	}
	return s, nil
}

// Verify checks the password for email and returns the canonical email
func (s *AccountStore) Verify(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, ok := s.hashes[email]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return email, nil
}

// Len returns the number of configured accounts
func (s *AccountStore) Len() int {
	return len(s.hashes)
}
