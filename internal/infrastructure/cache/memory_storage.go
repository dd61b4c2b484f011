package cache

import (
	"context"
	"sync"

	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/domain/shared"
)

// MemoryStorage implements collection.Storage with a process-local map.
// Suitable for single-instance deployments and tests; state is lost on restart.
type MemoryStorage struct {
	mu         sync.RWMutex
	data       map[string][]byte
	quotaBytes int64
}

// NewMemoryStorage creates an empty in-memory storage.
// quotaBytes limits each payload; zero disables the check.
func NewMemoryStorage(quotaBytes int64) *MemoryStorage {
	return &MemoryStorage{
		data:       make(map[string][]byte),
		quotaBytes: quotaBytes,
	}
}

// Get returns a copy of the payload stored under key
func (s *MemoryStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

// Set stores a copy of payload under key
func (s *MemoryStorage) Set(ctx context.Context, key string, payload []byte) error {
	if s.quotaBytes > 0 && int64(len(payload)) > s.quotaBytes {
		return shared.ErrQuotaExceeded
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), payload...)
	return nil
}

// Delete removes key
func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Close drops all stored payloads
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]byte)
	return nil
}

// Size returns the number of stored keys (for testing/monitoring)
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ collection.Storage = (*MemoryStorage)(nil)
