package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/domain/shared"
	"github.com/furniro/storefront/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStorage implements collection.Storage on a single key/payload table
type GormStorage struct {
	db         *gorm.DB
	keyPrefix  string
	quotaBytes int64
}

// GormStorageOption configures a GormStorage
type GormStorageOption func(*GormStorage)

// WithKeyPrefix namespaces every key
func WithKeyPrefix(prefix string) GormStorageOption {
	return func(s *GormStorage) { s.keyPrefix = prefix }
}

// WithQuota rejects payloads larger than n bytes. Zero disables the check.
func WithQuota(n int64) GormStorageOption {
	return func(s *GormStorage) { s.quotaBytes = n }
}

// NewGormStorage creates a new GORM backed storage
func NewGormStorage(db *gorm.DB, opts ...GormStorageOption) *GormStorage {
	s := &GormStorage{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get loads the payload stored under key
func (s *GormStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var model models.CollectionBlobModel
	err := s.db.WithContext(ctx).Where(keyEquals(s.keyPrefix+key)).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return model.Payload, true, nil
}

// Set upserts the payload stored under key
func (s *GormStorage) Set(ctx context.Context, key string, payload []byte) error {
	if s.quotaBytes > 0 && int64(len(payload)) > s.quotaBytes {
		return shared.ErrQuotaExceeded
	}

	model := models.CollectionBlobModel{
		Key:       s.keyPrefix + key,
		Payload:   payload,
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key; a missing key is not an error
func (s *GormStorage) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where(keyEquals(s.keyPrefix+key)).Delete(&models.CollectionBlobModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func keyEquals(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

// Close is a no-op; the connection belongs to Database
func (s *GormStorage) Close() error {
	return nil
}

var _ collection.Storage = (*GormStorage)(nil)
