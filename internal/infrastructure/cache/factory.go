package cache

import (
	"fmt"

	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/infrastructure/config"
	"github.com/furniro/storefront/internal/infrastructure/persistence"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StorageFactory creates collection storages based on configuration
type StorageFactory struct {
	storageConfig         config.StorageConfig
	redisConfig           config.RedisConfig
	db                    *gorm.DB
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StorageFactoryOption is a functional option for configuring the factory
type StorageFactoryOption func(*StorageFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StorageFactoryOption {
	return func(f *StorageFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to memory when Redis is unavailable
func WithInMemoryFallback(allow bool) StorageFactoryOption {
	return func(f *StorageFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithDatabase supplies the connection used by the database backend
func WithDatabase(db *gorm.DB) StorageFactoryOption {
	return func(f *StorageFactory) {
		f.db = db
	}
}

// NewStorageFactory creates a new factory
func NewStorageFactory(storageCfg config.StorageConfig, redisCfg config.RedisConfig, opts ...StorageFactoryOption) *StorageFactory {
	f := &StorageFactory{
		storageConfig:         storageCfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: storageCfg.RedisFallback,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateMemoryStorage creates an in-memory storage.
// State is not shared across instances and is lost on restart.
func (f *StorageFactory) CreateMemoryStorage() collection.Storage {
	return NewMemoryStorage(f.storageConfig.QuotaBytes)
}

// CreateRedisStorage creates a Redis backed storage
func (f *StorageFactory) CreateRedisStorage() (collection.Storage, error) {
	storage, err := NewRedisStorage(f.redisConfig,
		WithRedisKeyPrefix(f.storageConfig.KeyPrefix),
		WithRedisTTL(f.storageConfig.TTL),
		WithRedisQuota(f.storageConfig.QuotaBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis storage: %w", err)
	}
	return storage, nil
}

// CreateDatabaseStorage creates a storage on the collection_blobs table
func (f *StorageFactory) CreateDatabaseStorage() (collection.Storage, error) {
	if f.db == nil {
		return nil, fmt.Errorf("database storage requires a database connection")
	}
	return persistence.NewGormStorage(f.db,
		persistence.WithKeyPrefix(f.storageConfig.KeyPrefix),
		persistence.WithQuota(f.storageConfig.QuotaBytes),
	), nil
}

// CreateStorage creates the configured backend. A Redis backend falls back
// to memory when unreachable and fallback is allowed.
func (f *StorageFactory) CreateStorage() (collection.Storage, error) {
	switch f.storageConfig.Backend {
	case "memory", "":
		f.logger.Info("using in-memory collection storage")
		return f.CreateMemoryStorage(), nil
	case "database":
		storage, err := f.CreateDatabaseStorage()
		if err != nil {
			return nil, err
		}
		f.logger.Info("using database collection storage")
		return storage, nil
	case "redis":
		storage, err := f.CreateRedisStorage()
		if err == nil {
			f.logger.Info("using Redis collection storage", zap.String("addr", f.redisConfig.Addr()))
			return storage, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for collection storage but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory collection storage. "+
			"Carts will not be shared across instances.",
			zap.Error(err),
		)
		return f.CreateMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", f.storageConfig.Backend)
	}
}
