package persistence

import (
	"context"
	"testing"

	"github.com/furniro/storefront/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectorFor(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		want    string
		wantErr bool
	}{
		{"postgres", "postgres", "postgres", false},
		{"empty defaults to postgres", "", "postgres", false},
		{"sqlite", "sqlite", "sqlite", false},
		{"unknown", "mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := dialectorFor(&config.DatabaseConfig{Driver: tt.driver, SQLitePath: ":memory:"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Name())
		})
	}
}

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(&config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, nil)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "sqlite", db.System())
	require.NoError(t, db.Ping(context.Background()))
	require.NoError(t, db.AutoMigrate())
	assert.True(t, db.DB.Migrator().HasTable("collection_blobs"))

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestPing_AfterClose(t *testing.T) {
	db, err := Open(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:", MaxOpenConns: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = db.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping sqlite")
}
