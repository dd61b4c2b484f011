package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromTOML(t *testing.T, body string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(body)))
	return FromViper(v)
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when nothing is set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "furniro-storefront", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "memory", cfg.Storage.Backend)
		assert.Equal(t, "furniro:", cfg.Storage.KeyPrefix)
		assert.Equal(t, int64(5<<20), cfg.Storage.QuotaBytes)
		assert.Equal(t, "unique", cfg.Collections.CartPolicy)
		assert.Equal(t, "unique", cfg.Collections.WishlistPolicy)
		assert.Equal(t, "file", cfg.Catalog.Source)
		assert.Equal(t, "production", cfg.Catalog.Dataset)
		assert.Equal(t, "2025-01-22", cfg.Catalog.APIVersion)
		assert.Equal(t, "furniro_device", cfg.Cookie.DeviceName)
		assert.Equal(t, "/metrics", cfg.Metrics.Path)
	})

	t.Run("loads values from environment variables with FURNIRO prefix", func(t *testing.T) {
		t.Setenv("FURNIRO_APP_PORT", "9000")
		t.Setenv("FURNIRO_STORAGE_BACKEND", "redis")
		t.Setenv("FURNIRO_COLLECTIONS_CART_POLICY", "allow")
		t.Setenv("FURNIRO_CATALOG_SOURCE", "sanity")
		t.Setenv("FURNIRO_CATALOG_PROJECT_ID", "aw7xrfor")
		t.Setenv("FURNIRO_CATALOG_USE_CDN", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "redis", cfg.Storage.Backend)
		assert.Equal(t, "allow", cfg.Collections.CartPolicy)
		assert.Equal(t, "unique", cfg.Collections.WishlistPolicy)
		assert.Equal(t, "sanity", cfg.Catalog.Source)
		assert.Equal(t, "aw7xrfor", cfg.Catalog.ProjectID)
		assert.True(t, cfg.Catalog.UseCDN)
	})
}

func TestFromViper(t *testing.T) {
	t.Run("reads toml sections", func(t *testing.T) {
		cfg, err := fromTOML(t, `
[storage]
backend = "database"
quota_bytes = 1024
ttl = "720h"

[catalog]
source = "sanity"
project_id = "aw7xrfor"
cache_ttl = "30s"

[auth]
accounts = ["ada@example.com:$2a$10$hash"]
`)
		require.NoError(t, err)
		assert.Equal(t, "database", cfg.Storage.Backend)
		assert.Equal(t, int64(1024), cfg.Storage.QuotaBytes)
		assert.Equal(t, 720*time.Hour, cfg.Storage.TTL)
		assert.Equal(t, 30*time.Second, cfg.Catalog.CacheTTL)
		assert.Equal(t, []string{"ada@example.com:$2a$10$hash"}, cfg.Auth.Accounts)
	})

	t.Run("rejects unknown storage backend", func(t *testing.T) {
		_, err := fromTOML(t, "[storage]\nbackend = \"s3\"\n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.backend")
	})

	t.Run("rejects unknown duplicate policy", func(t *testing.T) {
		_, err := fromTOML(t, "[collections]\nwishlist_policy = \"merge\"\n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "collections.wishlist_policy")
	})

	t.Run("sanity source requires project id", func(t *testing.T) {
		_, err := fromTOML(t, "[catalog]\nsource = \"sanity\"\n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "catalog.project_id")
	})

	t.Run("rejects sampling ratio out of range", func(t *testing.T) {
		_, err := fromTOML(t, "[telemetry]\nsampling_ratio = 1.5\n")
		require.Error(t, err)
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	base := `
[app]
env = "production"

[jwt]
secret = "0123456789abcdef0123456789abcdef"

[cookie]
secure = true
`
	t.Run("valid production config", func(t *testing.T) {
		_, err := fromTOML(t, base)
		require.NoError(t, err)
	})

	t.Run("short jwt secret", func(t *testing.T) {
		_, err := fromTOML(t, "[app]\nenv = \"production\"\n[jwt]\nsecret = \"short\"\n[cookie]\nsecure = true\n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret")
	})

	t.Run("insecure cookie", func(t *testing.T) {
		_, err := fromTOML(t, strings.Replace(base, "secure = true", "secure = false", 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cookie.secure")
	})

	t.Run("wildcard cors", func(t *testing.T) {
		_, err := fromTOML(t, base+"\n[http]\ncors_allow_origins = [\"*\"]\n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cors_allow_origins")
	})

	t.Run("database storage without password", func(t *testing.T) {
		_, err := fromTOML(t, base+"\n[storage]\nbackend = \"database\"\n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "furniro",
		Password: "pass@word#123",
		DBName:   "furniro",
		SSLMode:  "disable",
	}
	dsn := d.DSN()
	assert.Contains(t, dsn, "localhost:5432/furniro")
	assert.Contains(t, dsn, "pass%40word%23123")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	_, err := fromTOML(t, `
[storage]
backend = "s3"

[cookie]
same_site = "sideways"
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
	assert.Contains(t, err.Error(), "cookie.same_site")
}

func TestValidate_DeployedEnvironments(t *testing.T) {
	for _, env := range []string{"staging", "production"} {
		t.Run(env, func(t *testing.T) {
			_, err := fromTOML(t, "[app]\nenv = \""+env+"\"\n")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "jwt.secret")
			assert.Contains(t, err.Error(), "cookie.secure")
		})
	}

	t.Run("test", func(t *testing.T) {
		_, err := fromTOML(t, "[app]\nenv = \"test\"\n")
		require.NoError(t, err)
	})
}

func TestFromViper_DerivedNames(t *testing.T) {
	cfg, err := fromTOML(t, "[app]\nname = \"furniro-eu\"\n[telemetry]\nservice_name = \"storefront-api\"\n")
	require.NoError(t, err)
	assert.Equal(t, "storefront-api", cfg.Telemetry.ServiceName)
	assert.Equal(t, "furniro-eu", cfg.Profiling.ApplicationName)
}

func TestFromViper_DatabasePoolDurations(t *testing.T) {
	cfg, err := fromTOML(t, "[database]\nconn_max_lifetime = \"2h\"\n")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxIdleTime)
}
