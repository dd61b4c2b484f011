// Package config loads the storefront configuration from config.toml and
// FURNIRO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "FURNIRO"

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Collections CollectionsConfig `mapstructure:"collections"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Cookie      CookieConfig      `mapstructure:"cookie"`
	Log         LogConfig         `mapstructure:"log"`
	Event       EventConfig       `mapstructure:"event"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Profiling   ProfilingConfig   `mapstructure:"profiling"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// LogConfig feeds logger.Config
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

// DatabaseConfig is used by the "database" storage backend and by cmd/migrate
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig selects where collection payloads are persisted
type StorageConfig struct {
	Backend    string `mapstructure:"backend"` // memory, redis, database
	KeyPrefix  string `mapstructure:"key_prefix"`
	QuotaBytes int64  `mapstructure:"quota_bytes"` // per payload, 0 = unlimited
	// TTL expires redis keys; 0 keeps them until cleared
	TTL           time.Duration `mapstructure:"ttl"`
	RedisFallback bool          `mapstructure:"redis_fallback"`
}

// CollectionsConfig holds the duplicate policy of each named collection
type CollectionsConfig struct {
	CartPolicy     string `mapstructure:"cart_policy"`
	WishlistPolicy string `mapstructure:"wishlist_policy"`
}

type CatalogConfig struct {
	Source       string        `mapstructure:"source"` // sanity, file
	ProjectID    string        `mapstructure:"project_id"`
	Dataset      string        `mapstructure:"dataset"`
	APIVersion   string        `mapstructure:"api_version"`
	UseCDN       bool          `mapstructure:"use_cdn"`
	Token        string        `mapstructure:"token"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	SeedFile     string        `mapstructure:"seed_file"`
	ImageBaseURL string        `mapstructure:"image_base_url"`
}

type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
	Issuer                string        `mapstructure:"issuer"`
}

type AuthConfig struct {
	// Accounts are "email:bcrypt-hash" pairs allowed to sign in
	Accounts         []string `mapstructure:"accounts"`
	BlacklistBackend string   `mapstructure:"blacklist_backend"` // memory, redis
}

// CookieConfig describes the device cookie that keys every collection
type CookieConfig struct {
	Domain         string        `mapstructure:"domain"`
	Path           string        `mapstructure:"path"`
	Secure         bool          `mapstructure:"secure"`
	SameSite       string        `mapstructure:"same_site"` // strict, lax, none
	DeviceName     string        `mapstructure:"device_name"`
	DeviceLifetime time.Duration `mapstructure:"device_lifetime"`
}

type EventConfig struct {
	SSEHeartbeat  time.Duration `mapstructure:"sse_heartbeat"`
	SSEMaxClients int           `mapstructure:"sse_max_clients"`
}

type HTTPConfig struct {
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	MaxBodySize       int64         `mapstructure:"max_body_size"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	RateLimitBurst    int           `mapstructure:"rate_limit_burst"`
	// An empty origin list allows no cross-origin requests
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string `mapstructure:"trusted_proxies"`
}

// MetricsConfig is the Prometheus scrape endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TelemetryConfig drives the OTLP trace, metric and log pipelines
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

type ProfilingConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ServerAddress   string `mapstructure:"server_address"`
	ApplicationName string `mapstructure:"application_name"`
	SpanProfiles    bool   `mapstructure:"span_profiles"`
}

// defaults lists every key. Keys without a useful default are still listed
// with their zero value so FURNIRO_* variables reach them on Unmarshal.
var defaults = map[string]any{
	"app.name": "furniro-storefront",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "furniro",
	"database.sslmode":            "disable",
	"database.sqlite_path":        "furniro.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"storage.backend":        "memory",
	"storage.key_prefix":     "furniro:",
	"storage.quota_bytes":    5 << 20, // browser localStorage limit
	"storage.ttl":            time.Duration(0),
	"storage.redis_fallback": false,

	"collections.cart_policy":     "unique",
	"collections.wishlist_policy": "unique",

	"catalog.source":         "file",
	"catalog.project_id":     "",
	"catalog.dataset":        "production",
	"catalog.api_version":    "2025-01-22",
	"catalog.use_cdn":        false,
	"catalog.token":          "",
	"catalog.timeout":        10 * time.Second,
	"catalog.cache_ttl":      time.Minute,
	"catalog.seed_file":      "configs/catalog.yaml",
	"catalog.image_base_url": "https://cdn.sanity.io",

	"jwt.secret":                  "",
	"jwt.access_token_expiration": 24 * time.Hour,
	"jwt.issuer":                  "furniro-storefront",

	"auth.accounts":          []string{},
	"auth.blacklist_backend": "memory",

	"cookie.domain":          "",
	"cookie.path":            "/",
	"cookie.secure":          false,
	"cookie.same_site":       "lax",
	"cookie.device_name":     "furniro_device",
	"cookie.device_lifetime": 365 * 24 * time.Hour,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"event.sse_heartbeat":   30 * time.Second,
	"event.sse_max_clients": 1000,

	"http.read_timeout":        15 * time.Second,
	"http.write_timeout":       15 * time.Second,
	"http.idle_timeout":        time.Minute,
	"http.max_header_bytes":    1 << 20,
	"http.max_body_size":       1 << 20,
	"http.rate_limit_enabled":  false,
	"http.rate_limit_requests": 100,
	"http.rate_limit_window":   time.Minute,
	"http.rate_limit_burst":    20,
	"http.cors_allow_origins":  []string{},
	"http.cors_allow_methods":  []string{"GET", "POST", "DELETE", "OPTIONS"},
	"http.cors_allow_headers":  []string{"Content-Type", "Authorization", "X-Request-ID", "X-Device-ID"},
	"http.trusted_proxies":     []string{},

	"metrics.enabled": false,
	"metrics.path":    "/metrics",

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,

	"profiling.enabled":          false,
	"profiling.server_address":   "",
	"profiling.application_name": "",
	"profiling.span_profiles":    false,
}

// Load reads config.toml from ".", "./configs" or "/app" when present.
// FURNIRO_<SECTION>_<KEY> variables override the file, which overrides the
// built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, dir := range []string{".", "./configs", "/app"} {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper layers defaults and the environment under v and decodes it
func FromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.App.Name
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func oneOf(key, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

// validate reports every problem at once
func (c *Config) validate() error {
	errs := []error{
		oneOf("database.driver", c.Database.Driver, "postgres", "sqlite"),
		oneOf("storage.backend", c.Storage.Backend, "memory", "redis", "database"),
		oneOf("collections.cart_policy", c.Collections.CartPolicy, "unique", "allow"),
		oneOf("collections.wishlist_policy", c.Collections.WishlistPolicy, "unique", "allow"),
		oneOf("catalog.source", c.Catalog.Source, "sanity", "file"),
		oneOf("auth.blacklist_backend", c.Auth.BlacklistBackend, "memory", "redis"),
		oneOf("cookie.same_site", c.Cookie.SameSite, "strict", "lax", "none"),
	}
	check := func(bad bool, format string, args ...any) {
		if bad {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Database.MaxOpenConns <= 0, "database.max_open_conns must be positive")
	check(c.Database.MaxIdleConns < 0 || c.Database.MaxIdleConns > c.Database.MaxOpenConns,
		"database.max_idle_conns must be between 0 and max_open_conns (%d)", c.Database.MaxOpenConns)
	check(c.Storage.QuotaBytes < 0, "storage.quota_bytes cannot be negative")
	check(c.Catalog.Source == "sanity" && c.Catalog.ProjectID == "",
		"catalog.project_id is required when catalog.source is sanity")
	check(c.Catalog.Source == "file" && c.Catalog.SeedFile == "",
		"catalog.seed_file is required when catalog.source is file")
	check(c.Cookie.SameSite == "none" && !c.Cookie.Secure, "cookie.same_site=none requires cookie.secure")
	check(c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1,
		"telemetry.sampling_ratio must be within [0, 1], got %g", c.Telemetry.SamplingRatio)

	if !c.App.IsDevelopment() && c.App.Env != "test" {
		errs = append(errs, c.validateDeployed()...)
	}
	return errors.Join(errs...)
}

// validateDeployed holds the rules for anything but a developer machine
func (c *Config) validateDeployed() []error {
	var errs []error
	if len(c.JWT.Secret) < 32 {
		errs = append(errs, fmt.Errorf("jwt.secret must be at least 32 characters in %s", c.App.Env))
	}
	if !c.Cookie.Secure {
		errs = append(errs, fmt.Errorf("cookie.secure must be true in %s", c.App.Env))
	}
	if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
		errs = append(errs, errors.New("http.cors_allow_origins cannot contain '*' outside development"))
	}
	if c.Telemetry.DBLogFullSQL {
		errs = append(errs, errors.New("telemetry.db_log_full_sql would export cart contents in span attributes"))
	}
	if c.Storage.Backend == "database" && c.Database.Driver == "postgres" {
		if c.Database.Password == "" {
			errs = append(errs, errors.New("database.password is required for the database backend"))
		}
		if c.Database.SSLMode == "disable" {
			errs = append(errs, errors.New("database.sslmode cannot be disable for the database backend"))
		}
	}
	return errs
}

// DSN is the postgres connection URL with credentials escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

func (a *AppConfig) IsDevelopment() bool {
	return a.Env == "development"
}
