// Package migration applies the collection_blobs schema with golang-migrate.
// The sqlite backend relies on gorm AutoMigrate instead.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// migrationsTable keeps migrate's bookkeeping away from the default name
const migrationsTable = "storefront_schema_migrations"

// Migrator runs schema migrations against the collection storage database
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// Source selects where migration files are read from
type Source struct {
	dir    string
	fsys   fs.FS
	prefix string
}

// FromDir reads migrations from a directory on disk
func FromDir(dir string) Source {
	return Source{dir: dir}
}

// FromFS reads migrations from an embedded or in-memory filesystem
func FromFS(fsys fs.FS, root string) Source {
	if root == "" {
		root = "."
	}
	return Source{fsys: fsys, prefix: root}
}

// String describes the source for logs
func (s Source) String() string {
	if s.fsys != nil {
		return "embedded:" + s.prefix
	}
	return "file://" + s.dir
}

func (s Source) driver() (source.Driver, string, error) {
	if s.fsys == nil {
		return nil, "", nil
	}
	d, err := iofs.New(s.fsys, s.prefix)
	if err != nil {
		return nil, "", fmt.Errorf("open embedded migrations: %w", err)
	}
	return d, "iofs", nil
}

// New creates a Migrator for a postgres connection
func New(db *sql.DB, src Source, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("postgres migrate driver: %w", err)
	}

	sourceDriver, sourceName, err := src.driver()
	if err != nil {
		return nil, err
	}

	var m *migrate.Migrate
	if sourceDriver != nil {
		m, err = migrate.NewWithInstance(sourceName, sourceDriver, "postgres", driver)
	} else {
		m, err = migrate.NewWithDatabaseInstance(src.String(), "postgres", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open migrations from %s: %w", src, err)
	}
	m.Log = migrateLogger{logger.Named("migrate").Sugar()}

	logger.Debug("Migrator ready", zap.Stringer("source", src))
	return &Migrator{migrate: m, logger: logger}, nil
}

// migrateLogger routes golang-migrate's per-file progress to zap at debug
type migrateLogger struct {
	*zap.SugaredLogger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.Debugf(strings.TrimSuffix(format, "\n"), v...)
}

func (l migrateLogger) Verbose() bool {
	return l.Desugar().Core().Enabled(zap.DebugLevel)
}

// apply runs one schema change. Being already at the target is not an error;
// otherwise the resulting version is logged.
func (m *Migrator) apply(action string, change func() error, fields ...zap.Field) error {
	m.logger.Info("Applying migrations", append([]zap.Field{zap.String("action", action)}, fields...)...)

	err := change()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Schema already current", zap.String("action", action))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", action, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Schema migrated",
		zap.String("action", action),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.apply("up", m.migrate.Up)
}

// Down rolls every migration back, dropping collection_blobs
func (m *Migrator) Down() error {
	return m.apply("down", m.migrate.Down)
}

// Steps applies n migrations; negative n rolls back
func (m *Migrator) Steps(n int) error {
	return m.apply("steps", func() error { return m.migrate.Steps(n) }, zap.Int("steps", n))
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	return m.apply("goto", func() error { return m.migrate.Migrate(version) }, zap.Uint("target_version", version))
}

// Version returns the applied version; 0 means nothing has been applied
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running anything. It is for
// clearing the dirty flag after a failed migration has been repaired by hand.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing schema version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force schema version %d: %w", version, err)
	}
	return nil
}

// Drop removes every table in the database, stored carts and wishlists included
func (m *Migrator) Drop() error {
	m.logger.Warn("Dropping all tables, stored collections will be lost")
	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}

// Close releases the source and database drivers
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}
