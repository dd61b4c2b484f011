// Command migrate manages the postgres schema behind the "database" storage
// backend. The sqlite backend is migrated by the server on startup.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/furniro/storefront/internal/infrastructure/config"
	"github.com/furniro/storefront/internal/infrastructure/logger"
	"github.com/furniro/storefront/internal/infrastructure/migration"
	"github.com/furniro/storefront/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// schemaCommand runs against a live database
type schemaCommand func(m *migration.Migrator, args []string, log *zap.Logger) error

var schemaCommands = map[string]schemaCommand{
	"up":      func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Up() },
	"down":    func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Down() },
	"step":    stepCmd,
	"goto":    gotoCmd,
	"version": versionCmd,
	"force":   forceCmd,
	"drop":    dropCmd,
}

func main() {
	var dir, logLevel string
	flag.StringVar(&dir, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	command, args := args[0], args[1:]

	log, err := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stderr", Service: "furniro-migrate"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if dir != "" {
		if dir, err = filepath.Abs(dir); err != nil {
			log.Fatal("Invalid -path", zap.Error(err))
		}
	}

	if err := run(command, args, dir, log); err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func run(command string, args []string, dir string, log *zap.Logger) error {
	switch command {
	case "create":
		return createCmd(args, dir, log)
	case "list":
		return listCmd(dir, log)
	}

	cmd, ok := schemaCommands[command]
	if !ok {
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("database.driver is %q; only postgres is migrated here", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	src := migration.FromFS(migrations.FS, ".")
	if dir != "" {
		src = migration.FromDir(dir)
	}
	m, err := migration.New(db, src, log)
	if err != nil {
		return err
	}
	defer m.Close()

	log.Info("Running schema command", zap.String("command", command), zap.Stringer("source", src))
	return cmd(m, args, log)
}

func requireArg(args []string, usage string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("missing argument, usage: migrate %s", usage)
	}
	return args[0], nil
}

func stepCmd(m *migration.Migrator, args []string, _ *zap.Logger) error {
	arg, err := requireArg(args, "step <n>")
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("step count %q is not an integer", arg)
	}
	return m.Steps(n)
}

func gotoCmd(m *migration.Migrator, args []string, _ *zap.Logger) error {
	arg, err := requireArg(args, "goto <version>")
	if err != nil {
		return err
	}
	version, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return fmt.Errorf("version %q is not a positive integer", arg)
	}
	return m.GoTo(uint(version))
}

func versionCmd(m *migration.Migrator, _ []string, log *zap.Logger) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		log.Info("No migrations applied")
		return nil
	}
	log.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func forceCmd(m *migration.Migrator, args []string, _ *zap.Logger) error {
	arg, err := requireArg(args, "force <version>")
	if err != nil {
		return err
	}
	version, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("version %q is not an integer", arg)
	}
	return m.Force(version)
}

func dropCmd(m *migration.Migrator, args []string, _ *zap.Logger) error {
	if !slices.Contains(args, "-confirm") && !slices.Contains(args, "--confirm") {
		return errors.New("drop deletes every stored cart and wishlist; rerun with -confirm")
	}
	return m.Drop()
}

func createCmd(args []string, dir string, log *zap.Logger) error {
	if dir == "" {
		return errors.New("create writes files and needs -path; the embedded set is read-only")
	}
	name, err := requireArg(args, "-path <dir> create <name> [description]")
	if err != nil {
		return err
	}
	var description string
	if len(args) > 1 {
		description = args[1]
	}

	mf, err := migration.CreateMigration(dir, name, description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func listCmd(dir string, log *zap.Logger) error {
	var fsys fs.FS = migrations.FS
	if dir != "" {
		fsys = os.DirFS(dir)
	}
	list, err := migration.ListMigrations(fsys)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		log.Info("No migrations found")
		return nil
	}
	for _, mi := range list {
		rollback := "yes"
		if !mi.HasDown {
			rollback = "no"
		}
		fmt.Printf("%s\trollback=%s\n", mi, rollback)
	}
	return nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Furniro storefront schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version               Show the applied version
  force <version>       Record a version without running it (clears dirty state)
  drop -confirm         Drop all tables, stored carts included
  create <name> [desc]  Write a new migration pair (needs -path)
  list                  List available migrations

Flags:
  -path string          Read migrations from a directory (default: embedded set)
  -log-level string     debug, info, warn or error (default: info)

Database settings come from configs/config.toml or FURNIRO_DATABASE_HOST,
FURNIRO_DATABASE_PORT, FURNIRO_DATABASE_USER, FURNIRO_DATABASE_PASSWORD,
FURNIRO_DATABASE_DBNAME and FURNIRO_DATABASE_SSLMODE.
`)
}
