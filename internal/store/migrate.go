package store

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded migrations for the dialect of dsn.
// The media table is created with IF NOT EXISTS so a database prepared by
// hand is adopted as-is.
func RunMigrations(dsn string) error {
	dir, dbURL := "migrations/sqlite", "sqlite3://"+SQLitePath(dsn)
	if IsPostgresDSN(dsn) {
		dir, dbURL = "migrations/postgres", dsn
	} else if err := os.MkdirAll(filepath.Dir(SQLitePath(dsn)), 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("iofs.New: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate.Up: %w", err)
	}
	return nil
}
