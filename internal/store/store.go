package store

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/voyagen/heatvault/internal/models"
)

// ErrNotFound is returned by GetMedia when no row has the identifier.
var ErrNotFound = errors.New("media record not found")

// Store defines persistence for harvested media records.
type Store interface {
	// MediaExists reports whether a row with id is already recorded.
	MediaExists(ctx context.Context, id string) (bool, error)
	// InsertMedia inserts rec unless its id is present; it reports whether a row was created.
	InsertMedia(ctx context.Context, rec *models.MediaRecord) (bool, error)
	// GetMedia returns the row for id or ErrNotFound.
	GetMedia(ctx context.Context, id string) (*models.MediaRecord, error)
	// CountMedia returns the number of recorded rows.
	CountMedia(ctx context.Context) (int64, error)
	// Close releases the underlying connection(s).
	Close() error
}

// Open connects to the store named by dsn: a postgres:// URL selects
// PostgreSQL, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (Store, error) {
	if IsPostgresDSN(dsn) {
		return NewPostgres(ctx, dsn)
	}
	return NewSQLite(ctx, SQLitePath(dsn), logger)
}

// IsPostgresDSN reports whether dsn targets PostgreSQL.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// SQLitePath strips an optional sqlite scheme from dsn.
func SQLitePath(dsn string) string {
	for _, prefix := range []string{"sqlite3://", "sqlite://", "file:"} {
		if strings.HasPrefix(dsn, prefix) {
			return strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

const mediaColumns = `id, location_id, duration_seconds, timestamp, title, preview_path, media_path, overlay_path, overlay_text`
