package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/voyagen/heatvault/internal/models"
)

const sqliteDriver = "sqlite3"

// SQLite implements Store on a local database file.
type SQLite struct {
	db *sqlx.DB
}

// NewSQLite opens (creating if needed) the database file at path. Queries
// are logged at debug level through logger.
func NewSQLite(ctx context.Context, path string, logger zerolog.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	base, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	drv := base.Driver()
	base.Close()

	raw := sqldblogger.OpenDriver(path, drv, &sqlLogger{logger: logger.With().Str("component", "db").Logger()})
	// One writer is all SQLite supports; the run never needs more.
	raw.SetMaxOpenConns(1)

	db := sqlx.NewDb(raw, sqliteDriver)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) MediaExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM media WHERE id = ?)`, id)
	if err != nil {
		return false, fmt.Errorf("MediaExists: %w", err)
	}
	return exists, nil
}

func (s *SQLite) InsertMedia(ctx context.Context, rec *models.MediaRecord) (bool, error) {
	res, err := s.db.NamedExecContext(ctx,
		`INSERT OR IGNORE INTO media (`+mediaColumns+`)
		 VALUES (:id, :location_id, :duration_seconds, :timestamp, :title,
		         :preview_path, :media_path, :overlay_path, :overlay_text)`,
		rec,
	)
	if err != nil {
		return false, fmt.Errorf("InsertMedia: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("InsertMedia rows: %w", err)
	}
	return n == 1, nil
}

func (s *SQLite) GetMedia(ctx context.Context, id string) (*models.MediaRecord, error) {
	var rec models.MediaRecord
	err := s.db.GetContext(ctx, &rec, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetMedia: %w", err)
	}
	return &rec, nil
}

func (s *SQLite) CountMedia(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM media`); err != nil {
		return 0, fmt.Errorf("CountMedia: %w", err)
	}
	return n, nil
}

// sqlLogger forwards sqldb-logger events to zerolog.
type sqlLogger struct {
	logger zerolog.Logger
}

func (l *sqlLogger) Log(_ context.Context, level sqldblogger.Level, msg string, data map[string]interface{}) {
	var evt *zerolog.Event
	switch level {
	case sqldblogger.LevelError:
		evt = l.logger.Error()
	case sqldblogger.LevelTrace:
		evt = l.logger.Trace()
	default:
		evt = l.logger.Debug()
	}
	evt.Fields(data).Msg(msg)
}
