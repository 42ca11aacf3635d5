package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyagen/heatvault/internal/models"
)

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) MediaExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM media WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("MediaExists: %w", err)
	}
	return exists, nil
}

// InsertMedia inserts the record; an existing id is left untouched.
func (p *Postgres) InsertMedia(ctx context.Context, rec *models.MediaRecord) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO media (`+mediaColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.LocationID, rec.DurationSeconds, rec.Timestamp, rec.Title,
		rec.PreviewPath, rec.MediaPath, rec.OverlayPath, rec.OverlayText,
	)
	if err != nil {
		return false, fmt.Errorf("InsertMedia: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) GetMedia(ctx context.Context, id string) (*models.MediaRecord, error) {
	var rec models.MediaRecord
	err := p.pool.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id).Scan(
		&rec.ID, &rec.LocationID, &rec.DurationSeconds, &rec.Timestamp, &rec.Title,
		&rec.PreviewPath, &rec.MediaPath, &rec.OverlayPath, &rec.OverlayText,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetMedia: %w", err)
	}
	return &rec, nil
}

func (p *Postgres) CountMedia(ctx context.Context) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM media`).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountMedia: %w", err)
	}
	return n, nil
}
