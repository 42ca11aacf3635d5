package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/voyagen/heatvault/internal/cache"
	"github.com/voyagen/heatvault/internal/models"
)

// ttlMedia bounds how long a recorded id is remembered in Redis. Rows are
// never updated, so the cached copy cannot go stale.
const ttlMedia = 24 * time.Hour

// CachedStore wraps a Store with a Redis layer that remembers recorded rows.
// The inner store stays authoritative for existence checks. Redis failures
// are logged and the inner store answers instead.
type CachedStore struct {
	inner Store
	cache *cache.Redis
	log   zerolog.Logger
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis, logger zerolog.Logger) *CachedStore {
	return &CachedStore{inner: inner, cache: c, log: logger}
}

// MediaExists always asks the inner store. A Redis key is only a hint: one
// left behind by another database is dropped when the row is missing.
func (c *CachedStore) MediaExists(ctx context.Context, id string) (bool, error) {
	key := cache.MediaKey(id)
	hinted, err := cache.Exists(ctx, c.cache, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache: exists")
	}

	exists, err := c.inner.MediaExists(ctx, id)
	if err != nil {
		return false, err
	}
	switch {
	case exists && !hinted:
		if rec, err := c.inner.GetMedia(ctx, id); err == nil {
			c.remember(ctx, rec)
		}
	case !exists && hinted:
		if err := cache.Del(ctx, c.cache, key); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache: del")
		}
	}
	return exists, nil
}

func (c *CachedStore) InsertMedia(ctx context.Context, rec *models.MediaRecord) (bool, error) {
	inserted, err := c.inner.InsertMedia(ctx, rec)
	if err != nil {
		return false, err
	}
	if inserted {
		c.remember(ctx, rec)
	}
	return inserted, nil
}

func (c *CachedStore) GetMedia(ctx context.Context, id string) (*models.MediaRecord, error) {
	if v, err := cache.Get[models.MediaRecord](ctx, c.cache, cache.MediaKey(id)); err == nil {
		return &v, nil
	}
	rec, err := c.inner.GetMedia(ctx, id)
	if err != nil {
		return nil, err
	}
	c.remember(ctx, rec)
	return rec, nil
}

// --- passthrough (no caching) ---

func (c *CachedStore) CountMedia(ctx context.Context) (int64, error) {
	return c.inner.CountMedia(ctx)
}

// Close closes the inner store. The Redis client belongs to the caller.
func (c *CachedStore) Close() error {
	return c.inner.Close()
}

func (c *CachedStore) remember(ctx context.Context, rec *models.MediaRecord) {
	key := cache.MediaKey(rec.ID)
	if err := cache.Set(ctx, c.cache, key, rec, ttlMedia); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache: set")
	}
}
