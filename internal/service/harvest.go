package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/voyagen/heatvault/internal/cache"
	"github.com/voyagen/heatvault/internal/download"
	"github.com/voyagen/heatvault/internal/fetcher"
	"github.com/voyagen/heatvault/internal/logging"
	"github.com/voyagen/heatvault/internal/models"
	"github.com/voyagen/heatvault/internal/store"
)

// Fixed query point. The harvester always watches this one location.
const (
	Latitude     = 39.095250
	Longitude    = -94.576120
	ZoomLevel    = 16
	RadiusMeters = 500.0 // about a mile across
	LocationID   = "0"
)

// runLockTTL is the lease of the run lock. It is renewed before every
// element, so it only has to outlast the slowest single element.
const runLockTTL = 10 * time.Minute

var (
	// ErrNoEpoch means the tileset response listed no HEAT epoch.
	ErrNoEpoch = errors.New("no HEAT tileset epoch")
	// ErrNoPlaylist means the playlist could not be fetched.
	ErrNoPlaylist = errors.New("playlist unavailable")
)

// API is the subset of the map API the harvester needs.
type API interface {
	LatestEpoch(ctx context.Context) (int64, error)
	FetchPlaylist(ctx context.Context, q fetcher.PlaylistQuery) (*fetcher.Playlist, error)
}

// Downloader stores an element's assets locally.
type Downloader interface {
	Download(ctx context.Context, id string, a models.Assets) (download.Paths, error)
}

// Uploader copies a record's files elsewhere.
type Uploader interface {
	UploadRecord(ctx context.Context, rec *models.MediaRecord) ([]string, error)
}

// Options are the optional collaborators of a Harvester.
type Options struct {
	// Redis enables the run lock and new-record events.
	Redis *cache.Redis
	// Mirror uploads the files of every new record.
	Mirror Uploader
	RunID  string
}

// Outcome is what processing one element led to.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeExisting
	OutcomeNew
)

// Summary counts the outcomes of one run.
type Summary struct {
	Elements         int
	Skipped          int
	Existing         int
	New              int
	DownloadFailures int
	// Recorded is the number of rows in the store after the run.
	Recorded int64
}

// Harvester runs epoch resolution, playlist fetch and per-element processing.
type Harvester struct {
	api       API
	downloads Downloader
	store     store.Store
	log       zerolog.Logger
	opts      Options
	lockTTL   time.Duration
}

// New creates a Harvester. The store handle is used for the whole run.
func New(api API, dl Downloader, s store.Store, logger zerolog.Logger, opts Options) *Harvester {
	if opts.RunID != "" {
		logger = logging.WithRunID(logger, opts.RunID)
	}
	return &Harvester{api: api, downloads: dl, store: s, log: logger, opts: opts, lockTTL: runLockTTL}
}

// Run performs one harvest. Elements are processed sequentially in manifest order.
func (h *Harvester) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	var lock *cache.Lock
	if h.opts.Redis != nil {
		var err error
		lock, err = cache.TryLock(ctx, h.opts.Redis, cache.RunLockKey, h.lockTTL)
		if err != nil {
			return sum, fmt.Errorf("run lock: %w", err)
		}
		defer lock.Unlock()
	}

	epoch, err := h.api.LatestEpoch(ctx)
	if err != nil {
		return sum, fmt.Errorf("resolve epoch: %w", err)
	}
	if epoch == 0 {
		return sum, ErrNoEpoch
	}
	h.log.Info().Int64("epoch", epoch).Msg("resolved tileset epoch")

	playlist, err := h.api.FetchPlaylist(ctx, fetcher.PlaylistQuery{
		Latitude:     Latitude,
		Longitude:    Longitude,
		ZoomLevel:    ZoomLevel,
		RadiusMeters: RadiusMeters,
		Epoch:        epoch,
	})
	if err != nil {
		return sum, fmt.Errorf("%w: %w", ErrNoPlaylist, err)
	}
	elements := playlist.Manifest.Elements
	h.log.Info().Int("elements", len(elements)).Msg("fetched playlist")

	for _, raw := range elements {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("harvest cancelled: %w", err)
		}
		if lock != nil {
			if err := lock.Extend(ctx); err != nil {
				return sum, fmt.Errorf("run lock: %w", err)
			}
		}
		outcome, dlFailed, err := h.processElement(ctx, raw)
		if err != nil {
			return sum, err
		}
		sum.Elements++
		if dlFailed {
			sum.DownloadFailures++
		}
		switch outcome {
		case OutcomeSkipped:
			sum.Skipped++
		case OutcomeExisting:
			sum.Existing++
		case OutcomeNew:
			sum.New++
		}
	}

	total, err := h.store.CountMedia(ctx)
	if err != nil {
		return sum, fmt.Errorf("count media: %w", err)
	}
	sum.Recorded = total

	h.log.Info().
		Int("elements", sum.Elements).
		Int("new", sum.New).
		Int("existing", sum.Existing).
		Int("skipped", sum.Skipped).
		Int("download_failures", sum.DownloadFailures).
		Int64("recorded_total", sum.Recorded).
		Msg("harvest complete")
	return sum, nil
}

// ProcessElement handles one raw manifest element. Only storage failures and
// cancellation are returned as errors; everything else is logged.
func (h *Harvester) ProcessElement(ctx context.Context, raw json.RawMessage) (Outcome, error) {
	outcome, _, err := h.processElement(ctx, raw)
	return outcome, err
}

func (h *Harvester) processElement(ctx context.Context, raw json.RawMessage) (Outcome, bool, error) {
	el, err := fetcher.ParseElement(raw)
	switch {
	case errors.Is(err, fetcher.ErrNoMedia):
		h.log.Warn().Str("element_id", el.ID).RawJSON("element", raw).Msg("unable to get media info")
		return OutcomeSkipped, false, nil
	case err != nil:
		h.log.Warn().Err(err).Str("element", string(raw)).Msg("unable to parse element")
		return OutcomeSkipped, false, nil
	}

	log := logging.WithElementID(h.log, el.ID)
	if u := el.Assets.OverlayURL; u != "" && !fetcher.OverlayIsPNG(u) {
		log.Warn().Str("overlay_url", u).Msg("overlay is not a png")
	}

	dlFailed := false
	paths, err := h.downloads.Download(ctx, el.ID, el.Assets)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeSkipped, false, fmt.Errorf("harvest cancelled: %w", ctx.Err())
		}
		dlFailed = true
		log.Warn().Err(err).Msg("download failed, recording available files")
	}

	exists, err := h.store.MediaExists(ctx, el.ID)
	if err != nil {
		return OutcomeSkipped, dlFailed, err
	}
	if exists {
		log.Debug().Msg("already recorded")
		return OutcomeExisting, dlFailed, nil
	}

	rec := &models.MediaRecord{
		ID:              el.ID,
		LocationID:      LocationID,
		DurationSeconds: el.Duration,
		Timestamp:       el.Timestamp,
		Title:           el.Title,
		PreviewPath:     paths.Preview,
		MediaPath:       paths.Media,
		OverlayPath:     paths.Overlay,
		OverlayText:     el.OverlayText,
	}
	inserted, err := h.store.InsertMedia(ctx, rec)
	if err != nil {
		return OutcomeSkipped, dlFailed, err
	}
	if !inserted {
		// Another writer recorded it between the check and the insert.
		return OutcomeExisting, dlFailed, nil
	}
	log.Info().Str("kind", el.Kind.String()).Msg("recorded new media")

	h.afterInsert(ctx, log, rec)
	return OutcomeNew, dlFailed, nil
}

// afterInsert runs the optional side effects of a new record. Failures are
// logged only.
func (h *Harvester) afterInsert(ctx context.Context, log zerolog.Logger, rec *models.MediaRecord) {
	if h.opts.Redis != nil {
		ev := cache.RecordEvent{RunID: h.opts.RunID, Record: *rec, RecordedAt: time.Now().UTC()}
		if err := cache.Publish(ctx, h.opts.Redis, cache.NewRecordsQueue, ev); err != nil {
			log.Warn().Err(err).Msg("publish record event")
		}
	}
	if h.opts.Mirror != nil {
		keys, err := h.opts.Mirror.UploadRecord(ctx, rec)
		if err != nil {
			log.Warn().Err(err).Msg("mirror upload")
		} else if len(keys) > 0 {
			log.Debug().Strs("keys", keys).Msg("mirrored")
		}
	}
}
