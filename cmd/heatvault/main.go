package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/voyagen/heatvault/internal/cache"
	"github.com/voyagen/heatvault/internal/config"
	"github.com/voyagen/heatvault/internal/download"
	"github.com/voyagen/heatvault/internal/fetcher"
	"github.com/voyagen/heatvault/internal/logging"
	"github.com/voyagen/heatvault/internal/mirror"
	"github.com/voyagen/heatvault/internal/opener"
	"github.com/voyagen/heatvault/internal/retry"
	"github.com/voyagen/heatvault/internal/service"
	"github.com/voyagen/heatvault/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use environment")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	base, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})
	if err != nil {
		fmt.Fprintf(os.Stderr, "log: %v\n", err)
		return 1
	}
	runID := uuid.NewString()
	logger := logging.WithRunID(base, runID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Error().Err(err).Msg("migrate")
		return 1
	}
	db, err := store.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error().Err(err).Msg("db")
		return 1
	}
	defer db.Close()

	opts := service.Options{RunID: runID}
	var appStore store.Store = db
	if cfg.RedisURL != "" {
		rds, err := cache.New(cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("redis")
			return 1
		}
		defer rds.Close()
		if err := rds.Ping(ctx); err != nil {
			logger.Error().Err(err).Msg("redis ping")
			return 1
		}
		appStore = store.NewCachedStore(db, rds, logger)
		opts.Redis = rds
		logger.Info().Msg("redis connected (run lock and record events enabled)")
	} else {
		logger.Debug().Msg("redis disabled (REDIS_URL not set)")
	}

	if cfg.Mirror.Enabled() {
		m, err := mirror.New(ctx, mirror.Config{
			Endpoint:        cfg.Mirror.Endpoint,
			AccessKeyID:     cfg.Mirror.AccessKey,
			SecretAccessKey: cfg.Mirror.SecretKey,
			BucketName:      cfg.Mirror.Bucket,
			Region:          cfg.Mirror.Region,
			UseSSL:          cfg.Mirror.UseSSL,
		})
		if err != nil {
			logger.Error().Err(err).Msg("mirror")
			return 1
		}
		opts.Mirror = m
		logger.Info().Str("bucket", cfg.Mirror.Bucket).Msg("mirroring enabled")
	}

	var op opener.Opener = opener.Nop{}
	if cfg.OpenDownloads {
		op = opener.NewSystem()
	}

	policy := retry.Default()
	policy.OnRetry = func(err error, attempt int, wait time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("request failed, retrying")
	}
	api := fetcher.NewClient(cfg.APIBaseURL, cfg.UserAgent, cfg.Timeout, policy)
	// Asset downloads stream for as long as the body lasts; no client timeout.
	dl := download.New(cfg.MediaDir, &http.Client{}, retry.Default(), op, logger)
	logger.Info().Str("media_dir", dl.Dir()).Msg("starting harvest")

	// The harvester adds the run id itself.
	h := service.New(api, dl, appStore, base, opts)
	sum, err := h.Run(ctx)
	if err != nil {
		return fail(logger, err)
	}
	logger.Info().Int("new_records", sum.New).Int64("recorded_total", sum.Recorded).Msg("done")
	return 0
}

// fail prints the fatal diagnostic for err and returns the exit status.
func fail(logger zerolog.Logger, err error) int {
	switch {
	case errors.Is(err, service.ErrNoEpoch):
		logger.Error().Msg("error getting latest tile data")
	case errors.Is(err, service.ErrNoPlaylist):
		logger.Error().Err(err).Msg("error getting playlist response")
	case errors.Is(err, cache.ErrLocked):
		logger.Error().Msg("another harvest is already running")
	default:
		logger.Error().Err(err).Msg("harvest failed")
	}
	return 1
}
