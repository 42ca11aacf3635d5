package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Defaults used when neither environment nor file sets a value.
const (
	DefaultDatabaseURL = "sql/test.db"
	DefaultMediaDir    = "media"
	DefaultAPIBaseURL  = "https://ms.sc-jpl.com"
	DefaultUserAgent   = "HeatVault/1.0"
	DefaultTimeout     = 30 * time.Second
	DefaultBucket      = "harvest"
	DefaultRegion      = "us-east-1"
)

// ErrIncompleteMirror is returned when a mirror endpoint is set without credentials.
var ErrIncompleteMirror = errors.New("MIRROR_ENDPOINT requires MIRROR_ACCESS_KEY and MIRROR_SECRET_KEY")

// Config holds application configuration.
type Config struct {
	DatabaseURL   string        `yaml:"database_url" env:"DATABASE_URL"`
	MediaDir      string        `yaml:"media_dir" env:"MEDIA_DIR"`
	APIBaseURL    string        `yaml:"api_base_url" env:"API_BASE_URL"`
	UserAgent     string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout       time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
	OpenDownloads bool          `yaml:"open_downloads" env:"HARVEST_OPEN_DOWNLOADS"`
	RedisURL      string        `yaml:"redis_url" env:"REDIS_URL"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
	LogOutput string `yaml:"log_output" env:"LOG_OUTPUT"`

	Mirror MirrorConfig `yaml:"mirror"`
}

// MirrorConfig is the optional S3-compatible copy of downloaded assets.
// Mirroring is off while Endpoint is empty.
type MirrorConfig struct {
	Endpoint  string `yaml:"endpoint" env:"MIRROR_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"MIRROR_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"MIRROR_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"MIRROR_BUCKET"`
	Region    string `yaml:"region" env:"MIRROR_REGION"`
	UseSSL    bool   `yaml:"use_ssl" env:"MIRROR_USE_SSL"`
}

// Enabled reports whether mirroring is configured.
func (m MirrorConfig) Enabled() bool {
	return m.Endpoint != ""
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		DatabaseURL:   DefaultDatabaseURL,
		MediaDir:      DefaultMediaDir,
		APIBaseURL:    DefaultAPIBaseURL,
		UserAgent:     DefaultUserAgent,
		Timeout:       DefaultTimeout,
		OpenDownloads: true,
		LogLevel:      "info",
		LogFormat:     "console",
		LogOutput:     "stdout",
		Mirror: MirrorConfig{
			Bucket: DefaultBucket,
			Region: DefaultRegion,
		},
	}
}

// Load builds config from environment variables. Values missing from the
// environment are taken from .env.local and .env when present, then from
// the defaults.
func Load() (*Config, error) {
	loadEnvFiles()

	c := Default()
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.MediaDir, "MEDIA_DIR")
	setString(&c.APIBaseURL, "API_BASE_URL")
	setString(&c.UserAgent, "FETCHER_USER_AGENT")
	setDuration(&c.Timeout, "FETCHER_TIMEOUT")
	setBool(&c.OpenDownloads, "HARVEST_OPEN_DOWNLOADS")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.LogOutput, "LOG_OUTPUT")
	setString(&c.Mirror.Endpoint, "MIRROR_ENDPOINT")
	setString(&c.Mirror.AccessKey, "MIRROR_ACCESS_KEY")
	setString(&c.Mirror.SecretKey, "MIRROR_SECRET_KEY")
	setString(&c.Mirror.Bucket, "MIRROR_BUCKET")
	setString(&c.Mirror.Region, "MIRROR_REGION")
	setBool(&c.Mirror.UseSSL, "MIRROR_USE_SSL")

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	if c.Mirror.Enabled() && (c.Mirror.AccessKey == "" || c.Mirror.SecretKey == "") {
		return ErrIncompleteMirror
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			*dst = d
		}
	}
}

func setBool(dst *bool, key string) {
	if s := os.Getenv(key); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			*dst = b
		}
	}
}
