// Package download stores an element's assets under the media directory.
// A file that already exists is never fetched again.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/voyagen/heatvault/internal/models"
	"github.com/voyagen/heatvault/internal/opener"
	"github.com/voyagen/heatvault/internal/retry"
)

const (
	chunkSize  = 8192
	partSuffix = ".part"
)

// Paths are the local files of one element. A nil field means the asset was
// not requested or could not be stored.
type Paths struct {
	Preview *string
	Media   *string
	Overlay *string
}

// Downloader fetches asset URLs into Dir.
type Downloader struct {
	dir    string
	client *http.Client
	policy retry.Policy
	opener opener.Opener
	log    zerolog.Logger
}

// New creates a Downloader. A nil client uses http.DefaultClient and a nil
// opener disables opening downloaded files.
func New(dir string, client *http.Client, policy retry.Policy, op opener.Opener, logger zerolog.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if op == nil {
		op = opener.Nop{}
	}
	return &Downloader{dir: dir, client: client, policy: policy, opener: op, log: logger}
}

// Dir returns the media directory.
func (d *Downloader) Dir() string { return d.dir }

// MediaFile, PreviewFile and OverlayFile return the deterministic local names.
func (d *Downloader) MediaFile(id string) string {
	return filepath.Join(d.dir, id+models.MediaExt)
}

func (d *Downloader) PreviewFile(id string) string {
	return filepath.Join(d.dir, id+models.PreviewExt)
}

func (d *Downloader) OverlayFile(id string) string {
	return filepath.Join(d.dir, id+models.OverlaySuffix)
}

// Download stores media, preview and overlay in that order. Every asset is
// attempted; the returned error joins the failures and Paths holds whatever
// is on disk.
func (d *Downloader) Download(ctx context.Context, id string, a models.Assets) (Paths, error) {
	var paths Paths
	if err := validID(id); err != nil {
		return paths, err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return paths, fmt.Errorf("create media dir: %w", err)
	}
	if a.Empty() {
		return paths, nil
	}

	jobs := []struct {
		url  string
		file string
		dst  **string
	}{
		{a.MediaURL, d.MediaFile(id), &paths.Media},
		{a.PreviewURL, d.PreviewFile(id), &paths.Preview},
		{a.OverlayURL, d.OverlayFile(id), &paths.Overlay},
	}

	var errs []error
	for _, job := range jobs {
		if job.url == "" {
			continue
		}
		if err := d.fetchFile(ctx, job.file, job.url); err != nil {
			errs = append(errs, err)
			continue
		}
		file := job.file
		*job.dst = &file
	}
	return paths, errors.Join(errs...)
}

// fetchFile downloads url to file unless file already exists. The body is
// written to a .part file and renamed once complete, so an interrupted
// transfer is never mistaken for a finished one.
func (d *Downloader) fetchFile(ctx context.Context, file, url string) error {
	_, err := os.Stat(file)
	switch {
	case err == nil:
		d.log.Debug().Str("file", file).Msg("already downloaded")
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat %s: %w", filepath.Base(file), err)
	}

	policy := d.policy
	policy.OnRetry = func(err error, attempt int, wait time.Duration) {
		d.log.Warn().Err(err).Str("file", file).Int("attempt", attempt).
			Dur("wait", wait).Msg("download failed, retrying")
	}
	err = retry.Do(ctx, policy, func() error {
		return d.stream(ctx, file, url)
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", filepath.Base(file), err)
	}
	d.log.Info().Str("file", file).Msg("downloaded")
	d.opener.Open(file)
	return nil
}

func (d *Downloader) stream(ctx context.Context, file, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("NewRequest: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()
	if err := retry.CheckStatus(resp.StatusCode, url); err != nil {
		return err
	}

	part := file + partSuffix
	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(f, resp.Body, buf); err != nil {
		f.Close()
		os.Remove(part)
		return fmt.Errorf("write: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(part, file); err != nil {
		os.Remove(part)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// validID rejects identifiers that would escape the media directory.
func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid element id %q", id)
	}
	return nil
}
