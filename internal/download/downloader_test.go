package download

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/heatvault/internal/models"
	"github.com/voyagen/heatvault/internal/retry"
)

type recordingOpener struct {
	mu    sync.Mutex
	files []string
}

func (o *recordingOpener) Open(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files = append(o.files, path)
}

func testPolicy() retry.Policy {
	return retry.Policy{Attempts: 3, Delay: time.Millisecond, Retryable: retry.IsTransient}
}

func newAssetServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/missing.jpg":
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = io.WriteString(w, "content of "+r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownload_WritesAllAssets(t *testing.T) {
	var hits int32
	srv := newAssetServer(t, &hits)
	dir := filepath.Join(t.TempDir(), "media")
	op := &recordingOpener{}
	d := New(dir, srv.Client(), testPolicy(), op, zerolog.Nop())

	paths, err := d.Download(context.Background(), "abc123", models.Assets{
		PreviewURL: srv.URL + "/p.jpg",
		MediaURL:   srv.URL + "/v.mp4",
		OverlayURL: srv.URL + "/o.png",
	})
	require.NoError(t, err)

	require.NotNil(t, paths.Media)
	require.NotNil(t, paths.Preview)
	require.NotNil(t, paths.Overlay)
	assert.Equal(t, filepath.Join(dir, "abc123.mp4"), *paths.Media)
	assert.Equal(t, filepath.Join(dir, "abc123.jpg"), *paths.Preview)
	assert.Equal(t, filepath.Join(dir, "abc123_overlay.png"), *paths.Overlay)

	data, err := os.ReadFile(*paths.Media)
	require.NoError(t, err)
	assert.Equal(t, "content of /v.mp4", string(data))

	assert.Equal(t, []string{*paths.Media, *paths.Preview, *paths.Overlay}, op.files)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))

	_, err = os.Stat(*paths.Media + partSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestDownload_OnlyRequestedAssets(t *testing.T) {
	var hits int32
	srv := newAssetServer(t, &hits)
	d := New(t.TempDir(), srv.Client(), testPolicy(), nil, zerolog.Nop())

	paths, err := d.Download(context.Background(), "pub1", models.Assets{PreviewURL: srv.URL + "/p.jpg"})
	require.NoError(t, err)
	assert.NotNil(t, paths.Preview)
	assert.Nil(t, paths.Media)
	assert.Nil(t, paths.Overlay)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDownload_ExistingFileSkipsRequest(t *testing.T) {
	var hits int32
	srv := newAssetServer(t, &hits)
	dir := t.TempDir()
	op := &recordingOpener{}
	d := New(dir, srv.Client(), testPolicy(), op, zerolog.Nop())

	existing := filepath.Join(dir, "abc123.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0o644))

	paths, err := d.Download(context.Background(), "abc123", models.Assets{MediaURL: srv.URL + "/v.mp4"})
	require.NoError(t, err)
	require.NotNil(t, paths.Media)
	assert.Equal(t, existing, *paths.Media)
	assert.Zero(t, atomic.LoadInt32(&hits))
	assert.Empty(t, op.files)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestDownload_FailureKeepsOtherPaths(t *testing.T) {
	var hits int32
	srv := newAssetServer(t, &hits)
	dir := t.TempDir()
	op := &recordingOpener{}
	d := New(dir, srv.Client(), testPolicy(), op, zerolog.Nop())

	paths, err := d.Download(context.Background(), "abc123", models.Assets{
		PreviewURL: srv.URL + "/missing.jpg",
		MediaURL:   srv.URL + "/v.mp4",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abc123.jpg")

	assert.NotNil(t, paths.Media)
	assert.Nil(t, paths.Preview)
	// one media request plus three attempts at the preview
	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))
	assert.Equal(t, []string{filepath.Join(dir, "abc123.mp4")}, op.files)

	_, statErr := os.Stat(filepath.Join(dir, "abc123.jpg"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownload_RetriesTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	d := New(t.TempDir(), srv.Client(), testPolicy(), nil, zerolog.Nop())
	paths, err := d.Download(context.Background(), "r1", models.Assets{MediaURL: srv.URL + "/v.mp4"})
	require.NoError(t, err)
	require.NotNil(t, paths.Media)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDownload_NoAssetsStillCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "media")
	d := New(dir, nil, testPolicy(), nil, zerolog.Nop())

	paths, err := d.Download(context.Background(), "x", models.Assets{})
	require.NoError(t, err)
	assert.Equal(t, Paths{}, paths)
	assert.DirExists(t, dir)
}

func TestDownload_StatErrorIsNotTreatedAsMissing(t *testing.T) {
	var hits int32
	srv := newAssetServer(t, &hits)

	// A regular file used as a parent makes stat fail with ENOTDIR.
	notADir := filepath.Join(t.TempDir(), "media")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0o644))
	d := New(notADir, srv.Client(), testPolicy(), nil, zerolog.Nop())

	err := d.fetchFile(context.Background(), d.PreviewFile("abc123"), srv.URL+"/p.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat abc123.jpg")
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestDownload_RejectsUnsafeID(t *testing.T) {
	d := New(t.TempDir(), nil, testPolicy(), nil, zerolog.Nop())
	for _, id := range []string{"", "..", "../etc", `a\b`} {
		_, err := d.Download(context.Background(), id, models.Assets{MediaURL: "http://unused"})
		assert.Error(t, err, id)
	}
}

func TestFileNames(t *testing.T) {
	d := New("media", nil, testPolicy(), nil, zerolog.Nop())
	assert.Equal(t, filepath.Join("media", "id1.mp4"), d.MediaFile("id1"))
	assert.Equal(t, filepath.Join("media", "id1.jpg"), d.PreviewFile("id1"))
	assert.Equal(t, filepath.Join("media", "id1_overlay.png"), d.OverlayFile("id1"))
	assert.Equal(t, "media", d.Dir())
}
