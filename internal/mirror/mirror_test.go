package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voyagen/heatvault/internal/models"
)

func TestContentType(t *testing.T) {
	tests := []struct {
		filePath string
		wantType string
	}{
		{"media/a.mp4", "video/mp4"},
		{"media/a.jpg", "image/jpeg"},
		{"media/a_overlay.png", "image/png"},
		{"media/A.JPG", "image/jpeg"},
		{"media/a.bin", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filePath, func(t *testing.T) {
			assert.Equal(t, tt.wantType, ContentType(tt.filePath))
		})
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "0/abc123.mp4", ObjectKey("0", "media/abc123.mp4"))
	assert.Equal(t, "unknown/x.jpg", ObjectKey("", "/tmp/media/x.jpg"))
}

func TestRecordFiles(t *testing.T) {
	media, preview, empty := "media/a.mp4", "media/a.jpg", ""
	rec := &models.MediaRecord{ID: "a", MediaPath: &media, PreviewPath: &preview, OverlayPath: &empty}
	assert.Equal(t, []string{media, preview}, RecordFiles(rec))
	assert.Empty(t, RecordFiles(&models.MediaRecord{ID: "b"}))
}
