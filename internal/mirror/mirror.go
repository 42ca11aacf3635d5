// Package mirror copies harvested asset files to an S3-compatible bucket.
package mirror

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/voyagen/heatvault/internal/models"
)

// Config holds object storage settings.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// Mirror uploads local files to one bucket.
type Mirror struct {
	client     *minio.Client
	bucketName string
}

// New creates the client and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Mirror, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Mirror{client: client, bucketName: cfg.BucketName}, nil
}

// UploadRecord uploads every local file the record points at and returns the
// object keys written. It stops at the first failure.
func (m *Mirror) UploadRecord(ctx context.Context, rec *models.MediaRecord) ([]string, error) {
	var keys []string
	for _, p := range RecordFiles(rec) {
		key := ObjectKey(rec.LocationID, p)
		_, err := m.client.FPutObject(ctx, m.bucketName, key, p, minio.PutObjectOptions{
			ContentType: ContentType(p),
		})
		if err != nil {
			return keys, fmt.Errorf("failed to upload %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// RecordFiles lists the non-nil local paths of rec in media, preview, overlay order.
func RecordFiles(rec *models.MediaRecord) []string {
	var files []string
	for _, p := range []*string{rec.MediaPath, rec.PreviewPath, rec.OverlayPath} {
		if p != nil && *p != "" {
			files = append(files, *p)
		}
	}
	return files
}

// ObjectKey places a file under its location id.
func ObjectKey(locationID, filePath string) string {
	if locationID == "" {
		locationID = "unknown"
	}
	return path.Join(locationID, filepath.Base(filePath))
}

// ContentType maps the asset extensions this program writes.
func ContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
