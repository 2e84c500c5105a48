// Package export writes monthly ledger snapshots to Google Cloud Storage.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// Storage puts objects into a bucket.
type Storage interface {
	Upload(ctx context.Context, bucket, object, contentType string, data []byte) error
}

// GCSStorage is the Cloud Storage implementation of Storage.
type GCSStorage struct {
	client *storage.Client
}

// NewGCSStorage creates a client with Application Default Credentials unless
// opts say otherwise.
func NewGCSStorage(ctx context.Context, opts ...option.ClientOption) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStorage{client: client}, nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Upload writes data to gs://bucket/object, replacing any existing object.
func (s *GCSStorage) Upload(ctx context.Context, bucket, object, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", URI(bucket, object), err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload %s: %w", URI(bucket, object), err)
	}
	return nil
}

// URI renders a gs:// address.
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + strings.TrimPrefix(object, "/")
}

// BucketName accepts "name", "gs://name" or "gs://name/" and returns the bare name.
func BucketName(s string) string {
	return strings.Trim(strings.TrimPrefix(strings.TrimSpace(s), "gs://"), "/")
}

// Ensure GCSStorage implements Storage.
var _ Storage = (*GCSStorage)(nil)
