package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBackend ships artifacts to a Google Cloud Storage bucket.
type GCSBackend struct {
	bucket   string
	prefix   string
	credFile string

	client *storage.Client
}

// NewGCSBackend creates a GCS backend for the given configuration. The
// client is created lazily on first use so construction never needs
// credentials.
func NewGCSBackend(cfg Config) (*GCSBackend, error) {
	return &GCSBackend{
		bucket:   cfg.GCSBucket,
		prefix:   cfg.GCSPrefix,
		credFile: cfg.GCSCredentialsFile,
	}, nil
}

// Name returns the backend identifier.
func (b *GCSBackend) Name() string { return "gcs" }

// Probe is a no-op: the bucket Attrs call in Check is already the cheapest
// request the service offers.
func (b *GCSBackend) Probe(ctx context.Context) error {
	return nil
}

func (b *GCSBackend) connect(ctx context.Context) (*storage.Client, error) {
	if b.client != nil {
		return b.client, nil
	}

	var opts []option.ClientOption
	if b.credFile != "" {
		opts = append(opts, option.WithCredentialsFile(b.credFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	b.client = client
	return client, nil
}

// Check verifies the bucket exists and is accessible.
func (b *GCSBackend) Check(ctx context.Context) error {
	client, err := b.connect(ctx)
	if err != nil {
		return err
	}
	if _, err := client.Bucket(b.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("gcs bucket %s not accessible: %w", b.bucket, err)
	}
	return nil
}

// EnsureArchiveDir is a no-op: GCS has no directories, the archive/ segment
// exists implicitly in every object name.
func (b *GCSBackend) EnsureArchiveDir(ctx context.Context) error {
	return nil
}

// Upload stores the artifact under <prefix>/archive/<name>.
func (b *GCSBackend) Upload(ctx context.Context, artifactPath string) error {
	client, err := b.connect(ctx)
	if err != nil {
		return err
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("cannot open artifact %s: %w", artifactPath, err)
	}
	defer f.Close()

	key := archiveKey(b.prefix, filepath.Base(artifactPath))
	w := client.Bucket(b.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/octet-stream"

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload %s to gs://%s/%s: %w",
			filepath.Base(artifactPath), b.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", b.bucket, key, err)
	}
	return nil
}
