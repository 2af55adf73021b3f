package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Backend ships artifacts to an Amazon S3 bucket. Credentials come from
// the default AWS chain (environment, shared credentials file, instance
// role).
type S3Backend struct {
	client s3iface.S3API
	bucket string
	prefix string
}

// NewS3Backend creates an S3 backend for the given configuration.
func NewS3Backend(cfg Config) (*S3Backend, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.S3Region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Backend{
		client: s3.New(sess),
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
	}, nil
}

// Name returns the backend identifier.
func (b *S3Backend) Name() string { return "s3" }

// Probe is a no-op: the HeadBucket call in Check is already the cheapest
// request the service offers.
func (b *S3Backend) Probe(ctx context.Context) error {
	return nil
}

// Check verifies the bucket exists and is accessible.
func (b *S3Backend) Check(ctx context.Context) error {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", b.bucket, err)
	}
	return nil
}

// EnsureArchiveDir is a no-op: S3 has no directories, the archive/ segment
// exists implicitly in every object key.
func (b *S3Backend) EnsureArchiveDir(ctx context.Context) error {
	return nil
}

// Upload stores the artifact under <prefix>/archive/<name>.
func (b *S3Backend) Upload(ctx context.Context, artifactPath string) error {
	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("cannot open artifact %s: %w", artifactPath, err)
	}
	defer f.Close()

	key := archiveKey(b.prefix, filepath.Base(artifactPath))
	_, err = b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to s3://%s/%s: %w",
			filepath.Base(artifactPath), b.bucket, key, err)
	}
	return nil
}
