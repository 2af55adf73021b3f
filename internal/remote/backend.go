// Package remote implements the destinations a rotation artifact can be
// shipped to. Every backend answers the same three questions: is the remote
// reachable, does the archive directory exist, and can this artifact be
// uploaded into it.
package remote

import (
	"context"
	"fmt"
	"strings"
)

// Backend abstracts a remote destination for rotation artifacts.
type Backend interface {
	// Name returns the backend identifier ("ssh", "s3", "gcs").
	Name() string

	// Probe is a lightweight, best-effort reachability test run before
	// the handshake. A probe failure is advisory only.
	Probe(ctx context.Context) error

	// Check performs the preflight handshake. An error here means the
	// remote is unreachable; the engine decides whether that is fatal.
	Check(ctx context.Context) error

	// EnsureArchiveDir creates the archive destination if it does not
	// exist yet. Called once per run, before the first upload.
	EnsureArchiveDir(ctx context.Context) error

	// Upload ships a local artifact file into the archive destination,
	// keyed by its base name.
	Upload(ctx context.Context, artifactPath string) error
}

// Config carries the connection settings for all backend types. Only the
// fields of the selected backend are used.
type Config struct {
	Backend string

	// ssh
	Host    string
	User    string
	Port    int
	DestDir string

	// s3
	S3Bucket string
	S3Region string
	S3Prefix string

	// gcs
	GCSBucket          string
	GCSCredentialsFile string
	GCSPrefix          string
}

// NewBackend creates the backend named by cfg.Backend.
func NewBackend(cfg Config) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "ssh", "":
		return NewSSHBackend(cfg), nil
	case "s3":
		return NewS3Backend(cfg)
	case "gcs":
		return NewGCSBackend(cfg)
	default:
		return nil, fmt.Errorf("unsupported remote backend: %s", cfg.Backend)
	}
}

// archiveKey joins an optional prefix, the fixed archive directory and the
// artifact name into an object key.
func archiveKey(prefix, name string) string {
	key := "archive/" + name
	if prefix != "" {
		key = strings.TrimSuffix(prefix, "/") + "/" + key
	}
	return key
}
