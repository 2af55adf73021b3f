// Package config loads the backup engine's configuration from an optional
// YAML file plus environment variables. The configuration format is plumbing
// around the engine: the engine only ever sees the resolved Config struct.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Remote backend identifiers.
const (
	BackendSSH = "ssh"
	BackendS3  = "s3"
	BackendGCS = "gcs"
)

// Config holds the resolved configuration for one backup run.
type Config struct {
	LogDir         string   `mapstructure:"log_dir"`
	LocalBackupDir string   `mapstructure:"local_backup_dir"`
	TempDir        string   `mapstructure:"temp_dir"`
	SourceDirs     []string `mapstructure:"source_dirs"`

	RemoteHost    string `mapstructure:"remote_host"`
	RemoteUser    string `mapstructure:"remote_user"`
	RemotePort    int    `mapstructure:"remote_port"`
	RemoteDestDir string `mapstructure:"remote_dest_dir"`
	RemoteBackend string `mapstructure:"remote_backend"`

	// RemoteRequired controls the preflight policy: when true (default) a
	// failed remote handshake aborts the run; when false the run degrades
	// to local-only and completed periods are retained for a later run.
	RemoteRequired bool `mapstructure:"remote_required"`

	BackupPeriod       string `mapstructure:"backup_period"`
	IgnoreSpecialFiles bool   `mapstructure:"ignore_special_files"`
	Compression        string `mapstructure:"compression"`

	S3Bucket string `mapstructure:"s3_bucket"`
	S3Region string `mapstructure:"s3_region"`
	S3Prefix string `mapstructure:"s3_prefix"`

	GCSBucket          string `mapstructure:"gcs_bucket"`
	GCSCredentialsFile string `mapstructure:"gcs_credentials_file"`
	GCSPrefix          string `mapstructure:"gcs_prefix"`
}

// environment variable names for each configuration key
var envBindings = map[string]string{
	"log_dir":              "LOG_DIR",
	"local_backup_dir":     "LOCAL_BACKUP_DIR",
	"temp_dir":             "TEMP_DIR",
	"source_dirs":          "SOURCE_DIRS",
	"remote_host":          "REMOTE_HOST",
	"remote_user":          "REMOTE_USER",
	"remote_port":          "REMOTE_PORT",
	"remote_dest_dir":      "REMOTE_DEST_DIR",
	"remote_backend":       "REMOTE_BACKEND",
	"remote_required":      "REMOTE_REQUIRED",
	"backup_period":        "BACKUP_PERIOD",
	"ignore_special_files": "IGNORE_SPECIAL_FILES",
	"compression":          "COMPRESSION",
	"s3_bucket":            "S3_BUCKET",
	"s3_region":            "S3_REGION",
	"s3_prefix":            "S3_PREFIX",
	"gcs_bucket":           "GCS_BUCKET",
	"gcs_credentials_file": "GCS_CREDENTIALS_FILE",
	"gcs_prefix":           "GCS_PREFIX",
}

// Load reads configuration from the given file (optional; "" means
// environment only) and the environment. Environment values override file
// values.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("temp_dir", os.TempDir())
	v.SetDefault("remote_port", 22)
	v.SetDefault("remote_backend", BackendSSH)
	v.SetDefault("remote_required", true)
	v.SetDefault("backup_period", "days")
	v.SetDefault("compression", "gzip")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.SourceDirs = normalizeSourceDirs(cfg.SourceDirs)

	return &cfg, nil
}

// normalizeSourceDirs splits list values that arrived as a single delimited
// string (the environment variable form) and drops empty entries.
func normalizeSourceDirs(dirs []string) []string {
	var out []string
	for _, d := range dirs {
		for _, part := range strings.FieldsFunc(d, func(r rune) bool {
			return r == ':' || r == ',' || r == '\n'
		}) {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports the first missing mandatory option. The error text names
// the option so the operator can fix the environment without reading code.
func (c *Config) Validate() error {
	if c.LogDir == "" {
		return fmt.Errorf("LOG_DIR is required")
	}
	if c.LocalBackupDir == "" {
		return fmt.Errorf("LOCAL_BACKUP_DIR is required")
	}
	if c.TempDir == "" {
		return fmt.Errorf("TEMP_DIR is required")
	}
	if len(c.SourceDirs) == 0 {
		return fmt.Errorf("SOURCE_DIRS is required")
	}

	switch c.RemoteBackend {
	case BackendSSH:
		if c.RemoteHost == "" {
			return fmt.Errorf("REMOTE_HOST is required for the ssh backend")
		}
		if c.RemoteDestDir == "" {
			return fmt.Errorf("REMOTE_DEST_DIR is required for the ssh backend")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 backend")
		}
		if c.S3Region == "" {
			return fmt.Errorf("S3_REGION is required for the s3 backend")
		}
	case BackendGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unsupported remote backend: %s", c.RemoteBackend)
	}

	switch c.Compression {
	case "gzip", "zstd", "lz4":
	default:
		return fmt.Errorf("unsupported compression codec: %s", c.Compression)
	}

	return nil
}
