package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		LogDir:         "/var/log/backup",
		LocalBackupDir: "/var/backups",
		TempDir:        "/tmp",
		SourceDirs:     []string{"/data/projects"},
		RemoteHost:     "backup.example.com",
		RemoteDestDir:  "/srv/backups",
		RemoteBackend:  BackendSSH,
		Compression:    "gzip",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 22, cfg.RemotePort)
	assert.Equal(t, BackendSSH, cfg.RemoteBackend)
	assert.True(t, cfg.RemoteRequired)
	assert.Equal(t, "days", cfg.BackupPeriod)
	assert.Equal(t, "gzip", cfg.Compression)
	assert.Equal(t, os.TempDir(), cfg.TempDir)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "backup.yaml")
	content := `log_dir: /var/log/backup
local_backup_dir: /var/backups
source_dirs:
  - /data/projects
  - /data/notes
remote_host: backup.example.com
remote_dest_dir: /srv/backups
backup_period: weeks
ignore_special_files: true
compression: zstd
`
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o644))

	cfg, err := Load(cfgFile)
	require.NoError(t, err)

	assert.Equal(t, "/var/log/backup", cfg.LogDir)
	assert.Equal(t, []string{"/data/projects", "/data/notes"}, cfg.SourceDirs)
	assert.Equal(t, "weeks", cfg.BackupPeriod)
	assert.True(t, cfg.IgnoreSpecialFiles)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LOG_DIR", "/env/logs")
	t.Setenv("SOURCE_DIRS", "/data/a:/data/b,/data/c")
	t.Setenv("REMOTE_PORT", "2222")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/env/logs", cfg.LogDir)
	assert.Equal(t, []string{"/data/a", "/data/b", "/data/c"}, cfg.SourceDirs)
	assert.Equal(t, 2222, cfg.RemotePort)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing log dir", func(c *Config) { c.LogDir = "" }, "LOG_DIR"},
		{"missing backup dir", func(c *Config) { c.LocalBackupDir = "" }, "LOCAL_BACKUP_DIR"},
		{"missing sources", func(c *Config) { c.SourceDirs = nil }, "SOURCE_DIRS"},
		{"ssh without host", func(c *Config) { c.RemoteHost = "" }, "REMOTE_HOST"},
		{"ssh without dest", func(c *Config) { c.RemoteDestDir = "" }, "REMOTE_DEST_DIR"},
		{"s3 without bucket", func(c *Config) { c.RemoteBackend = BackendS3 }, "S3_BUCKET"},
		{"gcs without bucket", func(c *Config) { c.RemoteBackend = BackendGCS }, "GCS_BUCKET"},
		{"unknown backend", func(c *Config) { c.RemoteBackend = "ftp" }, "unsupported remote backend"},
		{"unknown codec", func(c *Config) { c.Compression = "bzip2" }, "unsupported compression codec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeSourceDirs(t *testing.T) {
	assert.Equal(t,
		[]string{"/a", "/b", "/c"},
		normalizeSourceDirs([]string{"/a:/b", " /c "}))
	assert.Nil(t, normalizeSourceDirs([]string{"", "  "}))
}
