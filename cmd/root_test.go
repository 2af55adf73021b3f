package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"periodic-backup-sync/internal/config"
	"periodic-backup-sync/internal/logging"
)

func TestLogLevel(t *testing.T) {
	defer func() { verbose, quiet = false, false }()

	verbose, quiet = false, false
	assert.Equal(t, logging.LogLevelNormal, logLevel())

	verbose = true
	assert.Equal(t, logging.LogLevelVerbose, logLevel())

	verbose, quiet = false, true
	assert.Equal(t, logging.LogLevelQuiet, logLevel())
}

func TestSampleConfig_LoadsAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "weeks", cfg.BackupPeriod)
	assert.Equal(t, []string{"/data/projects", "/data/notes"}, cfg.SourceDirs)
	assert.Equal(t, config.BackendSSH, cfg.RemoteBackend)
	assert.True(t, cfg.RemoteRequired)
}
