package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeeklyFileName(t *testing.T) {
	// 2025-05-12 is in ISO week 20.
	now := time.Date(2025, 5, 12, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-week-20.log", WeeklyFileName(now))
}

func TestNewLogger_WritesToWeeklyFile(t *testing.T) {
	logDir := t.TempDir()
	now := time.Date(2025, 5, 12, 10, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	logger, err := NewLogger(Config{
		Level:  LogLevelNormal,
		Output: &buf,
		LogDir: logDir,
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("backup run started")

	logPath := filepath.Join(logDir, "2025-week-20.log")
	assert.Equal(t, logPath, logger.FilePath())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "backup run started")

	// Echoed live as well as appended to the file.
	assert.Contains(t, buf.String(), "backup run started")
}

func TestNewLogger_AppendsAcrossInstances(t *testing.T) {
	logDir := t.TempDir()
	now := time.Date(2025, 5, 12, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	for _, msg := range []string{"first run", "second run"} {
		var buf bytes.Buffer
		logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, LogDir: logDir, Now: clock})
		require.NoError(t, err)
		logger.Info(msg)
		require.NoError(t, logger.Close())
	}

	data, err := os.ReadFile(filepath.Join(logDir, "2025-week-20.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "first run")
	assert.Contains(t, string(data), "second run")
}

func TestNewLogger_CreatesLogDir(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "nested", "logs")

	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &bytes.Buffer{}, LogDir: logDir})
	require.NoError(t, err)
	defer logger.Close()

	info, err := os.Stat(logDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLogger_QuietSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelQuiet, Output: &buf})
	require.NoError(t, err)

	logger.Info("should not appear")
	logger.Error("should appear")

	assert.NotContains(t, buf.String(), "should not appear")
	assert.Contains(t, buf.String(), "should appear")
}
