// Package report persists a machine-readable summary of each run next to
// the weekly log. One YAML document per run, appended to the week's report
// file, so a week of cron runs reads as a single stream.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"periodic-backup-sync/internal/engine"
	"periodic-backup-sync/internal/period"
)

// FileName returns the report file name for the calendar week containing
// the given instant, e.g. "2025-week-20.report.yaml".
func FileName(now time.Time) string {
	return period.WeekValue(now) + ".report.yaml"
}

// Write appends the run summary to the weekly report file in logDir and
// returns the file path.
func Write(logDir string, now time.Time, result *engine.RunResult) (string, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create report directory %s: %w", logDir, err)
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("cannot marshal run report: %w", err)
	}

	path := filepath.Join(logDir, FileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("cannot open report file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "---\n%s", data); err != nil {
		return "", fmt.Errorf("cannot write report file %s: %w", path, err)
	}
	return path, nil
}
