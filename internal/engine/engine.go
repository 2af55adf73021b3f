// Package engine implements the backup lifecycle: lock, preflight, period
// resolution, source sync, rotation and transfer. One Run call is one
// complete pass; scheduling is the operator's business (cron, systemd
// timers).
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"periodic-backup-sync/internal/config"
	"periodic-backup-sync/internal/display"
	"periodic-backup-sync/internal/logging"
	"periodic-backup-sync/internal/period"
)

// Staging subdirectory names inside a period directory.
const (
	repositoriesDir      = "repositories"
	archivedResourcesDir = "archived_resources"
)

// Engine drives one backup run.
type Engine struct {
	cfg     *config.Config
	log     *logging.Logger
	console *display.Console
	caps    Capability

	now      func() time.Time
	diskFree func(path string) (uint64, error)
}

// New creates an engine with production defaults for clock and disk probing.
func New(cfg *config.Config, log *logging.Logger, console *display.Console, caps Capability) *Engine {
	return &Engine{
		cfg:      cfg,
		log:      log,
		console:  console,
		caps:     caps,
		now:      time.Now,
		diskFree: diskFreeBytes,
	}
}

// SourceResult records the outcome of syncing one source directory.
type SourceResult struct {
	Path   string `yaml:"path"`
	Kind   string `yaml:"kind"`   // repository or tree
	Status string `yaml:"status"` // synced, skipped, failed
	Detail string `yaml:"detail,omitempty"`
}

// ArchiveResult records the outcome of rotating one completed period.
type ArchiveResult struct {
	Period   string `yaml:"period"`
	Artifact string `yaml:"artifact"`
	Status   string `yaml:"status"` // transferred, retained, failed
	Detail   string `yaml:"detail,omitempty"`
}

// Source and archive statuses.
const (
	StatusSynced      = "synced"
	StatusSkipped     = "skipped"
	StatusFailed      = "failed"
	StatusTransferred = "transferred"
	StatusRetained    = "retained"
)

// RunResult summarizes one complete run for the console, the exit code and
// the run report.
type RunResult struct {
	RunID           string          `yaml:"run_id"`
	Period          string          `yaml:"period"`
	RemoteAvailable bool            `yaml:"remote_available"`
	Sources         []SourceResult  `yaml:"sources"`
	Archives        []ArchiveResult `yaml:"archives,omitempty"`
	StartedAt       time.Time       `yaml:"started_at"`
	FinishedAt      time.Time       `yaml:"finished_at"`
}

// FailureCount returns the number of recoverable failures the run absorbed.
func (r *RunResult) FailureCount() int {
	n := 0
	for _, s := range r.Sources {
		if s.Status == StatusFailed {
			n++
		}
	}
	for _, a := range r.Archives {
		if a.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Run executes one backup pass. A returned error is fatal and means the run
// aborted; recoverable failures are absorbed into the result. The result is
// non-nil whenever the run got past preflight.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.New().String(),
		StartedAt: e.now(),
	}

	e.log.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"period": e.cfg.BackupPeriod,
	}).Info("backup run starting")

	lock, err := AcquireLock(e.cfg.LocalBackupDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	stop := lock.ReleaseOnSignal(func(sig os.Signal) {
		e.log.Errorf("received %s, lock released, aborting", sig)
		os.Exit(1)
	})
	defer stop()

	pf, err := e.preflight(ctx)
	if err != nil {
		return nil, err
	}
	result.RemoteAvailable = pf.RemoteAvailable
	e.log.WithFields(map[string]interface{}{
		"remote_available": pf.RemoteAvailable,
		"required_bytes":   pf.RequiredSpace,
		"available_bytes":  pf.AvailableSpace,
	}).Info("preflight passed")

	tag := period.Resolve(e.now(), period.FromConfig(e.cfg.BackupPeriod))
	result.Period = tag.String()
	e.console.Info("current period: %s", tag)

	staging, err := e.ensureStaging(tag)
	if err != nil {
		return nil, err
	}

	result.Sources = e.syncSources(ctx, staging, pf.MissingSources)
	result.Archives = e.rotate(ctx, tag, pf.RemoteAvailable)

	result.FinishedAt = e.now()
	e.log.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"failures": result.FailureCount(),
		"duration": result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("backup run finished")

	return result, nil
}

// ensureStaging creates the period directory with its two staging subtrees.
func (e *Engine) ensureStaging(tag period.Tag) (string, error) {
	staging := filepath.Join(e.cfg.LocalBackupDir, tag.String())
	for _, sub := range []string{repositoriesDir, archivedResourcesDir} {
		if err := os.MkdirAll(filepath.Join(staging, sub), 0o755); err != nil {
			return "", fmt.Errorf("cannot create staging directory %s: %w", staging, err)
		}
	}
	return staging, nil
}
