package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// PreflightResult captures the decisions made before any mutation: whether
// the remote is usable this run and how the capacity check came out.
type PreflightResult struct {
	RemoteAvailable bool
	RequiredSpace   uint64
	AvailableSpace  uint64
	MissingSources  []string
}

// sourcesSize sums the sizes of all regular files under the given source
// directories. Missing sources are reported, not fatal; the sync phase
// skips them with the same classification.
func sourcesSize(sourceDirs []string) (uint64, []string, error) {
	var total uint64
	var missing []string

	for _, dir := range sourceDirs {
		if _, err := os.Stat(dir); err != nil {
			if os.IsNotExist(err) {
				missing = append(missing, dir)
				continue
			}
			return 0, nil, fmt.Errorf("cannot stat source %s: %w", dir, err)
		}

		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Entries that vanish mid-walk or deny access do not
				// change the estimate enough to matter.
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			total += uint64(info.Size())
			return nil
		})
		if err != nil {
			return 0, nil, fmt.Errorf("cannot measure source %s: %w", dir, err)
		}
	}

	return total, missing, nil
}

// preflight validates the run before any state changes. Order matters:
// remote reachability first, then local capacity, both before the staging
// area is touched.
func (e *Engine) preflight(ctx context.Context) (*PreflightResult, error) {
	res := &PreflightResult{}

	if err := e.caps.ProbeRemote(ctx); err != nil {
		e.log.Warnf("remote probe failed: %v", err)
	}

	if _, err := e.caps.CheckRemote(ctx); err != nil {
		if e.cfg.RemoteRequired {
			return nil, err
		}
		e.log.Warnf("remote unavailable, continuing local-only: %v", err)
		e.console.Warn("remote unavailable, completed periods will be retained locally")
	} else {
		res.RemoteAvailable = true
	}

	required, missing, err := sourcesSize(e.cfg.SourceDirs)
	if err != nil {
		return nil, NewInsufficientSpaceError("cannot estimate required space", err)
	}
	res.RequiredSpace = required
	res.MissingSources = missing

	available, err := e.diskFree(e.cfg.LocalBackupDir)
	if err != nil {
		return nil, NewInsufficientSpaceError(
			fmt.Sprintf("cannot determine free space for %s", e.cfg.LocalBackupDir), err)
	}
	res.AvailableSpace = available

	if available < required {
		return nil, NewInsufficientSpaceError(
			fmt.Sprintf("need %d bytes for sources, %d available in %s",
				required, available, e.cfg.LocalBackupDir), nil)
	}

	return res, nil
}
