package engine

import (
	"context"
	"os"
	"path/filepath"
)

// Source kinds.
const (
	kindRepository = "repository"
	kindTree       = "tree"
)

// classifySource decides how a source is mirrored: anything carrying a .git
// entry is treated as a git repository, everything else as a plain tree.
func classifySource(src string) string {
	if _, err := os.Stat(filepath.Join(src, ".git")); err == nil {
		return kindRepository
	}
	return kindTree
}

// syncDestination returns the staging path a source is mirrored into.
// Repositories become bare mirrors under repositories/, trees are copied
// under archived_resources/ keeping their base name.
func syncDestination(staging, src, kind string) string {
	base := filepath.Base(filepath.Clean(src))
	if kind == kindRepository {
		return filepath.Join(staging, repositoriesDir, base+".git")
	}
	return filepath.Join(staging, archivedResourcesDir, base)
}

// syncSources mirrors every configured source into the current staging
// directory. A failing source is recorded and skipped; the loop always
// visits every source.
func (e *Engine) syncSources(ctx context.Context, staging string, knownMissing []string) []SourceResult {
	missing := make(map[string]bool, len(knownMissing))
	for _, m := range knownMissing {
		missing[m] = true
	}

	results := make([]SourceResult, 0, len(e.cfg.SourceDirs))
	for _, src := range e.cfg.SourceDirs {
		results = append(results, e.syncSource(ctx, staging, src, missing[src]))
	}
	return results
}

func (e *Engine) syncSource(ctx context.Context, staging, src string, knownMissing bool) SourceResult {
	if knownMissing {
		e.log.Warnf("source %s does not exist, skipping", src)
		e.console.Warn("source %s does not exist, skipping", src)
		return SourceResult{Path: src, Status: StatusSkipped, Detail: "source does not exist"}
	}
	if _, err := os.Stat(src); err != nil {
		// The source can vanish between preflight and sync.
		e.log.Warnf("source %s does not exist, skipping", src)
		e.console.Warn("source %s does not exist, skipping", src)
		return SourceResult{Path: src, Status: StatusSkipped, Detail: "source does not exist"}
	}

	kind := classifySource(src)
	dst := syncDestination(staging, src, kind)

	var err error
	var res *Result
	switch kind {
	case kindRepository:
		res, err = e.caps.MirrorRepository(ctx, src, dst)
	default:
		res, err = e.caps.SyncTree(ctx, src, dst, e.cfg.IgnoreSpecialFiles)
	}

	if err != nil {
		e.log.WithFields(map[string]interface{}{
			"source": src,
			"kind":   kind,
		}).Errorf("sync failed: %v", err)
		e.console.Error("sync of %s failed", src)
		return SourceResult{Path: src, Kind: kind, Status: StatusFailed, Detail: err.Error()}
	}

	fields := map[string]interface{}{"source": src, "kind": kind, "dest": dst}
	if res != nil {
		fields["tool"] = res.Tool
		fields["duration"] = res.Duration.String()
	}
	e.log.WithFields(fields).Info("source synced")
	e.console.Success("synced %s", src)
	return SourceResult{Path: src, Kind: kind, Status: StatusSynced}
}
