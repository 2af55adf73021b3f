package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"periodic-backup-sync/internal/period"
)

// rotationCandidates returns the completed period directories in the backup
// root: entries whose name parses as a period tag and is not the current
// one. Foreign files and directories (including the lock marker) are left
// alone.
func rotationCandidates(backupRoot string, current period.Tag) ([]string, error) {
	entries, err := os.ReadDir(backupRoot)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		tag, ok := period.Parse(entry.Name())
		if !ok || tag.String() == current.String() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// rotate compresses every completed period into an artifact in TEMP_DIR and
// hands it to the transfer step. A period that fails to compress or
// transfer keeps its staging directory so the next run picks it up again.
func (e *Engine) rotate(ctx context.Context, current period.Tag, remoteAvailable bool) []ArchiveResult {
	candidates, err := rotationCandidates(e.cfg.LocalBackupDir, current)
	if err != nil {
		e.log.Errorf("cannot scan backup root for rotation: %v", err)
		return []ArchiveResult{{Status: StatusFailed, Detail: err.Error()}}
	}
	if len(candidates) == 0 {
		e.log.Debug("no completed periods to rotate")
		return nil
	}

	archiveDirReady := false
	results := make([]ArchiveResult, 0, len(candidates))

	for _, name := range candidates {
		staging := filepath.Join(e.cfg.LocalBackupDir, name)
		artifact := filepath.Join(e.cfg.TempDir, name+NewArchiver(e.cfg.Compression).Codec().Ext())

		res, err := e.caps.Compress(ctx, staging, artifact)
		if err != nil {
			e.log.WithField("period", name).Errorf("compression failed: %v", err)
			e.console.Error("compression of %s failed, staging retained", name)
			results = append(results, ArchiveResult{
				Period: name, Status: StatusFailed, Detail: err.Error(),
			})
			continue
		}
		if res != nil {
			e.log.WithFields(map[string]interface{}{
				"period":   name,
				"artifact": artifact,
				"duration": res.Duration.String(),
			}).Info("period compressed")
		}

		results = append(results,
			e.transfer(ctx, name, staging, artifact, remoteAvailable, &archiveDirReady))
	}

	return results
}
