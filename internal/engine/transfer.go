package engine

import (
	"context"
	"os"
	"path/filepath"
)

// transfer ships one rotation artifact. Whatever happens, the artifact
// itself never outlives this call: on success the staging directory is
// released too, on failure (or with no remote this run) the staging
// directory stays so a later run can rotate the period again.
func (e *Engine) transfer(ctx context.Context, name, staging, artifact string, remoteAvailable bool, archiveDirReady *bool) ArchiveResult {
	base := filepath.Base(artifact)

	if !remoteAvailable {
		os.Remove(artifact)
		e.log.WithField("period", name).Warn("no remote this run, staging retained")
		return ArchiveResult{
			Period: name, Artifact: base,
			Status: StatusRetained, Detail: "remote unavailable",
		}
	}

	if !*archiveDirReady {
		if _, err := e.caps.EnsureRemoteArchiveDir(ctx); err != nil {
			os.Remove(artifact)
			e.log.Errorf("cannot prepare remote archive destination: %v", err)
			e.console.Error("transfer of %s failed, staging retained", name)
			return ArchiveResult{
				Period: name, Artifact: base,
				Status: StatusFailed, Detail: err.Error(),
			}
		}
		*archiveDirReady = true
	}

	res, err := e.caps.TransferArtifact(ctx, artifact)
	if err != nil {
		os.Remove(artifact)
		e.log.WithField("period", name).Errorf("transfer failed: %v", err)
		e.console.Error("transfer of %s failed, staging retained", name)
		return ArchiveResult{
			Period: name, Artifact: base,
			Status: StatusFailed, Detail: err.Error(),
		}
	}

	// The remote copy is confirmed; only now is local state released.
	os.Remove(artifact)
	if err := os.RemoveAll(staging); err != nil {
		e.log.Warnf("transferred %s but could not remove staging: %v", name, err)
	}

	fields := map[string]interface{}{"period": name, "artifact": base}
	if res != nil {
		fields["backend"] = res.Tool
		fields["duration"] = res.Duration.String()
	}
	e.log.WithFields(fields).Info("period transferred")
	e.console.Success("transferred %s", base)

	return ArchiveResult{Period: name, Artifact: base, Status: StatusTransferred}
}
