package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"periodic-backup-sync/internal/remote"
)

// Result records how a capability invocation was carried out. The engine
// logs it; it carries no decision weight beyond the returned error.
type Result struct {
	Tool     string
	Output   string
	Duration time.Duration
}

// Capability is the set of external effects the engine needs. Production
// wiring shells out to git and rsync and talks to the remote backend; tests
// substitute a fake.
type Capability interface {
	// MirrorRepository creates or refreshes a bare mirror of a git
	// repository at dst.
	MirrorRepository(ctx context.Context, src, dst string) (*Result, error)

	// SyncTree mirrors a plain directory tree into dst, deleting entries
	// that vanished from src.
	SyncTree(ctx context.Context, src, dst string, ignoreSpecial bool) (*Result, error)

	// Compress packs a staging directory into a compressed artifact.
	Compress(ctx context.Context, srcDir, dstPath string) (*Result, error)

	// ProbeRemote is a best-effort reachability test. Its failure is a
	// warning, never an abort.
	ProbeRemote(ctx context.Context) error

	// CheckRemote performs the preflight handshake with the remote.
	CheckRemote(ctx context.Context) (*Result, error)

	// EnsureRemoteArchiveDir creates the remote archive destination.
	EnsureRemoteArchiveDir(ctx context.Context) (*Result, error)

	// TransferArtifact ships a local artifact to the remote archive.
	TransferArtifact(ctx context.Context, artifactPath string) (*Result, error)
}

// toolCapability is the production Capability: git and rsync via exec, the
// native archiver for compression, and a remote.Backend for transfers.
type toolCapability struct {
	archiver *Archiver
	backend  remote.Backend

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewToolCapability wires the production capability set.
func NewToolCapability(archiver *Archiver, backend remote.Backend) Capability {
	return &toolCapability{
		archiver: archiver,
		backend:  backend,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// mirrorArgs returns the git arguments for creating or refreshing a bare
// mirror. An existing mirror is refreshed in place so history already
// transferred is not re-cloned.
func mirrorArgs(src, dst string, dstExists bool) []string {
	if dstExists {
		return []string{"--git-dir", dst, "remote", "update", "--prune"}
	}
	return []string{"clone", "--mirror", src, dst}
}

// syncTreeArgs returns the rsync arguments for mirroring a directory tree.
// The trailing slash on src makes rsync copy the tree's contents rather
// than nesting the tree under dst.
func syncTreeArgs(src, dst string, ignoreSpecial bool) []string {
	args := []string{"-a", "--delete"}
	if ignoreSpecial {
		args = append(args, "--no-devices", "--no-specials")
	}
	return append(args, strings.TrimSuffix(src, "/")+"/", dst)
}

func (c *toolCapability) MirrorRepository(ctx context.Context, src, dst string) (*Result, error) {
	dstExists := false
	if _, err := os.Stat(dst); err == nil {
		dstExists = true
	}

	res, err := c.exec(ctx, "git", mirrorArgs(src, dst, dstExists)...)
	if err != nil {
		return res, NewSourceSyncError(
			fmt.Sprintf("git mirror of %s failed: %s", src, res.Output), err)
	}
	return res, nil
}

func (c *toolCapability) SyncTree(ctx context.Context, src, dst string, ignoreSpecial bool) (*Result, error) {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, NewSourceSyncError(
			fmt.Sprintf("cannot create sync destination %s", dst), err)
	}

	res, err := c.exec(ctx, "rsync", syncTreeArgs(src, dst, ignoreSpecial)...)
	if err != nil {
		return res, NewSourceSyncError(
			fmt.Sprintf("rsync of %s failed: %s", src, res.Output), err)
	}
	return res, nil
}

func (c *toolCapability) Compress(ctx context.Context, srcDir, dstPath string) (*Result, error) {
	start := time.Now()
	if err := c.archiver.Create(srcDir, dstPath); err != nil {
		return nil, err
	}
	return &Result{
		Tool:     "tar+" + string(c.archiver.Codec()),
		Duration: time.Since(start),
	}, nil
}

func (c *toolCapability) ProbeRemote(ctx context.Context) error {
	return c.backend.Probe(ctx)
}

func (c *toolCapability) CheckRemote(ctx context.Context) (*Result, error) {
	start := time.Now()
	if err := c.backend.Check(ctx); err != nil {
		return nil, NewRemoteUnreachableError(
			fmt.Sprintf("%s remote check failed", c.backend.Name()), err)
	}
	return &Result{Tool: c.backend.Name(), Duration: time.Since(start)}, nil
}

func (c *toolCapability) EnsureRemoteArchiveDir(ctx context.Context) (*Result, error) {
	start := time.Now()
	if err := c.backend.EnsureArchiveDir(ctx); err != nil {
		return nil, NewTransferError("failed to prepare remote archive destination", err)
	}
	return &Result{Tool: c.backend.Name(), Duration: time.Since(start)}, nil
}

func (c *toolCapability) TransferArtifact(ctx context.Context, artifactPath string) (*Result, error) {
	start := time.Now()
	if err := c.backend.Upload(ctx, artifactPath); err != nil {
		return nil, NewTransferError(
			fmt.Sprintf("failed to transfer %s", artifactPath), err)
	}
	return &Result{Tool: c.backend.Name(), Duration: time.Since(start)}, nil
}

func (c *toolCapability) exec(ctx context.Context, name string, args ...string) (*Result, error) {
	start := time.Now()
	out, err := c.run(ctx, name, args...)
	return &Result{
		Tool:     name,
		Output:   strings.TrimSpace(string(out)),
		Duration: time.Since(start),
	}, err
}
