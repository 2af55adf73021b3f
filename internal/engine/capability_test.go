package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"clone", "--mirror", "/data/proj", "/staging/repositories/proj.git"},
		mirrorArgs("/data/proj", "/staging/repositories/proj.git", false))

	assert.Equal(t,
		[]string{"--git-dir", "/staging/repositories/proj.git", "remote", "update", "--prune"},
		mirrorArgs("/data/proj", "/staging/repositories/proj.git", true))
}

func TestSyncTreeArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-a", "--delete", "/data/notes/", "/staging/archived_resources/notes"},
		syncTreeArgs("/data/notes", "/staging/archived_resources/notes", false))

	assert.Equal(t,
		[]string{"-a", "--delete", "--no-devices", "--no-specials",
			"/data/notes/", "/staging/archived_resources/notes"},
		syncTreeArgs("/data/notes/", "/staging/archived_resources/notes", true))
}

func newRecordingCapability(fail bool) (*toolCapability, *[]string) {
	var cmds []string
	c := &toolCapability{
		archiver: NewArchiver("gzip"),
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			cmds = append(cmds, name)
			if fail {
				return []byte("fatal: not a git repository"), fmt.Errorf("exit status 128")
			}
			return []byte("ok"), nil
		},
	}
	return c, &cmds
}

func TestToolCapability_MirrorRepository_FreshClone(t *testing.T) {
	c, cmds := newRecordingCapability(false)
	dst := filepath.Join(t.TempDir(), "proj.git")

	res, err := c.MirrorRepository(context.Background(), "/data/proj", dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"git"}, *cmds)
	assert.Equal(t, "git", res.Tool)
	assert.Equal(t, "ok", res.Output)
}

func TestToolCapability_MirrorRepository_FailureIsSourceSync(t *testing.T) {
	c, _ := newRecordingCapability(true)

	res, err := c.MirrorRepository(context.Background(), "/data/proj",
		filepath.Join(t.TempDir(), "proj.git"))
	require.Error(t, err)
	assert.Equal(t, ErrorKindSourceSync, KindOf(err))
	assert.Contains(t, err.Error(), "not a git repository")
	require.NotNil(t, res)
}

func TestToolCapability_SyncTree_CreatesDestination(t *testing.T) {
	c, cmds := newRecordingCapability(false)
	dst := filepath.Join(t.TempDir(), "archived_resources", "notes")

	_, err := c.SyncTree(context.Background(), "/data/notes", dst, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"rsync"}, *cmds)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestToolCapability_Compress(t *testing.T) {
	c, _ := newRecordingCapability(false)

	src := filepath.Join(t.TempDir(), "week_2025-week-19")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "f.txt"), []byte("x"), 0o644))

	dst := filepath.Join(t.TempDir(), "week_2025-week-19.tar.gz")
	res, err := c.Compress(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, "tar+gzip", res.Tool)

	_, err = os.Stat(dst)
	assert.NoError(t, err)
}
