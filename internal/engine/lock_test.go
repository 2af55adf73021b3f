package engine

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLock_CreatesMarker(t *testing.T) {
	root := t.TempDir()

	lock, err := AcquireLock(root)
	require.NoError(t, err)
	defer lock.Release()

	data, err := os.ReadFile(LockPath(root))
	require.NoError(t, err)
	assert.Contains(t, string(data), "pid=")
}

func TestAcquireLock_SecondAcquireFails(t *testing.T) {
	root := t.TempDir()

	lock, err := AcquireLock(root)
	require.NoError(t, err)
	defer lock.Release()

	_, err = AcquireLock(root)
	require.Error(t, err)
	assert.Equal(t, ErrorKindAlreadyRunning, KindOf(err))
	assert.True(t, IsFatal(err))
}

func TestLock_ReleaseRemovesMarkerOnce(t *testing.T) {
	root := t.TempDir()

	lock, err := AcquireLock(root)
	require.NoError(t, err)

	require.NoError(t, lock.Release())
	_, statErr := os.Stat(LockPath(root))
	assert.True(t, os.IsNotExist(statErr))

	// Second release must not fail even though the file is gone.
	assert.NoError(t, lock.Release())
}

func TestAcquireLock_AfterReleaseSucceeds(t *testing.T) {
	root := t.TempDir()

	lock, err := AcquireLock(root)
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	again, err := AcquireLock(root)
	require.NoError(t, err)
	assert.NoError(t, again.Release())
}

func TestAcquireLock_CreatesBackupRoot(t *testing.T) {
	root := t.TempDir() + "/nested/backups"

	lock, err := AcquireLock(root)
	require.NoError(t, err)
	defer lock.Release()

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestClearLock(t *testing.T) {
	root := t.TempDir()

	removed, err := ClearLock(root)
	require.NoError(t, err)
	assert.False(t, removed)

	lock, err := AcquireLock(root)
	require.NoError(t, err)
	_ = lock // simulate a crashed run that never released

	removed, err = ClearLock(root)
	require.NoError(t, err)
	assert.True(t, removed)

	_, statErr := os.Stat(LockPath(root))
	assert.True(t, os.IsNotExist(statErr))
}
