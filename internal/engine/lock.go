package engine

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

// lockFileName is the mutex marker created in the backup root. Its presence
// means a run is in progress; rotation must never treat it as a period
// directory.
const lockFileName = ".backup.lock"

// Lock is the run mutex. It exists on disk from Acquire until Release, no
// matter how the run ends.
type Lock struct {
	path    string
	release sync.Once
}

// LockPath returns the lock marker path for a backup root.
func LockPath(backupRoot string) string {
	return filepath.Join(backupRoot, lockFileName)
}

// AcquireLock creates the lock marker in the backup root. If the marker
// already exists another run owns the root and an AlreadyRunning error is
// returned, with the owner's recorded identity in the message.
func AcquireLock(backupRoot string) (*Lock, error) {
	if err := os.MkdirAll(backupRoot, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create backup root %s: %w", backupRoot, err)
	}

	path := LockPath(backupRoot)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			owner, _ := os.ReadFile(path)
			return nil, NewAlreadyRunningError(
				fmt.Sprintf("another backup run holds %s (%s)",
					path, strings.TrimSpace(string(owner))), nil)
		}
		return nil, fmt.Errorf("cannot create lock %s: %w", path, err)
	}

	fmt.Fprintf(f, "pid=%d started=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("cannot write lock %s: %w", path, err)
	}

	return &Lock{path: path}, nil
}

// Release removes the lock marker. Safe to call more than once; only the
// first call removes the file.
func (l *Lock) Release() error {
	var err error
	l.release.Do(func() {
		err = os.Remove(l.path)
	})
	return err
}

// Path returns the lock marker path.
func (l *Lock) Path() string {
	return l.path
}

// ReleaseOnSignal releases the lock when SIGINT or SIGTERM arrives, then
// invokes onSignal (typically logging plus exit). The returned function
// stops the watcher; call it once the run completes normally.
func (l *Lock) ReleaseOnSignal(onSignal func(os.Signal)) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			l.Release()
			if onSignal != nil {
				onSignal(sig)
			}
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// ClearLock removes a leftover lock marker, reporting whether one existed.
// Used by the clear-lock command after a crash that skipped Release.
func ClearLock(backupRoot string) (bool, error) {
	path := LockPath(backupRoot)
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("cannot remove lock %s: %w", path, err)
}
