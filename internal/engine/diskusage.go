package engine

import (
	"golang.org/x/sys/unix"
)

// diskFreeBytes returns the space available to unprivileged writers on the
// filesystem containing path.
func diskFreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
