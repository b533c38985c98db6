// Package util provides small filesystem helpers. The recorder uses its
// disk-space check before each segment rotation.
package util

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// EnsureDirectoryWritable checks that path exists, is a directory, and
// accepts a test file write.
func EnsureDirectoryWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testPath := filepath.Join(path, ".videopipe_write_test")
	f, err := os.Create(testPath)
	if err != nil {
		return fmt.Errorf("directory is not writable: %s", path)
	}
	_ = f.Close()
	_ = os.Remove(testPath)
	return nil
}

// AvailableDiskSpace returns the available space in bytes for the
// filesystem containing path, or 0 if it cannot be determined.
func AvailableDiskSpace(path string) uint64 {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0
	}
	return stat.Bavail * uint64(stat.Bsize)
}

// HasSufficientDiskSpace reports whether path's filesystem has at least
// minBytes free. A space that cannot be determined is treated as
// sufficient — the recorder should not refuse to start a segment just
// because statfs is unsupported on a given platform.
func HasSufficientDiskSpace(path string, minBytes uint64) bool {
	available := AvailableDiskSpace(path)
	if available == 0 {
		return true
	}
	return available >= minBytes
}
