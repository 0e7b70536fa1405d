//go:build !windows

package fs

import (
	"io/fs"
	"os"

	"github.com/bft-labs/embedredis/internal/ports"
)

// ModeProtection implements ports.FileProtection with POSIX permission bits.
// A file is protected when the owner lacks write permission; a directory is
// protected unless the owner has read, write and search permission.
type ModeProtection struct{}

// NewFileProtection returns the file protection strategy for this platform.
func NewFileProtection() ports.FileProtection {
	return ModeProtection{}
}

// IsWriteProtected reports whether the owner permission bits block removal.
func (ModeProtection) IsWriteProtected(path string, info fs.FileInfo) bool {
	perm := info.Mode().Perm()
	if info.IsDir() {
		return perm&0o700 != 0o700
	}
	return perm&0o200 == 0
}

// ClearWriteProtection grants the owner write permission, plus read and
// search permission on directories.
func (ModeProtection) ClearWriteProtection(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	perm := info.Mode().Perm() | 0o200
	if info.IsDir() {
		perm |= 0o700
	}
	return os.Chmod(path, perm)
}

// IsDirectory reports whether path is a directory.
func (ModeProtection) IsDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
