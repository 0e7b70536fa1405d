//go:build windows

package fs

import (
	"io/fs"
	"os"

	"golang.org/x/sys/windows"

	"github.com/bft-labs/embedredis/internal/ports"
)

// AttributeProtection implements ports.FileProtection with the DOS
// read-only attribute.
type AttributeProtection struct{}

// NewFileProtection returns the file protection strategy for this platform.
func NewFileProtection() ports.FileProtection {
	return AttributeProtection{}
}

// IsWriteProtected reports whether the read-only attribute is set.
func (AttributeProtection) IsWriteProtected(path string, info fs.FileInfo) bool {
	attrs, err := fileAttributes(path)
	if err != nil {
		return info.Mode().Perm()&0o200 == 0
	}
	return attrs&windows.FILE_ATTRIBUTE_READONLY != 0
}

// ClearWriteProtection removes the read-only attribute.
func (AttributeProtection) ClearWriteProtection(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return &os.PathError{Op: "getattr", Path: path, Err: err}
	}
	if attrs&windows.FILE_ATTRIBUTE_READONLY == 0 {
		return nil
	}
	if err := windows.SetFileAttributes(p, attrs&^windows.FILE_ATTRIBUTE_READONLY); err != nil {
		return &os.PathError{Op: "setattr", Path: path, Err: err}
	}
	return nil
}

// IsDirectory reports whether path is a directory.
func (AttributeProtection) IsDirectory(path string) (bool, error) {
	attrs, err := fileAttributes(path)
	if err != nil {
		return false, &os.PathError{Op: "getattr", Path: path, Err: err}
	}
	return attrs&windows.FILE_ATTRIBUTE_DIRECTORY != 0, nil
}

func fileAttributes(path string) (uint32, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	return windows.GetFileAttributes(p)
}
