package ports

import (
	"io/fs"

	"github.com/bft-labs/embedredis/internal/domain"
)

// DirectoryManager owns the on-disk layout of a server instance.
type DirectoryManager interface {
	// IsEphemeral reports whether path lies strictly below the temp root.
	// It never touches the file system.
	IsEphemeral(path string) bool

	// Resolve turns configured paths into absolute, classified directories
	// without creating them.
	Resolve(paths domain.DirectoryPaths) (domain.DirectorySet, error)

	// Prepare creates and validates every directory of the set. An ephemeral
	// data directory is emptied first so each run starts clean.
	Prepare(set domain.DirectorySet) error

	// Purge recursively removes path. A missing path is not an error.
	Purge(path string) error
}

// FileProtection abstracts the platform's notion of write protection so the
// recursive delete can clear it before removing an entry.
type FileProtection interface {
	// IsWriteProtected reports whether the entry must be unprotected before removal.
	IsWriteProtected(path string, info fs.FileInfo) bool

	// ClearWriteProtection makes the entry writable (and, for directories, listable).
	ClearWriteProtection(path string) error

	// IsDirectory reports whether path is a directory, following symlinks.
	IsDirectory(path string) (bool, error)
}
