package fs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bft-labs/embedredis/internal/domain"
	"github.com/bft-labs/embedredis/internal/ports"
)

var errNotDirectory = errors.New("not a directory")

// DirectoryManager implements ports.DirectoryManager on the local file system.
type DirectoryManager struct {
	roots  []string
	prot   ports.FileProtection
	logger ports.Logger
}

// NewDirectoryManager creates a manager that treats everything strictly
// below tempRoot as ephemeral. An empty tempRoot means os.TempDir().
func NewDirectoryManager(tempRoot string, prot ports.FileProtection, logger ports.Logger) *DirectoryManager {
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	return &DirectoryManager{
		roots:  tempRoots(tempRoot),
		prot:   prot,
		logger: logger,
	}
}

// tempRoots returns the cleaned root and, when it differs, its symlink
// resolved form (macOS reports /var/... for /private/var/...).
func tempRoots(root string) []string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	root = filepath.Clean(root)
	roots := []string{root}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		resolved = filepath.Clean(resolved)
		if resolved != root {
			roots = append(roots, resolved)
		}
	}
	return roots
}

// IsEphemeral reports whether path lies strictly below the temp root.
// The temp root itself is never ephemeral.
func (m *DirectoryManager) IsEphemeral(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	abs = filepath.Clean(abs)
	for _, root := range m.roots {
		if isStrictlyBelow(abs, root) {
			return true
		}
	}
	return false
}

func isStrictlyBelow(path, root string) bool {
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return false
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// Resolve makes every configured path absolute and classifies it.
func (m *DirectoryManager) Resolve(paths domain.DirectoryPaths) (domain.DirectorySet, error) {
	var set domain.DirectorySet
	for _, d := range []struct {
		path string
		dst  *domain.Directory
	}{
		{paths.Base, &set.Base},
		{paths.Data, &set.Data},
		{paths.Temp, &set.Temp},
		{paths.Lib, &set.Lib},
	} {
		abs, err := filepath.Abs(d.path)
		if err != nil {
			return domain.DirectorySet{}, &domain.DirectoryError{Op: "resolve", Path: d.path, Err: err}
		}
		*d.dst = domain.Directory{Path: abs, Ephemeral: m.IsEphemeral(abs)}
	}
	return set, nil
}

// Prepare creates base, temp and lib, then resets and creates data.
func (m *DirectoryManager) Prepare(set domain.DirectorySet) error {
	for _, d := range []domain.Directory{set.Base, set.Temp, set.Lib} {
		if _, err := m.EnsureDirectory(d.Path); err != nil {
			return err
		}
	}
	if err := m.ResetIfEphemeral(set.Data.Path); err != nil {
		return err
	}
	_, err := m.EnsureDirectory(set.Data.Path)
	return err
}

// EnsureDirectory creates path if needed and checks that it is a directory
// that can be listed and written. Calling it twice is harmless.
func (m *DirectoryManager) EnsureDirectory(path string) (domain.Directory, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.Directory{}, &domain.DirectoryError{Op: "resolve", Path: path, Err: err}
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return domain.Directory{}, &domain.DirectoryError{Op: "create", Path: abs, Err: err}
	}

	isDir, err := m.prot.IsDirectory(abs)
	if err != nil {
		return domain.Directory{}, &domain.DirectoryError{Op: "stat", Path: abs, Err: err}
	}
	if !isDir {
		return domain.Directory{}, &domain.DirectoryError{Op: "validate", Path: abs, Err: errNotDirectory}
	}

	if _, err := os.ReadDir(abs); err != nil {
		return domain.Directory{}, &domain.DirectoryError{Op: "list", Path: abs, Err: err}
	}

	scratch, err := os.CreateTemp(abs, ".embedredis-scratch-*")
	if err != nil {
		return domain.Directory{}, &domain.DirectoryError{Op: "write", Path: abs, Err: err}
	}
	scratch.Close()
	if err := os.Remove(scratch.Name()); err != nil {
		return domain.Directory{}, &domain.DirectoryError{Op: "write", Path: abs, Err: err}
	}

	return domain.Directory{Path: abs, Ephemeral: m.IsEphemeral(abs)}, nil
}

// ResetIfEphemeral purges path when it lies below the temp root.
// Directories outside the temp root are never touched.
func (m *DirectoryManager) ResetIfEphemeral(path string) error {
	if !m.IsEphemeral(path) {
		return nil
	}
	if err := Purge(path, m.prot); err != nil {
		return &domain.DirectoryError{Op: "reset", Path: path, Err: err}
	}
	m.logger.Debug("reset ephemeral directory", ports.String("path", path))
	return nil
}

// Purge recursively removes path.
func (m *DirectoryManager) Purge(path string) error {
	return Purge(path, m.prot)
}
