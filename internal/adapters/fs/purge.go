package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bft-labs/embedredis/internal/domain"
	"github.com/bft-labs/embedredis/internal/ports"
)

var errDirectoryNotEmpty = errors.New("directory not empty")

// Purge removes root and everything below it without relying on os.RemoveAll.
//
// Entries are visited depth first and removed post order. Write protection
// is cleared before an entry is removed, symlinks are removed without being
// followed, and a directory is removed only once it is empty. Failures on
// individual entries are collected and the walk continues; a directory that
// cannot be listed aborts the walk. A missing root is not an error.
func Purge(root string, prot ports.FileProtection) error {
	info, err := os.Lstat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &domain.CleanupError{Root: root, Errs: []error{err}}
	}

	p := &purger{prot: prot}
	if err := p.remove(root, info); err != nil {
		p.errs = append(p.errs, err)
	}
	if len(p.errs) > 0 {
		return &domain.CleanupError{Root: root, Errs: p.errs}
	}
	return nil
}

type purger struct {
	prot ports.FileProtection
	errs []error
}

func (p *purger) record(err error) {
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.errs = append(p.errs, err)
	}
}

// remove deletes a single entry. Only a listing failure is returned; every
// other failure is recorded.
func (p *purger) remove(path string, info fs.FileInfo) error {
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		p.record(os.Remove(path))
		return nil
	case info.IsDir():
		return p.removeDir(path, info)
	default:
		if p.prot.IsWriteProtected(path, info) {
			p.record(p.prot.ClearWriteProtection(path))
		}
		p.record(os.Remove(path))
		return nil
	}
}

func (p *purger) removeDir(path string, info fs.FileInfo) error {
	if p.prot.IsWriteProtected(path, info) {
		p.record(p.prot.ClearWriteProtection(path))
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("list %s: %w", path, err)
	}

	for _, entry := range entries {
		child := filepath.Join(path, entry.Name())
		childInfo, err := os.Lstat(child)
		if err != nil {
			p.record(err)
			continue
		}
		if err := p.remove(child, childInfo); err != nil {
			return err
		}
	}

	remaining, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("list %s: %w", path, err)
	}
	if len(remaining) > 0 {
		p.record(&fs.PathError{Op: "remove", Path: path, Err: errDirectoryNotEmpty})
		return nil
	}
	p.record(os.Remove(path))
	return nil
}
