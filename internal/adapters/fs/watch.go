package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/embedredis/internal/ports"
)

// PathWatcher implements ports.PathWatcher with fsnotify.
type PathWatcher struct {
	logger ports.Logger
}

// NewPathWatcher creates a new PathWatcher.
func NewPathWatcher(logger ports.Logger) *PathWatcher {
	return &PathWatcher{logger: logger}
}

// WaitForPath blocks until path exists or ctx is done. The parent directory
// must already exist.
func (w *PathWatcher) WaitForPath(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	if exists, err := pathExists(path); err != nil || exists {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	// The entry may have appeared between the first check and Add.
	if exists, err := pathExists(path); err != nil || exists {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.logger.Debug("path appeared", ports.String("path", path))
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			return err
		}
	}
}

func pathExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
