package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bft-labs/embedredis/internal/domain"
)

const instanceFileName = "embedredis.json"

// InstanceFileRepository implements ports.InstanceRepository using a JSON file.
type InstanceFileRepository struct {
	dir  string
	name string
}

// NewInstanceFileRepository creates a new InstanceFileRepository for the given directory.
func NewInstanceFileRepository(dir string) *InstanceFileRepository {
	return &InstanceFileRepository{dir: dir, name: instanceFileName}
}

// NewPortInstanceRepository stores the record of the server bound to port in
// a shared directory. Runs with fresh base directories still find the record
// left by an earlier run on the same port.
func NewPortInstanceRepository(dir string, port int) *InstanceFileRepository {
	return &InstanceFileRepository{dir: dir, name: fmt.Sprintf("embedredis.%d.json", port)}
}

// Load retrieves the last saved record from disk.
// Returns an empty record and nil error if no record file exists.
func (r *InstanceFileRepository) Load(ctx context.Context) (domain.InstanceRecord, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.InstanceRecord{}, nil
		}
		return domain.InstanceRecord{}, err
	}

	var rec domain.InstanceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.InstanceRecord{}, err
	}

	return rec, nil
}

// Save persists the record atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (r *InstanceFileRepository) Save(ctx context.Context, rec domain.InstanceRecord) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// Remove deletes the record file.
func (r *InstanceFileRepository) Remove(ctx context.Context) error {
	err := os.Remove(r.Path())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Path returns the full path to the record file.
func (r *InstanceFileRepository) Path() string {
	return filepath.Join(r.dir, r.name)
}
