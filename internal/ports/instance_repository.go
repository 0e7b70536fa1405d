package ports

import (
	"context"

	"github.com/bft-labs/embedredis/internal/domain"
)

// InstanceRepository persists the record of the running server so an orphan
// left behind by a killed host can be found by the next run.
type InstanceRepository interface {
	// Load retrieves the last saved record.
	// Returns an empty record and nil error if no record exists.
	Load(ctx context.Context) (domain.InstanceRecord, error)

	// Save persists the record atomically.
	Save(ctx context.Context, rec domain.InstanceRecord) error

	// Remove deletes the record. A missing record is not an error.
	Remove(ctx context.Context) error
}
