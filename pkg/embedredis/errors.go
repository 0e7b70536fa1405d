package embedredis

import "github.com/bft-labs/embedredis/internal/domain"

// Sentinel errors, usable with errors.Is.
var (
	ErrDirectory      = domain.ErrDirectory
	ErrStartupTimeout = domain.ErrStartupTimeout
	ErrStartup        = domain.ErrStartup
	ErrIllegalState   = domain.ErrIllegalState
	ErrInvalidConfig  = domain.ErrInvalidConfig
	ErrBinaryNotFound = domain.ErrBinaryNotFound
	ErrCleanup        = domain.ErrCleanup
)

// Typed errors, usable with errors.As.
type (
	DirectoryError      = domain.DirectoryError
	StartupTimeoutError = domain.StartupTimeoutError
	StartupError        = domain.StartupError
	IllegalStateError   = domain.IllegalStateError
	CleanupError        = domain.CleanupError
)

// Directory is a resolved directory and whether it may be deleted.
type Directory = domain.Directory

// Directories is the set of directories an instance uses.
type Directories = domain.DirectorySet
