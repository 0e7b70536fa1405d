package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain errors represent error conditions in the embedredis domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrDirectory is returned when a directory cannot be created or used.
	ErrDirectory = errors.New("embedredis: directory unusable")

	// ErrStartupTimeout is returned when the server does not become ready in time.
	ErrStartupTimeout = errors.New("embedredis: startup timeout")

	// ErrStartup is returned when the server could not be launched or exited early.
	ErrStartup = errors.New("embedredis: startup failed")

	// ErrIllegalState is returned when an operation is not valid in the current state.
	ErrIllegalState = errors.New("embedredis: illegal state")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("embedredis: invalid configuration")

	// ErrBinaryNotFound is returned when a server or client executable cannot be located.
	ErrBinaryNotFound = errors.New("embedredis: binary not found")

	// ErrCleanup is returned when a directory tree could not be fully removed.
	ErrCleanup = errors.New("embedredis: cleanup incomplete")
)

// DirectoryError reports a directory that could not be created or validated.
type DirectoryError struct {
	Op   string
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("embedredis: %s directory %s: %v", e.Op, e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() []error {
	return []error{ErrDirectory, e.Err}
}

// StartupTimeoutError reports that the readiness marker was not observed
// before the deadline. Tail holds the last lines the server printed.
type StartupTimeoutError struct {
	Marker  string
	Timeout time.Duration
	Tail    []string
	// Cause is set when the wait was aborted by a canceled context.
	Cause error
}

func (e *StartupTimeoutError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "embedredis: server did not print %q within %s", e.Marker, e.Timeout)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (%v)", e.Cause)
	}
	writeTail(&b, e.Tail)
	return b.String()
}

func (e *StartupTimeoutError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrStartupTimeout, e.Cause}
	}
	return []error{ErrStartupTimeout}
}

// StartupError reports a launch failure or a server that exited before
// becoming ready.
type StartupError struct {
	Stage string
	Err   error
	Tail  []string
}

func (e *StartupError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "embedredis: %s: %v", e.Stage, e.Err)
	writeTail(&b, e.Tail)
	return b.String()
}

func (e *StartupError) Unwrap() []error {
	return []error{ErrStartup, e.Err}
}

// IllegalStateError is returned when an operation is invoked in a state
// that does not permit it, such as a second Start.
type IllegalStateError struct {
	Op    string
	State string
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("embedredis: cannot %s while %s", e.Op, e.State)
}

func (e *IllegalStateError) Unwrap() error {
	return ErrIllegalState
}

// CleanupError aggregates the per-entry failures of a recursive delete.
type CleanupError struct {
	Root string
	Errs []error
}

func (e *CleanupError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "embedredis: cleanup of %s incomplete (%d failures)", e.Root, len(e.Errs))
	for _, err := range e.Errs {
		b.WriteString("\n  ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *CleanupError) Unwrap() []error {
	return append([]error{ErrCleanup}, e.Errs...)
}

func writeTail(b *strings.Builder, tail []string) {
	if len(tail) == 0 {
		return
	}
	b.WriteString("; last output:")
	for _, line := range tail {
		b.WriteString("\n  ")
		b.WriteString(line)
	}
}
