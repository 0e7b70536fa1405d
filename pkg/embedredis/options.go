package embedredis

import (
	logAdapter "github.com/bft-labs/embedredis/internal/adapters/log"
	"github.com/bft-labs/embedredis/internal/ports"
	"github.com/bft-labs/embedredis/pkg/log"
)

// Logger is the interface for structured logging.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// FileProtection detects and clears write protection during cleanup.
type FileProtection = ports.FileProtection

// InstanceRepository persists the record used to reap orphaned servers.
type InstanceRepository = ports.InstanceRepository

// Option configures optional behavior of Redis.
type Option func(*options)

type options struct {
	logger          ports.Logger
	eventHandler    EventHandler
	registry        TeardownRegistry
	protection      ports.FileProtection
	instances       ports.InstanceRepository
	instancesSet    bool
	interceptSignal bool
}

func defaultOptions() options {
	return options{
		logger:          logAdapter.Discard(),
		interceptSignal: true,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for state changes and server output.
// Handlers are called synchronously and should return quickly.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithTeardownRegistry registers the shutdown guard with registry instead
// of the process-wide one. Signals are then not intercepted; the caller
// runs the registry.
func WithTeardownRegistry(registry TeardownRegistry) Option {
	return func(o *options) {
		o.registry = registry
		o.interceptSignal = false
	}
}

// WithoutSignalHandler keeps the default registry but does not install
// the termination signal handler.
func WithoutSignalHandler() Option {
	return func(o *options) {
		o.interceptSignal = false
	}
}

// WithFileProtection replaces the platform's write protection handling.
func WithFileProtection(prot FileProtection) Option {
	return func(o *options) {
		o.protection = prot
	}
}

// WithInstanceRepository replaces the file-backed instance record.
// A nil repository disables orphan reaping.
func WithInstanceRepository(repo InstanceRepository) Option {
	return func(o *options) {
		o.instances = repo
		o.instancesSet = true
	}
}
