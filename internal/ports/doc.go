// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [DirectoryManager]: Resolves, prepares and purges instance directories
//   - [FileProtection]: Platform specific write-protection handling
//   - [InstanceRepository]: Persists the record of a running server
//   - [PathWatcher]: Waits for a path (the unix socket) to appear
//   - [ExecutableInstaller]: Copies server binaries into place
//   - [TeardownRegistry]: Process-wide exit hooks
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (file system, fsnotify, zerolog, etc.).
package ports
