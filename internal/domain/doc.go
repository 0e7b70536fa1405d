// Package domain contains the core domain entities and value objects for embedredis.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (processes, file system, logging) and
// contains only plain values and the error taxonomy.
//
// # Entities
//
//   - [Directory]: A resolved on-disk location and whether it lives under the temp root
//   - [DirectorySet]: The base, data, temp and lib directories of one server instance
//   - [ReadinessSpec]: The marker line and deadline used to detect a ready server
//   - [InstanceRecord]: Persisted description of a running server, used to reap orphans
//
// # Errors
//
// Typed errors ([DirectoryError], [StartupTimeoutError], [StartupError],
// [IllegalStateError], [CleanupError]) wrap the sentinel errors below so callers
// can use errors.Is and errors.As.
package domain
