package embedredis

import (
	"github.com/bft-labs/embedredis/internal/app"
	"github.com/bft-labs/embedredis/internal/ports"
)

// TeardownRegistry collects shutdown callbacks. *Registry implements it.
type TeardownRegistry = ports.TeardownRegistry

// Registry runs teardown callbacks in reverse registration order.
type Registry = app.Registry

// NewTeardownRegistry returns an empty registry for WithTeardownRegistry.
func NewTeardownRegistry(logger Logger) *Registry {
	return app.NewRegistry(logger)
}

// Teardown stops every server started with the default registry and
// removes their ephemeral directories. Call it from TestMain after m.Run,
// since os.Exit skips deferred calls.
func Teardown() {
	app.DefaultRegistry().Run()
}

// TeardownOnPanic runs Teardown when the calling goroutine panics and then
// re-panics. Use it as the first deferred call in main:
//
//	defer embedredis.TeardownOnPanic()
func TeardownOnPanic() {
	if p := recover(); p != nil {
		Teardown()
		panic(p)
	}
}

// InterceptSignals installs the termination signal handler on the default
// registry. New does this on Start unless told otherwise.
func InterceptSignals() {
	app.DefaultRegistry().InterceptSignals()
}
