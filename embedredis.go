// Package embedredis runs a throwaway redis-server for integration tests.
//
// Example usage:
//
//	srv, err := embedredis.New(embedredis.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//
// See github.com/bft-labs/embedredis/pkg/embedredis for the full API.
package embedredis

import (
	"testing"

	"github.com/bft-labs/embedredis/pkg/embedredis"
)

// Config holds the configuration of one embedded redis-server.
type Config = embedredis.Config

// Redis is an embedded redis-server instance.
type Redis = embedredis.Redis

// Option configures optional behavior of Redis.
type Option = embedredis.Option

// New creates a server instance. Call Start to launch it.
func New(cfg Config, opts ...Option) (*Redis, error) {
	return embedredis.New(cfg, opts...)
}

// Teardown stops every server registered with the process-wide registry
// and removes their ephemeral directories.
func Teardown() {
	embedredis.Teardown()
}

// TeardownOnPanic runs Teardown when the calling goroutine panics and then
// re-panics. It must be deferred directly.
func TeardownOnPanic() {
	if p := recover(); p != nil {
		embedredis.Teardown()
		panic(p)
	}
}

// RunMain starts one server for the whole test binary, runs m and tears the
// server down. Call it from TestMain and pass the result to os.Exit.
func RunMain(m embedredis.TestingM, cfg Config, opts ...Option) int {
	return embedredis.RunMain(m, cfg, opts...)
}

// Shared returns the server started by RunMain, or nil.
func Shared() *Redis {
	return embedredis.Shared()
}

// StartForTest starts a server that is closed when tb finishes.
func StartForTest(tb testing.TB, cfg Config, opts ...Option) *Redis {
	tb.Helper()
	return embedredis.StartForTest(tb, cfg, opts...)
}
