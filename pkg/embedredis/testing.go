package embedredis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
)

// Environment variables RunMain sets while the tests run.
const (
	EnvPort   = "EMBEDREDIS_PORT"
	EnvAddr   = "EMBEDREDIS_ADDR"
	EnvSocket = "EMBEDREDIS_SOCKET"
)

// TestingM is the part of *testing.M that RunMain uses.
type TestingM interface {
	Run() int
}

var (
	sharedMu sync.RWMutex
	shared   *Redis
)

// RunMain starts one server for a whole test binary, runs the tests and
// tears the server down again. While the tests run the server is available
// from Shared and its address is exported in EnvPort, EnvAddr and
// EnvSocket. It returns the exit code for os.Exit, or 1 when the server
// does not start.
//
//	func TestMain(m *testing.M) {
//		os.Exit(embedredis.RunMain(m, embedredis.Config{}))
//	}
func RunMain(m TestingM, cfg Config, opts ...Option) int {
	srv, err := New(cfg, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "embedredis: %v\n", err)
		return 1
	}
	defer Teardown()
	defer func() {
		if err := srv.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "embedredis: stop: %v\n", err)
		}
	}()

	if err := srv.Start(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "embedredis: %v\n", err)
		return 1
	}

	env := map[string]string{
		EnvPort:   strconv.Itoa(srv.Port()),
		EnvAddr:   srv.Addr(),
		EnvSocket: srv.Socket(),
	}
	for k, v := range env {
		os.Setenv(k, v)
	}
	setShared(srv)
	defer func() {
		setShared(nil)
		for k := range env {
			os.Unsetenv(k)
		}
	}()

	return m.Run()
}

// Shared returns the server started by RunMain, or nil outside of it.
func Shared() *Redis {
	sharedMu.RLock()
	defer sharedMu.RUnlock()
	return shared
}

func setShared(r *Redis) {
	sharedMu.Lock()
	shared = r
	sharedMu.Unlock()
}

// StartForTest starts a server for a single test and closes it when the
// test and its subtests finish. The test fails immediately if the server
// cannot be created or started.
func StartForTest(tb testing.TB, cfg Config, opts ...Option) *Redis {
	tb.Helper()

	srv, err := New(cfg, opts...)
	if err != nil {
		tb.Fatalf("embedredis: %v", err)
	}
	tb.Cleanup(func() {
		if err := srv.Close(); err != nil {
			tb.Logf("embedredis: stop: %v", err)
		}
	})
	if err := srv.Start(context.Background()); err != nil {
		tb.Fatalf("embedredis: %v", err)
	}
	return srv
}
