// Package embedredis runs a throwaway redis-server for integration tests.
//
// An instance launches redis-server in the foreground, waits until it
// prints "Ready to accept connections", and stops it again. Directories
// created below the system temporary directory are deleted when the
// instance is closed or when the host process shuts down, including on
// SIGINT and SIGTERM.
//
// # Basic Usage
//
//	func TestMain(m *testing.M) {
//	    srv, err := embedredis.New(embedredis.Config{})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := srv.Start(context.Background()); err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    _ = srv.Close()
//	    os.Exit(code)
//	}
//
// # Executables
//
// redis-server is taken from [Config.ServerBinary], installed from
// [Config.BinarySource], or looked up on PATH, in that order. redis-cli is
// optional and only needed for [Redis.RunCommand].
//
// # Teardown
//
// Every started instance registers a guard with a teardown registry. The
// process-wide registry runs on termination signals; call [Teardown] from
// TestMain, or defer [TeardownOnPanic] in main, to cover the remaining
// exit paths. Use [WithTeardownRegistry] to manage the registry yourself.
//
// Directories outside the temporary directory, such as a user supplied
// DataDir, are never deleted.
//
// # Lifecycle States
//
// An instance moves from [StateNotStarted] through [StateStarting] to
// [StateRunning], and ends in [StateStopped]. A failed start goes directly
// from Starting to Stopped. Use [Redis.Status] to query the current state.
package embedredis
