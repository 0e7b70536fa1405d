package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/embedredis/internal/adapters/fs"
	"github.com/bft-labs/embedredis/internal/domain"
	"github.com/bft-labs/embedredis/internal/testutil"
)

type supervisorFixture struct {
	sup      *Supervisor
	registry *Registry
	emitter  *mockEmitter
	root     string
}

func newFixture(t *testing.T, server string, mutate func(*SupervisorConfig)) *supervisorFixture {
	t.Helper()
	return newFixtureWithDeps(t, server, mutate, nil)
}

func newFixtureWithDeps(t *testing.T, server string, mutate func(*SupervisorConfig), mutateDeps func(*SupervisorDeps)) *supervisorFixture {
	t.Helper()

	root := t.TempDir()
	base := filepath.Join(root, "embedredis", "instance")
	cfg := SupervisorConfig{
		Name: "test",
		Port: 6390,
		Paths: domain.DirectoryPaths{
			Base: base,
			Data: filepath.Join(base, "data"),
			Temp: filepath.Join(base, "tmp"),
			Lib:  filepath.Join(base, "lib"),
		},
		ServerBinary:     server,
		ClientBinary:     testutil.FakeClient(t),
		Readiness:        domain.ReadinessSpec{Marker: domain.DefaultReadyMarker, Timeout: 5 * time.Second},
		StopGracePeriod:  2 * time.Second,
		TeardownWait:     time.Second,
		DeleteOnShutdown: true,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	registry := NewRegistry(&mockLogger{})
	emitter := &mockEmitter{}
	deps := SupervisorDeps{
		Directories: fs.NewDirectoryManager(root, fs.NewFileProtection(), &mockLogger{}),
		Instances:   fs.NewInstanceFileRepository(base),
		Watcher:     fs.NewPathWatcher(&mockLogger{}),
		Installer:   fs.NewExecutableInstaller(),
		Registry:    registry,
		Logger:      &mockLogger{},
		Emitter:     emitter,
	}
	if mutateDeps != nil {
		mutateDeps(&deps)
	}
	sup, err := NewSupervisor(cfg, deps)
	if err != nil {
		t.Fatalf("NewSupervisor() error = %v", err)
	}
	t.Cleanup(func() {
		_ = sup.Stop()
		registry.Run()
	})

	return &supervisorFixture{sup: sup, registry: registry, emitter: emitter, root: root}
}

func waitForState(t *testing.T, s *Supervisor, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", s.State(), want)
}

func TestSupervisor_StartStop(t *testing.T) {
	testutil.SkipWithoutShell(t)
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerReady), nil)

	if err := f.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if f.sup.State() != StateRunning {
		t.Errorf("state = %v, want Running", f.sup.State())
	}
	if !f.sup.IsAlive() {
		t.Error("IsAlive() = false after Start")
	}
	if f.sup.PID() == 0 {
		t.Error("PID() = 0 after Start")
	}

	out := strings.Join(f.sup.Output(), "\n")
	if !strings.Contains(out, "--port 6390") {
		t.Errorf("server args missing port, output:\n%s", out)
	}

	rec, err := f.sup.deps.Instances.Load(context.Background())
	if err != nil || rec.PID != f.sup.PID() {
		t.Errorf("instance record = %+v, %v; want pid %d", rec, err, f.sup.PID())
	}

	if err := f.sup.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if f.sup.State() != StateStopped {
		t.Errorf("state = %v, want Stopped", f.sup.State())
	}
	if f.sup.IsAlive() {
		t.Error("IsAlive() = true after Stop")
	}
	if err := f.sup.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	rec, _ = f.sup.deps.Instances.Load(context.Background())
	if !rec.IsZero() {
		t.Errorf("instance record survived Stop: %+v", rec)
	}
}

func TestSupervisor_StartTwice(t *testing.T) {
	testutil.SkipWithoutShell(t)
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerReady), nil)

	if err := f.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := f.sup.Start(context.Background())
	if !errors.Is(err, domain.ErrIllegalState) {
		t.Fatalf("second Start() error = %v, want ErrIllegalState", err)
	}
	if f.sup.State() != StateRunning {
		t.Errorf("state = %v after rejected Start, want Running", f.sup.State())
	}
}

func TestSupervisor_StopBeforeStart(t *testing.T) {
	testutil.SkipWithoutShell(t)
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerReady), nil)

	if err := f.sup.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if f.sup.State() != StateNotStarted {
		t.Errorf("state = %v, want NotStarted", f.sup.State())
	}
}

func TestSupervisor_StartupTimeout(t *testing.T) {
	testutil.SkipWithoutShell(t)
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerSilent), func(c *SupervisorConfig) {
		c.Readiness.Timeout = 300 * time.Millisecond
	})

	err := f.sup.Start(context.Background())

	var timeoutErr *domain.StartupTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("Start() error = %v, want *StartupTimeoutError", err)
	}
	if timeoutErr.Marker != domain.DefaultReadyMarker {
		t.Errorf("Marker = %q", timeoutErr.Marker)
	}
	if timeoutErr.Timeout != 300*time.Millisecond {
		t.Errorf("Timeout = %v", timeoutErr.Timeout)
	}
	if !strings.Contains(strings.Join(timeoutErr.Tail, "\n"), "loading") {
		t.Errorf("Tail = %v, want server output", timeoutErr.Tail)
	}
	if !strings.Contains(err.Error(), "loading") {
		t.Errorf("error message lacks output tail: %v", err)
	}
	if f.sup.State() != StateStopped {
		t.Errorf("state = %v, want Stopped", f.sup.State())
	}
	if f.sup.IsAlive() {
		t.Error("IsAlive() = true after startup timeout")
	}
}

func TestSupervisor_ContextCanceled(t *testing.T) {
	testutil.SkipWithoutShell(t)
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerSilent), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := f.sup.Start(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Start() error = %v, want DeadlineExceeded", err)
	}
	if !errors.Is(err, domain.ErrStartupTimeout) {
		t.Errorf("Start() error = %v, want ErrStartupTimeout", err)
	}
	if f.sup.IsAlive() {
		t.Error("IsAlive() = true after canceled Start")
	}
}

func TestSupervisor_ExitsBeforeReady(t *testing.T) {
	testutil.SkipWithoutShell(t)
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerExitsEarly), nil)

	err := f.sup.Start(context.Background())

	var startupErr *domain.StartupError
	if !errors.As(err, &startupErr) {
		t.Fatalf("Start() error = %v, want *StartupError", err)
	}
	if !strings.Contains(strings.Join(startupErr.Tail, "\n"), "FATAL CONFIG FILE ERROR") {
		t.Errorf("Tail = %v", startupErr.Tail)
	}
	if f.sup.State() != StateStopped {
		t.Errorf("state = %v, want Stopped", f.sup.State())
	}
}

func TestSupervisor_MissingBinary(t *testing.T) {
	f := newFixture(t, filepath.Join(t.TempDir(), "no-such-redis-server"), nil)

	err := f.sup.Start(context.Background())
	if !errors.Is(err, domain.ErrBinaryNotFound) {
		t.Fatalf("Start() error = %v, want ErrBinaryNotFound", err)
	}
	if f.sup.State() != StateStopped {
		t.Errorf("state = %v, want Stopped", f.sup.State())
	}
	if f.sup.IsAlive() {
		t.Error("IsAlive() = true without a process")
	}
}

func TestSupervisor_CrashDetection(t *testing.T) {
	testutil.SkipWithoutShell(t)
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerCrashesAfterReady), nil)

	if err := f.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitForState(t, f.sup, StateStopped)

	// The event is emitted just after the state changes.
	deadline := time.Now().Add(time.Second)
	for {
		events := f.emitter.Events()
		last := events[len(events)-1]
		if last.current == StateStopped {
			if last.reason != "process exited" {
				t.Errorf("last transition reason = %q, want process exited", last.reason)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no Stopped event, got %+v", events)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSupervisor_StopEscalatesToKill(t *testing.T) {
	testutil.SkipWithoutShell(t)
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerIgnoresTerm), func(c *SupervisorConfig) {
		c.StopGracePeriod = 200 * time.Millisecond
	})

	if err := f.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.sup.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if f.sup.IsAlive() {
		t.Error("IsAlive() = true after kill escalation")
	}
}

func TestSupervisor_RunCommand(t *testing.T) {
	testutil.SkipWithoutShell(t)
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerReady), nil)

	if _, err := f.sup.RunCommand(context.Background(), "PING"); !errors.Is(err, domain.ErrIllegalState) {
		t.Fatalf("RunCommand() before Start error = %v, want ErrIllegalState", err)
	}

	if err := f.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	out, err := f.sup.RunCommand(context.Background(), "SET K V")
	if err != nil {
		t.Fatalf("RunCommand(SET) error = %v", err)
	}
	if out != "OK\n" {
		t.Errorf("RunCommand(SET) = %q, want %q", out, "OK\n")
	}

	out, err = f.sup.RunCommand(context.Background(), "GET K")
	if err != nil {
		t.Fatalf("RunCommand(GET) error = %v", err)
	}
	if out != "V\n" {
		t.Errorf("RunCommand(GET) = %q, want %q", out, "V\n")
	}

	if _, err := f.sup.RunCommand(context.Background(), "BOGUS"); err == nil {
		t.Error("RunCommand(BOGUS) error = nil, want client failure")
	}

	_ = f.sup.Stop()
	if _, err := f.sup.RunCommand(context.Background(), "PING"); !errors.Is(err, domain.ErrIllegalState) {
		t.Fatalf("RunCommand() after Stop error = %v, want ErrIllegalState", err)
	}
}

func TestSupervisor_GuardCleansUp(t *testing.T) {
	testutil.SkipWithoutShell(t)
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerReady), nil)

	if err := f.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	base := f.sup.Directories().Base.Path
	if _, err := os.Stat(base); err != nil {
		t.Fatalf("base directory missing while running: %v", err)
	}

	f.registry.Run()

	if f.sup.IsAlive() {
		t.Error("IsAlive() = true after teardown")
	}
	if _, err := os.Stat(base); !os.IsNotExist(err) {
		t.Errorf("base directory survived teardown: %v", err)
	}
	waitForState(t, f.sup, StateStopped)
}

func TestSupervisor_GuardKeepsNonEphemeral(t *testing.T) {
	testutil.SkipWithoutShell(t)
	persistent := filepath.Join(t.TempDir(), "persistent")
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerReady), func(c *SupervisorConfig) {
		c.Paths.Data = persistent
	})

	if err := f.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if f.sup.Directories().Data.Ephemeral {
		t.Fatal("data directory outside the temp root classified ephemeral")
	}

	f.registry.Run()

	if _, err := os.Stat(persistent); err != nil {
		t.Errorf("non-ephemeral data directory removed: %v", err)
	}
	if _, err := os.Stat(f.sup.Directories().Base.Path); !os.IsNotExist(err) {
		t.Errorf("ephemeral base directory survived teardown: %v", err)
	}
}

func TestSupervisor_KeepTemporaryDirs(t *testing.T) {
	testutil.SkipWithoutShell(t)
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerReady), func(c *SupervisorConfig) {
		c.DeleteOnShutdown = false
	})

	if err := f.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.registry.Run()

	if _, err := os.Stat(f.sup.Directories().Base.Path); err != nil {
		t.Errorf("base directory removed with deletion disabled: %v", err)
	}
}

func TestSupervisor_UnixSocket(t *testing.T) {
	testutil.SkipWithoutShell(t)
	var sock string
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerReady), func(c *SupervisorConfig) {
		sock = filepath.Join(filepath.Dir(c.Paths.Base), "redis.sock")
		c.Socket = sock
	})

	if err := f.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := os.Stat(sock); err != nil {
		t.Errorf("socket path not created: %v", err)
	}
	if !strings.Contains(strings.Join(f.sup.Output(), "\n"), "--unixsocket "+sock) {
		t.Errorf("server not given --unixsocket, output: %v", f.sup.Output())
	}
}

func TestSupervisor_RelativeUnixSocket(t *testing.T) {
	testutil.SkipWithoutShell(t)
	server := testutil.FakeServer(t, testutil.ServerReady)

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	f := newFixture(t, server, func(c *SupervisorConfig) {
		c.Socket = "r.sock"
	})

	want := filepath.Join(cwd, "r.sock")
	if f.sup.Socket() != want {
		t.Errorf("Socket() = %q, want %q", f.sup.Socket(), want)
	}
	if err := f.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("socket not created in the working directory: %v", err)
	}
	if !strings.Contains(strings.Join(f.sup.Output(), "\n"), "--unixsocket "+want) {
		t.Errorf("server not given absolute --unixsocket, output: %v", f.sup.Output())
	}
}

func TestSupervisor_SeedsInitialRDB(t *testing.T) {
	testutil.SkipWithoutShell(t)
	seed := filepath.Join(t.TempDir(), "seed.rdb")
	if err := os.WriteFile(seed, []byte("REDIS0011"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, testutil.FakeServer(t, testutil.ServerReady), func(c *SupervisorConfig) {
		c.InitRDBFile = seed
	})

	if err := f.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(f.sup.Directories().Data.Path, "dump.rdb"))
	if err != nil || string(data) != "REDIS0011" {
		t.Errorf("dump.rdb = %q, %v", data, err)
	}
	if !strings.Contains(strings.Join(f.sup.Output(), "\n"), "--dbfilename dump.rdb") {
		t.Errorf("server not given --dbfilename, output: %v", f.sup.Output())
	}
}

// gatedInstaller blocks the first Install until release is closed and then
// hands back the source executable unchanged.
type gatedInstaller struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedInstaller() *gatedInstaller {
	return &gatedInstaller{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedInstaller) Install(srcDir, name, dstDir string) (string, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return filepath.Join(srcDir, name), nil
}

func TestSupervisor_TeardownDuringStart(t *testing.T) {
	testutil.SkipWithoutShell(t)

	tests := []struct {
		name             string
		deleteOnShutdown bool
	}{
		{name: "directories kept", deleteOnShutdown: false},
		{name: "directories deleted", deleteOnShutdown: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.FakeServer(t, testutil.ServerReady)
			gate := newGatedInstaller()
			f := newFixtureWithDeps(t, "", func(c *SupervisorConfig) {
				c.BinarySource = filepath.Dir(server)
				c.DeleteOnShutdown = tt.deleteOnShutdown
			}, func(d *SupervisorDeps) {
				d.Installer = gate
			})

			errc := make(chan error, 1)
			go func() { errc <- f.sup.Start(context.Background()) }()

			select {
			case <-gate.entered:
			case <-time.After(5 * time.Second):
				t.Fatal("Start never reached the installer")
			}
			f.registry.Run()
			close(gate.release)

			var err error
			select {
			case err = <-errc:
			case <-time.After(5 * time.Second):
				t.Fatal("Start did not return")
			}

			if !errors.Is(err, domain.ErrStartup) || !errors.Is(err, errTornDown) {
				t.Fatalf("Start() error = %v, want startup error after teardown", err)
			}
			if f.sup.State() != StateStopped {
				t.Errorf("state = %v, want Stopped", f.sup.State())
			}
			if f.sup.IsAlive() || f.sup.PID() != 0 {
				t.Errorf("server spawned after teardown: pid %d", f.sup.PID())
			}
			if _, statErr := os.Stat(f.sup.Directories().Data.Path); tt.deleteOnShutdown && statErr == nil {
				t.Error("data directory recreated after teardown")
			}
		})
	}
}
