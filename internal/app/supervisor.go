package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/embedredis/internal/domain"
	"github.com/bft-labs/embedredis/internal/ports"
)

// DefaultStopGracePeriod bounds how long Stop waits after SIGTERM before
// killing the server.
const DefaultStopGracePeriod = 10 * time.Second

var (
	errExitedBeforeReady = errors.New("server exited before becoming ready")
	errTornDown          = errors.New("teardown ran while starting")
)

// SupervisorConfig is the fully resolved configuration of one server.
type SupervisorConfig struct {
	// Name identifies the teardown hook.
	Name   string
	Port   int
	Socket string
	Paths  domain.DirectoryPaths
	Args   []string

	ServerBinary string
	ClientBinary string
	BinarySource string
	InitRDBFile  string

	Readiness        domain.ReadinessSpec
	StopGracePeriod  time.Duration
	TeardownWait     time.Duration
	OutputTailLines  int
	DeleteOnShutdown bool
}

// SupervisorDeps are the adapters a Supervisor depends on.
// Instances, Watcher and Output may be nil.
type SupervisorDeps struct {
	Directories ports.DirectoryManager
	Instances   ports.InstanceRepository
	Watcher     ports.PathWatcher
	Installer   ports.ExecutableInstaller
	Registry    ports.TeardownRegistry
	Logger      ports.Logger
	Emitter     EventEmitter
	Output      OutputSink
}

// Supervisor launches one redis-server child, waits for it to become
// ready, and stops it again. It is single use.
type Supervisor struct {
	cfg       SupervisorConfig
	deps      SupervisorDeps
	logger    ports.Logger
	lifecycle *Lifecycle
	resolver  *binaryResolver
	dirs      domain.DirectorySet
	port      int

	// mu serializes Start and Stop.
	mu       sync.Mutex
	bins     Binaries
	guard    *ShutdownGuard
	handle   atomic.Pointer[processHandle]
	stopping atomic.Bool
}

// NewSupervisor creates a supervisor in StateNotStarted. Directory paths
// are resolved and classified here but nothing is created until Start.
func NewSupervisor(cfg SupervisorConfig, deps SupervisorDeps) (*Supervisor, error) {
	if deps.Logger == nil {
		deps.Logger = nopLogger{}
	}
	if cfg.Readiness.Marker == "" {
		cfg.Readiness.Marker = domain.DefaultReadyMarker
	}
	if cfg.Readiness.Timeout <= 0 {
		cfg.Readiness.Timeout = domain.DefaultStartTimeout
	}
	if cfg.StopGracePeriod <= 0 {
		cfg.StopGracePeriod = DefaultStopGracePeriod
	}
	// redis-server runs in the data directory, so a relative socket would
	// resolve differently for the server and for the watcher.
	if cfg.Socket != "" {
		abs, err := filepath.Abs(cfg.Socket)
		if err != nil {
			return nil, fmt.Errorf("resolve socket path: %w", err)
		}
		cfg.Socket = abs
	}

	dirs, err := deps.Directories.Resolve(cfg.Paths)
	if err != nil {
		return nil, err
	}

	return &Supervisor{
		cfg:       cfg,
		deps:      deps,
		logger:    deps.Logger,
		lifecycle: NewLifecycle(deps.Logger, deps.Emitter),
		resolver:  newBinaryResolver(deps.Installer, deps.Logger),
		dirs:      dirs,
		port:      EffectivePort(cfg.Port, cfg.Args),
	}, nil
}

// Start launches the server and blocks until it prints the readiness
// marker. It may be called once; later calls return an
// *domain.IllegalStateError. On any failure the child is killed and the
// supervisor ends in StateStopped.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.lifecycle.State(); st != StateNotStarted {
		return &domain.IllegalStateError{Op: "start", State: st.String()}
	}
	if err := s.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	// Armed before anything touches the disk so a signal at any point
	// still cleans up.
	s.guard = ArmShutdownGuard(
		s.deps.Registry,
		s.cfg.Name,
		s,
		s.Directories,
		s.deps.Directories,
		GuardConfig{DeleteOnShutdown: s.cfg.DeleteOnShutdown, TerminateWait: s.cfg.TeardownWait},
		s.logger,
	)

	if err := s.launch(ctx); err != nil {
		_ = s.lifecycle.TransitionTo(StateStopped, "startup failed")
		return err
	}

	if err := s.lifecycle.TransitionTo(StateRunning, "server ready"); err != nil {
		return err
	}
	if h := s.handle.Load(); h != nil && h.hasExited() {
		s.lifecycle.TransitionFrom(StateRunning, StateStopped, "process exited")
	}
	return nil
}

func (s *Supervisor) launch(ctx context.Context) error {
	started := time.Now()

	s.reapOrphan(ctx)

	if s.tornDown() {
		return &domain.StartupError{Stage: "prepare directories", Err: errTornDown}
	}
	if err := s.deps.Directories.Prepare(s.dirs); err != nil {
		return err
	}

	bins, err := s.resolver.Resolve(ctx, BinarySources{
		Server:     s.cfg.ServerBinary,
		Client:     s.cfg.ClientBinary,
		SourceDir:  s.cfg.BinarySource,
		InstallDir: s.dirs.Base.Path,
		GOOS:       runtime.GOOS,
	})
	if err != nil {
		return &domain.StartupError{Stage: "resolve executables", Err: err}
	}
	s.bins = bins

	seeded, err := s.seedRDB()
	if err != nil {
		return &domain.StartupError{Stage: "seed initial rdb", Err: err}
	}

	args := BuildArgs(ArgOptions{
		DataDir:   s.dirs.Data.Path,
		Port:      s.cfg.Port,
		Socket:    s.cfg.Socket,
		SeededRDB: seeded,
		Windows:   runtime.GOOS == "windows",
		User:      s.cfg.Args,
	})

	s.logger.Info("starting redis-server",
		ports.String("binary", bins.Server),
		ports.Int("port", s.port),
		ports.String("dir", s.dirs.Data.Path),
		ports.Strings("args", args),
	)

	if s.tornDown() {
		return &domain.StartupError{Stage: "spawn " + bins.Server, Err: errTornDown}
	}
	h, err := spawnProcess(spawnSpec{
		Path:      bins.Server,
		Args:      args,
		Dir:       s.dirs.Data.Path,
		Env:       childEnv(s.dirs.Lib.Path),
		Marker:    s.cfg.Readiness.Marker,
		TailLines: s.cfg.OutputTailLines,
	}, s.logger, s.deps.Output, s.onExit)
	if err != nil {
		return &domain.StartupError{Stage: "spawn " + bins.Server, Err: err}
	}
	s.handle.Store(h)

	// The guard reads the handle after marking itself run, so a guard that
	// ran before the store is seen here and one that runs after sees h.
	if s.tornDown() {
		if terr := h.terminate(0); terr != nil {
			s.logger.Warn("failed to kill server spawned during teardown", ports.Err(terr))
		}
		return &domain.StartupError{Stage: "spawn " + bins.Server, Err: errTornDown}
	}

	if err := s.awaitReady(ctx, h, started); err != nil {
		// A zero grace period sends SIGTERM and kills right away.
		if terr := h.terminate(0); terr != nil {
			s.logger.Warn("failed to kill server after startup failure", ports.Err(terr))
		}
		return err
	}

	s.logger.Info("redis-server ready",
		ports.Int("pid", h.pid),
		ports.Int("port", s.port),
		ports.Duration("elapsed", time.Since(started)),
	)
	s.saveInstance(ctx, h, started)
	return nil
}

// tornDown reports whether the shutdown guard has already run. Start must
// not leave a child behind once it has.
func (s *Supervisor) tornDown() bool {
	return s.guard != nil && s.guard.Ran()
}

func (s *Supervisor) awaitReady(ctx context.Context, h *processHandle, started time.Time) error {
	spec := s.cfg.Readiness
	deadline := started.Add(spec.Timeout)

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-h.Ready():
	case <-h.Exited():
		// Give the reader a moment to collect the last lines.
		select {
		case <-h.output.done:
		case <-time.After(200 * time.Millisecond):
		}
		err := h.ExitErr()
		if err == nil {
			err = errExitedBeforeReady
		}
		return &domain.StartupError{Stage: "server exited before ready", Err: err, Tail: h.Tail()}
	case <-timer.C:
		return &domain.StartupTimeoutError{Marker: spec.Marker, Timeout: spec.Timeout, Tail: h.Tail()}
	case <-ctx.Done():
		return &domain.StartupTimeoutError{Marker: spec.Marker, Timeout: spec.Timeout, Tail: h.Tail(), Cause: ctx.Err()}
	}

	if s.cfg.Socket == "" || runtime.GOOS == "windows" || s.deps.Watcher == nil {
		return nil
	}
	wctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	if err := s.deps.Watcher.WaitForPath(wctx, s.cfg.Socket); err != nil {
		return &domain.StartupError{Stage: "wait for unix socket " + s.cfg.Socket, Err: err, Tail: h.Tail()}
	}
	return nil
}

// seedRDB copies the configured snapshot into the data directory.
func (s *Supervisor) seedRDB() (bool, error) {
	if s.cfg.InitRDBFile == "" {
		return false, nil
	}
	data, err := os.ReadFile(s.cfg.InitRDBFile)
	if err != nil {
		return false, err
	}
	dst := filepath.Join(s.dirs.Data.Path, seedFileName)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return false, err
	}
	s.logger.Debug("seeded initial rdb", ports.String("from", s.cfg.InitRDBFile), ports.String("to", dst))
	return true, nil
}

// onExit runs on the waiter goroutine whenever the child exits.
func (s *Supervisor) onExit(err error) {
	reason := "process exited"
	if s.stopping.Load() {
		reason = "stopped"
	}
	if !s.lifecycle.TransitionFrom(StateRunning, StateStopped, reason) {
		return
	}
	if !s.stopping.Load() {
		s.logger.Warn("redis-server exited unexpectedly", ports.Err(err))
	}
	s.removeInstance()
}

// Stop terminates the server, escalating to a kill after the grace
// period. Calling it before Start or after the server stopped is a no-op.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lifecycle.State() != StateRunning {
		return nil
	}

	var err error
	if h := s.handle.Load(); h != nil {
		s.stopping.Store(true)
		s.logger.Info("stopping redis-server", ports.Int("pid", h.pid))
		err = h.terminate(s.cfg.StopGracePeriod)
	}

	s.lifecycle.TransitionFrom(StateRunning, StateStopped, "Stop() called")
	s.removeInstance()
	return err
}

// Terminate stops the child without taking the start/stop lock. It is
// used by the shutdown guard, which may run while Start is blocked.
func (s *Supervisor) Terminate(grace time.Duration) error {
	h := s.handle.Load()
	if h == nil {
		return nil
	}
	s.stopping.Store(true)
	return h.terminate(grace)
}

// Teardown runs this supervisor's shutdown guard if it was armed.
func (s *Supervisor) Teardown() {
	s.mu.Lock()
	g := s.guard
	s.mu.Unlock()
	if g != nil {
		g.Run()
	}
}

// IsAlive reports whether the child process is running.
func (s *Supervisor) IsAlive() bool {
	h := s.handle.Load()
	return h != nil && h.alive()
}

// State returns the lifecycle state.
func (s *Supervisor) State() State {
	return s.lifecycle.State()
}

// Port returns the TCP port the server listens on.
func (s *Supervisor) Port() int {
	return s.port
}

// Socket returns the absolute unix socket path, or "" when none is used.
func (s *Supervisor) Socket() string {
	return s.cfg.Socket
}

// Directories returns the resolved directory set.
func (s *Supervisor) Directories() domain.DirectorySet {
	return s.dirs
}

// Output returns the most recent server output lines.
func (s *Supervisor) Output() []string {
	h := s.handle.Load()
	if h == nil {
		return nil
	}
	return h.Tail()
}

// PID returns the child's process id, or 0 before launch.
func (s *Supervisor) PID() int {
	h := s.handle.Load()
	if h == nil {
		return 0
	}
	return h.pid
}

func (s *Supervisor) saveInstance(ctx context.Context, h *processHandle, started time.Time) {
	if s.deps.Instances == nil {
		return
	}
	rec := domain.InstanceRecord{
		PID:       h.pid,
		Port:      s.port,
		Socket:    s.cfg.Socket,
		BaseDir:   s.dirs.Base.Path,
		DataDir:   s.dirs.Data.Path,
		StartedAt: started,
	}
	if err := s.deps.Instances.Save(ctx, rec); err != nil {
		s.logger.Warn("failed to save instance record", ports.Err(err))
	}
}

func (s *Supervisor) removeInstance() {
	if s.deps.Instances == nil {
		return
	}
	if err := s.deps.Instances.Remove(context.Background()); err != nil {
		s.logger.Debug("failed to remove instance record", ports.Err(err))
	}
}

// reapOrphan kills a server recorded by an earlier run whose host died
// without tearing down. Only processes that identify as redis are touched.
func (s *Supervisor) reapOrphan(ctx context.Context) {
	if s.deps.Instances == nil {
		return
	}
	rec, err := s.deps.Instances.Load(ctx)
	if err != nil {
		s.logger.Debug("ignoring unreadable instance record", ports.Err(err))
		return
	}
	if rec.IsZero() || !processAlive(rec.PID) {
		return
	}
	name, ok := processName(rec.PID)
	if !ok || !strings.Contains(name, "redis") {
		s.logger.Debug("instance record points at a foreign process, not reaping",
			ports.Int("pid", rec.PID))
		return
	}

	s.logger.Warn("killing orphaned redis-server from a previous run",
		ports.Int("pid", rec.PID),
		ports.Int("port", rec.Port),
	)
	p, err := os.FindProcess(rec.PID)
	if err != nil {
		return
	}
	if err := p.Kill(); err != nil {
		s.logger.Warn("failed to kill orphaned server", ports.Err(err))
		return
	}
	err = retry(ctx, 10, newBackoff(50*time.Millisecond, 500*time.Millisecond), func() error {
		if processAlive(rec.PID) {
			return fmt.Errorf("pid %d still alive", rec.PID)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("orphaned server did not exit", ports.Err(err))
	}
}

// RunCommand runs one command through redis-cli against the server and
// returns its standard output. The command line is split on whitespace.
func (s *Supervisor) RunCommand(ctx context.Context, commandLine string) (string, error) {
	return s.RunCommandArgs(ctx, strings.Fields(commandLine)...)
}

func (s *Supervisor) portArg() string {
	return strconv.Itoa(s.port)
}
