package embedredis

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bft-labs/embedredis/internal/adapters/fs"
	logAdapter "github.com/bft-labs/embedredis/internal/adapters/log"
	"github.com/bft-labs/embedredis/internal/app"
	"github.com/bft-labs/embedredis/internal/domain"
	"github.com/bft-labs/embedredis/internal/ports"
)

// Redis is an embedded redis-server for tests. Use New() to create an
// instance, then Start() to launch it. An instance is single use.
type Redis struct {
	config Config
	opts   options
	sup    *app.Supervisor
	logger ports.Logger
}

// New creates a Redis instance in StateNotStarted. Nothing is created on
// disk until Start. Returns an error if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Redis, error) {
	if cfg.Port == 0 {
		port, err := FreePort()
		if err != nil {
			return nil, err
		}
		cfg.Port = port
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logAdapter.Discard()
	}
	if o.registry == nil {
		o.registry = app.DefaultRegistry()
	}
	if o.protection == nil {
		o.protection = fs.NewFileProtection()
	}
	if !o.instancesSet {
		// Keyed by port so a run with a fresh base directory still finds
		// the server an earlier, killed run left on the same port.
		o.instances = fs.NewPortInstanceRepository(
			filepath.Join(cfg.TempRoot, "embedredis"),
			app.EffectivePort(cfg.Port, cfg.Args),
		)
	}

	logger := logAdapter.NewTagged(o.logger,
		ports.String("component", "embedredis"),
		ports.Int("port", cfg.Port),
	)

	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	deps := app.SupervisorDeps{
		Directories: fs.NewDirectoryManager(cfg.TempRoot, o.protection, logger),
		Instances:   o.instances,
		Watcher:     fs.NewPathWatcher(logger),
		Installer:   fs.NewExecutableInstaller(),
		Registry:    o.registry,
		Logger:      logger,
		Emitter:     emitter,
		Output:      emitter,
	}

	sup, err := app.NewSupervisor(app.SupervisorConfig{
		Name:         fmt.Sprintf("embedredis-%s", cfg.id),
		Port:         cfg.Port,
		Socket:       cfg.Socket,
		Paths:        cfg.paths(),
		Args:         cfg.Args,
		ServerBinary: cfg.ServerBinary,
		ClientBinary: cfg.ClientBinary,
		BinarySource: cfg.BinarySource,
		InitRDBFile:  cfg.InitRDBFile,
		Readiness: domain.ReadinessSpec{
			Marker:  cfg.ReadyMarker,
			Timeout: cfg.StartTimeout,
		},
		StopGracePeriod:  cfg.StopGracePeriod,
		TeardownWait:     cfg.TeardownWait,
		OutputTailLines:  cfg.OutputTailLines,
		DeleteOnShutdown: !cfg.KeepTemporaryDirs,
	}, deps)
	if err != nil {
		return nil, err
	}

	return &Redis{
		config: cfg,
		opts:   o,
		sup:    sup,
		logger: logger,
	}, nil
}

// Start launches redis-server and blocks until it accepts connections,
// the start timeout elapses, or ctx is done. It may be called once.
//
// A shutdown guard is registered before the server is launched, so the
// server and its ephemeral directories are removed when the registry runs
// even if Stop is never called.
func (r *Redis) Start(ctx context.Context) error {
	if r.opts.interceptSignal {
		app.DefaultRegistry().InterceptSignals()
	}
	return r.sup.Start(ctx)
}

// Stop terminates the server: SIGTERM, then SIGKILL after the stop grace
// period. It is a no-op before Start and after the server stopped.
// Directories are left in place until Close or teardown.
func (r *Redis) Stop() error {
	return r.sup.Stop()
}

// Close stops the server and removes its ephemeral directories.
func (r *Redis) Close() error {
	err := r.sup.Stop()
	r.sup.Teardown()
	return err
}

// RunCommand runs one command through redis-cli and returns its output.
// The command line is split on whitespace.
func (r *Redis) RunCommand(ctx context.Context, commandLine string) (string, error) {
	return r.sup.RunCommand(ctx, commandLine)
}

// RunCommandArgs runs redis-cli with args passed verbatim.
func (r *Redis) RunCommandArgs(ctx context.Context, args ...string) (string, error) {
	return r.sup.RunCommandArgs(ctx, args...)
}

// IsAlive reports whether the server process is running.
// Safe to call concurrently from any goroutine.
func (r *Redis) IsAlive() bool {
	return r.sup.IsAlive()
}

// Port returns the TCP port the server listens on.
func (r *Redis) Port() int {
	return r.sup.Port()
}

// Addr returns the loopback address of the server.
func (r *Redis) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", r.sup.Port())
}

// Socket returns the unix socket path, or "" when none is configured.
func (r *Redis) Socket() string {
	return r.sup.Socket()
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (r *Redis) Status() State {
	return convertState(r.sup.State())
}

// Directories returns the directories the server uses.
func (r *Redis) Directories() Directories {
	return r.sup.Directories()
}

// Output returns the most recent lines the server printed.
func (r *Redis) Output() []string {
	return r.sup.Output()
}

// PID returns the server's process id, or 0 before Start.
func (r *Redis) PID() int {
	return r.sup.PID()
}

// Config returns the configuration with defaults applied.
func (r *Redis) Config() Config {
	return r.config
}
