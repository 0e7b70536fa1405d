package app

import (
	"sync/atomic"
	"time"

	"github.com/bft-labs/embedredis/internal/domain"
	"github.com/bft-labs/embedredis/internal/ports"
)

// DefaultTeardownWait bounds how long the guard waits for the server to
// exit before killing it.
const DefaultTeardownWait = 5 * time.Second

// GuardTarget is the process a ShutdownGuard stops.
type GuardTarget interface {
	IsAlive() bool
	Terminate(grace time.Duration) error
}

// GuardConfig controls what a ShutdownGuard cleans up.
type GuardConfig struct {
	DeleteOnShutdown bool
	TerminateWait    time.Duration
}

// ShutdownGuard stops the server and removes its ephemeral directories when
// the host shuts down. The target and the directories are read only when
// the guard runs, so it can be armed before the server exists.
type ShutdownGuard struct {
	target      GuardTarget
	dirs        func() domain.DirectorySet
	directories ports.DirectoryManager
	cfg         GuardConfig
	logger      ports.Logger

	ran        atomic.Bool
	unregister func()
}

// ArmShutdownGuard creates a guard and registers it with registry.
func ArmShutdownGuard(
	registry ports.TeardownRegistry,
	name string,
	target GuardTarget,
	dirs func() domain.DirectorySet,
	directories ports.DirectoryManager,
	cfg GuardConfig,
	logger ports.Logger,
) *ShutdownGuard {
	if cfg.TerminateWait <= 0 {
		cfg.TerminateWait = DefaultTeardownWait
	}
	g := &ShutdownGuard{
		target:      target,
		dirs:        dirs,
		directories: directories,
		cfg:         cfg,
		logger:      logger,
	}
	g.unregister = registry.Register(name, g.Run)
	return g
}

// Run stops the server if it is alive and purges every ephemeral directory
// when deletion on shutdown is enabled. It runs at most once and never
// returns an error: failures are logged as warnings.
func (g *ShutdownGuard) Run() {
	if !g.ran.CompareAndSwap(false, true) {
		return
	}
	defer g.unregister()

	if g.target.IsAlive() {
		g.logger.Info("teardown: stopping server")
		if err := g.target.Terminate(g.cfg.TerminateWait); err != nil {
			g.logger.Warn("teardown: failed to stop server", ports.Err(err))
		}
	}

	if !g.cfg.DeleteOnShutdown {
		g.logger.Debug("teardown: keeping directories")
		return
	}

	for _, d := range g.dirs().All() {
		if d.Path == "" {
			continue
		}
		if !d.Ephemeral {
			g.logger.Debug("teardown: keeping non-ephemeral directory", ports.String("path", d.Path))
			continue
		}
		if err := g.directories.Purge(d.Path); err != nil {
			g.logger.Warn("teardown: failed to delete directory",
				ports.String("path", d.Path),
				ports.Err(err),
			)
			continue
		}
		g.logger.Debug("teardown: deleted directory", ports.String("path", d.Path))
	}
}

// Ran reports whether Run has been invoked.
func (g *ShutdownGuard) Ran() bool {
	return g.ran.Load()
}
