package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/embedredis/internal/cliconfig"
	"github.com/bft-labs/embedredis/pkg/embedredis"
	"github.com/bft-labs/embedredis/pkg/log"
)

const helpDescription = `
Run a throwaway redis-server for local development and integration tests.

Highlights:
  - Picks a free port and a private directory under the system temp dir.
  - Waits until the server accepts connections before reporting ready.
  - Removes the server and its temp directories on exit, including Ctrl-C.
  - Configure via file, env (EMBEDREDIS_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  embedredis
  embedredis --port 6390 --arg=--maxmemory --arg=64mb
  embedredis --once --command "SET k v" --command "GET k"
  embedredis --config $HOME/.embedredis/config.toml --keep-data
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:          "embedredis",
		Short:        "Run a throwaway redis-server that cleans up after itself",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.embedredis/config.toml), then apply flag overrides
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment overrides the file, flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			// Positional arguments are extra commands.
			cfg.Commands = append(cfg.Commands, args...)

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cliconfig.SetLogLevel(cfg.LogLevel); err != nil {
				return err
			}

			return run(context.Background(), cfg)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.embedredis/config.toml)")
	root.Flags().IntVar(&cfg.Port, "port", cfg.Port, "TCP port (0 picks a free port)")
	root.Flags().StringVar(&cfg.Socket, "socket", cfg.Socket, "unix socket path (default: <tmp>/embedredis.<port>.sock)")
	root.Flags().BoolVar(&cfg.NoSocket, "no-socket", cfg.NoSocket, "do not listen on a unix socket")
	root.Flags().StringVar(&cfg.BaseDir, "base-dir", cfg.BaseDir, "base directory (default: unique directory under the system temp dir)")
	root.Flags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "server working directory (default: <base-dir>/data)")

	root.Flags().StringVar(&cfg.ServerBinary, "server-bin", cfg.ServerBinary, "path to redis-server (default: looked up on PATH)")
	root.Flags().StringVar(&cfg.ClientBinary, "cli-bin", cfg.ClientBinary, "path to redis-cli (default: looked up on PATH)")
	root.Flags().StringVar(&cfg.BinarySource, "binary-source", cfg.BinarySource, "directory to install redis executables from")
	root.Flags().StringVar(&cfg.InitRDBFile, "init-rdb", cfg.InitRDBFile, "RDB snapshot to load on start")

	root.Flags().StringArrayVar(&cfg.Args, "arg", cfg.Args, "extra redis-server argument (repeatable)")
	root.Flags().StringArrayVar(&cfg.Commands, "command", cfg.Commands, "redis-cli command to run once ready (repeatable)")

	root.Flags().DurationVar(&cfg.StartTimeout, "timeout", cfg.StartTimeout, "how long to wait for the server to become ready")
	root.Flags().DurationVar(&cfg.StopGracePeriod, "stop-grace", cfg.StopGracePeriod, "how long to wait after SIGTERM before killing")
	root.Flags().BoolVar(&cfg.KeepData, "keep-data", cfg.KeepData, "keep temporary directories on exit")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "run the commands and exit instead of waiting for a signal")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		logger := cliconfig.Logger()
		logger.Error().Err(err).Msg("embedredis")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliconfig.Config) (err error) {
	logger := cliconfig.Logger()

	ctx, cancel := notifyShutdown(ctx)
	defer cancel()

	watcher := newExitWatcher()
	srv, err := embedredis.New(cfg.LibraryConfig(),
		embedredis.WithLogger(log.NewZerologAdapterWithLogger(logger)),
		embedredis.WithEventHandler(watcher),
		// The context above owns signals; Close runs the teardown.
		embedredis.WithoutSignalHandler(),
	)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer func() {
		if cerr := srv.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("stop server: %w", cerr)
		}
	}()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	logger.Info().
		Int("port", srv.Port()).
		Str("socket", srv.Socket()).
		Int("pid", srv.PID()).
		Str("data_dir", srv.Directories().Data.Path).
		Msg("redis-server ready")

	for _, c := range cfg.Commands {
		out, err := srv.RunCommand(ctx, c)
		if err != nil {
			return fmt.Errorf("command %q: %w", c, err)
		}
		fmt.Print(out)
	}

	if cfg.Once {
		return nil
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("received signal, stopping...")
		return nil
	case <-watcher.stopped:
		return fmt.Errorf("redis-server exited unexpectedly")
	}
}

// notifyShutdown returns a context canceled by any of shutdownSignals.
// redis-server runs in its own process group, so a signal the CLI does
// not catch would leave it running.
func notifyShutdown(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, shutdownSignals...)
}

// exitWatcher closes stopped when the server reaches StateStopped.
type exitWatcher struct {
	embedredis.BaseEventHandler
	stopped chan struct{}
	once    sync.Once
}

func newExitWatcher() *exitWatcher {
	return &exitWatcher{stopped: make(chan struct{})}
}

func (w *exitWatcher) OnStateChange(e embedredis.StateChangeEvent) {
	if e.Current == embedredis.StateStopped {
		w.once.Do(func() { close(w.stopped) })
	}
}
