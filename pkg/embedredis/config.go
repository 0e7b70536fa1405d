package embedredis

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/embedredis/internal/app"
	"github.com/bft-labs/embedredis/internal/domain"
)

// Default values for Config.
const (
	// DefaultReadyMarker is the log fragment redis-server prints once it
	// accepts connections.
	DefaultReadyMarker = domain.DefaultReadyMarker

	// DefaultStartTimeout bounds how long Start waits for the marker.
	DefaultStartTimeout = domain.DefaultStartTimeout

	// DefaultStopGracePeriod bounds how long Stop waits before killing.
	DefaultStopGracePeriod = app.DefaultStopGracePeriod

	// DefaultTeardownWait bounds how long teardown waits before killing.
	DefaultTeardownWait = app.DefaultTeardownWait

	// DefaultOutputTailLines is the number of server output lines kept.
	DefaultOutputTailLines = app.DefaultOutputTailLines
)

// Config holds the configuration of one embedded redis-server.
// Zero values are replaced by SetDefaults.
type Config struct {
	// Port is the TCP port. Zero picks a free port.
	Port int

	// Socket is the unix socket path. Empty uses a default under TempRoot
	// unless DisableUnixSocket is set. Ignored on Windows.
	Socket            string
	DisableUnixSocket bool

	// TempRoot is the system temporary directory. Only directories strictly
	// below it are deleted on shutdown. Default: os.TempDir().
	TempRoot string

	// BaseDir holds installed executables and the instance record.
	// Default: <TempRoot>/embedredis/<uuid>-<port>.
	BaseDir string
	// DataDir is the server's working directory. Default: <BaseDir>/data.
	DataDir string
	// TmpDir default: <BaseDir>/tmp.
	TmpDir string
	// LibDir is exported in the library search path. Default: <BaseDir>/lib.
	LibDir string

	// Args are passed to redis-server after the built-in arguments. A
	// built-in is dropped when an entry names the same flag, alone or
	// followed by "=" or a space.
	Args []string

	// KeepTemporaryDirs disables deletion of ephemeral directories.
	KeepTemporaryDirs bool

	// ServerBinary and ClientBinary are explicit executable paths.
	ServerBinary string
	ClientBinary string
	// BinarySource is a directory to install executables from. When empty
	// the executables are looked up on PATH.
	BinarySource string

	// InitRDBFile is copied into DataDir as dump.rdb before start.
	InitRDBFile string

	ReadyMarker     string
	StartTimeout    time.Duration
	StopGracePeriod time.Duration
	TeardownWait    time.Duration
	OutputTailLines int

	id string
}

// SetDefaults fills unset fields. Port must already be resolved for the
// derived paths to carry it; New does that before calling SetDefaults.
func (c *Config) SetDefaults() {
	if c.id == "" {
		c.id = uuid.NewString()
	}
	if c.TempRoot == "" {
		c.TempRoot = os.TempDir()
	}
	if c.BaseDir == "" {
		c.BaseDir = filepath.Join(c.TempRoot, "embedredis", fmt.Sprintf("%s-%d", c.id, c.Port))
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(c.BaseDir, "data")
	}
	if c.TmpDir == "" {
		c.TmpDir = filepath.Join(c.BaseDir, "tmp")
	}
	if c.LibDir == "" {
		c.LibDir = filepath.Join(c.BaseDir, "lib")
	}
	if c.Socket == "" && !c.DisableUnixSocket && runtime.GOOS != "windows" {
		c.Socket = filepath.Join(c.TempRoot, fmt.Sprintf("embedredis.%d.sock", c.Port))
	}
	if c.DisableUnixSocket {
		c.Socket = ""
	}
	if c.Socket != "" {
		if abs, err := filepath.Abs(c.Socket); err == nil {
			c.Socket = abs
		}
	}
	if c.ReadyMarker == "" {
		c.ReadyMarker = DefaultReadyMarker
	}
	if c.StartTimeout == 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.StopGracePeriod == 0 {
		c.StopGracePeriod = DefaultStopGracePeriod
	}
	if c.TeardownWait == 0 {
		c.TeardownWait = DefaultTeardownWait
	}
	if c.OutputTailLines == 0 {
		c.OutputTailLines = DefaultOutputTailLines
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.StartTimeout < 0 {
		return fmt.Errorf("%w: start timeout must not be negative", ErrInvalidConfig)
	}
	if c.StopGracePeriod < 0 {
		return fmt.Errorf("%w: stop grace period must not be negative", ErrInvalidConfig)
	}
	if c.TeardownWait < 0 {
		return fmt.Errorf("%w: teardown wait must not be negative", ErrInvalidConfig)
	}
	if c.OutputTailLines < 0 {
		return fmt.Errorf("%w: output tail lines must not be negative", ErrInvalidConfig)
	}
	if c.BaseDir == "" || c.DataDir == "" || c.TmpDir == "" || c.LibDir == "" {
		return fmt.Errorf("%w: directories must be set", ErrInvalidConfig)
	}
	if c.InitRDBFile != "" {
		if _, err := os.Stat(c.InitRDBFile); err != nil {
			return fmt.Errorf("%w: init rdb file: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// FreePort asks the kernel for an unused TCP port on the loopback
// interface. The port is released before returning, so another process
// may still take it.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func (c *Config) paths() domain.DirectoryPaths {
	return domain.DirectoryPaths{
		Base: c.BaseDir,
		Data: c.DataDir,
		Temp: c.TmpDir,
		Lib:  c.LibDir,
	}
}
