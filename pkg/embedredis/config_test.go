package embedredis

import (
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestConfig_SetDefaults(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Port: 7001, TempRoot: root}
	cfg.SetDefaults()

	if !strings.HasPrefix(cfg.BaseDir, filepath.Join(root, "embedredis")+string(filepath.Separator)) {
		t.Errorf("BaseDir = %q, want below %q", cfg.BaseDir, root)
	}
	if !strings.HasSuffix(cfg.BaseDir, "-7001") {
		t.Errorf("BaseDir = %q, want port suffix", cfg.BaseDir)
	}
	for name, got := range map[string]string{
		"data": cfg.DataDir,
		"tmp":  cfg.TmpDir,
		"lib":  cfg.LibDir,
	} {
		if want := filepath.Join(cfg.BaseDir, name); got != want {
			t.Errorf("%s dir = %q, want %q", name, got, want)
		}
	}
	if runtime.GOOS != "windows" {
		if want := filepath.Join(root, "embedredis.7001.sock"); cfg.Socket != want {
			t.Errorf("Socket = %q, want %q", cfg.Socket, want)
		}
	}
	if cfg.ReadyMarker != DefaultReadyMarker {
		t.Errorf("ReadyMarker = %q", cfg.ReadyMarker)
	}
	if cfg.StartTimeout != DefaultStartTimeout {
		t.Errorf("StartTimeout = %v", cfg.StartTimeout)
	}
	if cfg.StopGracePeriod != DefaultStopGracePeriod {
		t.Errorf("StopGracePeriod = %v", cfg.StopGracePeriod)
	}
	if cfg.OutputTailLines != DefaultOutputTailLines {
		t.Errorf("OutputTailLines = %d", cfg.OutputTailLines)
	}
}

func TestConfig_SetDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Port:         7002,
		TempRoot:     t.TempDir(),
		DataDir:      "/srv/redis",
		StartTimeout: time.Second,
		Socket:       "/run/redis.sock",
	}
	cfg.SetDefaults()

	if cfg.DataDir != "/srv/redis" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.StartTimeout != time.Second {
		t.Errorf("StartTimeout = %v", cfg.StartTimeout)
	}
	if cfg.Socket != "/run/redis.sock" {
		t.Errorf("Socket = %q", cfg.Socket)
	}
}

func TestConfig_SetDefaultsUniqueBaseDirs(t *testing.T) {
	root := t.TempDir()
	a := Config{Port: 7003, TempRoot: root}
	b := Config{Port: 7003, TempRoot: root}
	a.SetDefaults()
	b.SetDefaults()

	if a.BaseDir == b.BaseDir {
		t.Errorf("two configs share BaseDir %q", a.BaseDir)
	}
}

func TestConfig_DisableUnixSocket(t *testing.T) {
	cfg := Config{Port: 7004, TempRoot: t.TempDir(), Socket: "/tmp/x.sock", DisableUnixSocket: true}
	cfg.SetDefaults()

	if cfg.Socket != "" {
		t.Errorf("Socket = %q, want empty", cfg.Socket)
	}
}

func TestConfig_RelativeSocketMadeAbsolute(t *testing.T) {
	cfg := Config{Port: 7005, TempRoot: t.TempDir(), Socket: filepath.Join("run", "r.sock")}
	cfg.SetDefaults()

	if !filepath.IsAbs(cfg.Socket) {
		t.Fatalf("Socket = %q, want absolute path", cfg.Socket)
	}
	if !strings.HasSuffix(cfg.Socket, filepath.Join("run", "r.sock")) {
		t.Errorf("Socket = %q, want suffix run/r.sock", cfg.Socket)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative port", func(c *Config) { c.Port = -1 }, true},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"negative start timeout", func(c *Config) { c.StartTimeout = -time.Second }, true},
		{"negative grace period", func(c *Config) { c.StopGracePeriod = -time.Second }, true},
		{"negative teardown wait", func(c *Config) { c.TeardownWait = -time.Second }, true},
		{"negative tail", func(c *Config) { c.OutputTailLines = -1 }, true},
		{"missing rdb", func(c *Config) { c.InitRDBFile = filepath.Join(c.TempRoot, "missing.rdb") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Port: 7005, TempRoot: t.TempDir()}
			cfg.SetDefaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestFreePort(t *testing.T) {
	port, err := FreePort()
	if err != nil {
		t.Fatalf("FreePort() error = %v", err)
	}
	if port <= 0 || port > 65535 {
		t.Errorf("FreePort() = %d", port)
	}
}
