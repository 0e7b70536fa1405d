package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Port            int      `toml:"port"`
	Socket          string   `toml:"socket"`
	NoSocket        *bool    `toml:"no_socket"`
	BaseDir         string   `toml:"base_dir"`
	DataDir         string   `toml:"data_dir"`
	ServerBinary    string   `toml:"server_bin"`
	ClientBinary    string   `toml:"cli_bin"`
	BinarySource    string   `toml:"binary_source"`
	InitRDBFile     string   `toml:"init_rdb"`
	Args            []string `toml:"args"`
	Commands        []string `toml:"commands"`
	StartTimeout    string   `toml:"start_timeout"`
	StopGracePeriod string   `toml:"stop_grace_period"`
	KeepData        *bool    `toml:"keep_data"`
	Once            *bool    `toml:"once"`
	LogLevel        string   `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.embedredis/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".embedredis", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setInt("port", fc.Port, &cfg.Port)
	s.setString("socket", fc.Socket, &cfg.Socket)
	s.setString("base-dir", fc.BaseDir, &cfg.BaseDir)
	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("server-bin", fc.ServerBinary, &cfg.ServerBinary)
	s.setString("cli-bin", fc.ClientBinary, &cfg.ClientBinary)
	s.setString("binary-source", fc.BinarySource, &cfg.BinarySource)
	s.setString("init-rdb", fc.InitRDBFile, &cfg.InitRDBFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setStrings("arg", fc.Args, &cfg.Args)
	s.setStrings("command", fc.Commands, &cfg.Commands)

	if err := s.setDuration("timeout", fc.StartTimeout, &cfg.StartTimeout); err != nil {
		return err
	}
	if err := s.setDuration("stop-grace", fc.StopGracePeriod, &cfg.StopGracePeriod); err != nil {
		return err
	}

	s.setBool("no-socket", fc.NoSocket, &cfg.NoSocket)
	s.setBool("keep-data", fc.KeepData, &cfg.KeepData)
	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
