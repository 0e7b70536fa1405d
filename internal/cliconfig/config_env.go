package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (EMBEDREDIS_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if err := s.setIntFromString("port", os.Getenv("EMBEDREDIS_PORT"), &cfg.Port); err != nil {
		return err
	}
	s.setString("socket", os.Getenv("EMBEDREDIS_SOCKET"), &cfg.Socket)
	s.setString("base-dir", os.Getenv("EMBEDREDIS_BASE_DIR"), &cfg.BaseDir)
	s.setString("data-dir", os.Getenv("EMBEDREDIS_DATA_DIR"), &cfg.DataDir)
	s.setString("server-bin", os.Getenv("EMBEDREDIS_SERVER_BIN"), &cfg.ServerBinary)
	s.setString("cli-bin", os.Getenv("EMBEDREDIS_CLI_BIN"), &cfg.ClientBinary)
	s.setString("binary-source", os.Getenv("EMBEDREDIS_BINARY_SOURCE"), &cfg.BinarySource)
	s.setString("init-rdb", os.Getenv("EMBEDREDIS_INIT_RDB"), &cfg.InitRDBFile)
	s.setString("log-level", os.Getenv("EMBEDREDIS_LOG_LEVEL"), &cfg.LogLevel)

	s.setFieldsFromString("arg", os.Getenv("EMBEDREDIS_ARGS"), &cfg.Args)

	if err := s.setDuration("timeout", os.Getenv("EMBEDREDIS_START_TIMEOUT"), &cfg.StartTimeout); err != nil {
		return err
	}
	if err := s.setDuration("stop-grace", os.Getenv("EMBEDREDIS_STOP_GRACE_PERIOD"), &cfg.StopGracePeriod); err != nil {
		return err
	}

	s.setBoolFromString("no-socket", os.Getenv("EMBEDREDIS_NO_SOCKET"), &cfg.NoSocket)
	s.setBoolFromString("keep-data", os.Getenv("EMBEDREDIS_KEEP_DATA"), &cfg.KeepData)
	s.setBoolFromString("once", os.Getenv("EMBEDREDIS_ONCE"), &cfg.Once)

	return nil
}
