package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/embedredis/pkg/embedredis"
)

// Config holds CLI configuration for embedredis.
type Config struct {
	Port     int
	Socket   string
	NoSocket bool

	BaseDir string
	DataDir string

	ServerBinary string
	ClientBinary string
	BinarySource string
	InitRDBFile  string

	Args     []string
	Commands []string

	StartTimeout    time.Duration
	StopGracePeriod time.Duration

	KeepData bool
	Once     bool
	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		StartTimeout:    embedredis.DefaultStartTimeout,
		StopGracePeriod: embedredis.DefaultStopGracePeriod,
		LogLevel:        "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.StartTimeout <= 0 {
		return fmt.Errorf("start timeout must be positive")
	}
	if c.StopGracePeriod <= 0 {
		return fmt.Errorf("stop grace period must be positive")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// LibraryConfig converts the CLI configuration into the library's.
func (c Config) LibraryConfig() embedredis.Config {
	return embedredis.Config{
		Port:              c.Port,
		Socket:            c.Socket,
		DisableUnixSocket: c.NoSocket,
		BaseDir:           c.BaseDir,
		DataDir:           c.DataDir,
		Args:              append([]string(nil), c.Args...),
		KeepTemporaryDirs: c.KeepData,
		ServerBinary:      c.ServerBinary,
		ClientBinary:      c.ClientBinary,
		BinarySource:      c.BinarySource,
		InitRDBFile:       c.InitRDBFile,
		StartTimeout:      c.StartTimeout,
		StopGracePeriod:   c.StopGracePeriod,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings replaces a list if the new one is not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setFieldsFromString splits a whitespace separated list.
func (s *configSetter) setFieldsFromString(flag, value string, dst *[]string) {
	s.setStrings(flag, strings.Fields(value), dst)
}
