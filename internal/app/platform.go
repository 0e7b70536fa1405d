package app

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Executable base names.
const (
	ServerExecutable    = "redis-server"
	ClientExecutable    = "redis-cli"
	BenchmarkExecutable = "redis-benchmark"
)

const seedFileName = "dump.rdb"

// LibraryPathEnvVar returns the variable the dynamic loader consults for
// shared libraries on goos.
func LibraryPathEnvVar(goos string) string {
	switch goos {
	case "windows":
		return "PATH"
	case "darwin":
		return "DYLD_FALLBACK_LIBRARY_PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}

// ExecutableName returns name with the platform executable suffix.
func ExecutableName(name, goos string) string {
	if goos == "windows" && !strings.HasSuffix(name, ".exe") {
		return name + ".exe"
	}
	return name
}

// childEnv returns the host environment with libDir prepended to the
// library search variable.
func childEnv(libDir string) []string {
	env := os.Environ()
	if libDir == "" {
		return env
	}
	key := LibraryPathEnvVar(runtime.GOOS)
	value := libDir
	if existing, ok := os.LookupEnv(key); ok && existing != "" {
		value = libDir + string(filepath.ListSeparator) + existing
	}

	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, key+"=") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, key+"="+value)
}
