package app

import (
	"strconv"
	"strings"
)

// ArgOptions are the inputs to BuildArgs.
type ArgOptions struct {
	DataDir string
	Port    int
	// Socket is the unix socket path; empty disables the socket.
	Socket string
	// SeededRDB is true when an initial dump.rdb was copied into DataDir.
	SeededRDB bool
	// Windows suppresses the unix socket argument.
	Windows bool
	// User arguments, appended verbatim after the built-ins.
	User []string
}

type builtinArg struct {
	name  string
	value string
}

// BuildArgs returns the redis-server command line. Built-in arguments come
// first, in a fixed order, followed by the user arguments. A built-in is
// dropped when a user argument names the same flag, either alone ("--port")
// or followed by "=" or a space ("--port=7000", "--port 7000"). A longer
// flag sharing the prefix, such as "--bind-source-addr", does not count.
func BuildArgs(opts ArgOptions) []string {
	builtins := []builtinArg{
		{"--daemonize", "no"},
		{"--appendonly", "no"},
		{"--protected-mode", "yes"},
		{"--logfile", ""}, // empty: log to stdout, where the marker is read
		{"--dir", opts.DataDir},
		{"--port", strconv.Itoa(opts.Port)},
		{"--bind", "127.0.0.1"},
	}
	if opts.Socket != "" && !opts.Windows {
		builtins = append(builtins, builtinArg{"--unixsocket", opts.Socket})
	}
	if opts.SeededRDB {
		builtins = append(builtins, builtinArg{"--dbfilename", seedFileName})
	}

	args := make([]string, 0, 2*len(builtins)+len(opts.User))
	for _, b := range builtins {
		if overridden(b.name, opts.User) {
			continue
		}
		args = append(args, b.name, b.value)
	}
	return append(args, opts.User...)
}

func overridden(name string, user []string) bool {
	for _, arg := range user {
		rest, ok := strings.CutPrefix(arg, name)
		if ok && (rest == "" || rest[0] == '=' || rest[0] == ' ') {
			return true
		}
	}
	return false
}

// EffectivePort returns the port the server will listen on: the value of a
// user supplied "--port" argument when present, otherwise port.
func EffectivePort(port int, user []string) int {
	for i, arg := range user {
		var value string
		switch {
		case arg == "--port" && i+1 < len(user):
			value = user[i+1]
		case strings.HasPrefix(arg, "--port="):
			value = strings.TrimPrefix(arg, "--port=")
		default:
			continue
		}
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return port
}
