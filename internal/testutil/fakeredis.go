// Package testutil provides fake redis executables for tests that exercise
// process supervision without a real Redis installation.
package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

// ServerBehavior selects how a fake redis-server behaves.
type ServerBehavior int

const (
	// ServerReady prints the readiness marker and runs until terminated.
	ServerReady ServerBehavior = iota
	// ServerSilent never prints the marker.
	ServerSilent
	// ServerExitsEarly prints an error and exits with status 3.
	ServerExitsEarly
	// ServerCrashesAfterReady prints the marker and exits a second later.
	ServerCrashesAfterReady
	// ServerIgnoresTerm prints the marker and ignores SIGTERM.
	ServerIgnoresTerm
)

// ReadyLine is the line fake servers print once ready.
const ReadyLine = "1:M 01 Jan 2024 00:00:00.000 * Ready to accept connections tcp"

const serverPrelude = `#!/bin/sh
echo "fake redis-server $*"
sock=""
while [ $# -gt 0 ]; do
  case "$1" in
    --unixsocket) sock="$2"; shift ;;
  esac
  shift
done
`

// SkipWithoutShell skips tests that need /bin/sh.
func SkipWithoutShell(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake redis executables are shell scripts")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

// FakeServer writes a fake redis-server into a fresh temp directory and
// returns its path.
func FakeServer(t testing.TB, b ServerBehavior) string {
	t.Helper()

	body := serverPrelude
	switch b {
	case ServerReady:
		body += `if [ -n "$sock" ]; then : > "$sock"; fi
echo "` + ReadyLine + `"
trap 'echo "Received SIGTERM scheduling shutdown"; exit 0' TERM
while :; do sleep 1; done
`
	case ServerSilent:
		body += `echo "loading"
while :; do sleep 1; done
`
	case ServerExitsEarly:
		body += `echo "*** FATAL CONFIG FILE ERROR ***"
echo "Bad directive or wrong number of arguments"
exit 3
`
	case ServerCrashesAfterReady:
		body += `echo "` + ReadyLine + `"
sleep 1
exit 1
`
	case ServerIgnoresTerm:
		body += `echo "` + ReadyLine + `"
trap '' TERM
while :; do sleep 1; done
`
	default:
		t.Fatalf("unknown behavior %d", b)
	}

	return writeScript(t, t.TempDir(), "redis-server", body)
}

// FakeClient writes a fake redis-cli that understands PING, SET and GET,
// backed by files in its own temp directory, and returns its path.
func FakeClient(t testing.TB) string {
	t.Helper()

	dir := t.TempDir()
	store := filepath.Join(dir, "store")
	if err := os.MkdirAll(store, 0o755); err != nil {
		t.Fatal(err)
	}

	body := fmt.Sprintf(`#!/bin/sh
store=%q
if [ "$1" = "-p" ]; then shift 2; fi
cmd=$(printf '%%s' "$1" | tr '[:lower:]' '[:upper:]')
case "$cmd" in
  PING) echo PONG ;;
  SET) printf '%%s' "$3" > "$store/$2"; echo OK ;;
  GET) if [ -f "$store/$2" ]; then cat "$store/$2"; fi; echo ;;
  *) echo "ERR unknown command '$1'" >&2; exit 1 ;;
esac
`, store)

	return writeScript(t, dir, "redis-cli", body)
}

func writeScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}
