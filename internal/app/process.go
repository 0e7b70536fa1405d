package app

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/bft-labs/embedredis/internal/ports"
)

// killWait bounds the wait for exit after a forced kill.
const killWait = 5 * time.Second

// spawnSpec describes the server process to launch.
type spawnSpec struct {
	Path      string
	Args      []string
	Dir       string
	Env       []string
	Marker    string
	TailLines int
}

// processHandle owns a launched server process.
type processHandle struct {
	cmd     *exec.Cmd
	pid     int
	output  *outputScanner
	exited  chan struct{}
	exitErr error
}

// spawnProcess starts the server with stdout and stderr merged into one
// pipe. onExit runs on the waiter goroutine once the process has exited.
func spawnProcess(spec spawnSpec, logger ports.Logger, sink OutputSink, onExit func(error)) (*processHandle, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create output pipe: %w", err)
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdout = w
	cmd.Stderr = w
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	// The child holds its own copy of the write end; closing ours lets the
	// reader see EOF when the child exits.
	w.Close()

	h := &processHandle{
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		output: newOutputScanner(spec.Marker, newOutputTail(spec.TailLines), logger, sink),
		exited: make(chan struct{}),
	}

	go func() {
		h.output.scan(r)
		r.Close()
	}()

	go func() {
		err := cmd.Wait()
		h.exitErr = err
		close(h.exited)
		if onExit != nil {
			onExit(err)
		}
	}()

	return h, nil
}

// Ready is closed when the readiness marker has been printed.
func (h *processHandle) Ready() <-chan struct{} {
	return h.output.ready
}

// Exited is closed when the process has been reaped.
func (h *processHandle) Exited() <-chan struct{} {
	return h.exited
}

// ExitErr returns the result of Wait. Only valid after Exited is closed.
func (h *processHandle) ExitErr() error {
	return h.exitErr
}

// Tail returns the most recent output lines.
func (h *processHandle) Tail() []string {
	return h.output.tail.Lines()
}

func (h *processHandle) hasExited() bool {
	select {
	case <-h.exited:
		return true
	default:
		return false
	}
}

// alive reports whether the process is still running.
func (h *processHandle) alive() bool {
	return !h.hasExited() && processAlive(h.pid)
}

func (h *processHandle) waitExit(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-h.exited:
		return true
	case <-t.C:
		return false
	}
}

// terminate asks the process to exit and escalates to a kill after grace.
// It is safe to call from several goroutines.
func (h *processHandle) terminate(grace time.Duration) error {
	if h.hasExited() {
		return nil
	}

	if err := terminateProcess(h.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("terminate pid %d: %w", h.pid, err)
	}
	if h.waitExit(grace) {
		return nil
	}

	if err := killProcess(h.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill pid %d: %w", h.pid, err)
	}
	if h.waitExit(killWait) {
		return nil
	}
	return fmt.Errorf("pid %d still running after kill", h.pid)
}
