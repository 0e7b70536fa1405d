package app

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/bft-labs/embedredis/internal/ports"
)

// DefaultOutputTailLines is the number of server output lines kept for
// error reports.
const DefaultOutputTailLines = 50

// outputTail is a bounded ring of the most recent output lines.
type outputTail struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func newOutputTail(size int) *outputTail {
	if size <= 0 {
		size = DefaultOutputTailLines
	}
	return &outputTail{lines: make([]string, size)}
}

func (t *outputTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines[t.next] = line
	t.next = (t.next + 1) % len(t.lines)
	if t.next == 0 {
		t.full = true
	}
}

// Lines returns the retained lines, oldest first.
func (t *outputTail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return append([]string(nil), t.lines[:t.next]...)
	}
	out := make([]string, 0, len(t.lines))
	out = append(out, t.lines[t.next:]...)
	return append(out, t.lines[:t.next]...)
}

// OutputSink receives every line the server prints.
type OutputSink interface {
	OnServerOutput(line string)
}

// outputScanner reads the merged stdout/stderr stream line by line. It
// records each line, forwards it to the logger and sink, and closes ready
// the first time a line contains marker.
type outputScanner struct {
	marker string
	tail   *outputTail
	logger ports.Logger
	sink   OutputSink

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
}

func newOutputScanner(marker string, tail *outputTail, logger ports.Logger, sink OutputSink) *outputScanner {
	return &outputScanner{
		marker: marker,
		tail:   tail,
		logger: logger,
		sink:   sink,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// scan consumes r until EOF. It closes done when it returns.
func (s *outputScanner) scan(r io.Reader) {
	defer close(s.done)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		s.handle(sc.Text())
	}
	if err := sc.Err(); err != nil {
		s.logger.Debug("server output read ended", ports.Err(err))
	}
	// Keep the pipe drained after an overlong line so the server never
	// blocks writing to it.
	_, _ = io.Copy(io.Discard, r)
}

func (s *outputScanner) handle(line string) {
	s.tail.add(line)

	if isWarningLine(line) {
		s.logger.Warn("redis", ports.String("line", line))
	} else {
		s.logger.Debug("redis", ports.String("line", line))
	}
	if s.sink != nil {
		s.sink.OnServerOutput(line)
	}

	if strings.Contains(line, s.marker) {
		s.readyOnce.Do(func() { close(s.ready) })
	}
}

func isWarningLine(line string) bool {
	return strings.Contains(line, "# WARNING") ||
		strings.Contains(line, "# FATAL") ||
		strings.Contains(line, "ERROR")
}
