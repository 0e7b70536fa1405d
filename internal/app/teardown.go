package app

import (
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/bft-labs/embedredis/internal/ports"
)

// Registry collects teardown callbacks and runs each of them at most once,
// either explicitly or when the host receives a termination signal.
type Registry struct {
	mu     sync.Mutex
	hooks  []hook
	nextID uint64
	logger ports.Logger

	signalOnce sync.Once
}

type hook struct {
	id   uint64
	name string
	fn   func()
}

var defaultRegistry = NewRegistry(nil)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewRegistry creates an empty registry. A nil logger discards messages.
func NewRegistry(logger ports.Logger) *Registry {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Registry{logger: logger}
}

// Register adds fn and returns a function that removes it again.
func (r *Registry) Register(name string, fn func()) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.hooks = append(r.hooks, hook{id: id, name: name, fn: fn})
	r.mu.Unlock()

	return func() { r.remove(id) }
}

func (r *Registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, h := range r.hooks {
		if h.id == id {
			r.hooks = append(r.hooks[:i], r.hooks[i+1:]...)
			return
		}
	}
}

// Len returns the number of pending callbacks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}

// Run invokes every pending callback, most recently registered first.
// Callbacks are removed before they run, so a second Run is a no-op unless
// new callbacks were registered in between. A panicking callback is logged
// and does not prevent the others from running.
func (r *Registry) Run() {
	r.mu.Lock()
	hooks := r.hooks
	r.hooks = nil
	r.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		r.invoke(hooks[i])
	}
}

func (r *Registry) invoke(h hook) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("teardown hook panicked",
				ports.String("hook", h.name),
				ports.Any("panic", p),
			)
		}
	}()
	h.fn()
}

// InterceptSignals installs a handler for the host's termination signals.
// On the first signal the registry runs and the signal is re-raised with
// its default disposition so the host still terminates. Calling it more
// than once has no further effect.
func (r *Registry) InterceptSignals() {
	r.signalOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, terminationSignals...)
		go r.watchSignals(ch, func(sig os.Signal) {
			signal.Stop(ch)
			signal.Reset(sig)
			reraise(sig)
			// A re-raised signal may be delivered asynchronously.
			time.Sleep(time.Second)
			os.Exit(1)
		})
	})
}

func (r *Registry) watchSignals(ch <-chan os.Signal, exit func(os.Signal)) {
	sig, ok := <-ch
	if !ok {
		return
	}
	r.logger.Warn("termination signal received, running teardown",
		ports.String("signal", sig.String()),
	)
	r.Run()
	exit(sig)
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...ports.Field) {}
func (nopLogger) Info(msg string, fields ...ports.Field)  {}
func (nopLogger) Warn(msg string, fields ...ports.Field)  {}
func (nopLogger) Error(msg string, fields ...ports.Field) {}
