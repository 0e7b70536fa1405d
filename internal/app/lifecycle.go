package app

import (
	"sync"

	"github.com/bft-labs/embedredis/internal/domain"
	"github.com/bft-labs/embedredis/internal/ports"
)

// State represents the lifecycle state of a supervised server.
type State int

const (
	StateNotStarted State = iota
	StateStarting
	StateRunning
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Lifecycle manages the state machine for a supervisor.
// A supervisor is single use: Stopped is terminal.
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	logger       ports.Logger
	eventEmitter EventEmitter
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// NewLifecycle creates a new lifecycle manager in StateNotStarted.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        StateNotStarted,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func validTransition(from, to State) bool {
	switch from {
	case StateNotStarted:
		return to == StateStarting
	case StateStarting:
		return to == StateRunning || to == StateStopped
	case StateRunning:
		return to == StateStopped
	default:
		return false
	}
}

// TransitionTo attempts to transition to a new state.
// Returns an *domain.IllegalStateError if the transition is not valid.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	if !validTransition(oldState, newState) {
		l.mu.Unlock()
		return &domain.IllegalStateError{
			Op:    "transition to " + newState.String(),
			State: oldState.String(),
		}
	}

	l.state = newState
	l.mu.Unlock()

	l.emit(oldState, newState, reason)
	return nil
}

// TransitionFrom moves from one specific state to another and reports
// whether it did. It is used by racing observers (Stop and the exit
// watcher) where only the first one should win.
func (l *Lifecycle) TransitionFrom(from, to State, reason string) bool {
	l.mu.Lock()
	if l.state != from || !validTransition(from, to) {
		l.mu.Unlock()
		return false
	}
	l.state = to
	l.mu.Unlock()

	l.emit(from, to, reason)
	return true
}

func (l *Lifecycle) emit(from, to State, reason string) {
	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(from, to, reason)
	}

	l.logger.Info("state transition",
		ports.String("from", from.String()),
		ports.String("to", to.String()),
		ports.String("reason", reason),
	)
}

// CanStart returns true if Start() can be called.
func (l *Lifecycle) CanStart() bool {
	return l.State() == StateNotStarted
}

// IsRunning returns true while the server is up.
func (l *Lifecycle) IsRunning() bool {
	return l.State() == StateRunning
}
