package embedredis

import "github.com/bft-labs/embedredis/internal/app"

// State represents the lifecycle state of an embedded server.
type State int

const (
	// StateNotStarted is the state of a new instance.
	StateNotStarted State = iota
	// StateStarting means Start is waiting for the readiness marker.
	StateStarting
	// StateRunning means the server accepted connections.
	StateRunning
	// StateStopped is terminal: the server was stopped, failed to start,
	// or exited on its own.
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

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives notifications from a Redis instance.
// Embed BaseEventHandler to implement only the methods you need.
type EventHandler interface {
	// OnStateChange is called after every lifecycle transition. An
	// unexpected exit is reported with Reason "process exited".
	OnStateChange(event StateChangeEvent)

	// OnServerOutput is called for every line the server prints.
	OnServerOutput(line string)
}

// BaseEventHandler provides no-op implementations of EventHandler.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnServerOutput(string)          {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnServerOutput(line string) {
	if e.handler == nil {
		return
	}
	e.handler.OnServerOutput(line)
}

func convertState(s app.State) State {
	switch s {
	case app.StateNotStarted:
		return StateNotStarted
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	default:
		return StateStopped
	}
}
