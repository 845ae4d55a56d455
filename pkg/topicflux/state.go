package topicflux

import "github.com/bft-labs/topicflux/internal/app"

// State is the lifecycle state of a Bridge.
type State int

const (
	// StateStopped is the initial state and the state after a clean Stop.
	StateStopped State = iota
	// StateStarting means Start was called and the source is connecting.
	StateStarting
	// StateRunning means records are being consumed.
	StateRunning
	// StateStopping means Stop was called and the final drain is in progress.
	StateStopping
	// StateCrashed means the bridge ended with an error.
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
