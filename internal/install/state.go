package install

import "fmt"

// State is the lifecycle position of one installation run.
type State int

const (
	// StateIdle is both the initial state and where a new request restarts.
	StateIdle State = iota
	StateLoading
	StateExtracting
	StateReconciling
	StateCleaningUp
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateExtracting:
		return "extracting"
	case StateReconciling:
		return "reconciling"
	case StateCleaningUp:
		return "cleaning up"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions follow s within a run.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
