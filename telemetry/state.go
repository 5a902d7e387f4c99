package telemetry

import "sync/atomic"

// State is the lifecycle state of an Engine. States only move forward.
type State int32

const (
	StateUninitialized State = iota
	StateInactive
	StateActive
	StateRequestTerminate
	StateTerminating
	StateTerminated
)

var stateNames = [...]string{
	StateUninitialized:    "UNINITIALIZED",
	StateInactive:         "INACTIVE",
	StateActive:           "ACTIVE",
	StateRequestTerminate: "REQUEST_TERMINATE",
	StateTerminating:      "TERMINATING",
	StateTerminated:       "TERMINATED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// lifecycle wraps the state so every read and transition is atomic.
type lifecycle struct {
	v atomic.Int32
}

func (l *lifecycle) load() State {
	return State(l.v.Load())
}

func (l *lifecycle) store(s State) {
	l.v.Store(int32(s))
}

// transition moves from -> to and reports whether it happened.
func (l *lifecycle) transition(from, to State) bool {
	return l.v.CompareAndSwap(int32(from), int32(to))
}
