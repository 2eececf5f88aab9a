package database

import "fmt"

// State is the readiness of the cached store handle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateDegraded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var transitions = map[State][]State{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateReady, StateFailed, StateDisconnected},
	StateReady:        {StateDegraded, StateDisconnected},
	StateDegraded:     {StateDisconnected},
	StateFailed:       {StateDisconnected},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
