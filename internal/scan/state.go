// ABOUTME: Explicit scan cycle state machine with a checked transition table.
// ABOUTME: A cycle moves Idle -> Running -> {Completed, Cancelled, Failed} -> Idle.

package scan

// CycleState is the lifecycle state of the scan orchestrator
type CycleState int

const (
	StateIdle CycleState = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s CycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// transitions is the complete set of legal state changes. Terminal cycle
// states return to Idle so the next trigger can start a fresh cycle.
var transitions = map[CycleState][]CycleState{
	StateIdle:      {StateRunning},
	StateRunning:   {StateCompleted, StateCancelled, StateFailed},
	StateCompleted: {StateIdle},
	StateCancelled: {StateIdle},
	StateFailed:    {StateIdle},
}

// CanTransition reports whether moving from one state to another is legal
func CanTransition(from, to CycleState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
