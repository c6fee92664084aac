package pipeline

import "fmt"

// State is the orchestrator's current stage.
type State string

const (
	StateIdle        State = "idle"
	StateLoading     State = "loading"
	StateChunking    State = "chunking"
	StateAnalyzing   State = "analyzing"
	StateAggregating State = "aggregating"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// transitions lists the legal stage successors. Any non-terminal state may
// additionally fail.
var transitions = map[State][]State{
	StateIdle:        {StateLoading},
	StateLoading:     {StateChunking, StateFailed},
	StateChunking:    {StateAnalyzing, StateFailed},
	StateAnalyzing:   {StateAggregating, StateFailed},
	StateAggregating: {StateCompleted, StateFailed},
	StateCompleted:   {},
	StateFailed:      {},
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether from → to is a legal stage transition.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates and returns the next state.
func Transition(from, to State) (State, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	return to, nil
}
