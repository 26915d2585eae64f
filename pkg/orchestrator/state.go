package orchestrator

// State is a phase of a run. A run only moves forward through the states.
type State string

const (
	StateIdle              State = "idle"
	StateWarmingUp         State = "warming_up"
	StateDiscoveringTotal  State = "discovering_total"
	StateProcessingBatches State = "processing_batches"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
)

var stateOrder = map[State]int{
	StateIdle:              0,
	StateWarmingUp:         1,
	StateDiscoveringTotal:  2,
	StateProcessingBatches: 3,
	StateCompleted:         4,
	StateFailed:            4,
}

// canTransition reports whether a run may move from one state to another.
func canTransition(from, to State) bool {
	if from == StateCompleted || from == StateFailed {
		return false
	}
	if to == StateFailed {
		return true
	}
	return stateOrder[to] > stateOrder[from]
}
