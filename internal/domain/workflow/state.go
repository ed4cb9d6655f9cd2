package workflow

// State is a status value of a workflow-managed entity
type State string

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// stateSet is the closed set of states of one entity type
type stateSet map[State]bool

func newStateSet(states []State) stateSet {
	set := make(stateSet, len(states))
	for _, s := range states {
		set[s] = true
	}
	return set
}

func (set stateSet) contains(s State) bool {
	return set[s]
}
