package workflow

import (
	"fmt"
	"sort"
)

// graph is a deterministic transition graph over a closed set of states.
// Each (from, trigger) pair has at most one target.
type graph struct {
	entity string
	states stateSet
	next   map[State]map[Trigger]State
}

func newGraph(entity string, states []State) *graph {
	return &graph{
		entity: entity,
		states: newStateSet(states),
		next:   make(map[State]map[Trigger]State),
	}
}

// permit adds from --trigger--> to. Unknown states and a second target for
// the same pair are programming errors and panic at table construction.
func (g *graph) permit(from State, trigger Trigger, to State) {
	if !g.states.contains(from) || !g.states.contains(to) {
		panic(fmt.Sprintf("%s: edge %s --%s--> %s uses an unknown state", g.entity, from, trigger, to))
	}
	edges, ok := g.next[from]
	if !ok {
		edges = make(map[Trigger]State)
		g.next[from] = edges
	}
	if existing, dup := edges[trigger]; dup && existing != to {
		panic(fmt.Sprintf("%s: %s --%s--> has two targets (%s, %s)", g.entity, from, trigger, existing, to))
	}
	edges[trigger] = to
}

// Machine tracks one entity's position in a graph
type Machine struct {
	graph   *graph
	current State
}

// State returns the current state
func (m *Machine) State() State {
	return m.current
}

// Fire moves the machine along trigger or returns a *TransitionError
func (m *Machine) Fire(trigger Trigger) error {
	to, ok := m.graph.next[m.current][trigger]
	if !ok {
		return &TransitionError{Entity: m.graph.entity, From: m.current, Trigger: trigger}
	}
	m.current = to
	return nil
}

// PermittedTriggers returns the triggers available from the current state, sorted
func (m *Machine) PermittedTriggers() []Trigger {
	edges := m.graph.next[m.current]
	triggers := make([]Trigger, 0, len(edges))
	for trigger := range edges {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
