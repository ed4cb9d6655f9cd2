package workflow

import (
	"fmt"
	"sort"

	"github.com/garyjia/trip-expense/internal/domain/entity"
)

// Edge is one allowed (from, trigger) -> to transition
type Edge struct {
	From    State
	Trigger Trigger
	To      State
}

// Table is the central transition table of one entity type
type Table struct {
	graph *graph
	edges []Edge
}

func newTable(name string, states []State, edges []Edge) *Table {
	g := newGraph(name, states)
	for _, e := range edges {
		g.permit(e.From, e.Trigger, e.To)
	}
	return &Table{graph: g, edges: edges}
}

// Name returns the entity type the table governs
func (t *Table) Name() string {
	return t.graph.entity
}

// Machine returns a state machine positioned at current
func (t *Table) Machine(current State) (*Machine, error) {
	if !t.graph.states.contains(current) {
		return nil, fmt.Errorf("%w: %s status %q", ErrInvalidState, t.graph.entity, current)
	}
	return &Machine{graph: t.graph, current: current}, nil
}

// Next returns the state reached from `from` by trigger, or a *TransitionError
func (t *Table) Next(from State, trigger Trigger) (State, error) {
	machine, err := t.Machine(from)
	if err != nil {
		return "", err
	}
	if err := machine.Fire(trigger); err != nil {
		return "", err
	}
	return machine.State(), nil
}

// Triggers lists what can be fired from `from`; unknown states have none
func (t *Table) Triggers(from State) []Trigger {
	machine, err := t.Machine(from)
	if err != nil {
		return nil
	}
	return machine.PermittedTriggers()
}

// Allows reports whether `from` -> `to` is an edge of the table under any trigger
func (t *Table) Allows(from, to State) bool {
	for _, e := range t.edges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// Edges returns a copy of the table ordered by from state then trigger
func (t *Table) Edges() []Edge {
	edges := append([]Edge(nil), t.edges...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].Trigger < edges[j].Trigger
	})
	return edges
}

func tripState(s entity.TripStatus) State             { return State(s) }
func advanceState(s entity.AdvanceStatus) State       { return State(s) }
func settlementState(s entity.SettlementStatus) State { return State(s) }

// TripTable governs trip status changes
var TripTable = newTable("trip", tripStates(), []Edge{
	{tripState(entity.TripStatusActive), TriggerSubmit, tripState(entity.TripStatusAwaitingReview)},
	{tripState(entity.TripStatusActive), TriggerCancel, tripState(entity.TripStatusCancelled)},
	{tripState(entity.TripStatusAwaitingReview), TriggerCancel, tripState(entity.TripStatusCancelled)},
	{tripState(entity.TripStatusAwaitingReview), TriggerRejectReview, tripState(entity.TripStatusActive)},
	{tripState(entity.TripStatusAwaitingReview), TriggerApproveArea, tripState(entity.TripStatusUnderReviewRegional)},
	{tripState(entity.TripStatusAwaitingReview), TriggerReviewAreaCheck, tripState(entity.TripStatusUnderReviewArea)},
	{tripState(entity.TripStatusAwaitingReview), TriggerReviewAreaReturn, tripState(entity.TripStatusAwaitingReview)},
	{tripState(entity.TripStatusUnderReviewArea), TriggerReviewRegionalCheck, tripState(entity.TripStatusUnderReviewRegional)},
	{tripState(entity.TripStatusUnderReviewArea), TriggerReviewRegionalReturn, tripState(entity.TripStatusUnderReviewArea)},
	{tripState(entity.TripStatusUnderReviewRegional), TriggerApproveRegional, tripState(entity.TripStatusCompleted)},
	{tripState(entity.TripStatusUnderReviewArea), TriggerSettle, tripState(entity.TripStatusCompleted)},
	{tripState(entity.TripStatusUnderReviewRegional), TriggerSettle, tripState(entity.TripStatusCompleted)},
	{tripState(entity.TripStatusCompleted), TriggerSettle, tripState(entity.TripStatusCompleted)},
})

// AdvanceTable governs advance status changes
var AdvanceTable = newTable("advance", advanceStates(), []Edge{
	{advanceState(entity.AdvanceStatusPending), TriggerApproveArea, advanceState(entity.AdvanceStatusApprovedArea)},
	{advanceState(entity.AdvanceStatusApprovedArea), TriggerApproveRegional, advanceState(entity.AdvanceStatusApprovedRegional)},
	{advanceState(entity.AdvanceStatusApprovedRegional), TriggerTransfer, advanceState(entity.AdvanceStatusCompleted)},
	{advanceState(entity.AdvanceStatusPending), TriggerReject, advanceState(entity.AdvanceStatusRejected)},
	{advanceState(entity.AdvanceStatusApprovedArea), TriggerReject, advanceState(entity.AdvanceStatusRejected)},
	{advanceState(entity.AdvanceStatusApprovedRegional), TriggerReject, advanceState(entity.AdvanceStatusRejected)},
	{advanceState(entity.AdvanceStatusApprovedArea), TriggerVoid, advanceState(entity.AdvanceStatusVoided)},
	{advanceState(entity.AdvanceStatusApprovedRegional), TriggerVoid, advanceState(entity.AdvanceStatusVoided)},
})

// SettlementTable governs settlement status changes; there is no way back
var SettlementTable = newTable("settlement", settlementStates(), []Edge{
	{settlementState(entity.SettlementStatusPending), TriggerProcess, settlementState(entity.SettlementStatusProcessed)},
	{settlementState(entity.SettlementStatusProcessed), TriggerComplete, settlementState(entity.SettlementStatusCompleted)},
})

func tripStates() []State {
	states := make([]State, 0, len(entity.AllTripStatuses))
	for _, s := range entity.AllTripStatuses {
		states = append(states, tripState(s))
	}
	return states
}

func advanceStates() []State {
	states := make([]State, 0, len(entity.AllAdvanceStatuses))
	for _, s := range entity.AllAdvanceStatuses {
		states = append(states, advanceState(s))
	}
	return states
}

func settlementStates() []State {
	states := make([]State, 0, len(entity.AllSettlementStatuses))
	for _, s := range entity.AllSettlementStatuses {
		states = append(states, settlementState(s))
	}
	return states
}

// NextTripStatus applies trigger to a trip status
func NextTripStatus(from entity.TripStatus, trigger Trigger) (entity.TripStatus, error) {
	next, err := TripTable.Next(tripState(from), trigger)
	return entity.TripStatus(next), err
}

// NextAdvanceStatus applies trigger to an advance status
func NextAdvanceStatus(from entity.AdvanceStatus, trigger Trigger) (entity.AdvanceStatus, error) {
	next, err := AdvanceTable.Next(advanceState(from), trigger)
	return entity.AdvanceStatus(next), err
}

// NextSettlementStatus applies trigger to a settlement status
func NextSettlementStatus(from entity.SettlementStatus, trigger Trigger) (entity.SettlementStatus, error) {
	next, err := SettlementTable.Next(settlementState(from), trigger)
	return entity.SettlementStatus(next), err
}
