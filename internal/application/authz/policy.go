// Package authz decides what an actor may do, keyed by the actor's role.
package authz

import (
	"github.com/garyjia/trip-expense/internal/domain/entity"
)

// RolePolicy holds the capability predicates of one role
type RolePolicy interface {
	// CanViewTrip covers reading a trip and everything it owns
	CanViewTrip(actor entity.Actor, trip *entity.Trip) bool
	// CanManageTrip covers owner-only edits: details, extension, submit, receipts, advance requests
	CanManageTrip(actor entity.Actor, trip *entity.Trip) bool
	CanCancelTrip(actor entity.Actor, trip *entity.Trip) bool
	CanApproveArea(actor entity.Actor, trip *entity.Trip) bool
	CanApproveRegional(actor entity.Actor, trip *entity.Trip) bool
	// CanActAsFinance covers finance actions open to both tiers: verify, transfer, reject advance, settle
	CanActAsFinance(actor entity.Actor, trip *entity.Trip) bool
	CanManageSettings(actor entity.Actor) bool
	// TripScope narrows list queries to the trips the actor may see
	TripScope(actor entity.Actor) entity.TripScope
}

// Policy dispatches capability checks to the policy of the actor's role
type Policy struct {
	roles map[entity.Role]RolePolicy
}

// NewPolicy returns the standard employee / finance_area / finance_regional policy
func NewPolicy() *Policy {
	return &Policy{
		roles: map[entity.Role]RolePolicy{
			entity.RoleEmployee:        employeePolicy{},
			entity.RoleFinanceArea:     areaPolicy{},
			entity.RoleFinanceRegional: regionalPolicy{},
		},
	}
}

// For returns the policy of actor's role; unknown roles get a deny-all policy
func (p *Policy) For(actor entity.Actor) RolePolicy {
	if rp, ok := p.roles[actor.Role]; ok {
		return rp
	}
	return denyAll{}
}

func (p *Policy) CanViewTrip(actor entity.Actor, trip *entity.Trip) bool {
	return trip != nil && p.For(actor).CanViewTrip(actor, trip)
}

func (p *Policy) CanManageTrip(actor entity.Actor, trip *entity.Trip) bool {
	return trip != nil && p.For(actor).CanManageTrip(actor, trip)
}

func (p *Policy) CanCancelTrip(actor entity.Actor, trip *entity.Trip) bool {
	return trip != nil && p.For(actor).CanCancelTrip(actor, trip)
}

func (p *Policy) CanApproveArea(actor entity.Actor, trip *entity.Trip) bool {
	return trip != nil && p.For(actor).CanApproveArea(actor, trip)
}

func (p *Policy) CanApproveRegional(actor entity.Actor, trip *entity.Trip) bool {
	return trip != nil && p.For(actor).CanApproveRegional(actor, trip)
}

func (p *Policy) CanActAsFinance(actor entity.Actor, trip *entity.Trip) bool {
	return trip != nil && p.For(actor).CanActAsFinance(actor, trip)
}

// CanViewSettings allows both finance tiers to read the settings table
func (p *Policy) CanViewSettings(actor entity.Actor) bool {
	return actor.Role.IsFinance()
}

func (p *Policy) CanManageSettings(actor entity.Actor) bool {
	return p.For(actor).CanManageSettings(actor)
}

func (p *Policy) TripScope(actor entity.Actor) entity.TripScope {
	return p.For(actor).TripScope(actor)
}

func isOwner(actor entity.Actor, trip *entity.Trip) bool {
	return actor.ID != "" && actor.ID == trip.OwnerID
}

func inArea(actor entity.Actor, trip *entity.Trip) bool {
	return actor.AreaCode != "" && actor.AreaCode == trip.OwnerAreaCode
}

// employeePolicy acts on own trips only
type employeePolicy struct{}

func (employeePolicy) CanViewTrip(a entity.Actor, t *entity.Trip) bool    { return isOwner(a, t) }
func (employeePolicy) CanManageTrip(a entity.Actor, t *entity.Trip) bool  { return isOwner(a, t) }
func (employeePolicy) CanCancelTrip(a entity.Actor, t *entity.Trip) bool  { return isOwner(a, t) }
func (employeePolicy) CanApproveArea(entity.Actor, *entity.Trip) bool     { return false }
func (employeePolicy) CanApproveRegional(entity.Actor, *entity.Trip) bool { return false }
func (employeePolicy) CanActAsFinance(entity.Actor, *entity.Trip) bool    { return false }
func (employeePolicy) CanManageSettings(entity.Actor) bool                { return false }
func (employeePolicy) TripScope(a entity.Actor) entity.TripScope {
	return entity.TripScope{OwnerID: a.ID}
}

// areaPolicy is scoped to trips whose owner shares the actor's area code.
// Finance users may also travel, so ownership grants the employee capabilities too.
type areaPolicy struct{}

func (areaPolicy) CanViewTrip(a entity.Actor, t *entity.Trip) bool {
	return inArea(a, t) || isOwner(a, t)
}
func (areaPolicy) CanManageTrip(a entity.Actor, t *entity.Trip) bool { return isOwner(a, t) }
func (areaPolicy) CanCancelTrip(a entity.Actor, t *entity.Trip) bool {
	return inArea(a, t) || isOwner(a, t)
}
func (areaPolicy) CanApproveArea(a entity.Actor, t *entity.Trip) bool {
	return inArea(a, t) && !isOwner(a, t)
}
func (areaPolicy) CanApproveRegional(entity.Actor, *entity.Trip) bool { return false }
func (areaPolicy) CanActAsFinance(a entity.Actor, t *entity.Trip) bool {
	return inArea(a, t) && !isOwner(a, t)
}
func (areaPolicy) CanManageSettings(entity.Actor) bool { return true }
func (areaPolicy) TripScope(a entity.Actor) entity.TripScope {
	return entity.TripScope{OwnerAreaCode: a.AreaCode}
}

// regionalPolicy is unscoped
type regionalPolicy struct{}

func (regionalPolicy) CanViewTrip(entity.Actor, *entity.Trip) bool            { return true }
func (regionalPolicy) CanManageTrip(a entity.Actor, t *entity.Trip) bool      { return isOwner(a, t) }
func (regionalPolicy) CanCancelTrip(entity.Actor, *entity.Trip) bool          { return true }
func (regionalPolicy) CanApproveArea(entity.Actor, *entity.Trip) bool         { return false }
func (regionalPolicy) CanApproveRegional(a entity.Actor, t *entity.Trip) bool { return !isOwner(a, t) }
func (regionalPolicy) CanActAsFinance(a entity.Actor, t *entity.Trip) bool    { return !isOwner(a, t) }
func (regionalPolicy) CanManageSettings(entity.Actor) bool                    { return false }
func (regionalPolicy) TripScope(entity.Actor) entity.TripScope                { return entity.TripScope{} }

type denyAll struct{}

func (denyAll) CanViewTrip(entity.Actor, *entity.Trip) bool        { return false }
func (denyAll) CanManageTrip(entity.Actor, *entity.Trip) bool      { return false }
func (denyAll) CanCancelTrip(entity.Actor, *entity.Trip) bool      { return false }
func (denyAll) CanApproveArea(entity.Actor, *entity.Trip) bool     { return false }
func (denyAll) CanApproveRegional(entity.Actor, *entity.Trip) bool { return false }
func (denyAll) CanActAsFinance(entity.Actor, *entity.Trip) bool    { return false }
func (denyAll) CanManageSettings(entity.Actor) bool                { return false }

// TripScope of an unknown role matches nothing
func (denyAll) TripScope(entity.Actor) entity.TripScope {
	return entity.TripScope{OwnerID: "\x00"}
}
