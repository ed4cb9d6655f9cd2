package event

import (
	"slices"
	"strings"
)

// Type names an event as "<aggregate>.<change>"
type Type string

const (
	TypeTripStatusChanged       Type = "trip.status_changed"
	TypeTripExtensionRequested  Type = "trip.extension_requested"
	TypeTripExtensionCancelled  Type = "trip.extension_cancelled"
	TypeAdvanceStatusChanged    Type = "advance.status_changed"
	TypeReceiptVerified         Type = "receipt.verified"
	TypeReceiptUnverified       Type = "receipt.unverified"
	TypeSettlementStatusChanged Type = "settlement.status_changed"
)

var catalogue = []Type{
	TypeTripStatusChanged,
	TypeTripExtensionRequested,
	TypeTripExtensionCancelled,
	TypeAdvanceStatusChanged,
	TypeReceiptVerified,
	TypeReceiptUnverified,
	TypeSettlementStatusChanged,
}

// Types returns every event type the service raises
func Types() []Type {
	return slices.Clone(catalogue)
}

func (t Type) String() string {
	return string(t)
}

// Aggregate is the part before the dot, e.g. "trip"
func (t Type) Aggregate() string {
	aggregate, _, _ := strings.Cut(string(t), ".")
	return aggregate
}

func (t Type) IsValid() bool {
	return slices.Contains(catalogue, t)
}
