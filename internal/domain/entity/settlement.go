package entity

import "time"

// Settlement reconciles disbursed advances against verified receipts for one trip
type Settlement struct {
	ID                int64            `json:"id"`
	SettlementNumber  string           `json:"settlement_number"`
	TripID            int64            `json:"trip_id"`
	TotalAdvance      Money            `json:"total_advance"`
	TotalReceipts     Money            `json:"total_receipts"`
	Balance           Money            `json:"balance"`
	SettlementType    SettlementType   `json:"settlement_type"`
	SettlementAmount  Money            `json:"settlement_amount"`
	Status            SettlementStatus `json:"status"`
	SettlementDate    *time.Time       `json:"settlement_date,omitempty"`
	TransferReference string           `json:"transfer_reference,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	ProcessedBy       string           `json:"processed_by,omitempty"`
	ProcessedAt       *time.Time       `json:"processed_at,omitempty"`
	CompletedBy       string           `json:"completed_by,omitempty"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Reconciliation is the computed balance of a trip
type Reconciliation struct {
	TotalAdvance  Money          `json:"total_advance"`
	TotalReceipts Money          `json:"total_receipts"`
	Balance       Money          `json:"balance"`
	Type          SettlementType `json:"settlement_type"`
	Amount        Money          `json:"settlement_amount"`
}

// Reconcile classifies totalAdvance - totalReceipts
func Reconcile(totalAdvance, totalReceipts Money) Reconciliation {
	balance := totalAdvance - totalReceipts

	settlementType := SettlementTypeBalanced
	switch {
	case balance > 0:
		settlementType = SettlementTypeRefund
	case balance < 0:
		settlementType = SettlementTypePayment
	}

	return Reconciliation{
		TotalAdvance:  totalAdvance,
		TotalReceipts: totalReceipts,
		Balance:       balance,
		Type:          settlementType,
		Amount:        balance.Abs(),
	}
}

// Apply copies the reconciliation into the settlement snapshot
func (s *Settlement) Apply(r Reconciliation) {
	s.TotalAdvance = r.TotalAdvance
	s.TotalReceipts = r.TotalReceipts
	s.Balance = r.Balance
	s.SettlementType = r.Type
	s.SettlementAmount = r.Amount
}

// SettlementSummary groups a trip's settlement with the records it was computed from
type SettlementSummary struct {
	Trip             *Trip          `json:"trip"`
	Settlement       *Settlement    `json:"settlement,omitempty"`
	Reconciliation   Reconciliation `json:"reconciliation"`
	Advances         []*Advance     `json:"advances"`
	VerifiedReceipts []*Receipt     `json:"verified_receipts"`
}
