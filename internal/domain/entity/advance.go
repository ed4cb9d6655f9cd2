package entity

import "time"

// Advance is a cash pre-payment requested against a trip
type Advance struct {
	ID                 int64              `json:"id"`
	AdvanceNumber      string             `json:"advance_number"`
	TripID             int64              `json:"trip_id"`
	RequestType        AdvanceRequestType `json:"request_type"`
	RequestedAmount    Money              `json:"requested_amount"`
	ApprovedAmount     *Money             `json:"approved_amount,omitempty"`
	RequestReason      string             `json:"request_reason,omitempty"`
	Status             AdvanceStatus      `json:"status"`
	RequestedBy        string             `json:"requested_by"`
	ApprovedByArea     string             `json:"approved_by_area,omitempty"`
	ApprovedAreaAt     *time.Time         `json:"approved_area_at,omitempty"`
	AreaNotes          string             `json:"area_notes,omitempty"`
	ApprovedByRegional string             `json:"approved_by_regional,omitempty"`
	ApprovedRegionalAt *time.Time         `json:"approved_regional_at,omitempty"`
	RegionalNotes      string             `json:"regional_notes,omitempty"`
	TransferDate       *time.Time         `json:"transfer_date,omitempty"`
	TransferReference  string             `json:"transfer_reference,omitempty"`
	TransferredBy      string             `json:"transferred_by,omitempty"`
	RejectionReason    string             `json:"rejection_reason,omitempty"`
	RejectedBy         string             `json:"rejected_by,omitempty"`
	RejectedAt         *time.Time         `json:"rejected_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ApprovedValue returns the approved amount, zero before area approval
func (a *Advance) ApprovedValue() Money {
	if a.ApprovedAmount == nil {
		return 0
	}
	return *a.ApprovedAmount
}
