package entity

import "time"

// Receipt is an expense proof uploaded against a trip
type Receipt struct {
	ID                int64      `json:"id"`
	ReceiptNumber     string     `json:"receipt_number"`
	TripID            int64      `json:"trip_id"`
	AdvanceID         *int64     `json:"advance_id,omitempty"`
	ReceiptDate       time.Time  `json:"receipt_date"`
	Amount            Money      `json:"amount"`
	Category          string     `json:"category"`
	MerchantName      string     `json:"merchant_name,omitempty"`
	Description       string     `json:"description,omitempty"`
	FilePath          string     `json:"-"`
	FileName          string     `json:"file_name"`
	FileSize          int64      `json:"file_size"`
	IsVerified        bool       `json:"is_verified"`
	VerifiedBy        string     `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	VerificationNotes string     `json:"verification_notes,omitempty"`
	UploadedBy        string     `json:"uploaded_by"`
	AdvisoryStatus    string     `json:"advisory_status"`
	AdvisoryAmount    *Money     `json:"advisory_amount,omitempty"`
	AdvisoryNote      string     `json:"advisory_note,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ReceiptFile is an uploaded receipt document
type ReceiptFile struct {
	Name    string
	Content []byte
}

// Size returns the content length in bytes
func (f *ReceiptFile) Size() int64 {
	return int64(len(f.Content))
}
