package entity

// Role is the workflow role of an authenticated user
type Role string

const (
	RoleEmployee        Role = "employee"
	RoleFinanceArea     Role = "finance_area"
	RoleFinanceRegional Role = "finance_regional"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleFinanceArea, RoleFinanceRegional:
		return true
	}
	return false
}

// IsFinance reports whether r belongs to either finance tier
func (r Role) IsFinance() bool {
	return r == RoleFinanceArea || r == RoleFinanceRegional
}

// Actor is the identity performing an operation, supplied by the session layer
type Actor struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	AreaCode string `json:"area_code"`
}
