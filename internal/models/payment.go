package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MilestoneStatusPending   = "PENDING"
	MilestoneStatusCompleted = "COMPLETED"
)

// PaymentMilestone is a percentage slice of the contract value. The sum of
// percentages across a contract's milestones never exceeds 100. Addendum
// milestones carry an explicit amount instead of a percentage-derived one.
type PaymentMilestone struct {
	Model
	ContractID  string          `gorm:"size:36;index" json:"contractId"`
	Contract    *Contract       `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
	AddendumID  *string         `gorm:"size:36;index" json:"addendumId,omitempty"`
	Name        string          `gorm:"size:255" json:"name"`
	Percentage  decimal.Decimal `gorm:"type:decimal(5,2)" json:"percentage"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount"`
	Status      string          `gorm:"size:16;default:PENDING" json:"status"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	Debt        *Debt           `gorm:"foreignKey:MilestoneID" json:"debt,omitempty"`
}

const (
	DebtStatusUnpaid  = "UNPAID"
	DebtStatusPartial = "PARTIAL"
	DebtStatusPaid    = "PAID"
)

// Debt is a receivable activated from a milestone, at most one per milestone
// (unique index backstops the service-layer check).
type Debt struct {
	Model
	ContractID  string            `gorm:"size:36;index" json:"contractId"`
	MilestoneID string            `gorm:"size:36;uniqueIndex" json:"milestoneId"`
	Milestone   *PaymentMilestone `gorm:"foreignKey:MilestoneID" json:"milestone,omitempty"`
	Name        string            `gorm:"size:255" json:"name"`
	Amount      decimal.Decimal   `gorm:"type:decimal(15,2)" json:"amount"`
	DueDate     time.Time         `json:"dueDate"`
	Status      string            `gorm:"size:16;default:UNPAID" json:"status"`
	Payments    []DebtPayment     `gorm:"foreignKey:DebtID" json:"payments,omitempty"`
}

type DebtPayment struct {
	Model
	DebtID      string          `gorm:"size:36;index" json:"debtId"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount"`
	PaymentDate time.Time       `json:"paymentDate"`
	Note        string          `gorm:"type:text" json:"note,omitempty"`
}
