package models

import "github.com/shopspring/decimal"

const (
	QuotationStatusDraft           = "DRAFT"
	QuotationStatusPendingApproval = "PENDING_APPROVAL"
	QuotationStatusApproved        = "APPROVED"
	QuotationStatusRejected        = "REJECTED"
	QuotationStatusArchived        = "ARCHIVED"

	QuotationTypeInitial  = "INITIAL"
	QuotationTypeAddendum = "ADDENDUM"
)

// Quotation is a versioned, priced proposal against an opportunity.
// Once APPROVED it is immutable: no detail edits, no re-approval, no deletion.
type Quotation struct {
	Model
	OpportunityID string            `gorm:"size:36;index" json:"opportunityId"`
	Opportunity   *Opportunity      `gorm:"foreignKey:OpportunityID" json:"opportunity,omitempty"`
	Version       int               `gorm:"default:1" json:"version"`
	Type          string            `gorm:"size:16;default:INITIAL" json:"type"`
	Status        string            `gorm:"size:32;default:DRAFT" json:"status"`
	Note          string            `gorm:"type:text" json:"note,omitempty"`
	TotalAmount   decimal.Decimal   `gorm:"type:decimal(15,2)" json:"totalAmount"`
	Details       []QuotationDetail `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE" json:"details,omitempty"`
	// Extra tasks priced by this quotation (ADDENDUM type only).
	Tasks []Task `gorm:"foreignKey:QuotationID" json:"tasks,omitempty"`
}

type QuotationDetail struct {
	Model
	QuotationID  string          `gorm:"size:36;index" json:"quotationId"`
	ServiceID    string          `gorm:"size:36" json:"serviceId"`
	Service      *Service        `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Quantity     int             `gorm:"default:1" json:"quantity"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(15,2)" json:"sellingPrice"`
	CostAtSale   decimal.Decimal `gorm:"type:decimal(15,2)" json:"costAtSale"`
}
