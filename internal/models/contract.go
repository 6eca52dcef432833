package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	ContractStatusDraft            = "DRAFT"
	ContractStatusProposalUploaded = "PROPOSAL_UPLOADED"
	ContractStatusProposalApproved = "PROPOSAL_APPROVED"
	ContractStatusSigned           = "SIGNED"
	ContractStatusCompleted        = "COMPLETED"
	ContractStatusCancelled        = "CANCELLED"

	CommissionStatusPending   = "PENDING"
	CommissionStatusPaid      = "PAID"
	CommissionStatusCancelled = "CANCELLED"
)

type Contract struct {
	Model
	ContractCode string `gorm:"uniqueIndex;size:32" json:"contractCode"`
	Name         string `gorm:"size:255" json:"name"`

	CustomerID    string       `gorm:"size:36" json:"customerId"`
	Customer      *Customer    `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	OpportunityID *string      `gorm:"size:36" json:"opportunityId,omitempty"`
	Opportunity   *Opportunity `gorm:"foreignKey:OpportunityID" json:"opportunity,omitempty"`

	Status       string          `gorm:"size:32;default:DRAFT" json:"status"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(15,2)" json:"sellingPrice"`
	Cost         decimal.Decimal `gorm:"type:decimal(15,2)" json:"cost"`

	Attachments datatypes.JSONSlice[Attachment] `json:"attachments,omitempty"`

	// Referral commission, set when the originating opportunity came through a
	// referral partner.
	CommissionRate   decimal.Decimal `gorm:"type:decimal(5,2)" json:"commissionRate"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(15,2)" json:"commissionAmount"`
	CommissionStatus string          `gorm:"size:16" json:"commissionStatus,omitempty"`
	CommissionPaidAt *time.Time      `json:"commissionPaidAt,omitempty"`

	Project    *Project           `gorm:"foreignKey:ContractID" json:"project,omitempty"`
	Milestones []PaymentMilestone `gorm:"foreignKey:ContractID" json:"milestones,omitempty"`
	Services   []ContractService  `gorm:"foreignKey:ContractID" json:"services,omitempty"`
	Debts      []Debt             `gorm:"foreignKey:ContractID" json:"debts,omitempty"`
}

const (
	ContractServiceStatusActive             = "ACTIVE"
	ContractServiceStatusAwaitingAcceptance = "AWAITING_ACCEPTANCE"
	ContractServiceStatusAcceptanceRejected = "ACCEPTANCE_REJECTED"
	ContractServiceStatusCompleted          = "COMPLETED"
	ContractServiceStatusCancelled          = "CANCELLED"
)

// ContractService is one billable line of a contract. Quantity is expanded at
// contract creation: one row per unit, each fanning out into its own tasks.
type ContractService struct {
	Model
	ContractID           string                          `gorm:"size:36;index" json:"contractId"`
	Contract             *Contract                       `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
	AddendumID           *string                         `gorm:"size:36;index" json:"addendumId,omitempty"`
	ServiceID            string                          `gorm:"size:36" json:"serviceId"`
	Service              *Service                        `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	OpportunityServiceID *string                         `gorm:"size:36" json:"opportunityServiceId,omitempty"`
	Status               string                          `gorm:"size:32;default:ACTIVE" json:"status"`
	SellingPrice         decimal.Decimal                 `gorm:"type:decimal(15,2)" json:"sellingPrice"`
	Result               *datatypes.JSONType[Attachment] `json:"result,omitempty"`
	Feedback             string                          `gorm:"type:text" json:"feedback,omitempty"`
	AcceptanceRequestID  *string                         `gorm:"size:36;index" json:"acceptanceRequestId,omitempty"`
	Tasks                []Task                          `gorm:"foreignKey:ContractServiceID" json:"tasks,omitempty"`
}

const (
	AddendumStatusDraft     = "DRAFT"
	AddendumStatusSigned    = "SIGNED"
	AddendumStatusCancelled = "CANCELLED"
)

// ContractAddendum is a post-signature change order. SellingPrice/Cost are
// deltas against the parent contract and go negative for scale-downs.
type ContractAddendum struct {
	Model
	ContractID   string          `gorm:"size:36;index" json:"contractId"`
	Contract     *Contract       `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
	Name         string          `gorm:"size:255" json:"name"`
	Description  string          `gorm:"type:text" json:"description,omitempty"`
	Status       string          `gorm:"size:16;default:DRAFT" json:"status"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(15,2)" json:"sellingPrice"`
	Cost         decimal.Decimal `gorm:"type:decimal(15,2)" json:"cost"`

	SignedFile *datatypes.JSONType[Attachment] `json:"signedFile,omitempty"`

	Services   []ContractService  `gorm:"foreignKey:AddendumID" json:"services,omitempty"`
	Milestones []PaymentMilestone `gorm:"foreignKey:AddendumID" json:"milestones,omitempty"`
}
