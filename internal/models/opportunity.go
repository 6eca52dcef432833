package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	CustomerTypeDirect   = "DIRECT"
	CustomerTypeReferral = "REFERRAL"
)

// Opportunity statuses, in pipeline order. CANCELLED is reachable from any
// non-terminal state. The opportunity never self-advances: quotation approval,
// contract creation, team assignment and project start push it forward.
const (
	OppStatusOpen                 = "OPEN"
	OppStatusPendingOppApproval   = "PENDING_OPP_APPROVAL"
	OppStatusOppApproved          = "OPP_APPROVED"
	OppStatusQuotationDrafting    = "QUOTATION_DRAFTING"
	OppStatusPendingQuoteApproval = "PENDING_QUOTE_APPROVAL"
	OppStatusQuoteApproved        = "QUOTE_APPROVED"
	OppStatusContractCreated      = "CONTRACT_CREATED"
	OppStatusProjectAssigned      = "PROJECT_ASSIGNED"
	OppStatusImplementation       = "IMPLEMENTATION"
	OppStatusCompleted            = "COMPLETED"
	OppStatusCancelled            = "CANCELLED"
)

// Opportunity is a prospective deal. Exactly one of {lead snapshot fields,
// customer reference} is authoritative: the lead fields are cleared the moment
// a customer is bound.
type Opportunity struct {
	Model
	Code            string          `gorm:"uniqueIndex;size:32" json:"code"`
	Name            string          `gorm:"size:255" json:"name"`
	Description     string          `gorm:"type:text" json:"description,omitempty"`
	ExpectedRevenue decimal.Decimal `gorm:"type:decimal(15,2)" json:"expectedRevenue"`
	Budget          decimal.Decimal `gorm:"type:decimal(15,2)" json:"budget"`

	LeadName    string `gorm:"size:255" json:"leadName,omitempty"`
	LeadPhone   string `gorm:"size:32" json:"leadPhone,omitempty"`
	LeadEmail   string `gorm:"size:191" json:"leadEmail,omitempty"`
	LeadAddress string `gorm:"size:500" json:"leadAddress,omitempty"`
	LeadTaxID   string `gorm:"size:64" json:"leadTaxId,omitempty"`

	CustomerType      string           `gorm:"size:16;default:DIRECT" json:"customerType"`
	CustomerID        *string          `gorm:"size:36" json:"customerId,omitempty"`
	Customer          *Customer        `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	ReferralPartnerID *string          `gorm:"size:36" json:"referralPartnerId,omitempty"`
	ReferralPartner   *ReferralPartner `gorm:"foreignKey:ReferralPartnerID" json:"referralPartner,omitempty"`

	Status      string                           `gorm:"size:32;default:OPEN" json:"status"`
	Services    []OpportunityService             `gorm:"foreignKey:OpportunityID" json:"services,omitempty"`
	Attachments datatypes.JSONSlice[Attachment]  `json:"attachments,omitempty"`
	CreatedByID *string                          `gorm:"size:36" json:"createdById,omitempty"`
	CreatedBy   *User                            `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
}

// HasLead reports whether the lead snapshot is still the sourcing identity.
func (o *Opportunity) HasLead() bool { return o.LeadName != "" }

// OpportunityService is a priced line item. Prices are snapshotted at add time
// and never track the reference Service's current price.
type OpportunityService struct {
	Model
	OpportunityID string          `gorm:"size:36;index" json:"opportunityId"`
	ServiceID     string          `gorm:"size:36" json:"serviceId"`
	Service       *Service        `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Quantity      int             `gorm:"default:1" json:"quantity"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(15,2)" json:"sellingPrice"`
	CostAtSale    decimal.Decimal `gorm:"type:decimal(15,2)" json:"costAtSale"`
}
