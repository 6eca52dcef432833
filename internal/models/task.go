package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	TaskStatusPending             = "PENDING"
	TaskStatusDoing               = "DOING"
	TaskStatusAwaitingReview      = "AWAITING_REVIEW"
	TaskStatusAwaitingAcceptance  = "AWAITING_ACCEPTANCE"
	TaskStatusCompleted           = "COMPLETED"
	TaskStatusRejected            = "REJECTED"
	TaskStatusOverdue             = "OVERDUE"
	TaskStatusAwaitingPricing     = "AWAITING_PRICING"
)

const (
	PricingStatusPending     = "PENDING"
	PricingStatusBillable    = "BILLABLE"
	PricingStatusNonBillable = "NON_BILLABLE"
)

// Task is one unit of execution. Project tasks derive their code from
// {contractCode}-{jobCode}-{seq}; ad-hoc internal tasks (no project) use
// CVK-{initials}-{YY}-{MM}-{seq}. Assignee and vendor are mutually exclusive.
type Task struct {
	Model
	Code string `gorm:"size:64;index" json:"code"`
	Name string `gorm:"size:255" json:"name"`

	ProjectID         *string          `gorm:"size:36;index" json:"projectId,omitempty"`
	Project           *Project         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	JobID             *string          `gorm:"size:36;index" json:"jobId,omitempty"`
	Job               *Job             `gorm:"foreignKey:JobID" json:"job,omitempty"`
	ContractServiceID *string          `gorm:"size:36;index" json:"contractServiceId,omitempty"`
	ContractService   *ContractService `gorm:"foreignKey:ContractServiceID" json:"contractService,omitempty"`

	PerformerType string  `gorm:"size:16;default:INTERNAL" json:"performerType"`
	AssigneeID    *string `gorm:"size:36" json:"assigneeId,omitempty"`
	Assignee      *User   `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	VendorID      *string `gorm:"size:36" json:"vendorId,omitempty"`
	Vendor        *Vendor `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	AssignerID    *string `gorm:"size:36" json:"assignerId,omitempty"`
	Assigner      *User   `gorm:"foreignKey:AssignerID" json:"assigner,omitempty"`
	SupervisorID  *string `gorm:"size:36" json:"supervisorId,omitempty"`

	Status string `gorm:"size:32;default:PENDING" json:"status"`

	PlannedStartDate *time.Time `json:"plannedStartDate,omitempty"`
	PlannedEndDate   *time.Time `json:"plannedEndDate,omitempty"`
	ActualStartDate  *time.Time `json:"actualStartDate,omitempty"`
	ActualEndDate    *time.Time `json:"actualEndDate,omitempty"`

	Description string                          `gorm:"type:text" json:"description,omitempty"`
	Attachments datatypes.JSONSlice[Attachment] `json:"attachments,omitempty"`
	Result      *datatypes.JSONType[Attachment] `json:"result,omitempty"`

	// Extra (out-of-scope) work: priced before it may execute or bill.
	IsExtra         bool            `gorm:"default:false" json:"isExtra"`
	PricingStatus   string          `gorm:"size:16" json:"pricingStatus,omitempty"`
	SellingPrice    decimal.Decimal `gorm:"type:decimal(15,2)" json:"sellingPrice"`
	Cost            decimal.Decimal `gorm:"type:decimal(15,2)" json:"cost"`
	MappedServiceID *string         `gorm:"size:36" json:"mappedServiceId,omitempty"`
	MappedService   *Service        `gorm:"foreignKey:MappedServiceID" json:"mappedService,omitempty"`
	QuotationID     *string         `gorm:"size:36;index" json:"quotationId,omitempty"`

	Reviews []TaskReview `gorm:"foreignKey:TaskID" json:"reviews,omitempty"`
}

const (
	ReviewerTypeTeamLead = "TEAM_LEAD"
	ReviewerTypeAssigner = "ASSIGNER"
)

// TaskReview is one reviewer role's verdict on one criterion. A task carries
// one row per (criterion, reviewer role) pair.
type TaskReview struct {
	Model
	TaskID       string       `gorm:"size:36;index" json:"taskId"`
	CriteriaID   string       `gorm:"size:36" json:"criteriaId"`
	Criteria     *JobCriteria `gorm:"foreignKey:CriteriaID" json:"criteria,omitempty"`
	ReviewerType string       `gorm:"size:16;default:ASSIGNER" json:"reviewerType"`
	ReviewerID   *string      `gorm:"size:36" json:"reviewerId,omitempty"`
	Reviewer     *User        `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	IsPassed     bool         `gorm:"default:false" json:"isPassed"`
	Note         string       `gorm:"type:text" json:"note,omitempty"`
}

const (
	AcceptanceStatusPending   = "PENDING"
	AcceptanceStatusApproved  = "APPROVED"
	AcceptanceStatusRejected  = "REJECTED"
	AcceptanceStatusProcessed = "PROCESSED"
)

// AcceptanceRequest bundles completed contract services for BOD sign-off.
type AcceptanceRequest struct {
	Model
	Name        string            `gorm:"size:255" json:"name"`
	RequesterID string            `gorm:"size:36" json:"requesterId"`
	Requester   *User             `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	ProjectID   string            `gorm:"size:36;index" json:"projectId"`
	Project     *Project          `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	ApproverID  *string           `gorm:"size:36" json:"approverId,omitempty"`
	Approver    *User             `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Status      string            `gorm:"size:16;default:PENDING" json:"status"`
	Note        string            `gorm:"type:text" json:"note,omitempty"`
	Feedback    string            `gorm:"type:text" json:"feedback,omitempty"`
	Services    []ContractService `gorm:"foreignKey:AcceptanceRequestID" json:"services,omitempty"`
}
