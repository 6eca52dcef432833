package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PerformerTypeInternal = "INTERNAL"
	PerformerTypeVendor   = "VENDOR"
)

// Service is a sellable offering. It is fulfilled by one or more Jobs; the
// designated output job is the one whose task result counts as the service's
// deliverable.
type Service struct {
	Model
	Name        string          `gorm:"size:255" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(15,2)" json:"costPrice"`
	OutputJobID *string         `gorm:"size:36" json:"outputJobId,omitempty"`
	OutputJob   *Job            `gorm:"foreignKey:OutputJobID" json:"outputJob,omitempty"`
	Jobs        []Job           `gorm:"many2many:service_jobs" json:"jobs,omitempty"`
}

type Job struct {
	Model
	Name                 string          `gorm:"size:255" json:"name"`
	Code                 string          `gorm:"size:32" json:"code"`
	CostPrice            decimal.Decimal `gorm:"type:decimal(15,2)" json:"costPrice"`
	DefaultPerformerType string          `gorm:"size:16;default:INTERNAL" json:"defaultPerformerType"`
	Criteria             []JobCriteria   `gorm:"foreignKey:JobID" json:"criteria,omitempty"`
}

// JobCriteria is soft-deleted: review history must survive a criterion being
// removed from the job definition.
type JobCriteria struct {
	Model
	JobID       string         `gorm:"size:36;index" json:"jobId"`
	Name        string         `gorm:"size:255" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type Vendor struct {
	Model
	Name    string      `gorm:"size:255" json:"name"`
	Phone   string      `gorm:"size:32" json:"phone,omitempty"`
	Email   string      `gorm:"size:191" json:"email,omitempty"`
	Address string      `gorm:"size:500" json:"address,omitempty"`
	Jobs    []VendorJob `gorm:"foreignKey:VendorID" json:"jobs,omitempty"`
}

// VendorJob declares that a vendor can perform a job, at a negotiated price.
type VendorJob struct {
	Model
	VendorID string          `gorm:"size:36;index" json:"vendorId"`
	JobID    string          `gorm:"size:36;index" json:"jobId"`
	Job      *Job            `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Price    decimal.Decimal `gorm:"type:decimal(15,2)" json:"price"`
}
