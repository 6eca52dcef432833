package models

import "time"

const (
	ProjectStatusPendingConfirmation = "PENDING_CONFIRMATION"
	ProjectStatusConfirmed           = "CONFIRMED"
	ProjectStatusInProgress          = "IN_PROGRESS"
	ProjectStatusCompleted           = "COMPLETED"
	ProjectStatusCancelled           = "CANCELLED"
)

type Project struct {
	Model
	Name       string       `gorm:"size:255" json:"name"`
	ContractID string       `gorm:"size:36;uniqueIndex" json:"contractId"`
	Contract   *Contract    `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
	TeamID     *string      `gorm:"size:36" json:"teamId,omitempty"`
	Team       *ProjectTeam `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Status     string       `gorm:"size:32;default:PENDING_CONFIRMATION" json:"status"`

	PlannedStartDate *time.Time `json:"plannedStartDate,omitempty"`
	PlannedEndDate   *time.Time `json:"plannedEndDate,omitempty"`
	ActualStartDate  *time.Time `json:"actualStartDate,omitempty"`
	ActualEndDate    *time.Time `json:"actualEndDate,omitempty"`

	Tasks []Task `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}
