package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// ProjectOrchestrator turns approved contracts into projects and fans their
// services out into tasks.
type ProjectOrchestrator struct {
	db     *gorm.DB
	opps   OpportunityProgression
	notify Notifier
}

func NewProjectOrchestrator(db *gorm.DB, opps OpportunityProgression, notify Notifier) *ProjectOrchestrator {
	return &ProjectOrchestrator{db: db, opps: opps, notify: notify}
}

// CreateFromContractTx is idempotent: it reuses the contract's existing
// project when one exists, then tops up the task fan-out. One task per
// (project, job, contract service) triple, so re-running after an addendum
// only creates the missing tasks.
func (o *ProjectOrchestrator) CreateFromContractTx(tx *gorm.DB, contract *models.Contract) (*models.Project, error) {
	var project models.Project
	err := tx.Where("contract_id = ?", contract.ID).First(&project).Error
	switch err {
	case nil:
	case gorm.ErrRecordNotFound:
		project = models.Project{
			Name:       contract.Name,
			ContractID: contract.ID,
			Status:     models.ProjectStatusPendingConfirmation,
		}
		if err := tx.Create(&project).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	var services []models.ContractService
	err = tx.Preload("Service").Preload("Service.Jobs").
		Where("contract_id = ? AND status <> ?", contract.ID, models.ContractServiceStatusCancelled).
		Find(&services).Error
	if err != nil {
		return nil, err
	}

	for _, svc := range services {
		if svc.Service == nil {
			continue
		}
		for _, job := range svc.Service.Jobs {
			var existing int64
			err := tx.Model(&models.Task{}).
				Where("project_id = ? AND job_id = ? AND contract_service_id = ?", project.ID, job.ID, svc.ID).
				Count(&existing).Error
			if err != nil {
				return nil, err
			}
			if existing > 0 {
				continue
			}
			var seq int64
			err = tx.Model(&models.Task{}).
				Where("project_id = ? AND job_id = ?", project.ID, job.ID).
				Count(&seq).Error
			if err != nil {
				return nil, err
			}
			jobID := job.ID
			svcID := svc.ID
			projectID := project.ID
			task := models.Task{
				Code:              fmt.Sprintf("%s-%s-%02d", contract.ContractCode, job.Code, seq+1),
				Name:              job.Name,
				ProjectID:         &projectID,
				JobID:             &jobID,
				ContractServiceID: &svcID,
				PerformerType:     job.DefaultPerformerType,
				Status:            models.TaskStatusPending,
				Attachments:       contract.Attachments,
			}
			if task.PerformerType == "" {
				task.PerformerType = models.PerformerTypeInternal
			}
			if err := tx.Create(&task).Error; err != nil {
				return nil, err
			}
		}
	}
	return &project, nil
}

// AssignTeam binds (or re-binds) a team to the contract's project, creating
// the project first if the proposal was approved out of band.
func (o *ProjectOrchestrator) AssignTeam(contractID, teamID, name string) (*models.Project, error) {
	var (
		project       *models.Project
		notifications []models.Notification
	)
	err := o.db.Transaction(func(tx *gorm.DB) error {
		var contract models.Contract
		if err := tx.First(&contract, "id = ?", contractID).Error; err != nil {
			return notFoundOr("hợp đồng", err)
		}
		if contract.Status != models.ContractStatusProposalApproved && contract.Status != models.ContractStatusSigned {
			return apperr.Conflict("Hợp đồng chưa được duyệt đề xuất, không thể phân công đội dự án")
		}
		var team models.ProjectTeam
		if err := tx.Preload("TeamLead").First(&team, "id = ?", teamID).Error; err != nil {
			return notFoundOr("đội dự án", err)
		}

		var err error
		project, err = o.CreateFromContractTx(tx, &contract)
		if err != nil {
			return err
		}
		updates := map[string]any{"team_id": team.ID}
		if name != "" {
			updates["name"] = name
		}
		if err := tx.Model(project).Updates(updates).Error; err != nil {
			return err
		}

		if contract.OpportunityID != nil {
			if err := o.opps.MarkProjectAssigned(tx, *contract.OpportunityID); err != nil {
				return err
			}
		}

		if team.TeamLead != nil {
			notifications = append(notifications, models.Notification{
				Title:             "Dự án mới được phân công",
				Content:           fmt.Sprintf("Đội của bạn được phân công dự án cho hợp đồng %s", contract.ContractCode),
				Type:              "PROJECT_ASSIGNED",
				RecipientID:       team.TeamLead.ID,
				RelatedEntityID:   project.ID,
				RelatedEntityType: "PROJECT",
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, n := range notifications {
		o.notify.Notify(n)
	}
	return o.Get(project.ID)
}

// Confirm records the team lead's acknowledgement and alerts the BOD.
func (o *ProjectOrchestrator) Confirm(projectID, userID string) (*models.Project, error) {
	var notifications []models.Notification
	err := o.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			return notFoundOr("dự án", err)
		}
		if project.Status != models.ProjectStatusPendingConfirmation {
			return apperr.Conflict("Dự án không ở trạng thái chờ xác nhận")
		}
		if err := tx.Model(&project).Update("status", models.ProjectStatusConfirmed).Error; err != nil {
			return err
		}

		var bod []models.User
		if err := tx.Where("role = ?", models.RoleBOD).Find(&bod).Error; err != nil {
			return err
		}
		notifications = notifyAll(bod, models.Notification{
			Title:             "Dự án đã được xác nhận",
			Content:           fmt.Sprintf("Dự án %s đã được trưởng nhóm xác nhận", project.Name),
			Type:              "PROJECT_CONFIRMED",
			RelatedEntityID:   project.ID,
			RelatedEntityType: "PROJECT",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, n := range notifications {
		o.notify.Notify(n)
	}
	return o.Get(projectID)
}

// StartTx flips a project to IN_PROGRESS once its contract is signed and
// advances the originating opportunity to IMPLEMENTATION.
func (o *ProjectOrchestrator) StartTx(tx *gorm.DB, projectID string) (*models.Project, error) {
	var project models.Project
	if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, notFoundOr("dự án", err)
	}
	var contract models.Contract
	if err := tx.First(&contract, "id = ?", project.ContractID).Error; err != nil {
		return nil, notFoundOr("hợp đồng", err)
	}
	if contract.Status != models.ContractStatusSigned {
		return nil, apperr.Conflict("Hợp đồng chưa được ký, không thể bắt đầu dự án")
	}
	now := time.Now()
	if err := tx.Model(&project).Updates(map[string]any{
		"status":            models.ProjectStatusInProgress,
		"actual_start_date": now,
	}).Error; err != nil {
		return nil, err
	}
	if contract.OpportunityID != nil {
		if err := o.opps.MarkImplementation(tx, *contract.OpportunityID); err != nil {
			return nil, err
		}
	}
	project.Status = models.ProjectStatusInProgress
	project.ActualStartDate = &now
	return &project, nil
}

func (o *ProjectOrchestrator) Start(projectID string) (*models.Project, error) {
	err := o.db.Transaction(func(tx *gorm.DB) error {
		_, err := o.StartTx(tx, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return o.Get(projectID)
}

func (o *ProjectOrchestrator) Get(id string) (*models.Project, error) {
	var project models.Project
	err := o.db.
		Preload("Contract").
		Preload("Team").
		Preload("Team.TeamLead").
		Preload("Team.Members").
		Preload("Tasks").
		First(&project, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("dự án", err)
	}
	return &project, nil
}

func (o *ProjectOrchestrator) List() ([]models.Project, error) {
	var out []models.Project
	err := o.db.Preload("Contract").Preload("Team").Order("created_at DESC").Find(&out).Error
	return out, err
}
