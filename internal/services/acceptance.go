package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// AcceptanceEngine runs the formal sign-off on delivered contract services.
// Acceptance gates billing the way reviews gate task completion.
type AcceptanceEngine struct {
	db     *gorm.DB
	notify Notifier
}

func NewAcceptanceEngine(db *gorm.DB, notify Notifier) *AcceptanceEngine {
	return &AcceptanceEngine{db: db, notify: notify}
}

type CreateAcceptanceInput struct {
	Name        string   `json:"name"`
	ProjectID   string   `json:"projectId"`
	RequesterID string   `json:"requesterId"`
	ServiceIDs  []string `json:"serviceIds"`
	Note        string   `json:"note"`
}

// CreateRequest batches delivered services for BOD sign-off. Every service
// must belong to the project's contract and already carry a result.
func (e *AcceptanceEngine) CreateRequest(in CreateAcceptanceInput) (*models.AcceptanceRequest, error) {
	if len(in.ServiceIDs) == 0 {
		return nil, apperr.Validation("Cần chọn ít nhất một hạng mục để nghiệm thu")
	}
	var (
		request       models.AcceptanceRequest
		notifications []models.Notification
	)
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, "id = ?", in.ProjectID).Error; err != nil {
			return notFoundOr("dự án", err)
		}
		var requester models.User
		if err := tx.First(&requester, "id = ?", in.RequesterID).Error; err != nil {
			return notFoundOr("người yêu cầu", err)
		}

		var services []models.ContractService
		if err := tx.Preload("Service").Where("id IN ?", in.ServiceIDs).Find(&services).Error; err != nil {
			return err
		}
		if len(services) != len(in.ServiceIDs) {
			return apperr.NotFound("hạng mục hợp đồng")
		}
		for _, svc := range services {
			if svc.ContractID != project.ContractID {
				return apperr.Validationf("Hạng mục %s không thuộc dự án này", svc.ID)
			}
			if svc.Result == nil {
				name := svc.ID
				if svc.Service != nil {
					name = svc.Service.Name
				}
				return apperr.Validationf("Hạng mục %q chưa có kết quả, không thể nghiệm thu", name)
			}
		}

		request = models.AcceptanceRequest{
			Name:        in.Name,
			RequesterID: requester.ID,
			ProjectID:   project.ID,
			Status:      models.AcceptanceStatusPending,
			Note:        in.Note,
		}
		if err := tx.Create(&request).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.ContractService{}).Where("id IN ?", in.ServiceIDs).
			Updates(map[string]any{
				"status":                models.ContractServiceStatusAwaitingAcceptance,
				"acceptance_request_id": request.ID,
			}).Error; err != nil {
			return err
		}

		var approvers []models.User
		if err := tx.Where("role IN ?", []string{models.RoleBOD, models.RoleAdmin}).Find(&approvers).Error; err != nil {
			return err
		}
		notifications = notifyAll(approvers, models.Notification{
			Title:             "Yêu cầu nghiệm thu mới",
			Content:           fmt.Sprintf("Yêu cầu nghiệm thu %q đang chờ phê duyệt", request.Name),
			Type:              "ACCEPTANCE_REQUESTED",
			RelatedEntityID:   request.ID,
			RelatedEntityType: "ACCEPTANCE_REQUEST",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, n := range notifications {
		e.notify.Notify(n)
	}
	return e.Get(request.ID)
}

// Approve accepts the whole batch: every service completes.
func (e *AcceptanceEngine) Approve(requestID, approverID string) (*models.AcceptanceRequest, error) {
	return e.decideAll(requestID, approverID, models.AcceptanceStatusApproved, "")
}

// Reject bounces the whole batch: every service is marked rejected and its
// tasks go back to DOING for rework.
func (e *AcceptanceEngine) Reject(requestID, approverID, feedback string) (*models.AcceptanceRequest, error) {
	return e.decideAll(requestID, approverID, models.AcceptanceStatusRejected, feedback)
}

func (e *AcceptanceEngine) decideAll(requestID, approverID, verdict, feedback string) (*models.AcceptanceRequest, error) {
	var notifications []models.Notification
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var request models.AcceptanceRequest
		if err := tx.Preload("Services").First(&request, "id = ?", requestID).Error; err != nil {
			return notFoundOr("yêu cầu nghiệm thu", err)
		}
		if request.Status != models.AcceptanceStatusPending {
			return apperr.Conflict("Yêu cầu nghiệm thu đã được xử lý rồi")
		}

		if err := tx.Model(&request).Updates(map[string]any{
			"status":      verdict,
			"approver_id": approverID,
			"feedback":    feedback,
		}).Error; err != nil {
			return err
		}

		for _, svc := range request.Services {
			if verdict == models.AcceptanceStatusApproved {
				if err := tx.Model(&models.ContractService{}).Where("id = ?", svc.ID).
					Update("status", models.ContractServiceStatusCompleted).Error; err != nil {
					return err
				}
				continue
			}
			if err := e.rejectService(tx, svc.ID, feedback); err != nil {
				return err
			}
		}

		title := "Yêu cầu nghiệm thu được phê duyệt"
		ntype := "ACCEPTANCE_APPROVED"
		if verdict == models.AcceptanceStatusRejected {
			title = "Yêu cầu nghiệm thu bị từ chối"
			ntype = "ACCEPTANCE_REJECTED"
		}
		notifications = append(notifications, models.Notification{
			Title:             title,
			Content:           fmt.Sprintf("Yêu cầu nghiệm thu %q: %s", request.Name, feedback),
			Type:              ntype,
			RecipientID:       request.RequesterID,
			RelatedEntityID:   request.ID,
			RelatedEntityType: "ACCEPTANCE_REQUEST",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, n := range notifications {
		e.notify.Notify(n)
	}
	return e.Get(requestID)
}

type AcceptanceDecision struct {
	ServiceID string `json:"serviceId"`
	Approved  bool   `json:"approved"`
	Feedback  string `json:"feedback"`
}

// Process applies per-service decisions within one batch. The request ends in
// PROCESSED regardless of the mix: the per-item outcomes carry the verdicts.
func (e *AcceptanceEngine) Process(requestID, approverID string, decisions []AcceptanceDecision) (*models.AcceptanceRequest, error) {
	if len(decisions) == 0 {
		return nil, apperr.Validation("Cần ít nhất một quyết định nghiệm thu")
	}
	var notifications []models.Notification
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var request models.AcceptanceRequest
		if err := tx.Preload("Services").First(&request, "id = ?", requestID).Error; err != nil {
			return notFoundOr("yêu cầu nghiệm thu", err)
		}
		if request.Status != models.AcceptanceStatusPending {
			return apperr.Conflict("Yêu cầu nghiệm thu đã được xử lý rồi")
		}

		batch := map[string]bool{}
		for _, svc := range request.Services {
			batch[svc.ID] = true
		}
		for _, decision := range decisions {
			if !batch[decision.ServiceID] {
				return apperr.Validationf("Hạng mục %s không thuộc yêu cầu nghiệm thu này", decision.ServiceID)
			}
			if decision.Approved {
				if err := tx.Model(&models.ContractService{}).Where("id = ?", decision.ServiceID).
					Update("status", models.ContractServiceStatusCompleted).Error; err != nil {
					return err
				}
				continue
			}
			if err := e.rejectService(tx, decision.ServiceID, decision.Feedback); err != nil {
				return err
			}
		}

		if err := tx.Model(&request).Updates(map[string]any{
			"status":      models.AcceptanceStatusProcessed,
			"approver_id": approverID,
		}).Error; err != nil {
			return err
		}

		notifications = append(notifications, models.Notification{
			Title:             "Yêu cầu nghiệm thu đã được xử lý",
			Content:           fmt.Sprintf("Yêu cầu nghiệm thu %q đã có kết quả theo từng hạng mục", request.Name),
			Type:              "ACCEPTANCE_PROCESSED",
			RecipientID:       request.RequesterID,
			RelatedEntityID:   request.ID,
			RelatedEntityType: "ACCEPTANCE_REQUEST",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, n := range notifications {
		e.notify.Notify(n)
	}
	return e.Get(requestID)
}

// rejectService marks one service rejected and resets its tasks to DOING.
func (e *AcceptanceEngine) rejectService(tx *gorm.DB, serviceID, feedback string) error {
	if err := tx.Model(&models.ContractService{}).Where("id = ?", serviceID).
		Updates(map[string]any{
			"status":   models.ContractServiceStatusAcceptanceRejected,
			"feedback": feedback,
		}).Error; err != nil {
		return err
	}
	return tx.Model(&models.Task{}).Where("contract_service_id = ?", serviceID).
		Update("status", models.TaskStatusDoing).Error
}

func (e *AcceptanceEngine) Get(id string) (*models.AcceptanceRequest, error) {
	var request models.AcceptanceRequest
	err := e.db.
		Preload("Requester").
		Preload("Approver").
		Preload("Project").
		Preload("Services").
		Preload("Services.Service").
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("yêu cầu nghiệm thu", err)
	}
	return &request, nil
}

func (e *AcceptanceEngine) ListByProject(projectID string) ([]models.AcceptanceRequest, error) {
	var out []models.AcceptanceRequest
	err := e.db.Preload("Services").Where("project_id = ?", projectID).
		Order("created_at DESC").Find(&out).Error
	return out, err
}
