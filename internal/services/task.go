package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// ReviewInitializer builds the review fan-out when a task result lands.
type ReviewInitializer interface {
	InitializeReviewsTx(tx *gorm.DB, taskID string) ([]models.TaskReview, error)
}

// TaskOrchestrator creates and dispatches tasks, routes submitted results
// into review and prices extra work.
type TaskOrchestrator struct {
	db      *gorm.DB
	reviews ReviewInitializer
	notify  Notifier
}

func NewTaskOrchestrator(db *gorm.DB, reviews ReviewInitializer, notify Notifier) *TaskOrchestrator {
	return &TaskOrchestrator{db: db, reviews: reviews, notify: notify}
}

type CreateTaskInput struct {
	Name              string     `json:"name"`
	ProjectID         string     `json:"projectId"`
	JobID             string     `json:"jobId"`
	ContractServiceID string     `json:"contractServiceId"`
	IsExtra           bool       `json:"isExtra"`
	Description       string     `json:"description"`
	PlannedStartDate  *time.Time `json:"plannedStartDate"`
	PlannedEndDate    *time.Time `json:"plannedEndDate"`
}

// CreateTask adds a project task by hand, outside the automatic fan-out.
// Extra tasks enter the pricing queue instead of the execution queue.
func (o *TaskOrchestrator) CreateTask(in CreateTaskInput) (*models.Task, error) {
	var task models.Task
	err := o.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Preload("Contract").First(&project, "id = ?", in.ProjectID).Error; err != nil {
			return notFoundOr("dự án", err)
		}
		var job models.Job
		if err := tx.First(&job, "id = ?", in.JobID).Error; err != nil {
			return notFoundOr("đầu việc", err)
		}

		var seq int64
		err := tx.Model(&models.Task{}).
			Where("project_id = ? AND job_id = ?", project.ID, job.ID).
			Count(&seq).Error
		if err != nil {
			return err
		}

		projectID := project.ID
		jobID := job.ID
		task = models.Task{
			Code:             fmt.Sprintf("%s-%s-%02d", project.Contract.ContractCode, job.Code, seq+1),
			Name:             in.Name,
			ProjectID:        &projectID,
			JobID:            &jobID,
			PerformerType:    job.DefaultPerformerType,
			Status:           models.TaskStatusPending,
			Description:      in.Description,
			PlannedStartDate: in.PlannedStartDate,
			PlannedEndDate:   in.PlannedEndDate,
			IsExtra:          in.IsExtra,
		}
		if task.Name == "" {
			task.Name = job.Name
		}
		if task.PerformerType == "" {
			task.PerformerType = models.PerformerTypeInternal
		}
		if in.ContractServiceID != "" {
			svcID := in.ContractServiceID
			task.ContractServiceID = &svcID
		}
		if in.IsExtra {
			task.Status = models.TaskStatusAwaitingPricing
			task.PricingStatus = models.PricingStatusPending
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return o.Get(task.ID)
}

type CreateInternalTaskInput struct {
	Name             string     `json:"name"`
	AssigneeID       string     `json:"assigneeId"`
	AssignerID       string     `json:"assignerId"`
	Description      string     `json:"description"`
	PlannedStartDate *time.Time `json:"plannedStartDate"`
	PlannedEndDate   *time.Time `json:"plannedEndDate"`
}

// CreateInternalTask creates an ad-hoc task with no project or job. The code
// sequence runs per assignee initials per calendar month, counted among
// project-less tasks.
func (o *TaskOrchestrator) CreateInternalTask(in CreateInternalTaskInput) (*models.Task, error) {
	if in.AssigneeID == "" {
		return nil, apperr.Validation("Công việc nội bộ cần có người thực hiện")
	}
	var task models.Task
	err := o.db.Transaction(func(tx *gorm.DB) error {
		var assignee models.User
		if err := tx.First(&assignee, "id = ?", in.AssigneeID).Error; err != nil {
			return notFoundOr("người thực hiện", err)
		}

		now := time.Now()
		prefix := fmt.Sprintf("CVK-%s-%02d-%02d", assignee.Initials(), now.Year()%100, int(now.Month()))
		var seq int64
		err := tx.Model(&models.Task{}).
			Where("project_id IS NULL AND code LIKE ?", prefix+"%").
			Count(&seq).Error
		if err != nil {
			return err
		}

		assigneeID := assignee.ID
		task = models.Task{
			Code:             fmt.Sprintf("%s-%d", prefix, seq+1),
			Name:             in.Name,
			PerformerType:    models.PerformerTypeInternal,
			AssigneeID:       &assigneeID,
			Status:           models.TaskStatusDoing,
			Description:      in.Description,
			PlannedStartDate: in.PlannedStartDate,
			PlannedEndDate:   in.PlannedEndDate,
		}
		if in.AssignerID != "" {
			assignerID := in.AssignerID
			task.AssignerID = &assignerID
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}

	o.notify.Notify(models.Notification{
		Title:             "Công việc mới",
		Content:           fmt.Sprintf("Bạn được giao công việc %s", task.Code),
		Type:              "TASK_ASSIGNED",
		RecipientID:       in.AssigneeID,
		RelatedEntityID:   task.ID,
		RelatedEntityType: "TASK",
	})
	return o.Get(task.ID)
}

type AssignPerformerInput struct {
	PerformerType    string                          `json:"performerType"`
	AssigneeID       string                          `json:"assigneeId"`
	VendorID         string                          `json:"vendorId"`
	AssignerID       string                          `json:"assignerId"`
	SupervisorID     string                          `json:"supervisorId"`
	Description      string                          `json:"description"`
	PlannedStartDate *time.Time                      `json:"plannedStartDate"`
	PlannedEndDate   *time.Time                      `json:"plannedEndDate"`
	Attachments      []models.Attachment             `json:"attachments"`
}

// AssignPerformer binds either an internal user or a vendor, never both, and
// moves a pending task into execution. Only internal assignees get notified.
func (o *TaskOrchestrator) AssignPerformer(taskID string, in AssignPerformerInput) (*models.Task, error) {
	var notifications []models.Notification
	err := o.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			return notFoundOr("công việc", err)
		}

		updates := map[string]any{
			"performer_type": in.PerformerType,
		}
		switch in.PerformerType {
		case models.PerformerTypeVendor:
			if in.VendorID == "" {
				return apperr.Validation("Thiếu nhà cung cấp thực hiện công việc")
			}
			var vendor models.Vendor
			if err := tx.First(&vendor, "id = ?", in.VendorID).Error; err != nil {
				return notFoundOr("nhà cung cấp", err)
			}
			updates["vendor_id"] = vendor.ID
			updates["assignee_id"] = nil
		case models.PerformerTypeInternal:
			if in.AssigneeID == "" {
				return apperr.Validation("Thiếu người thực hiện công việc")
			}
			var assignee models.User
			if err := tx.First(&assignee, "id = ?", in.AssigneeID).Error; err != nil {
				return notFoundOr("người thực hiện", err)
			}
			updates["assignee_id"] = assignee.ID
			updates["vendor_id"] = nil
			notifications = append(notifications, models.Notification{
				Title:             "Công việc mới",
				Content:           fmt.Sprintf("Bạn được giao công việc %s", task.Code),
				Type:              "TASK_ASSIGNED",
				RecipientID:       assignee.ID,
				RelatedEntityID:   task.ID,
				RelatedEntityType: "TASK",
			})
		default:
			return apperr.Validation("Loại người thực hiện không hợp lệ")
		}

		if in.AssignerID != "" {
			updates["assigner_id"] = in.AssignerID
		}
		if in.SupervisorID != "" {
			updates["supervisor_id"] = in.SupervisorID
		}
		if in.Description != "" {
			updates["description"] = in.Description
		}
		if in.PlannedStartDate != nil {
			updates["planned_start_date"] = in.PlannedStartDate
		}
		if in.PlannedEndDate != nil {
			updates["planned_end_date"] = in.PlannedEndDate
		}
		if len(in.Attachments) > 0 {
			merged := task.Attachments
			for _, att := range in.Attachments {
				merged = appendAttachment(merged, att)
			}
			updates["attachments"] = merged
		}
		if task.Status == models.TaskStatusPending {
			updates["status"] = models.TaskStatusDoing
		}
		return tx.Model(&task).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	for _, n := range notifications {
		o.notify.Notify(n)
	}
	return o.Get(taskID)
}

// SubmitResult stores the deliverable, moves the task to AWAITING_REVIEW and
// fans out the review rows, notifying each distinct reviewer.
func (o *TaskOrchestrator) SubmitResult(taskID string, result models.Attachment) (*models.Task, error) {
	if result.URL == "" {
		return nil, apperr.Validation("Thiếu kết quả công việc")
	}
	var notifications []models.Notification
	err := o.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			return notFoundOr("công việc", err)
		}
		if task.Status != models.TaskStatusDoing && task.Status != models.TaskStatusRejected {
			return apperr.Conflict("Công việc chưa ở trạng thái thực hiện, không thể nộp kết quả")
		}
		now := time.Now()
		if err := tx.Model(&task).Updates(map[string]any{
			"status":          models.TaskStatusAwaitingReview,
			"result":          jsonAttachment(result),
			"actual_end_date": now,
		}).Error; err != nil {
			return err
		}

		reviews, err := o.reviews.InitializeReviewsTx(tx, task.ID)
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, review := range reviews {
			if review.ReviewerID == nil || seen[*review.ReviewerID] {
				continue
			}
			seen[*review.ReviewerID] = true
			notifications = append(notifications, models.Notification{
				Title:             "Công việc chờ đánh giá",
				Content:           fmt.Sprintf("Công việc %s đã nộp kết quả và chờ bạn đánh giá", task.Code),
				Type:              "TASK_AWAITING_REVIEW",
				RecipientID:       *review.ReviewerID,
				RelatedEntityID:   task.ID,
				RelatedEntityType: "TASK",
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
	return o.Get(taskID)
}

type AssessExtraTaskInput struct {
	IsBillable   bool            `json:"isBillable"`
	IsRejected   bool            `json:"isRejected"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	ServiceID    string          `json:"serviceId"`
}

// AssessExtraTask prices out-of-scope work. Billable tasks wait for an
// addendum quotation; non-billable work absorbs its cost into the contract
// and becomes executable immediately.
func (o *TaskOrchestrator) AssessExtraTask(taskID string, in AssessExtraTaskInput) (*models.Task, error) {
	err := o.db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Preload("Job").First(&task, "id = ?", taskID).Error; err != nil {
			return notFoundOr("công việc", err)
		}
		if !task.IsExtra {
			return apperr.Validation("Chỉ có thể định giá công việc phát sinh")
		}
		if in.IsRejected {
			return tx.Model(&task).Update("status", models.TaskStatusRejected).Error
		}

		cost := decimal.Zero
		if task.Job != nil {
			cost = task.Job.CostPrice
		}

		if in.IsBillable {
			updates := map[string]any{
				"pricing_status": models.PricingStatusBillable,
				"selling_price":  in.SellingPrice,
				"cost":           cost,
			}
			if in.ServiceID != "" {
				var svc models.Service
				if err := tx.First(&svc, "id = ?", in.ServiceID).Error; err != nil {
					return notFoundOr("dịch vụ", err)
				}
				updates["mapped_service_id"] = svc.ID
			}
			return tx.Model(&task).Updates(updates).Error
		}

		// Non-billable: swallow the cost into the contract, no billing event.
		if err := tx.Model(&task).Updates(map[string]any{
			"pricing_status": models.PricingStatusNonBillable,
			"selling_price":  decimal.Zero,
			"cost":           cost,
			"status":         models.TaskStatusPending,
		}).Error; err != nil {
			return err
		}
		if task.ProjectID != nil && cost.GreaterThan(decimal.Zero) {
			var project models.Project
			if err := tx.First(&project, "id = ?", *task.ProjectID).Error; err != nil {
				return notFoundOr("dự án", err)
			}
			var contract models.Contract
			if err := tx.First(&contract, "id = ?", project.ContractID).Error; err != nil {
				return notFoundOr("hợp đồng", err)
			}
			if err := tx.Model(&contract).Update("cost", contract.Cost.Add(cost)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o.Get(taskID)
}

func (o *TaskOrchestrator) Get(id string) (*models.Task, error) {
	var task models.Task
	err := o.db.
		Preload("Project").
		Preload("Job").
		Preload("ContractService").
		Preload("Assignee").
		Preload("Vendor").
		Preload("Assigner").
		Preload("Reviews").
		Preload("Reviews.Criteria").
		First(&task, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("công việc", err)
	}
	return &task, nil
}

func (o *TaskOrchestrator) ListByProject(projectID string) ([]models.Task, error) {
	var out []models.Task
	err := o.db.Preload("Job").Preload("Assignee").
		Where("project_id = ?", projectID).Order("code ASC").Find(&out).Error
	return out, err
}

func (o *TaskOrchestrator) ListForAssignee(userID string) ([]models.Task, error) {
	var out []models.Task
	err := o.db.Preload("Project").Preload("Job").
		Where("assignee_id = ?", userID).Order("created_at DESC").Find(&out).Error
	return out, err
}
