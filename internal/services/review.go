package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// ReviewEngine gates task completion. Every required reviewer role must pass
// every criterion of the task's job before the task completes.
type ReviewEngine struct {
	db     *gorm.DB
	notify Notifier
}

func NewReviewEngine(db *gorm.DB, notify Notifier) *ReviewEngine {
	return &ReviewEngine{db: db, notify: notify}
}

// InitializeReviewsTx wipes any prior reviews and fans out one row per
// (criterion, reviewer role). When the project's team lead and the task's
// assigner are different people both must review independently; when they
// coincide, or only one exists, a single ASSIGNER set is enough.
func (e *ReviewEngine) InitializeReviewsTx(tx *gorm.DB, taskID string) ([]models.TaskReview, error) {
	var task models.Task
	err := tx.Preload("Job").Preload("Job.Criteria").
		Preload("Project").Preload("Project.Team").
		First(&task, "id = ?", taskID).Error
	if err != nil {
		return nil, notFoundOr("công việc", err)
	}
	if task.Job == nil || len(task.Job.Criteria) == 0 {
		return nil, nil
	}

	if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskReview{}).Error; err != nil {
		return nil, err
	}

	var leadID *string
	if task.Project != nil && task.Project.Team != nil && task.Project.Team.TeamLeadID != "" {
		id := task.Project.Team.TeamLeadID
		leadID = &id
	}
	assignerID := task.AssignerID

	type reviewerSlot struct {
		kind string
		id   *string
	}
	var slots []reviewerSlot
	switch {
	case leadID != nil && assignerID != nil && *leadID != *assignerID:
		slots = []reviewerSlot{
			{models.ReviewerTypeTeamLead, leadID},
			{models.ReviewerTypeAssigner, assignerID},
		}
	case assignerID != nil:
		slots = []reviewerSlot{{models.ReviewerTypeAssigner, assignerID}}
	case leadID != nil:
		slots = []reviewerSlot{{models.ReviewerTypeAssigner, leadID}}
	default:
		slots = []reviewerSlot{{models.ReviewerTypeAssigner, nil}}
	}

	var out []models.TaskReview
	for _, criterion := range task.Job.Criteria {
		for _, slot := range slots {
			review := models.TaskReview{
				TaskID:       task.ID,
				CriteriaID:   criterion.ID,
				ReviewerType: slot.kind,
				ReviewerID:   slot.id,
			}
			if err := tx.Create(&review).Error; err != nil {
				return nil, err
			}
			out = append(out, review)
		}
	}
	return out, nil
}

// ToggleCriteria records one reviewer's verdict on one criterion. It never
// finalizes on its own.
func (e *ReviewEngine) ToggleCriteria(reviewID string, isPassed bool, note string) (*models.TaskReview, error) {
	var review models.TaskReview
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, "id = ?", reviewID).Error; err != nil {
			return notFoundOr("đánh giá", err)
		}
		review.IsPassed = isPassed
		review.Note = note
		return tx.Model(&review).Updates(map[string]any{
			"is_passed": isPassed,
			"note":      note,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// CheckAndFinalize completes the task when every reviewer role has
// unanimously passed all criteria. On completion the result is copied onto
// the contract service when the task's job is that service's output job.
func (e *ReviewEngine) CheckAndFinalize(taskID string) (*models.Task, error) {
	var (
		task          models.Task
		notifications []models.Notification
	)
	err := e.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Reviews").
			Preload("ContractService").Preload("ContractService.Service").
			First(&task, "id = ?", taskID).Error
		if err != nil {
			return notFoundOr("công việc", err)
		}
		if task.Status != models.TaskStatusAwaitingReview {
			return apperr.Conflict("Công việc không ở trạng thái chờ đánh giá")
		}
		if len(task.Reviews) == 0 {
			return apperr.Conflict("Công việc chưa có đánh giá nào")
		}

		groups := map[string]bool{}
		for _, review := range task.Reviews {
			passed, seen := groups[review.ReviewerType]
			if !seen {
				passed = true
			}
			groups[review.ReviewerType] = passed && review.IsPassed
		}
		for _, passed := range groups {
			if !passed {
				return nil
			}
		}

		now := time.Now()
		if err := tx.Model(&task).Updates(map[string]any{
			"status":          models.TaskStatusCompleted,
			"actual_end_date": now,
		}).Error; err != nil {
			return err
		}
		task.Status = models.TaskStatusCompleted

		if task.ContractService != nil && task.ContractService.Service != nil &&
			task.JobID != nil && task.ContractService.Service.OutputJobID != nil &&
			*task.ContractService.Service.OutputJobID == *task.JobID &&
			task.Result != nil {
			err := tx.Model(&models.ContractService{}).Where("id = ?", task.ContractService.ID).
				Update("result", task.Result).Error
			if err != nil {
				return err
			}
		}

		if task.AssigneeID != nil {
			notifications = append(notifications, models.Notification{
				Title:             "Công việc đã hoàn thành",
				Content:           fmt.Sprintf("Công việc %s đã được duyệt hoàn thành", task.Code),
				Type:              "TASK_COMPLETED",
				RecipientID:       *task.AssigneeID,
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
		e.notify.Notify(n)
	}
	return &task, nil
}

// RejectTask sends a task back for rework. Review rows stay untouched: the
// next submitResult re-initializes them.
func (e *ReviewEngine) RejectTask(taskID, note string) (*models.Task, error) {
	var (
		task          models.Task
		notifications []models.Notification
	)
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			return notFoundOr("công việc", err)
		}
		if task.Status != models.TaskStatusAwaitingReview {
			return apperr.Conflict("Công việc không ở trạng thái chờ đánh giá")
		}
		if err := tx.Model(&task).Update("status", models.TaskStatusRejected).Error; err != nil {
			return err
		}
		task.Status = models.TaskStatusRejected

		if task.AssigneeID != nil {
			notifications = append(notifications, models.Notification{
				Title:             "Công việc bị từ chối",
				Content:           fmt.Sprintf("Công việc %s bị từ chối: %s", task.Code, note),
				Type:              "TASK_REJECTED",
				RecipientID:       *task.AssigneeID,
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
		e.notify.Notify(n)
	}
	return &task, nil
}

func (e *ReviewEngine) ListByTask(taskID string) ([]models.TaskReview, error) {
	var out []models.TaskReview
	err := e.db.Preload("Criteria").Preload("Reviewer").
		Where("task_id = ?", taskID).Order("created_at ASC").Find(&out).Error
	return out, err
}
