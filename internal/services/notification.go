package services

import (
	"log"

	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// Notifier is the fire-and-forget notification sink. Implementations must
// never fail the caller: delivery problems are logged and swallowed.
type Notifier interface {
	Notify(n models.Notification)
}

// NotificationService persists notifications for in-app delivery.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) Notify(n models.Notification) {
	if n.RecipientID == "" {
		return
	}
	if err := s.db.Create(&n).Error; err != nil {
		log.Printf("notification dropped: %v", apperr.Dependency("notification store", err))
	}
}

func (s *NotificationService) ListForUser(userID string) ([]models.Notification, error) {
	var out []models.Notification
	err := s.db.Where("recipient_id = ?", userID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *NotificationService) MarkRead(id string) error {
	res := s.db.Model(&models.Notification{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("thông báo")
	}
	return nil
}

// notifyAll expands a notification template into one message per recipient.
// Callers send the result after their transaction commits.
func notifyAll(users []models.User, template models.Notification) []models.Notification {
	out := make([]models.Notification, 0, len(users))
	for _, u := range users {
		msg := template
		msg.RecipientID = u.ID
		out = append(out, msg)
	}
	return out
}
