package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// DebtEngine activates receivables from payment milestones and tracks
// payments against them.
type DebtEngine struct {
	db *gorm.DB
}

func NewDebtEngine(db *gorm.DB) *DebtEngine {
	return &DebtEngine{db: db}
}

// CreateFromMilestoneTx activates a debt for a milestone inside the caller's
// transaction. A milestone can be activated exactly once.
func (e *DebtEngine) CreateFromMilestoneTx(tx *gorm.DB, milestoneID string) (*models.Debt, error) {
	var milestone models.PaymentMilestone
	if err := tx.First(&milestone, "id = ?", milestoneID).Error; err != nil {
		return nil, notFoundOr("giai đoạn thanh toán", err)
	}
	var existing int64
	if err := tx.Model(&models.Debt{}).Where("milestone_id = ?", milestoneID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, apperr.Conflict("Giai đoạn này đã được kích hoạt công nợ")
	}
	due := time.Now()
	if milestone.DueDate != nil {
		due = *milestone.DueDate
	}
	debt := models.Debt{
		ContractID:  milestone.ContractID,
		MilestoneID: milestone.ID,
		Name:        "Phải thu: " + milestone.Name,
		Amount:      milestone.Amount,
		DueDate:     due,
		Status:      models.DebtStatusUnpaid,
	}
	if err := tx.Create(&debt).Error; err != nil {
		return nil, err
	}
	return &debt, nil
}

func (e *DebtEngine) CreateFromMilestone(milestoneID string) (*models.Debt, error) {
	var debt *models.Debt
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var err error
		debt, err = e.CreateFromMilestoneTx(tx, milestoneID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return debt, nil
}

type PaymentInput struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"paymentDate"`
	Note        string          `json:"note"`
}

// RecordPayment books a payment against a debt and recomputes the debt and
// milestone statuses from the payment total.
func (e *DebtEngine) RecordPayment(debtID string, in PaymentInput) (*models.Debt, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Validation("Số tiền thanh toán phải lớn hơn 0")
	}
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var debt models.Debt
		if err := tx.First(&debt, "id = ?", debtID).Error; err != nil {
			return notFoundOr("công nợ", err)
		}
		when := in.PaymentDate
		if when.IsZero() {
			when = time.Now()
		}
		payment := models.DebtPayment{
			DebtID:      debt.ID,
			Amount:      in.Amount,
			PaymentDate: when,
			Note:        in.Note,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return e.reconcile(tx, &debt)
	})
	if err != nil {
		return nil, err
	}
	return e.Get(debtID)
}

// DeletePayment removes a booked payment and re-derives the statuses, so a
// debt can fall back from PAID to PARTIAL or UNPAID.
func (e *DebtEngine) DeletePayment(paymentID string) (*models.Debt, error) {
	var debtID string
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var payment models.DebtPayment
		if err := tx.First(&payment, "id = ?", paymentID).Error; err != nil {
			return notFoundOr("lượt thanh toán", err)
		}
		debtID = payment.DebtID
		if err := tx.Delete(&payment).Error; err != nil {
			return err
		}
		var debt models.Debt
		if err := tx.First(&debt, "id = ?", debtID).Error; err != nil {
			return notFoundOr("công nợ", err)
		}
		return e.reconcile(tx, &debt)
	})
	if err != nil {
		return nil, err
	}
	return e.Get(debtID)
}

func (e *DebtEngine) Delete(debtID string) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		var debt models.Debt
		if err := tx.First(&debt, "id = ?", debtID).Error; err != nil {
			return notFoundOr("công nợ", err)
		}
		var payments int64
		if err := tx.Model(&models.DebtPayment{}).Where("debt_id = ?", debtID).Count(&payments).Error; err != nil {
			return err
		}
		if payments > 0 {
			return apperr.Conflict("Không thể xóa khoản nợ đã có lượt thanh toán")
		}
		if err := tx.Model(&models.PaymentMilestone{}).Where("id = ?", debt.MilestoneID).
			Update("status", models.MilestoneStatusPending).Error; err != nil {
			return err
		}
		return tx.Delete(&debt).Error
	})
}

func (e *DebtEngine) Get(id string) (*models.Debt, error) {
	var debt models.Debt
	err := e.db.Preload("Milestone").Preload("Payments", func(db *gorm.DB) *gorm.DB {
		return db.Order("payment_date ASC")
	}).First(&debt, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("công nợ", err)
	}
	return &debt, nil
}

func (e *DebtEngine) ListByContract(contractID string) ([]models.Debt, error) {
	var out []models.Debt
	err := e.db.Preload("Payments").Where("contract_id = ?", contractID).Order("due_date ASC").Find(&out).Error
	return out, err
}

// reconcile re-derives the debt status from its payment total and propagates
// it to the milestone.
func (e *DebtEngine) reconcile(tx *gorm.DB, debt *models.Debt) error {
	var payments []models.DebtPayment
	if err := tx.Where("debt_id = ?", debt.ID).Find(&payments).Error; err != nil {
		return err
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	status := models.DebtStatusUnpaid
	switch {
	case paid.GreaterThanOrEqual(debt.Amount) && debt.Amount.GreaterThan(decimal.Zero):
		status = models.DebtStatusPaid
	case paid.GreaterThan(decimal.Zero):
		status = models.DebtStatusPartial
	}
	if err := tx.Model(debt).Update("status", status).Error; err != nil {
		return err
	}

	milestoneStatus := models.MilestoneStatusPending
	if status == models.DebtStatusPaid {
		milestoneStatus = models.MilestoneStatusCompleted
	}
	return tx.Model(&models.PaymentMilestone{}).Where("id = ?", debt.MilestoneID).
		Update("status", milestoneStatus).Error
}
