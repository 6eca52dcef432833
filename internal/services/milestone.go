package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// MilestoneEngine manages the payment schedule of a contract. Base-contract
// milestones are percentage slices of the selling price and their sum never
// exceeds 100; addendum milestones carry explicit amounts and are out of the
// percentage pool.
type MilestoneEngine struct {
	db *gorm.DB
}

func NewMilestoneEngine(db *gorm.DB) *MilestoneEngine {
	return &MilestoneEngine{db: db}
}

type MilestoneInput struct {
	Name        string          `json:"name"`
	Percentage  decimal.Decimal `json:"percentage"`
	Description string          `json:"description"`
	DueDate     *time.Time      `json:"dueDate"`
}

func (e *MilestoneEngine) Add(contractID string, in MilestoneInput) (*models.PaymentMilestone, error) {
	var milestone models.PaymentMilestone
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var contract models.Contract
		if err := tx.First(&contract, "id = ?", contractID).Error; err != nil {
			return notFoundOr("hợp đồng", err)
		}
		current, err := e.percentageSum(tx, contractID, "")
		if err != nil {
			return err
		}
		if current.Add(in.Percentage).GreaterThan(hundred) {
			return apperr.Conflictf("Tổng phần trăm thanh toán vượt quá 100%% (Hiện tại: %s%%, Thêm mới: %s%%)",
				current.String(), in.Percentage.String())
		}
		milestone = models.PaymentMilestone{
			ContractID:  contractID,
			Name:        in.Name,
			Percentage:  in.Percentage,
			Amount:      percentAmount(contract.SellingPrice, in.Percentage),
			Status:      models.MilestoneStatusPending,
			Description: in.Description,
			DueDate:     in.DueDate,
		}
		return tx.Create(&milestone).Error
	})
	if err != nil {
		return nil, err
	}
	return &milestone, nil
}

func (e *MilestoneEngine) Update(id string, in MilestoneInput) (*models.PaymentMilestone, error) {
	var milestone models.PaymentMilestone
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&milestone, "id = ?", id).Error; err != nil {
			return notFoundOr("giai đoạn thanh toán", err)
		}
		var contract models.Contract
		if err := tx.First(&contract, "id = ?", milestone.ContractID).Error; err != nil {
			return notFoundOr("hợp đồng", err)
		}
		// Sum over the siblings, so the new percentage replaces the old.
		others, err := e.percentageSum(tx, milestone.ContractID, milestone.ID)
		if err != nil {
			return err
		}
		if others.Add(in.Percentage).GreaterThan(hundred) {
			return apperr.Conflictf("Tổng phần trăm thanh toán vượt quá 100%% (Hiện tại: %s%%, Thêm mới: %s%%)",
				others.String(), in.Percentage.String())
		}
		milestone.Name = in.Name
		milestone.Percentage = in.Percentage
		milestone.Amount = percentAmount(contract.SellingPrice, in.Percentage)
		milestone.Description = in.Description
		milestone.DueDate = in.DueDate
		return tx.Model(&models.PaymentMilestone{}).Where("id = ?", id).Updates(map[string]any{
			"name":        milestone.Name,
			"percentage":  milestone.Percentage,
			"amount":      milestone.Amount,
			"description": milestone.Description,
			"due_date":    milestone.DueDate,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &milestone, nil
}

func (e *MilestoneEngine) Delete(id string) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		var milestone models.PaymentMilestone
		if err := tx.First(&milestone, "id = ?", id).Error; err != nil {
			return notFoundOr("giai đoạn thanh toán", err)
		}
		var debts int64
		if err := tx.Model(&models.Debt{}).Where("milestone_id = ?", id).Count(&debts).Error; err != nil {
			return err
		}
		if debts > 0 {
			return apperr.Conflict("Không thể xóa giai đoạn đã phát sinh công nợ")
		}
		return tx.Delete(&milestone).Error
	})
}

// BulkReplace swaps the whole base-contract schedule in one shot. The new set
// must sum to exactly 100% and no existing milestone may already carry a debt.
func (e *MilestoneEngine) BulkReplace(contractID string, inputs []MilestoneInput) ([]models.PaymentMilestone, error) {
	total := decimal.Zero
	for _, in := range inputs {
		total = total.Add(in.Percentage)
	}
	if !total.Equal(hundred) {
		return nil, apperr.Conflictf("Tổng phần trăm thanh toán phải bằng 100%% (Hiện tại: %s%%)", total.String())
	}

	var out []models.PaymentMilestone
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var contract models.Contract
		if err := tx.First(&contract, "id = ?", contractID).Error; err != nil {
			return notFoundOr("hợp đồng", err)
		}
		var withDebt int64
		err := tx.Model(&models.Debt{}).
			Joins("JOIN payment_milestones ON payment_milestones.id = debts.milestone_id").
			Where("payment_milestones.contract_id = ? AND payment_milestones.addendum_id IS NULL", contractID).
			Count(&withDebt).Error
		if err != nil {
			return err
		}
		if withDebt > 0 {
			return apperr.Conflict("Không thể thay thế giai đoạn đã phát sinh công nợ")
		}
		if err := tx.Where("contract_id = ? AND addendum_id IS NULL", contractID).
			Delete(&models.PaymentMilestone{}).Error; err != nil {
			return err
		}
		for _, in := range inputs {
			milestone := models.PaymentMilestone{
				ContractID:  contractID,
				Name:        in.Name,
				Percentage:  in.Percentage,
				Amount:      percentAmount(contract.SellingPrice, in.Percentage),
				Status:      models.MilestoneStatusPending,
				Description: in.Description,
				DueDate:     in.DueDate,
			}
			if err := tx.Create(&milestone).Error; err != nil {
				return err
			}
			out = append(out, milestone)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *MilestoneEngine) ListByContract(contractID string) ([]models.PaymentMilestone, error) {
	var out []models.PaymentMilestone
	err := e.db.Preload("Debt").Where("contract_id = ?", contractID).Order("created_at ASC").Find(&out).Error
	return out, err
}

// percentageSum totals base-contract milestone percentages, optionally
// excluding one row (the one being updated).
func (e *MilestoneEngine) percentageSum(tx *gorm.DB, contractID, excludeID string) (decimal.Decimal, error) {
	var milestones []models.PaymentMilestone
	q := tx.Where("contract_id = ? AND addendum_id IS NULL", contractID)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&milestones).Error; err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, m := range milestones {
		sum = sum.Add(m.Percentage)
	}
	return sum, nil
}
