package services

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// AddendumManager handles post-signature change orders. Addendum amounts are
// deltas against the parent contract and only fold into its totals when the
// addendum is signed.
type AddendumManager struct {
	db    *gorm.DB
	debts DebtActivator
}

func NewAddendumManager(db *gorm.DB, debts DebtActivator) *AddendumManager {
	return &AddendumManager{db: db, debts: debts}
}

// CreateDraftTx creates a bare DRAFT addendum inside the caller's
// transaction. The quotation engine drives this when approving an addendum
// quotation.
func (m *AddendumManager) CreateDraftTx(tx *gorm.DB, contractID, name, description string) (*models.ContractAddendum, error) {
	var contract models.Contract
	if err := tx.First(&contract, "id = ?", contractID).Error; err != nil {
		return nil, notFoundOr("hợp đồng", err)
	}
	addendum := models.ContractAddendum{
		ContractID:  contractID,
		Name:        name,
		Description: description,
		Status:      models.AddendumStatusDraft,
	}
	if err := tx.Create(&addendum).Error; err != nil {
		return nil, err
	}
	return &addendum, nil
}

func (m *AddendumManager) CreateDraft(contractID, name, description string) (*models.ContractAddendum, error) {
	var addendum *models.ContractAddendum
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var err error
		addendum, err = m.CreateDraftTx(tx, contractID, name, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return addendum, nil
}

type AddendumServiceInput struct {
	ServiceID    string          `json:"serviceId"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
}

type AddendumMilestoneInput struct {
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate *time.Time      `json:"dueDate"`
}

// AddItems attaches service lines and payment milestones to a draft addendum.
// Addendum milestones carry explicit amounts: they price the delta, not a
// slice of the parent contract's base value.
func (m *AddendumManager) AddItems(addendumID string, services []AddendumServiceInput, milestones []AddendumMilestoneInput) (*models.ContractAddendum, error) {
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var addendum models.ContractAddendum
		if err := tx.First(&addendum, "id = ?", addendumID).Error; err != nil {
			return notFoundOr("phụ lục hợp đồng", err)
		}
		if addendum.Status != models.AddendumStatusDraft {
			return apperr.Conflict("Chỉ có thể thêm hạng mục vào phụ lục ở trạng thái DRAFT")
		}

		added := decimal.Zero
		for _, in := range services {
			var svc models.Service
			if err := tx.First(&svc, "id = ?", in.ServiceID).Error; err != nil {
				return notFoundOr("dịch vụ", err)
			}
			addendumID := addendum.ID
			row := models.ContractService{
				ContractID:   addendum.ContractID,
				AddendumID:   &addendumID,
				ServiceID:    svc.ID,
				Status:       models.ContractServiceStatusActive,
				SellingPrice: in.SellingPrice,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			added = added.Add(in.SellingPrice)
		}

		for _, in := range milestones {
			addendumID := addendum.ID
			milestone := models.PaymentMilestone{
				ContractID: addendum.ContractID,
				AddendumID: &addendumID,
				Name:       in.Name,
				Amount:     in.Amount,
				Status:     models.MilestoneStatusPending,
				DueDate:    in.DueDate,
			}
			if err := tx.Create(&milestone).Error; err != nil {
				return err
			}
		}

		if added.IsZero() {
			return nil
		}
		return tx.Model(&addendum).Update("selling_price", addendum.SellingPrice.Add(added)).Error
	})
	if err != nil {
		return nil, err
	}
	return m.Get(addendumID)
}

// UploadSigned signs the addendum, folds its deltas into the parent
// contract's totals and activates debts for its milestones.
func (m *AddendumManager) UploadSigned(id string, file models.Attachment) (*models.ContractAddendum, error) {
	if file.URL == "" {
		return nil, apperr.Validation("Thiếu file phụ lục đã ký")
	}
	file.Type = models.AttachmentTypeSignedContract
	if file.Kind == "" {
		file.Kind = models.AttachmentKindFile
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var addendum models.ContractAddendum
		if err := tx.Preload("Milestones").First(&addendum, "id = ?", id).Error; err != nil {
			return notFoundOr("phụ lục hợp đồng", err)
		}
		if addendum.Status == models.AddendumStatusSigned {
			return apperr.Conflict("Phụ lục đã được ký rồi")
		}
		var contract models.Contract
		if err := tx.First(&contract, "id = ?", addendum.ContractID).Error; err != nil {
			return notFoundOr("hợp đồng", err)
		}

		signed := jsonAttachment(file)
		if err := tx.Model(&addendum).Updates(map[string]any{
			"status":      models.AddendumStatusSigned,
			"signed_file": signed,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&contract).Updates(map[string]any{
			"selling_price": contract.SellingPrice.Add(addendum.SellingPrice),
			"cost":          contract.Cost.Add(addendum.Cost),
		}).Error; err != nil {
			return err
		}

		for _, milestone := range addendum.Milestones {
			if _, err := m.debts.CreateFromMilestoneTx(tx, milestone.ID); err != nil {
				log.Printf("addendum %s: debt activation skipped for milestone %s: %v", addendum.ID, milestone.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.Get(id)
}

// ScaleDown cancels contract services and books the refund as a negative
// addendum value. This is the only path that produces a negative-value
// addendum.
func (m *AddendumManager) ScaleDown(id string, cancelServiceIDs []string, refundAmount decimal.Decimal) (*models.ContractAddendum, error) {
	if refundAmount.LessThan(decimal.Zero) {
		return nil, apperr.Validation("Số tiền hoàn lại không được âm")
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var addendum models.ContractAddendum
		if err := tx.First(&addendum, "id = ?", id).Error; err != nil {
			return notFoundOr("phụ lục hợp đồng", err)
		}
		for _, svcID := range cancelServiceIDs {
			var svc models.ContractService
			if err := tx.First(&svc, "id = ? AND contract_id = ?", svcID, addendum.ContractID).Error; err != nil {
				return notFoundOr("hạng mục hợp đồng", err)
			}
			if err := tx.Model(&svc).Update("status", models.ContractServiceStatusCancelled).Error; err != nil {
				return err
			}
		}
		return tx.Model(&addendum).Updates(map[string]any{
			"selling_price": refundAmount.Neg(),
			"name":          addendum.Name + " (Cắt giảm hạng mục)",
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return m.Get(id)
}

func (m *AddendumManager) Get(id string) (*models.ContractAddendum, error) {
	var addendum models.ContractAddendum
	err := m.db.Preload("Services").Preload("Services.Service").Preload("Milestones").
		First(&addendum, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("phụ lục hợp đồng", err)
	}
	return &addendum, nil
}

func (m *AddendumManager) ListByContract(contractID string) ([]models.ContractAddendum, error) {
	var out []models.ContractAddendum
	err := m.db.Where("contract_id = ?", contractID).Order("created_at ASC").Find(&out).Error
	return out, err
}
