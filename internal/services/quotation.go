package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// AddendumCreator is the write path the quotation engine uses when an
// addendum quotation is approved: it must never touch addendum tables
// directly.
type AddendumCreator interface {
	CreateDraftTx(tx *gorm.DB, contractID, name, description string) (*models.ContractAddendum, error)
}

type QuotationEngine struct {
	db      *gorm.DB
	opps    OpportunityProgression
	addenda AddendumCreator
}

func NewQuotationEngine(db *gorm.DB, opps OpportunityProgression, addenda AddendumCreator) *QuotationEngine {
	return &QuotationEngine{db: db, opps: opps, addenda: addenda}
}

type QuotationDetailInput struct {
	ServiceID    string          `json:"serviceId"`
	Quantity     int             `json:"quantity"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	CostAtSale   decimal.Decimal `json:"costAtSale"`
}

// Create snapshots the opportunity's current priced lines into a new
// quotation version and moves the opportunity into QUOTATION_DRAFTING
// (no-op if it is already drafting or quote-approved).
func (e *QuotationEngine) Create(opportunityID, note string) (*models.Quotation, error) {
	var quotation models.Quotation
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var opp models.Opportunity
		if err := tx.Preload("Services").First(&opp, "id = ?", opportunityID).Error; err != nil {
			return notFoundOr("cơ hội kinh doanh", err)
		}

		var count int64
		if err := tx.Model(&models.Quotation{}).Where("opportunity_id = ?", opportunityID).Count(&count).Error; err != nil {
			return err
		}

		quotation = models.Quotation{
			OpportunityID: opportunityID,
			Version:       int(count) + 1,
			Type:          models.QuotationTypeInitial,
			Status:        models.QuotationStatusDraft,
			Note:          note,
		}
		if err := tx.Create(&quotation).Error; err != nil {
			return err
		}

		total := decimal.Zero
		for _, line := range opp.Services {
			detail := models.QuotationDetail{
				QuotationID:  quotation.ID,
				ServiceID:    line.ServiceID,
				Quantity:     line.Quantity,
				SellingPrice: line.SellingPrice,
				CostAtSale:   line.CostAtSale,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
			total = total.Add(line.SellingPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		quotation.TotalAmount = total
		if err := tx.Model(&quotation).Update("total_amount", total).Error; err != nil {
			return err
		}

		return e.opps.MarkQuotationDrafting(tx, &opp)
	})
	if err != nil {
		return nil, err
	}
	return e.Get(quotation.ID)
}

// UpdateDetails fully replaces the quotation's lines and recomputes the
// total. Approved quotations are immutable.
func (e *QuotationEngine) UpdateDetails(id string, details []QuotationDetailInput, note *string) (*models.Quotation, error) {
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var quotation models.Quotation
		if err := tx.First(&quotation, "id = ?", id).Error; err != nil {
			return notFoundOr("báo giá", err)
		}
		if quotation.Status == models.QuotationStatusApproved {
			return apperr.Conflict("Không thể chỉnh sửa báo giá đã được duyệt")
		}

		if note != nil {
			if err := tx.Model(&quotation).Update("note", *note).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("quotation_id = ?", id).Delete(&models.QuotationDetail{}).Error; err != nil {
			return err
		}
		total := decimal.Zero
		for _, in := range details {
			var svc models.Service
			if err := tx.First(&svc, "id = ?", in.ServiceID).Error; err != nil {
				return notFoundOr("dịch vụ", err)
			}
			qty := in.Quantity
			if qty <= 0 {
				qty = 1
			}
			detail := models.QuotationDetail{
				QuotationID:  id,
				ServiceID:    svc.ID,
				Quantity:     qty,
				SellingPrice: in.SellingPrice,
				CostAtSale:   in.CostAtSale,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
			total = total.Add(in.SellingPrice.Mul(decimal.NewFromInt(int64(qty))))
		}
		return tx.Model(&quotation).Update("total_amount", total).Error
	})
	if err != nil {
		return nil, err
	}
	return e.Get(id)
}

// Approve finalizes a quotation. An INITIAL quotation rewrites the
// opportunity's priced lines from its details; an ADDENDUM quotation spawns a
// draft contract addendum and activates its linked extra tasks.
func (e *QuotationEngine) Approve(id string) (*models.Quotation, error) {
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var quotation models.Quotation
		if err := tx.Preload("Details").Preload("Tasks").First(&quotation, "id = ?", id).Error; err != nil {
			return notFoundOr("báo giá", err)
		}
		if quotation.Status == models.QuotationStatusApproved {
			return apperr.Conflict("Báo giá này đã được duyệt rồi")
		}
		if err := tx.Model(&quotation).Update("status", models.QuotationStatusApproved).Error; err != nil {
			return err
		}

		if quotation.Type == models.QuotationTypeAddendum {
			return e.approveAddendum(tx, &quotation)
		}
		return e.approveInitial(tx, &quotation)
	})
	if err != nil {
		return nil, err
	}
	return e.Get(id)
}

func (e *QuotationEngine) approveInitial(tx *gorm.DB, quotation *models.Quotation) error {
	if err := tx.Where("opportunity_id = ?", quotation.OpportunityID).Delete(&models.OpportunityService{}).Error; err != nil {
		return err
	}
	total := decimal.Zero
	for _, detail := range quotation.Details {
		line := models.OpportunityService{
			OpportunityID: quotation.OpportunityID,
			ServiceID:     detail.ServiceID,
			Quantity:      detail.Quantity,
			SellingPrice:  detail.SellingPrice,
			CostAtSale:    detail.CostAtSale,
		}
		if err := tx.Create(&line).Error; err != nil {
			return err
		}
		total = total.Add(detail.SellingPrice.Mul(decimal.NewFromInt(int64(detail.Quantity))))
	}
	if err := tx.Model(&models.Opportunity{}).Where("id = ?", quotation.OpportunityID).
		Update("expected_revenue", total).Error; err != nil {
		return err
	}
	return e.opps.MarkQuoteApproved(tx, quotation.OpportunityID)
}

func (e *QuotationEngine) approveAddendum(tx *gorm.DB, quotation *models.Quotation) error {
	var contract models.Contract
	err := tx.Where("opportunity_id = ?", quotation.OpportunityID).
		Order("created_at ASC").First(&contract).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.Conflict("Cơ hội chưa có hợp đồng, không thể tạo phụ lục")
		}
		return err
	}

	addendum, err := e.addenda.CreateDraftTx(tx, contract.ID,
		fmt.Sprintf("Phụ lục theo báo giá v%d", quotation.Version), quotation.Note)
	if err != nil {
		return err
	}

	cost := decimal.Zero
	for _, detail := range quotation.Details {
		cost = cost.Add(detail.CostAtSale.Mul(decimal.NewFromInt(int64(detail.Quantity))))
	}
	if err := tx.Model(addendum).Updates(map[string]any{
		"selling_price": quotation.TotalAmount,
		"cost":          cost,
	}).Error; err != nil {
		return err
	}

	// Priced extra tasks become executable.
	for _, task := range quotation.Tasks {
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]any{
			"status":         models.TaskStatusPending,
			"pricing_status": models.PricingStatusBillable,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateAddendum builds an ADDENDUM quotation from priced billable extra
// tasks, one detail line per task. Billing-service resolution per task:
// manual mapping first, then a service whose output job matches the task's
// job, then the first service associated with that job.
func (e *QuotationEngine) CreateAddendum(opportunityID string, taskIDs []string, note string) (*models.Quotation, error) {
	var quotation models.Quotation
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var opp models.Opportunity
		if err := tx.First(&opp, "id = ?", opportunityID).Error; err != nil {
			return notFoundOr("cơ hội kinh doanh", err)
		}

		var tasks []models.Task
		if err := tx.Preload("Job").Where("id IN ?", taskIDs).Find(&tasks).Error; err != nil {
			return err
		}
		if len(tasks) != len(taskIDs) {
			return apperr.NotFound("công việc phát sinh")
		}
		for _, task := range tasks {
			if !task.IsExtra || task.PricingStatus != models.PricingStatusBillable {
				return apperr.Validationf("Công việc %q chưa được định giá BILLABLE", task.Name)
			}
		}

		var count int64
		if err := tx.Model(&models.Quotation{}).Where("opportunity_id = ?", opportunityID).Count(&count).Error; err != nil {
			return err
		}
		quotation = models.Quotation{
			OpportunityID: opportunityID,
			Version:       int(count) + 1,
			Type:          models.QuotationTypeAddendum,
			Status:        models.QuotationStatusDraft,
			Note:          note,
		}
		if err := tx.Create(&quotation).Error; err != nil {
			return err
		}

		total := decimal.Zero
		for i := range tasks {
			task := &tasks[i]
			svc, err := e.resolveBillingService(tx, task)
			if err != nil {
				return err
			}
			detail := models.QuotationDetail{
				QuotationID:  quotation.ID,
				ServiceID:    svc.ID,
				Quantity:     1,
				SellingPrice: task.SellingPrice,
				CostAtSale:   task.Cost,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
			if err := tx.Model(task).Update("quotation_id", quotation.ID).Error; err != nil {
				return err
			}
			total = total.Add(task.SellingPrice)
		}
		return tx.Model(&quotation).Update("total_amount", total).Error
	})
	if err != nil {
		return nil, err
	}
	return e.Get(quotation.ID)
}

func (e *QuotationEngine) resolveBillingService(tx *gorm.DB, task *models.Task) (*models.Service, error) {
	if task.MappedServiceID != nil {
		var svc models.Service
		if err := tx.First(&svc, "id = ?", *task.MappedServiceID).Error; err != nil {
			return nil, notFoundOr("dịch vụ ánh xạ", err)
		}
		return &svc, nil
	}
	if task.JobID == nil {
		return nil, apperr.Validationf("Công việc %q không gắn job, không xác định được dịch vụ để lên báo giá", task.Name)
	}
	var svc models.Service
	err := tx.Where("output_job_id = ?", *task.JobID).First(&svc).Error
	if err == nil {
		return &svc, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	err = tx.Joins("JOIN service_jobs sj ON sj.service_id = services.id").
		Where("sj.job_id = ?", *task.JobID).First(&svc).Error
	if err == nil {
		return &svc, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return nil, apperr.Validationf("Không tìm thấy dịch vụ phù hợp cho công việc %q", task.Name)
}

func (e *QuotationEngine) Reject(id string) (*models.Quotation, error) {
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var quotation models.Quotation
		if err := tx.First(&quotation, "id = ?", id).Error; err != nil {
			return notFoundOr("báo giá", err)
		}
		if quotation.Status == models.QuotationStatusApproved {
			return apperr.Conflict("Không thể từ chối báo giá đã được duyệt")
		}
		return tx.Model(&quotation).Update("status", models.QuotationStatusRejected).Error
	})
	if err != nil {
		return nil, err
	}
	return e.Get(id)
}

func (e *QuotationEngine) Delete(id string) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		var quotation models.Quotation
		if err := tx.First(&quotation, "id = ?", id).Error; err != nil {
			return notFoundOr("báo giá", err)
		}
		if quotation.Status == models.QuotationStatusApproved {
			return apperr.Conflict("Không thể xóa báo giá đã duyệt")
		}
		if err := tx.Where("quotation_id = ?", id).Delete(&models.QuotationDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quotation{}, "id = ?", id).Error
	})
}

func (e *QuotationEngine) Get(id string) (*models.Quotation, error) {
	var quotation models.Quotation
	err := e.db.Preload("Details").Preload("Details.Service").Preload("Tasks").
		First(&quotation, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("báo giá", err)
	}
	return &quotation, nil
}

func (e *QuotationEngine) ListByOpportunity(opportunityID string) ([]models.Quotation, error) {
	var out []models.Quotation
	err := e.db.Preload("Details").Where("opportunity_id = ?", opportunityID).
		Order("version DESC").Find(&out).Error
	return out, err
}
