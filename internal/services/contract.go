package services

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// ProjectCreator is the orchestrator surface the contract manager drives:
// project creation on proposal approval and project start on signature.
type ProjectCreator interface {
	CreateFromContractTx(tx *gorm.DB, contract *models.Contract) (*models.Project, error)
	StartTx(tx *gorm.DB, projectID string) (*models.Project, error)
}

// DebtActivator converts milestones into receivables.
type DebtActivator interface {
	CreateFromMilestoneTx(tx *gorm.DB, milestoneID string) (*models.Debt, error)
}

type ContractManager struct {
	db       *gorm.DB
	opps     OpportunityProgression
	projects ProjectCreator
	debts    DebtActivator
	notify   Notifier
}

func NewContractManager(db *gorm.DB, opps OpportunityProgression, projects ProjectCreator, debts DebtActivator, notify Notifier) *ContractManager {
	return &ContractManager{db: db, opps: opps, projects: projects, debts: debts, notify: notify}
}

type CreateContractInput struct {
	ContractCode  string `json:"contractCode"`
	Name          string `json:"name"`
	OpportunityID string `json:"opportunityId"`
	CustomerID    string `json:"customerId"`
}

// Create materializes a contract from a quote-approved opportunity (or
// directly from a customer). It promotes the lead to a customer when needed,
// snapshots the opportunity's priced lines into contract services (quantity
// expanded, one row per unit), seeds a single 100% payment milestone and
// advances the opportunity to CONTRACT_CREATED.
func (m *ContractManager) Create(in CreateContractInput) (*models.Contract, error) {
	var contract models.Contract
	err := m.db.Transaction(func(tx *gorm.DB) error {
		code := in.ContractCode
		if code == "" {
			var err error
			code, err = nextCode(tx, &models.Contract{}, "contract_code", monthPrefix("SMGK", time.Now()), 3)
			if err != nil {
				return err
			}
		} else {
			var count int64
			if err := tx.Model(&models.Contract{}).Where("contract_code = ?", code).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperr.Conflict("Mã hợp đồng đã tồn tại")
			}
		}

		contract = models.Contract{
			ContractCode: code,
			Name:         in.Name,
			Status:       models.ContractStatusDraft,
		}

		var opp *models.Opportunity
		switch {
		case in.OpportunityID != "":
			var loaded models.Opportunity
			if err := tx.Preload("Services").Preload("ReferralPartner").Preload("Customer").
				First(&loaded, "id = ?", in.OpportunityID).Error; err != nil {
				return notFoundOr("cơ hội kinh doanh", err)
			}
			opp = &loaded
			if opp.Status != models.OppStatusQuoteApproved {
				return apperr.Conflict("Cơ hội chưa được duyệt báo giá (trạng thái phải là QUOTE_APPROVED)")
			}
			customer, err := m.resolveCustomer(tx, opp)
			if err != nil {
				return err
			}
			contract.CustomerID = customer.ID
			contract.OpportunityID = &opp.ID
			if contract.Name == "" {
				contract.Name = opp.Name
			}
		case in.CustomerID != "":
			var customer models.Customer
			if err := tx.First(&customer, "id = ?", in.CustomerID).Error; err != nil {
				return notFoundOr("khách hàng", err)
			}
			contract.CustomerID = customer.ID
		default:
			return apperr.Validation("Cần chọn cơ hội kinh doanh hoặc khách hàng")
		}

		if opp != nil {
			selling, cost, err := m.contractPricing(tx, opp)
			if err != nil {
				return err
			}
			contract.SellingPrice = selling
			contract.Cost = cost
			contract.Attachments = opp.Attachments

			if opp.CustomerType == models.CustomerTypeReferral && opp.ReferralPartner != nil {
				contract.CommissionRate = opp.ReferralPartner.CommissionRate
				contract.CommissionAmount = percentAmount(selling, contract.CommissionRate)
				contract.CommissionStatus = models.CommissionStatusPending
			}
		}

		if err := tx.Create(&contract).Error; err != nil {
			return err
		}

		if opp != nil {
			if err := m.cloneServices(tx, &contract, opp); err != nil {
				return err
			}
			if err := m.opps.MarkContractCreated(tx, opp.ID); err != nil {
				return err
			}
		}

		due := time.Now().AddDate(0, 0, 30)
		milestone := models.PaymentMilestone{
			ContractID: contract.ID,
			Name:       "Thanh toán 100%",
			Percentage: hundred,
			Amount:     contract.SellingPrice,
			Status:     models.MilestoneStatusPending,
			DueDate:    &due,
		}
		return tx.Create(&milestone).Error
	})
	if err != nil {
		return nil, err
	}
	return m.Get(contract.ID)
}

// resolveCustomer implements lead promotion: prefer the bound customer, then
// match an existing one by lead phone or tax id, else create a new customer
// from the lead snapshot. The resolved customer is bound back onto the
// opportunity and the lead fields are cleared.
func (m *ContractManager) resolveCustomer(tx *gorm.DB, opp *models.Opportunity) (*models.Customer, error) {
	if opp.CustomerID != nil {
		if opp.Customer != nil {
			return opp.Customer, nil
		}
		var customer models.Customer
		if err := tx.First(&customer, "id = ?", *opp.CustomerID).Error; err != nil {
			return nil, notFoundOr("khách hàng", err)
		}
		return &customer, nil
	}
	if !opp.HasLead() {
		return nil, apperr.Validation("Cơ hội chưa có thông tin khách hàng hoặc lead")
	}

	var customer models.Customer
	found := false
	if opp.LeadPhone != "" {
		if err := tx.Where("phone = ?", opp.LeadPhone).First(&customer).Error; err == nil {
			found = true
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}
	if !found && opp.LeadTaxID != "" {
		if err := tx.Where("tax_id = ?", opp.LeadTaxID).First(&customer).Error; err == nil {
			found = true
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}
	if !found {
		customer = models.Customer{
			Name:    opp.LeadName,
			Phone:   opp.LeadPhone,
			Email:   opp.LeadEmail,
			Address: opp.LeadAddress,
			TaxID:   opp.LeadTaxID,
			Source:  models.CustomerSourceInternal,
		}
		if opp.CustomerType == models.CustomerTypeReferral && opp.ReferralPartnerID != nil {
			customer.Source = models.CustomerSourceReferralPartner
			customer.ReferralPartnerID = opp.ReferralPartnerID
		}
		if err := tx.Create(&customer).Error; err != nil {
			return nil, err
		}
	}

	// Promote: bind the customer, clear the lead snapshot.
	opp.CustomerID = &customer.ID
	if err := tx.Model(&models.Opportunity{}).Where("id = ?", opp.ID).Updates(map[string]any{
		"customer_id":  customer.ID,
		"lead_name":    "",
		"lead_phone":   "",
		"lead_email":   "",
		"lead_address": "",
		"lead_tax_id":  "",
	}).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// contractPricing: selling price comes from the latest APPROVED quotation if
// one exists, otherwise from the opportunity's priced lines; cost always from
// the lines' costAtSale.
func (m *ContractManager) contractPricing(tx *gorm.DB, opp *models.Opportunity) (selling, cost decimal.Decimal, err error) {
	var quotation models.Quotation
	qerr := tx.Where("opportunity_id = ? AND status = ?", opp.ID, models.QuotationStatusApproved).
		Order("version DESC").First(&quotation).Error
	switch qerr {
	case nil:
		selling = quotation.TotalAmount
	case gorm.ErrRecordNotFound:
		for _, line := range opp.Services {
			selling = selling.Add(line.SellingPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
	default:
		return selling, cost, qerr
	}
	for _, line := range opp.Services {
		cost = cost.Add(line.CostAtSale.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return selling, cost, nil
}

// cloneServices expands each priced line into quantity × ContractService rows.
func (m *ContractManager) cloneServices(tx *gorm.DB, contract *models.Contract, opp *models.Opportunity) error {
	for _, line := range opp.Services {
		qty := line.Quantity
		if qty <= 0 {
			qty = 1
		}
		for i := 0; i < qty; i++ {
			lineID := line.ID
			row := models.ContractService{
				ContractID:           contract.ID,
				ServiceID:            line.ServiceID,
				OpportunityServiceID: &lineID,
				Status:               models.ContractServiceStatusActive,
				SellingPrice:         line.SellingPrice,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// UploadProposal records the proposal document and moves the contract to
// PROPOSAL_UPLOADED. The file is the subject of the mutation, so a missing
// URL is a validation error, not a degraded success.
func (m *ContractManager) UploadProposal(id string, file models.Attachment) (*models.Contract, error) {
	if file.URL == "" {
		return nil, apperr.Validation("Thiếu file đề xuất hợp đồng")
	}
	file.Type = models.AttachmentTypeProposalContract
	if file.Kind == "" {
		file.Kind = models.AttachmentKindFile
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var contract models.Contract
		if err := tx.First(&contract, "id = ?", id).Error; err != nil {
			return notFoundOr("hợp đồng", err)
		}
		return tx.Model(&contract).Updates(map[string]any{
			"status":      models.ContractStatusProposalUploaded,
			"attachments": appendAttachment(contract.Attachments, file),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return m.Get(id)
}

// ApproveProposal moves PROPOSAL_UPLOADED → PROPOSAL_APPROVED and creates the
// project (idempotently) with its task fan-out.
func (m *ContractManager) ApproveProposal(id string) (*models.Contract, error) {
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var contract models.Contract
		if err := tx.First(&contract, "id = ?", id).Error; err != nil {
			return notFoundOr("hợp đồng", err)
		}
		if contract.Status != models.ContractStatusProposalUploaded {
			return apperr.Conflict("Hợp đồng chưa ở trạng thái PROPOSAL_UPLOADED, không thể duyệt đề xuất")
		}
		if err := tx.Model(&contract).Update("status", models.ContractStatusProposalApproved).Error; err != nil {
			return err
		}
		contract.Status = models.ContractStatusProposalApproved
		_, err := m.projects.CreateFromContractTx(tx, &contract)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m.Get(id)
}

// UploadSigned moves PROPOSAL_APPROVED → SIGNED, activates a debt for every
// milestone (per-milestone failures are logged and skipped) and starts the
// project if one exists.
func (m *ContractManager) UploadSigned(id string, file models.Attachment) (*models.Contract, error) {
	if file.URL == "" {
		return nil, apperr.Validation("Thiếu file hợp đồng đã ký")
	}
	file.Type = models.AttachmentTypeSignedContract
	if file.Kind == "" {
		file.Kind = models.AttachmentKindFile
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var contract models.Contract
		if err := tx.Preload("Milestones").Preload("Project").First(&contract, "id = ?", id).Error; err != nil {
			return notFoundOr("hợp đồng", err)
		}
		if contract.Status != models.ContractStatusProposalApproved {
			return apperr.Conflict("Hợp đồng chưa được duyệt đề xuất, không thể ký")
		}
		if err := tx.Model(&contract).Updates(map[string]any{
			"status":      models.ContractStatusSigned,
			"attachments": appendAttachment(contract.Attachments, file),
		}).Error; err != nil {
			return err
		}

		for _, milestone := range contract.Milestones {
			if _, err := m.debts.CreateFromMilestoneTx(tx, milestone.ID); err != nil {
				// One milestone failing to activate must not sink the others.
				log.Printf("contract %s: debt activation skipped for milestone %s: %v", contract.ContractCode, milestone.ID, err)
			}
		}

		if contract.Project != nil {
			if _, err := m.projects.StartTx(tx, contract.Project.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.Get(id)
}

// MarkCommissionPaid settles the referral commission on a contract.
func (m *ContractManager) MarkCommissionPaid(id string) (*models.Contract, error) {
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var contract models.Contract
		if err := tx.First(&contract, "id = ?", id).Error; err != nil {
			return notFoundOr("hợp đồng", err)
		}
		if contract.CommissionStatus != models.CommissionStatusPending {
			return apperr.Conflict("Hợp đồng không có hoa hồng chờ thanh toán")
		}
		now := time.Now()
		return tx.Model(&contract).Updates(map[string]any{
			"commission_status":  models.CommissionStatusPaid,
			"commission_paid_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return m.Get(id)
}

func (m *ContractManager) Get(id string) (*models.Contract, error) {
	var contract models.Contract
	err := m.db.
		Preload("Customer").
		Preload("Opportunity").
		Preload("Milestones").
		Preload("Services").
		Preload("Services.Service").
		Preload("Debts").
		Preload("Project").
		First(&contract, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("hợp đồng", err)
	}
	return &contract, nil
}

func (m *ContractManager) List() ([]models.Contract, error) {
	var out []models.Contract
	err := m.db.Preload("Customer").Order("created_at DESC").Find(&out).Error
	return out, err
}

// appendAttachment deduplicates by URL, replacing the previous entry so
// re-uploads update metadata in place.
func appendAttachment(list datatypes.JSONSlice[models.Attachment], att models.Attachment) datatypes.JSONSlice[models.Attachment] {
	for i, existing := range list {
		if existing.URL == att.URL {
			out := make(datatypes.JSONSlice[models.Attachment], len(list))
			copy(out, list)
			out[i] = att
			return out
		}
	}
	out := make(datatypes.JSONSlice[models.Attachment], 0, len(list)+1)
	out = append(out, list...)
	return append(out, att)
}
