package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// OpportunityProgression is the narrow port through which downstream
// components (quotation approval, contract creation, project assignment and
// start) push an opportunity along its pipeline. The opportunity manager
// itself never self-advances status.
type OpportunityProgression interface {
	MarkQuotationDrafting(tx *gorm.DB, opp *models.Opportunity) error
	MarkQuoteApproved(tx *gorm.DB, oppID string) error
	MarkContractCreated(tx *gorm.DB, oppID string) error
	MarkProjectAssigned(tx *gorm.DB, oppID string) error
	MarkImplementation(tx *gorm.DB, oppID string) error
}

type OpportunityManager struct {
	db *gorm.DB
}

func NewOpportunityManager(db *gorm.DB) *OpportunityManager {
	return &OpportunityManager{db: db}
}

type OpportunityLineInput struct {
	ServiceID    string           `json:"serviceId"`
	Quantity     int              `json:"quantity"`
	SellingPrice *decimal.Decimal `json:"sellingPrice,omitempty"`
	CostAtSale   *decimal.Decimal `json:"costAtSale,omitempty"`
}

type LeadInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	TaxID   string `json:"taxId"`
}

type CreateOpportunityInput struct {
	Code              string                 `json:"code"`
	Name              string                 `json:"name"`
	Description       string                 `json:"description"`
	Budget            decimal.Decimal        `json:"budget"`
	CustomerID        string                 `json:"customerId"`
	Lead              *LeadInput             `json:"lead"`
	CustomerType      string                 `json:"customerType"`
	ReferralPartnerID string                 `json:"referralPartnerId"`
	CreatedByID       string                 `json:"createdById"`
	Services          []OpportunityLineInput `json:"services"`
}

func (m *OpportunityManager) Create(in CreateOpportunityInput) (*models.Opportunity, error) {
	opp := &models.Opportunity{
		Name:        in.Name,
		Description: in.Description,
		Budget:      in.Budget,
		Status:      models.OppStatusOpen,
	}
	if in.CreatedByID != "" {
		opp.CreatedByID = &in.CreatedByID
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		code := in.Code
		if code == "" {
			var err error
			code, err = nextCode(tx, &models.Opportunity{}, "code", monthPrefix("CH", time.Now()), 3)
			if err != nil {
				return err
			}
		} else {
			var count int64
			if err := tx.Model(&models.Opportunity{}).Where("code = ?", code).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperr.Conflict("Mã cơ hội đã tồn tại")
			}
		}
		opp.Code = code

		switch {
		case in.CustomerID != "":
			var customer models.Customer
			if err := tx.First(&customer, "id = ?", in.CustomerID).Error; err != nil {
				return notFoundOr("khách hàng", err)
			}
			opp.CustomerID = &customer.ID
		case in.Lead != nil && in.Lead.Name != "":
			opp.LeadName = in.Lead.Name
			opp.LeadPhone = in.Lead.Phone
			opp.LeadEmail = in.Lead.Email
			opp.LeadAddress = in.Lead.Address
			opp.LeadTaxID = in.Lead.TaxID
		default:
			return apperr.Validation("Cơ hội cần có khách hàng hoặc thông tin lead")
		}

		opp.CustomerType = in.CustomerType
		if opp.CustomerType == "" {
			opp.CustomerType = models.CustomerTypeDirect
		}
		if opp.CustomerType == models.CustomerTypeReferral && in.ReferralPartnerID != "" {
			var partner models.ReferralPartner
			if err := tx.First(&partner, "id = ?", in.ReferralPartnerID).Error; err != nil {
				return notFoundOr("đối tác giới thiệu", err)
			}
			opp.ReferralPartnerID = &partner.ID
		}

		if err := tx.Create(opp).Error; err != nil {
			return err
		}
		return m.replaceLines(tx, opp, in.Services)
	})
	if err != nil {
		return nil, err
	}
	return m.Get(opp.ID)
}

type UpdateOpportunityInput struct {
	Name              *string                 `json:"name"`
	Description       *string                 `json:"description"`
	Budget            *decimal.Decimal        `json:"budget"`
	CustomerID        *string                 `json:"customerId"`
	Lead              *LeadInput              `json:"lead"`
	CustomerType      *string                 `json:"customerType"`
	ReferralPartnerID *string                 `json:"referralPartnerId"`
	Services          *[]OpportunityLineInput `json:"services"`
}

func (m *OpportunityManager) Update(id string, in UpdateOpportunityInput) (*models.Opportunity, error) {
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var opp models.Opportunity
		if err := tx.First(&opp, "id = ?", id).Error; err != nil {
			return notFoundOr("cơ hội kinh doanh", err)
		}

		if in.Name != nil {
			opp.Name = *in.Name
		}
		if in.Description != nil {
			opp.Description = *in.Description
		}
		if in.Budget != nil {
			opp.Budget = *in.Budget
		}

		// Switching between a bound customer and a lead snapshot: exactly one
		// of the two stays authoritative.
		if in.CustomerID != nil && *in.CustomerID != "" {
			var customer models.Customer
			if err := tx.First(&customer, "id = ?", *in.CustomerID).Error; err != nil {
				return notFoundOr("khách hàng", err)
			}
			opp.CustomerID = &customer.ID
			opp.LeadName, opp.LeadPhone, opp.LeadEmail, opp.LeadAddress, opp.LeadTaxID = "", "", "", "", ""
		} else if in.Lead != nil {
			opp.CustomerID = nil
			opp.LeadName = in.Lead.Name
			opp.LeadPhone = in.Lead.Phone
			opp.LeadEmail = in.Lead.Email
			opp.LeadAddress = in.Lead.Address
			opp.LeadTaxID = in.Lead.TaxID
		}

		if in.CustomerType != nil {
			opp.CustomerType = *in.CustomerType
			if opp.CustomerType == models.CustomerTypeDirect {
				opp.ReferralPartnerID = nil
			}
		}
		if in.ReferralPartnerID != nil && opp.CustomerType == models.CustomerTypeReferral {
			if *in.ReferralPartnerID == "" {
				opp.ReferralPartnerID = nil
			} else {
				var partner models.ReferralPartner
				if err := tx.First(&partner, "id = ?", *in.ReferralPartnerID).Error; err != nil {
					return notFoundOr("đối tác giới thiệu", err)
				}
				opp.ReferralPartnerID = &partner.ID
			}
		}

		if err := tx.Omit("Services", "Customer", "ReferralPartner", "CreatedBy").Save(&opp).Error; err != nil {
			return err
		}
		if in.Services != nil {
			return m.replaceLines(tx, &opp, *in.Services)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.Get(id)
}

// replaceLines rewrites the opportunity's priced lines (delete then reinsert)
// and recomputes expectedRevenue as Σ(sellingPrice × quantity).
func (m *OpportunityManager) replaceLines(tx *gorm.DB, opp *models.Opportunity, lines []OpportunityLineInput) error {
	if err := tx.Where("opportunity_id = ?", opp.ID).Delete(&models.OpportunityService{}).Error; err != nil {
		return err
	}
	total := decimal.Zero
	for _, line := range lines {
		var svc models.Service
		if err := tx.First(&svc, "id = ?", line.ServiceID).Error; err != nil {
			return notFoundOr("dịch vụ", err)
		}
		qty := line.Quantity
		if qty <= 0 {
			qty = 1
		}
		selling := svc.CostPrice
		if line.SellingPrice != nil {
			selling = *line.SellingPrice
		}
		cost := svc.CostPrice
		if line.CostAtSale != nil {
			cost = *line.CostAtSale
		}
		row := models.OpportunityService{
			OpportunityID: opp.ID,
			ServiceID:     svc.ID,
			Quantity:      qty,
			SellingPrice:  selling,
			CostAtSale:    cost,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		total = total.Add(selling.Mul(decimal.NewFromInt(int64(qty))))
	}
	return tx.Model(opp).Update("expected_revenue", total).Error
}

func (m *OpportunityManager) Get(id string) (*models.Opportunity, error) {
	var opp models.Opportunity
	err := m.db.
		Preload("Customer").
		Preload("ReferralPartner").
		Preload("Services").
		Preload("Services.Service").
		First(&opp, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("cơ hội kinh doanh", err)
	}
	return &opp, nil
}

func (m *OpportunityManager) List() ([]models.Opportunity, error) {
	var out []models.Opportunity
	err := m.db.Preload("Customer").Order("created_at DESC").Find(&out).Error
	return out, err
}

func (m *OpportunityManager) Cancel(id string) (*models.Opportunity, error) {
	opp, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	switch opp.Status {
	case models.OppStatusCompleted, models.OppStatusCancelled:
		return nil, apperr.Conflict("Cơ hội đã kết thúc, không thể hủy")
	}
	if err := m.db.Model(opp).Update("status", models.OppStatusCancelled).Error; err != nil {
		return nil, err
	}
	return opp, nil
}

func (m *OpportunityManager) Delete(id string) error {
	opp, err := m.Get(id)
	if err != nil {
		return err
	}
	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("opportunity_id = ?", id).Delete(&models.OpportunityService{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Opportunity{}, "id = ?", opp.ID).Error
	})
}

// --- OpportunityProgression ---

// MarkQuotationDrafting is a no-op when the opportunity already reached the
// drafting or quote-approved stage (repeated quotation versions).
func (m *OpportunityManager) MarkQuotationDrafting(tx *gorm.DB, opp *models.Opportunity) error {
	if opp.Status == models.OppStatusQuotationDrafting || opp.Status == models.OppStatusQuoteApproved {
		return nil
	}
	opp.Status = models.OppStatusQuotationDrafting
	return tx.Model(&models.Opportunity{}).Where("id = ?", opp.ID).
		Update("status", models.OppStatusQuotationDrafting).Error
}

func (m *OpportunityManager) MarkQuoteApproved(tx *gorm.DB, oppID string) error {
	return m.setStatus(tx, oppID, models.OppStatusQuoteApproved)
}

func (m *OpportunityManager) MarkContractCreated(tx *gorm.DB, oppID string) error {
	return m.setStatus(tx, oppID, models.OppStatusContractCreated)
}

func (m *OpportunityManager) MarkProjectAssigned(tx *gorm.DB, oppID string) error {
	return m.setStatus(tx, oppID, models.OppStatusProjectAssigned)
}

func (m *OpportunityManager) MarkImplementation(tx *gorm.DB, oppID string) error {
	return m.setStatus(tx, oppID, models.OppStatusImplementation)
}

func (m *OpportunityManager) setStatus(tx *gorm.DB, oppID, status string) error {
	return tx.Model(&models.Opportunity{}).Where("id = ?", oppID).Update("status", status).Error
}
