package services

import (
	"errors"
	"testing"
	"time"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

func TestOpportunityCreateRequiresCustomerOrLead(t *testing.T) {
	conn := setupTestDB(t)
	opps := NewOpportunityManager(conn)

	_, err := opps.Create(CreateOpportunityInput{Name: "Trống"})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOpportunityCodeGeneration(t *testing.T) {
	conn := setupTestDB(t)
	opps := NewOpportunityManager(conn)
	customer := seedCustomer(t, conn)

	first, err := opps.Create(CreateOpportunityInput{Name: "A", CustomerID: customer.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := opps.Create(CreateOpportunityInput{Name: "B", CustomerID: customer.ID})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	prefix := monthPrefix("CH", time.Now())
	if first.Code != prefix+"-001" || second.Code != prefix+"-002" {
		t.Fatalf("unexpected codes %q %q", first.Code, second.Code)
	}

	_, err = opps.Create(CreateOpportunityInput{Name: "C", CustomerID: customer.ID, Code: first.Code})
	var cerr *apperr.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected conflict on duplicate code, got %v", err)
	}
}

func TestOpportunityLeadCreation(t *testing.T) {
	conn := setupTestDB(t)
	opps := NewOpportunityManager(conn)

	opp, err := opps.Create(CreateOpportunityInput{
		Name: "Lead mới",
		Lead: &LeadInput{Name: "Chị Hoa", Phone: "0911222333", TaxID: "0312345678"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if opp.CustomerID != nil {
		t.Fatalf("lead opportunity must not bind a customer")
	}
	if opp.LeadName != "Chị Hoa" || !opp.HasLead() {
		t.Fatalf("lead fields not persisted: %+v", opp)
	}
}

func TestOpportunityUpdateSwitchesCustomerAndLead(t *testing.T) {
	conn := setupTestDB(t)
	opps := NewOpportunityManager(conn)
	customer := seedCustomer(t, conn)

	opp, err := opps.Create(CreateOpportunityInput{
		Name: "Chuyển đổi",
		Lead: &LeadInput{Name: "Anh Minh", Phone: "0988111222"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	custID := customer.ID
	updated, err := opps.Update(opp.ID, UpdateOpportunityInput{CustomerID: &custID})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CustomerID == nil || *updated.CustomerID != customer.ID {
		t.Fatalf("customer not bound")
	}
	if updated.LeadName != "" || updated.LeadPhone != "" {
		t.Fatalf("lead fields must be cleared when binding a customer")
	}

	back, err := opps.Update(opp.ID, UpdateOpportunityInput{Lead: &LeadInput{Name: "Anh Minh", Phone: "0988111222"}})
	if err != nil {
		t.Fatalf("update back to lead: %v", err)
	}
	if back.CustomerID != nil {
		t.Fatalf("customer must be cleared when switching back to lead")
	}
}

func TestOpportunityUpdateDirectClearsPartner(t *testing.T) {
	conn := setupTestDB(t)
	opps := NewOpportunityManager(conn)
	partner := models.ReferralPartner{Name: "Đối tác Việt", CommissionRate: dec("10")}
	if err := conn.Create(&partner).Error; err != nil {
		t.Fatalf("partner: %v", err)
	}

	opp, err := opps.Create(CreateOpportunityInput{
		Name:              "Qua giới thiệu",
		Lead:              &LeadInput{Name: "Chị Lan"},
		CustomerType:      models.CustomerTypeReferral,
		ReferralPartnerID: partner.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if opp.ReferralPartnerID == nil {
		t.Fatalf("partner not bound")
	}

	direct := models.CustomerTypeDirect
	updated, err := opps.Update(opp.ID, UpdateOpportunityInput{CustomerType: &direct})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ReferralPartnerID != nil {
		t.Fatalf("switching to DIRECT must clear the referral partner")
	}
}

func TestOpportunityReplaceLinesRecomputesRevenue(t *testing.T) {
	conn := setupTestDB(t)
	opps := NewOpportunityManager(conn)
	svc, _, _ := seedCatalog(t, conn)
	customer := seedCustomer(t, conn)

	price := dec("1500")
	opp, err := opps.Create(CreateOpportunityInput{
		Name:       "Tính doanh thu",
		CustomerID: customer.ID,
		Services:   []OpportunityLineInput{{ServiceID: svc.ID, Quantity: 2, SellingPrice: &price}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !opp.ExpectedRevenue.Equal(dec("3000")) {
		t.Fatalf("expected revenue 3000, got %s", opp.ExpectedRevenue)
	}

	newPrice := dec("2000")
	lines := []OpportunityLineInput{{ServiceID: svc.ID, Quantity: 1, SellingPrice: &newPrice}}
	updated, err := opps.Update(opp.ID, UpdateOpportunityInput{Services: &lines})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.ExpectedRevenue.Equal(dec("2000")) {
		t.Fatalf("expected revenue 2000 after replace, got %s", updated.ExpectedRevenue)
	}
	if len(updated.Services) != 1 {
		t.Fatalf("expected 1 line after replace, got %d", len(updated.Services))
	}
}

func TestOpportunityDefaultLinePricesFromService(t *testing.T) {
	conn := setupTestDB(t)
	opps := NewOpportunityManager(conn)
	svc, _, _ := seedCatalog(t, conn)
	customer := seedCustomer(t, conn)

	opp, err := opps.Create(CreateOpportunityInput{
		Name:       "Giá mặc định",
		CustomerID: customer.ID,
		Services:   []OpportunityLineInput{{ServiceID: svc.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	line := opp.Services[0]
	if !line.SellingPrice.Equal(svc.CostPrice) || !line.CostAtSale.Equal(svc.CostPrice) {
		t.Fatalf("line should default both prices to the service cost, got %s/%s", line.SellingPrice, line.CostAtSale)
	}
}
