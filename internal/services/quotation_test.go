package services

import (
	"errors"
	"testing"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

func TestQuotationVersioningAndStatusSideEffect(t *testing.T) {
	conn := setupTestDB(t)
	opps := NewOpportunityManager(conn)
	quotations := NewQuotationEngine(conn, opps, NewAddendumManager(conn, NewDebtEngine(conn)))
	svc, _, _ := seedCatalog(t, conn)
	customer := seedCustomer(t, conn)

	price := dec("2000")
	opp, err := opps.Create(CreateOpportunityInput{
		Name:       "Versioning",
		CustomerID: customer.ID,
		Services:   []OpportunityLineInput{{ServiceID: svc.ID, Quantity: 1, SellingPrice: &price}},
	})
	if err != nil {
		t.Fatalf("opportunity: %v", err)
	}

	q1, err := quotations.Create(opp.ID, "v1")
	if err != nil {
		t.Fatalf("create v1: %v", err)
	}
	q2, err := quotations.Create(opp.ID, "v2")
	if err != nil {
		t.Fatalf("create v2: %v", err)
	}
	if q1.Version != 1 || q2.Version != 2 {
		t.Fatalf("expected versions 1 and 2, got %d and %d", q1.Version, q2.Version)
	}
	if len(q1.Details) != 1 || !q1.TotalAmount.Equal(dec("2000")) {
		t.Fatalf("snapshot wrong: %d details, total %s", len(q1.Details), q1.TotalAmount)
	}

	reloaded, err := opps.Get(opp.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.OppStatusQuotationDrafting {
		t.Fatalf("expected QUOTATION_DRAFTING, got %s", reloaded.Status)
	}
}

func TestQuotationApprovedIsImmutable(t *testing.T) {
	conn := setupTestDB(t)
	opps := NewOpportunityManager(conn)
	quotations := NewQuotationEngine(conn, opps, NewAddendumManager(conn, NewDebtEngine(conn)))
	svc, _, _ := seedCatalog(t, conn)
	customer := seedCustomer(t, conn)

	price := dec("2500")
	opp, err := opps.Create(CreateOpportunityInput{
		Name:       "Immutability",
		CustomerID: customer.ID,
		Services:   []OpportunityLineInput{{ServiceID: svc.ID, Quantity: 1, SellingPrice: &price}},
	})
	if err != nil {
		t.Fatalf("opportunity: %v", err)
	}
	quotation, err := quotations.Create(opp.ID, "")
	if err != nil {
		t.Fatalf("quotation: %v", err)
	}
	if _, err := quotations.Approve(quotation.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	var cerr *apperr.ConflictError
	if _, err := quotations.Approve(quotation.ID); !errors.As(err, &cerr) {
		t.Fatalf("re-approve should conflict, got %v", err)
	}
	if _, err := quotations.UpdateDetails(quotation.ID, nil, nil); !errors.As(err, &cerr) {
		t.Fatalf("update after approval should conflict, got %v", err)
	}
	if _, err := quotations.Reject(quotation.ID); !errors.As(err, &cerr) {
		t.Fatalf("reject after approval should conflict, got %v", err)
	}
	if err := quotations.Delete(quotation.ID); !errors.As(err, &cerr) {
		t.Fatalf("delete after approval should conflict, got %v", err)
	}
}

func TestQuotationApproveRewritesOpportunityLines(t *testing.T) {
	conn := setupTestDB(t)
	opps := NewOpportunityManager(conn)
	quotations := NewQuotationEngine(conn, opps, NewAddendumManager(conn, NewDebtEngine(conn)))
	svc, _, _ := seedCatalog(t, conn)
	customer := seedCustomer(t, conn)

	price := dec("2000")
	opp, err := opps.Create(CreateOpportunityInput{
		Name:       "Rewrite",
		CustomerID: customer.ID,
		Services:   []OpportunityLineInput{{ServiceID: svc.ID, Quantity: 1, SellingPrice: &price}},
	})
	if err != nil {
		t.Fatalf("opportunity: %v", err)
	}
	quotation, err := quotations.Create(opp.ID, "")
	if err != nil {
		t.Fatalf("quotation: %v", err)
	}

	// Negotiate the quotation up before approval.
	_, err = quotations.UpdateDetails(quotation.ID, []QuotationDetailInput{
		{ServiceID: svc.ID, Quantity: 2, SellingPrice: dec("1800"), CostAtSale: dec("1000")},
	}, nil)
	if err != nil {
		t.Fatalf("update details: %v", err)
	}
	if _, err := quotations.Approve(quotation.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	reloaded, err := opps.Get(opp.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.OppStatusQuoteApproved {
		t.Fatalf("expected QUOTE_APPROVED, got %s", reloaded.Status)
	}
	if !reloaded.ExpectedRevenue.Equal(dec("3600")) {
		t.Fatalf("expected revenue 3600 from approved details, got %s", reloaded.ExpectedRevenue)
	}
	if len(reloaded.Services) != 1 || reloaded.Services[0].Quantity != 2 {
		t.Fatalf("opportunity lines not rewritten from quotation details")
	}
}
