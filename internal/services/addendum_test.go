package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

func TestAddendumQuotationFlow(t *testing.T) {
	conn := setupTestDB(t)
	project, contract := signedProject(t, conn)
	tasks, _ := newTaskStack(conn)

	opps := NewOpportunityManager(conn)
	addenda := NewAddendumManager(conn, NewDebtEngine(conn))
	quotations := NewQuotationEngine(conn, opps, addenda)

	base := taskByCode(t, project, "-TC-")
	extra, err := tasks.CreateTask(CreateTaskInput{ProjectID: project.ID, JobID: *base.JobID, Name: "Trang phát sinh", IsExtra: true})
	if err != nil {
		t.Fatalf("extra task: %v", err)
	}

	// Unpriced extra work cannot be quoted.
	var verr *apperr.ValidationError
	if _, err := quotations.CreateAddendum(*contract.OpportunityID, []string{extra.ID}, ""); !errors.As(err, &verr) {
		t.Fatalf("unpriced task should be rejected, got %v", err)
	}

	extra, err = tasks.AssessExtraTask(extra.ID, AssessExtraTaskInput{IsBillable: true, SellingPrice: dec("900")})
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	quotation, err := quotations.CreateAddendum(*contract.OpportunityID, []string{extra.ID}, "Phát sinh tháng 8")
	if err != nil {
		t.Fatalf("addendum quotation: %v", err)
	}
	if quotation.Type != models.QuotationTypeAddendum {
		t.Fatalf("expected ADDENDUM type, got %s", quotation.Type)
	}
	if !quotation.TotalAmount.Equal(dec("900")) {
		t.Fatalf("expected total 900, got %s", quotation.TotalAmount)
	}
	// The TC job is the output job of the seeded service, so billing resolves
	// to that service without a manual mapping.
	if len(quotation.Details) != 1 {
		t.Fatalf("expected one detail per task, got %d", len(quotation.Details))
	}

	if _, err := quotations.Approve(quotation.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	listed, err := addenda.ListByContract(contract.ID)
	if err != nil {
		t.Fatalf("list addenda: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("approval should spawn one draft addendum, got %d", len(listed))
	}
	addendum := listed[0]
	if addendum.Status != models.AddendumStatusDraft {
		t.Fatalf("expected DRAFT, got %s", addendum.Status)
	}
	if !addendum.SellingPrice.Equal(dec("900")) || !addendum.Cost.Equal(dec("700")) {
		t.Fatalf("addendum deltas wrong: %s / %s", addendum.SellingPrice, addendum.Cost)
	}

	reloaded, err := tasks.Get(extra.ID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if reloaded.Status != models.TaskStatusPending {
		t.Fatalf("priced extra task becomes executable, got %s", reloaded.Status)
	}
}

func TestAddendumQuotationUnresolvableBillingService(t *testing.T) {
	conn := setupTestDB(t)
	project, contract := signedProject(t, conn)
	tasks, _ := newTaskStack(conn)
	quotations := NewQuotationEngine(conn, NewOpportunityManager(conn), NewAddendumManager(conn, NewDebtEngine(conn)))

	// A job nobody sells: no service association and no output-job match.
	orphan := models.Job{Name: "Khảo sát hiện trạng", Code: "KS", CostPrice: dec("100"), DefaultPerformerType: models.PerformerTypeInternal}
	if err := conn.Create(&orphan).Error; err != nil {
		t.Fatalf("job: %v", err)
	}
	extra, err := tasks.CreateTask(CreateTaskInput{ProjectID: project.ID, JobID: orphan.ID, Name: "Khảo sát bổ sung", IsExtra: true})
	if err != nil {
		t.Fatalf("extra task: %v", err)
	}
	if _, err := tasks.AssessExtraTask(extra.ID, AssessExtraTaskInput{IsBillable: true, SellingPrice: dec("150")}); err != nil {
		t.Fatalf("assess: %v", err)
	}

	var verr *apperr.ValidationError
	_, err = quotations.CreateAddendum(*contract.OpportunityID, []string{extra.ID}, "")
	if !errors.As(err, &verr) {
		t.Fatalf("task without a billable service should be rejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "Khảo sát bổ sung") {
		t.Fatalf("error should name the offending task, got %q", err.Error())
	}
}

func TestAddendumAddItemsAndSign(t *testing.T) {
	conn := setupTestDB(t)
	_, contract := signedProject(t, conn)
	svc := models.Service{Name: "Bảo trì 6 tháng", CostPrice: dec("200")}
	if err := conn.Create(&svc).Error; err != nil {
		t.Fatalf("service: %v", err)
	}
	debts := NewDebtEngine(conn)
	addenda := NewAddendumManager(conn, debts)

	addendum, err := addenda.CreateDraft(contract.ID, "Phụ lục bảo trì", "")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	addendum, err = addenda.AddItems(addendum.ID,
		[]AddendumServiceInput{{ServiceID: svc.ID, SellingPrice: dec("600")}},
		[]AddendumMilestoneInput{{Name: "Thanh toán phụ lục", Amount: dec("600")}},
	)
	if err != nil {
		t.Fatalf("add items: %v", err)
	}
	if !addendum.SellingPrice.Equal(dec("600")) {
		t.Fatalf("addendum should sum its service lines, got %s", addendum.SellingPrice)
	}
	if len(addendum.Milestones) != 1 || !addendum.Milestones[0].Amount.Equal(dec("600")) {
		t.Fatalf("explicit-amount milestone not recorded")
	}

	baseSelling := contract.SellingPrice
	addendum, err = addenda.UploadSigned(addendum.ID, models.Attachment{Name: "pl.pdf", URL: "https://files/pl.pdf"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if addendum.Status != models.AddendumStatusSigned {
		t.Fatalf("expected SIGNED, got %s", addendum.Status)
	}

	var cerr *apperr.ConflictError
	if _, err := addenda.AddItems(addendum.ID, nil, nil); !errors.As(err, &cerr) {
		t.Fatalf("signed addendum is immutable, got %v", err)
	}
	if _, err := addenda.UploadSigned(addendum.ID, models.Attachment{URL: "https://files/pl2.pdf"}); !errors.As(err, &cerr) {
		t.Fatalf("double signing should conflict, got %v", err)
	}

	var reloaded models.Contract
	if err := conn.First(&reloaded, "id = ?", contract.ID).Error; err != nil {
		t.Fatalf("contract: %v", err)
	}
	if !reloaded.SellingPrice.Equal(baseSelling.Add(dec("600"))) {
		t.Fatalf("signing must fold the delta into the contract: %s", reloaded.SellingPrice)
	}

	debtRows, err := debts.ListByContract(contract.ID)
	if err != nil {
		t.Fatalf("debts: %v", err)
	}
	found := false
	for _, debt := range debtRows {
		if debt.MilestoneID == addendum.Milestones[0].ID {
			found = true
			if !debt.Amount.Equal(dec("600")) {
				t.Fatalf("addendum debt amount wrong: %s", debt.Amount)
			}
		}
	}
	if !found {
		t.Fatalf("signing should activate the addendum milestone's debt")
	}
}

func TestAddendumScaleDown(t *testing.T) {
	conn := setupTestDB(t)
	_, contract := signedProject(t, conn)
	addenda := NewAddendumManager(conn, NewDebtEngine(conn))

	addendum, err := addenda.CreateDraft(contract.ID, "Điều chỉnh phạm vi", "")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}

	var verr *apperr.ValidationError
	if _, err := addenda.ScaleDown(addendum.ID, nil, dec("-1")); !errors.As(err, &verr) {
		t.Fatalf("negative refund should fail, got %v", err)
	}

	addendum, err = addenda.ScaleDown(addendum.ID, []string{contract.Services[0].ID}, dec("400"))
	if err != nil {
		t.Fatalf("scale down: %v", err)
	}
	if !addendum.SellingPrice.Equal(dec("-400")) {
		t.Fatalf("refund books as a negative delta, got %s", addendum.SellingPrice)
	}
	if !strings.HasSuffix(addendum.Name, "(Cắt giảm hạng mục)") {
		t.Fatalf("unexpected name %q", addendum.Name)
	}

	var svc models.ContractService
	if err := conn.First(&svc, "id = ?", contract.Services[0].ID).Error; err != nil {
		t.Fatalf("service: %v", err)
	}
	if svc.Status != models.ContractServiceStatusCancelled {
		t.Fatalf("scaled-down service should be cancelled, got %s", svc.Status)
	}
}
