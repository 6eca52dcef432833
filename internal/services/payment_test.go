package services

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// seedContract creates a signed-off contract worth 2000 with its default
// single milestone.
func seedContract(t *testing.T, conn *gorm.DB) *models.Contract {
	t.Helper()
	svc, _, _ := seedCatalog(t, conn)
	customer := seedCustomer(t, conn)
	opp := seedApprovedOpportunity(t, conn, svc, customer)
	contracts, _, _, _ := newContractStack(conn)
	contract, err := contracts.Create(CreateContractInput{OpportunityID: opp.ID})
	if err != nil {
		t.Fatalf("contract: %v", err)
	}
	return contract
}

func TestMilestonePercentageCap(t *testing.T) {
	conn := setupTestDB(t)
	contract := seedContract(t, conn)
	milestones := NewMilestoneEngine(conn)

	// The default schedule already sits at 100%.
	var cerr *apperr.ConflictError
	if _, err := milestones.Add(contract.ID, MilestoneInput{Name: "Đợt 2", Percentage: dec("10")}); !errors.As(err, &cerr) {
		t.Fatalf("expected conflict past 100%%, got %v", err)
	}

	// Shrinking the existing milestone frees headroom.
	if _, err := milestones.Update(contract.Milestones[0].ID, MilestoneInput{Name: "Đợt 1", Percentage: dec("40")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	added, err := milestones.Add(contract.ID, MilestoneInput{Name: "Đợt 2", Percentage: dec("60")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !added.Amount.Equal(dec("1200")) {
		t.Fatalf("amount should derive from percentage of selling price, got %s", added.Amount)
	}
}

func TestMilestoneBulkReplaceRequiresExactHundred(t *testing.T) {
	conn := setupTestDB(t)
	contract := seedContract(t, conn)
	milestones := NewMilestoneEngine(conn)

	var cerr *apperr.ConflictError
	_, err := milestones.BulkReplace(contract.ID, []MilestoneInput{
		{Name: "Đợt 1", Percentage: dec("50")},
		{Name: "Đợt 2", Percentage: dec("40")},
	})
	if !errors.As(err, &cerr) {
		t.Fatalf("expected conflict at 90%%, got %v", err)
	}

	out, err := milestones.BulkReplace(contract.ID, []MilestoneInput{
		{Name: "Tạm ứng", Percentage: dec("30")},
		{Name: "Nghiệm thu", Percentage: dec("70")},
	})
	if err != nil {
		t.Fatalf("bulk replace: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 milestones, got %d", len(out))
	}
	if !out[0].Amount.Equal(dec("600")) || !out[1].Amount.Equal(dec("1400")) {
		t.Fatalf("amounts not derived from percentages: %s / %s", out[0].Amount, out[1].Amount)
	}

	listed, err := milestones.ListByContract(contract.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("old schedule should be gone, got %d milestones", len(listed))
	}
}

func TestMilestoneWithDebtIsLocked(t *testing.T) {
	conn := setupTestDB(t)
	contract := seedContract(t, conn)
	milestones := NewMilestoneEngine(conn)
	debts := NewDebtEngine(conn)

	if _, err := debts.CreateFromMilestone(contract.Milestones[0].ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	var cerr *apperr.ConflictError
	if err := milestones.Delete(contract.Milestones[0].ID); !errors.As(err, &cerr) {
		t.Fatalf("delete of activated milestone should conflict, got %v", err)
	}
	_, err := milestones.BulkReplace(contract.ID, []MilestoneInput{{Name: "Đợt 1", Percentage: dec("100")}})
	if !errors.As(err, &cerr) {
		t.Fatalf("bulk replace over activated milestone should conflict, got %v", err)
	}
}

func TestDebtActivatesOncePerMilestone(t *testing.T) {
	conn := setupTestDB(t)
	contract := seedContract(t, conn)
	debts := NewDebtEngine(conn)

	debt, err := debts.CreateFromMilestone(contract.Milestones[0].ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if debt.Name != "Phải thu: Thanh toán 100%" {
		t.Fatalf("unexpected debt name %q", debt.Name)
	}
	if !debt.Amount.Equal(dec("2000")) {
		t.Fatalf("debt amount should mirror the milestone, got %s", debt.Amount)
	}

	var cerr *apperr.ConflictError
	if _, err := debts.CreateFromMilestone(contract.Milestones[0].ID); !errors.As(err, &cerr) {
		t.Fatalf("second activation should conflict, got %v", err)
	}
}

func TestDebtPaymentReconciliation(t *testing.T) {
	conn := setupTestDB(t)
	contract := seedContract(t, conn)
	debts := NewDebtEngine(conn)

	debt, err := debts.CreateFromMilestone(contract.Milestones[0].ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	var verr *apperr.ValidationError
	if _, err := debts.RecordPayment(debt.ID, PaymentInput{Amount: dec("0")}); !errors.As(err, &verr) {
		t.Fatalf("zero payment should be rejected, got %v", err)
	}

	debt, err = debts.RecordPayment(debt.ID, PaymentInput{Amount: dec("800"), Note: "Chuyển khoản đợt 1"})
	if err != nil {
		t.Fatalf("payment 1: %v", err)
	}
	if debt.Status != models.DebtStatusPartial {
		t.Fatalf("expected PARTIAL after 800/2000, got %s", debt.Status)
	}

	debt, err = debts.RecordPayment(debt.ID, PaymentInput{Amount: dec("1200")})
	if err != nil {
		t.Fatalf("payment 2: %v", err)
	}
	if debt.Status != models.DebtStatusPaid {
		t.Fatalf("expected PAID after full payment, got %s", debt.Status)
	}
	if debt.Milestone == nil || debt.Milestone.Status != models.MilestoneStatusCompleted {
		t.Fatalf("milestone should follow the debt to COMPLETED")
	}

	// Deleting a payment rolls the statuses back.
	debt, err = debts.DeletePayment(debt.Payments[1].ID)
	if err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	if debt.Status != models.DebtStatusPartial {
		t.Fatalf("expected PARTIAL after rollback, got %s", debt.Status)
	}
	if debt.Milestone.Status != models.MilestoneStatusPending {
		t.Fatalf("milestone should fall back to PENDING, got %s", debt.Milestone.Status)
	}
}

func TestDebtDeleteBlockedByPayments(t *testing.T) {
	conn := setupTestDB(t)
	contract := seedContract(t, conn)
	debts := NewDebtEngine(conn)

	debt, err := debts.CreateFromMilestone(contract.Milestones[0].ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := debts.RecordPayment(debt.ID, PaymentInput{Amount: dec("100")}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	var cerr *apperr.ConflictError
	if err := debts.Delete(debt.ID); !errors.As(err, &cerr) {
		t.Fatalf("delete with payments should conflict, got %v", err)
	}

	paid, err := debts.Get(debt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := debts.DeletePayment(paid.Payments[0].ID); err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	if err := debts.Delete(debt.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	milestones := NewMilestoneEngine(conn)
	listed, err := milestones.ListByContract(contract.ID)
	if err != nil {
		t.Fatalf("list milestones: %v", err)
	}
	if listed[0].Status != models.MilestoneStatusPending {
		t.Fatalf("milestone should be PENDING after debt removal, got %s", listed[0].Status)
	}
}
