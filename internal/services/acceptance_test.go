package services

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// acceptanceFixture builds a signed two-unit contract whose services already
// carry results, ready for sign-off.
func acceptanceFixture(t *testing.T, conn *gorm.DB) (*models.Project, []models.ContractService, models.User) {
	t.Helper()
	svc, _, _ := seedCatalog(t, conn)
	customer := seedCustomer(t, conn)

	opps := NewOpportunityManager(conn)
	quotations := NewQuotationEngine(conn, opps, NewAddendumManager(conn, NewDebtEngine(conn)))
	price := dec("1000")
	opp, err := opps.Create(CreateOpportunityInput{
		Name:       "Hai đơn vị",
		CustomerID: customer.ID,
		Services:   []OpportunityLineInput{{ServiceID: svc.ID, Quantity: 2, SellingPrice: &price}},
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

	contracts, projects, _, _ := newContractStack(conn)
	contract, err := contracts.Create(CreateContractInput{OpportunityID: opp.ID})
	if err != nil {
		t.Fatalf("contract: %v", err)
	}
	if _, err := contracts.UploadProposal(contract.ID, models.Attachment{URL: "https://files/p.pdf"}); err != nil {
		t.Fatalf("proposal: %v", err)
	}
	if _, err := contracts.ApproveProposal(contract.ID); err != nil {
		t.Fatalf("approve proposal: %v", err)
	}
	lead := seedUser(t, conn, "Trần Văn Long", "long@test", models.RoleTeamLead)
	team := seedTeam(t, conn, lead)
	project, err := projects.AssignTeam(contract.ID, team.ID, "")
	if err != nil {
		t.Fatalf("assign team: %v", err)
	}
	if _, err := contracts.UploadSigned(contract.ID, models.Attachment{URL: "https://files/s.pdf"}); err != nil {
		t.Fatalf("sign: %v", err)
	}

	var services []models.ContractService
	if err := conn.Where("contract_id = ?", contract.ID).Order("created_at ASC").Find(&services).Error; err != nil {
		t.Fatalf("services: %v", err)
	}
	for i := range services {
		result := jsonAttachment(models.Attachment{Name: "website.zip", URL: "https://files/website.zip"})
		if err := conn.Model(&services[i]).Update("result", result).Error; err != nil {
			t.Fatalf("result: %v", err)
		}
	}
	requester := seedUser(t, conn, "Pham Thi Hoa", "hoa@test", models.RoleStaff)
	return project, services, requester
}

func TestAcceptanceCreateRequestValidation(t *testing.T) {
	conn := setupTestDB(t)
	project, services, requester := acceptanceFixture(t, conn)
	acceptance := NewAcceptanceEngine(conn, NewNotificationService(conn))

	var verr *apperr.ValidationError
	if _, err := acceptance.CreateRequest(CreateAcceptanceInput{ProjectID: project.ID, RequesterID: requester.ID}); !errors.As(err, &verr) {
		t.Fatalf("empty batch should fail, got %v", err)
	}

	// A service without a result is not ready for sign-off.
	if err := conn.Model(&services[0]).Update("result", nil).Error; err != nil {
		t.Fatalf("clear result: %v", err)
	}
	_, err := acceptance.CreateRequest(CreateAcceptanceInput{
		Name:        "Nghiệm thu đợt 1",
		ProjectID:   project.ID,
		RequesterID: requester.ID,
		ServiceIDs:  []string{services[0].ID},
	})
	if !errors.As(err, &verr) {
		t.Fatalf("resultless service should fail, got %v", err)
	}
}

func TestAcceptanceApproveBatch(t *testing.T) {
	conn := setupTestDB(t)
	project, services, requester := acceptanceFixture(t, conn)
	acceptance := NewAcceptanceEngine(conn, NewNotificationService(conn))
	approver := seedUser(t, conn, "Lê Minh BOD", "bod@test", models.RoleBOD)

	request, err := acceptance.CreateRequest(CreateAcceptanceInput{
		Name:        "Nghiệm thu toàn bộ",
		ProjectID:   project.ID,
		RequesterID: requester.ID,
		ServiceIDs:  []string{services[0].ID, services[1].ID},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if request.Status != models.AcceptanceStatusPending {
		t.Fatalf("expected PENDING, got %s", request.Status)
	}
	for _, svc := range request.Services {
		if svc.Status != models.ContractServiceStatusAwaitingAcceptance {
			t.Fatalf("batched services await acceptance, got %s", svc.Status)
		}
	}

	request, err = acceptance.Approve(request.ID, approver.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if request.Status != models.AcceptanceStatusApproved {
		t.Fatalf("expected APPROVED, got %s", request.Status)
	}
	for _, svc := range request.Services {
		if svc.Status != models.ContractServiceStatusCompleted {
			t.Fatalf("approved services complete, got %s", svc.Status)
		}
	}

	var cerr *apperr.ConflictError
	if _, err := acceptance.Approve(request.ID, approver.ID); !errors.As(err, &cerr) {
		t.Fatalf("double approval should conflict, got %v", err)
	}
}

func TestAcceptanceRejectResetsTasks(t *testing.T) {
	conn := setupTestDB(t)
	project, services, requester := acceptanceFixture(t, conn)
	acceptance := NewAcceptanceEngine(conn, NewNotificationService(conn))
	approver := seedUser(t, conn, "Lê Minh BOD", "bod@test", models.RoleBOD)

	request, err := acceptance.CreateRequest(CreateAcceptanceInput{
		Name:        "Nghiệm thu đợt 1",
		ProjectID:   project.ID,
		RequesterID: requester.ID,
		ServiceIDs:  []string{services[0].ID},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	request, err = acceptance.Reject(request.ID, approver.ID, "Thiếu tài liệu bàn giao")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if request.Status != models.AcceptanceStatusRejected {
		t.Fatalf("expected REJECTED, got %s", request.Status)
	}
	if request.Services[0].Status != models.ContractServiceStatusAcceptanceRejected {
		t.Fatalf("service should be marked rejected, got %s", request.Services[0].Status)
	}
	if request.Services[0].Feedback != "Thiếu tài liệu bàn giao" {
		t.Fatalf("feedback not recorded: %q", request.Services[0].Feedback)
	}

	var tasks []models.Task
	if err := conn.Where("contract_service_id = ?", services[0].ID).Find(&tasks).Error; err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if len(tasks) == 0 {
		t.Fatalf("fixture should have tasks on the rejected service")
	}
	for _, task := range tasks {
		if task.Status != models.TaskStatusDoing {
			t.Fatalf("rejected service tasks go back to DOING, got %s", task.Status)
		}
	}
}

func TestAcceptanceProcessPerItem(t *testing.T) {
	conn := setupTestDB(t)
	project, services, requester := acceptanceFixture(t, conn)
	acceptance := NewAcceptanceEngine(conn, NewNotificationService(conn))
	approver := seedUser(t, conn, "Lê Minh BOD", "bod@test", models.RoleBOD)

	request, err := acceptance.CreateRequest(CreateAcceptanceInput{
		Name:        "Nghiệm thu từng phần",
		ProjectID:   project.ID,
		RequesterID: requester.ID,
		ServiceIDs:  []string{services[0].ID, services[1].ID},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var verr *apperr.ValidationError
	_, err = acceptance.Process(request.ID, approver.ID, []AcceptanceDecision{{ServiceID: "ngoai-lo", Approved: true}})
	if !errors.As(err, &verr) {
		t.Fatalf("decision outside the batch should fail, got %v", err)
	}

	request, err = acceptance.Process(request.ID, approver.ID, []AcceptanceDecision{
		{ServiceID: services[0].ID, Approved: true},
		{ServiceID: services[1].ID, Approved: false, Feedback: "Chất lượng chưa đạt"},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if request.Status != models.AcceptanceStatusProcessed {
		t.Fatalf("expected PROCESSED, got %s", request.Status)
	}

	statuses := map[string]string{}
	for _, svc := range request.Services {
		statuses[svc.ID] = svc.Status
	}
	if statuses[services[0].ID] != models.ContractServiceStatusCompleted {
		t.Fatalf("approved item should complete, got %s", statuses[services[0].ID])
	}
	if statuses[services[1].ID] != models.ContractServiceStatusAcceptanceRejected {
		t.Fatalf("rejected item should be marked, got %s", statuses[services[1].ID])
	}

	// Only the rejected sibling's tasks go back to rework.
	var rejectedTasks []models.Task
	if err := conn.Where("contract_service_id = ?", services[1].ID).Find(&rejectedTasks).Error; err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if len(rejectedTasks) == 0 {
		t.Fatalf("fixture should have tasks on the rejected service")
	}
	for _, task := range rejectedTasks {
		if task.Status != models.TaskStatusDoing {
			t.Fatalf("rejected item tasks go back to DOING, got %s", task.Status)
		}
	}
	var approvedTasks []models.Task
	if err := conn.Where("contract_service_id = ?", services[0].ID).Find(&approvedTasks).Error; err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if len(approvedTasks) == 0 {
		t.Fatalf("fixture should have tasks on the approved service")
	}
	for _, task := range approvedTasks {
		if task.Status != models.TaskStatusPending {
			t.Fatalf("approved item tasks must stay untouched, got %s", task.Status)
		}
	}

	var cerr *apperr.ConflictError
	if _, err := acceptance.Process(request.ID, approver.ID, []AcceptanceDecision{{ServiceID: services[0].ID, Approved: true}}); !errors.As(err, &cerr) {
		t.Fatalf("processed request is terminal, got %v", err)
	}
}
