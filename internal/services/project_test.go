package services

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// signedProject drives a contract all the way to SIGNED with a team assigned,
// returning the running project and its contract.
func signedProject(t *testing.T, conn *gorm.DB) (*models.Project, *models.Contract) {
	t.Helper()
	svc, _, _ := seedCatalog(t, conn)
	customer := seedCustomer(t, conn)
	opp := seedApprovedOpportunity(t, conn, svc, customer)
	contracts, projects, _, _ := newContractStack(conn)

	contract, err := contracts.Create(CreateContractInput{OpportunityID: opp.ID})
	if err != nil {
		t.Fatalf("contract: %v", err)
	}
	if _, err := contracts.UploadProposal(contract.ID, models.Attachment{URL: "https://files/proposal.pdf"}); err != nil {
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

	if _, err := contracts.UploadSigned(contract.ID, models.Attachment{URL: "https://files/signed.pdf"}); err != nil {
		t.Fatalf("sign: %v", err)
	}
	project, err = projects.Get(project.ID)
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	contract, err = contracts.Get(contract.ID)
	if err != nil {
		t.Fatalf("reload contract: %v", err)
	}
	return project, contract
}

func TestProjectTaskFanOut(t *testing.T) {
	conn := setupTestDB(t)
	project, contract := signedProject(t, conn)

	if len(project.Tasks) != 2 {
		t.Fatalf("one service with two jobs should fan out 2 tasks, got %d", len(project.Tasks))
	}
	codes := map[string]bool{}
	for _, task := range project.Tasks {
		codes[task.Code] = true
		if task.Status != models.TaskStatusPending {
			t.Fatalf("fan-out tasks start PENDING, got %s", task.Status)
		}
	}
	if !codes[contract.ContractCode+"-TK-01"] || !codes[contract.ContractCode+"-TC-01"] {
		t.Fatalf("task codes should chain contract and job codes, got %v", codes)
	}
}

func TestProjectCreateFromContractIsIdempotent(t *testing.T) {
	conn := setupTestDB(t)
	project, contract := signedProject(t, conn)
	_, projects, _, _ := newContractStack(conn)

	err := conn.Transaction(func(tx *gorm.DB) error {
		again, err := projects.CreateFromContractTx(tx, contract)
		if err != nil {
			return err
		}
		if again.ID != project.ID {
			t.Fatalf("expected the existing project to be reused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}

	var count int64
	if err := conn.Model(&models.Task{}).Where("project_id = ?", project.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("rerun must not duplicate tasks, got %d", count)
	}
}

func TestProjectAssignTeamRequiresApprovedProposal(t *testing.T) {
	conn := setupTestDB(t)
	contract := seedContract(t, conn)
	_, projects, _, _ := newContractStack(conn)
	lead := seedUser(t, conn, "Trần Văn Long", "long@test", models.RoleTeamLead)
	team := seedTeam(t, conn, lead)

	var cerr *apperr.ConflictError
	if _, err := projects.AssignTeam(contract.ID, team.ID, ""); !errors.As(err, &cerr) {
		t.Fatalf("assigning a DRAFT contract should conflict, got %v", err)
	}
}

func TestProjectConfirm(t *testing.T) {
	conn := setupTestDB(t)
	svc, _, _ := seedCatalog(t, conn)
	customer := seedCustomer(t, conn)
	opp := seedApprovedOpportunity(t, conn, svc, customer)
	contracts, projects, _, _ := newContractStack(conn)

	contract, err := contracts.Create(CreateContractInput{OpportunityID: opp.ID})
	if err != nil {
		t.Fatalf("contract: %v", err)
	}
	if _, err := contracts.UploadProposal(contract.ID, models.Attachment{URL: "https://files/p.pdf"}); err != nil {
		t.Fatalf("proposal: %v", err)
	}
	contract, err = contracts.ApproveProposal(contract.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	lead := seedUser(t, conn, "Trần Văn Long", "long@test", models.RoleTeamLead)
	project, err := projects.Confirm(contract.Project.ID, lead.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if project.Status != models.ProjectStatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", project.Status)
	}

	var cerr *apperr.ConflictError
	if _, err := projects.Confirm(project.ID, lead.ID); !errors.As(err, &cerr) {
		t.Fatalf("double confirm should conflict, got %v", err)
	}

	// The project cannot start before signature.
	if _, err := projects.Start(project.ID); !errors.As(err, &cerr) {
		t.Fatalf("start before signature should conflict, got %v", err)
	}
}
