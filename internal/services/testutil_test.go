package services

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/db"
	"github.com/smgk/agency-erp/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedCatalog creates one service fulfilled by two jobs, the second being the
// output job whose result counts as the deliverable.
func seedCatalog(t *testing.T, conn *gorm.DB) (models.Service, models.Job, models.Job) {
	t.Helper()
	design := models.Job{Name: "Thiết kế", Code: "TK", CostPrice: dec("300"), DefaultPerformerType: models.PerformerTypeInternal}
	if err := conn.Create(&design).Error; err != nil {
		t.Fatalf("job design: %v", err)
	}
	build := models.Job{Name: "Thi công", Code: "TC", CostPrice: dec("700"), DefaultPerformerType: models.PerformerTypeInternal}
	if err := conn.Create(&build).Error; err != nil {
		t.Fatalf("job build: %v", err)
	}
	for _, job := range []*models.Job{&design, &build} {
		crit := models.JobCriteria{JobID: job.ID, Name: "Đúng yêu cầu"}
		if err := conn.Create(&crit).Error; err != nil {
			t.Fatalf("criteria: %v", err)
		}
	}
	svc := models.Service{Name: "Website trọn gói", CostPrice: dec("1000"), OutputJobID: &build.ID}
	if err := conn.Create(&svc).Error; err != nil {
		t.Fatalf("service: %v", err)
	}
	if err := conn.Model(&svc).Association("Jobs").Append(&design, &build); err != nil {
		t.Fatalf("service jobs: %v", err)
	}
	return svc, design, build
}

func seedUser(t *testing.T, conn *gorm.DB, name, email, role string) models.User {
	t.Helper()
	user := models.User{FullName: name, Email: email, Password: "x", Role: role}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("user %s: %v", email, err)
	}
	return user
}

func seedCustomer(t *testing.T, conn *gorm.DB) models.Customer {
	t.Helper()
	customer := models.Customer{Name: "Công ty An Khang", Phone: "0900000001", Email: "ankhang@test"}
	if err := conn.Create(&customer).Error; err != nil {
		t.Fatalf("customer: %v", err)
	}
	return customer
}

func seedTeam(t *testing.T, conn *gorm.DB, lead models.User) models.ProjectTeam {
	t.Helper()
	team := models.ProjectTeam{Name: "Đội triển khai", TeamLeadID: lead.ID}
	if err := conn.Create(&team).Error; err != nil {
		t.Fatalf("team: %v", err)
	}
	return team
}

// seedApprovedOpportunity walks an opportunity to QUOTE_APPROVED via a real
// quotation so contract tests start from a valid state.
func seedApprovedOpportunity(t *testing.T, conn *gorm.DB, svc models.Service, customer models.Customer) models.Opportunity {
	t.Helper()
	opps := NewOpportunityManager(conn)
	addenda := NewAddendumManager(conn, NewDebtEngine(conn))
	quotations := NewQuotationEngine(conn, opps, addenda)

	price := dec("2000")
	opp, err := opps.Create(CreateOpportunityInput{
		Name:       "Website An Khang",
		CustomerID: customer.ID,
		Services: []OpportunityLineInput{
			{ServiceID: svc.ID, Quantity: 1, SellingPrice: &price},
		},
	})
	if err != nil {
		t.Fatalf("opportunity: %v", err)
	}
	quotation, err := quotations.Create(opp.ID, "")
	if err != nil {
		t.Fatalf("quotation: %v", err)
	}
	if _, err := quotations.Approve(quotation.ID); err != nil {
		t.Fatalf("approve quotation: %v", err)
	}
	got, err := opps.Get(opp.ID)
	if err != nil {
		t.Fatalf("reload opportunity: %v", err)
	}
	return *got
}

// newContractStack wires the contract manager with its collaborators the way
// the router does.
func newContractStack(conn *gorm.DB) (*ContractManager, *ProjectOrchestrator, *DebtEngine, *MilestoneEngine) {
	notifier := NewNotificationService(conn)
	opps := NewOpportunityManager(conn)
	debts := NewDebtEngine(conn)
	projects := NewProjectOrchestrator(conn, opps, notifier)
	contracts := NewContractManager(conn, opps, projects, debts, notifier)
	milestones := NewMilestoneEngine(conn)
	return contracts, projects, debts, milestones
}
