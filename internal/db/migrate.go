package db

import (
	"fmt"
	"os"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/smgk/agency-erp/internal/models"
)

// ConnectAndMigrate opens the configured Postgres database, retrying while it
// comes up, and applies the schema.
func ConnectAndMigrate(dsn string) (*gorm.DB, error) {
	dsn = NormalizeDSN(dsn)
	if dsn == "" {
		dsn = GetNormalizedDSN()
	}
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN trống, kiểm tra cấu hình môi trường")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	// MIGRATIONS=1|true|yes runs versioned SQL migrations instead of the
	// AutoMigrate default.
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations: %w", err)
		}
	} else if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate's
// file source. The DSN must be URL form.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Migrate applies the schema for every entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ProjectTeam{},
		&models.TeamMember{},
		&models.ReferralPartner{},
		&models.Customer{},
		&models.Job{},
		&models.JobCriteria{},
		&models.Service{},
		&models.Vendor{},
		&models.VendorJob{},
		&models.Opportunity{},
		&models.OpportunityService{},
		&models.Quotation{},
		&models.QuotationDetail{},
		&models.Contract{},
		&models.ContractService{},
		&models.ContractAddendum{},
		&models.PaymentMilestone{},
		&models.Debt{},
		&models.DebtPayment{},
		&models.Project{},
		&models.Task{},
		&models.TaskReview{},
		&models.AcceptanceRequest{},
		&models.Notification{},
	)
}
