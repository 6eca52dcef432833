package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/auth"
	"github.com/smgk/agency-erp/internal/config"
	"github.com/smgk/agency-erp/internal/handlers"
	"github.com/smgk/agency-erp/internal/httpx"
	"github.com/smgk/agency-erp/internal/models"
	"github.com/smgk/agency-erp/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg config.Config) http.Handler {
	notifier := services.NewNotificationService(db)
	opps := services.NewOpportunityManager(db)
	debts := services.NewDebtEngine(db)
	addenda := services.NewAddendumManager(db, debts)
	quotations := services.NewQuotationEngine(db, opps, addenda)
	projects := services.NewProjectOrchestrator(db, opps, notifier)
	contracts := services.NewContractManager(db, opps, projects, debts, notifier)
	milestones := services.NewMilestoneEngine(db)
	reviews := services.NewReviewEngine(db, notifier)
	tasks := services.NewTaskOrchestrator(db, reviews, notifier)
	acceptance := services.NewAcceptanceEngine(db, notifier)
	catalog := services.NewCatalogService(db)
	directory := services.NewDirectoryService(db)

	authHandler := handlers.NewAuthHandler(directory)
	oppHandler := handlers.NewOpportunityHandler(opps, quotations)
	quotationHandler := handlers.NewQuotationHandler(quotations)
	contractHandler := handlers.NewContractHandler(contracts, milestones, addenda)
	paymentHandler := handlers.NewPaymentHandler(milestones, debts)
	addendumHandler := handlers.NewAddendumHandler(addenda)
	projectHandler := handlers.NewProjectHandler(projects, tasks, acceptance)
	taskHandler := handlers.NewTaskHandler(tasks, reviews)
	acceptanceHandler := handlers.NewAcceptanceHandler(acceptance)
	catalogHandler := handlers.NewCatalogHandler(catalog)
	directoryHandler := handlers.NewDirectoryHandler(directory, services.NewNotificationService(db))

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware)

	manager := auth.RequireRoles(models.RoleAdmin, models.RoleBOD)

	api.HandleFunc("/auth/me", authHandler.Me).Methods("GET")

	api.HandleFunc("/opportunities", oppHandler.Create).Methods("POST")
	api.HandleFunc("/opportunities", oppHandler.List).Methods("GET")
	api.HandleFunc("/opportunities/{id}", oppHandler.Get).Methods("GET")
	api.HandleFunc("/opportunities/{id}", oppHandler.Update).Methods("PUT")
	api.HandleFunc("/opportunities/{id}", oppHandler.Delete).Methods("DELETE")
	api.HandleFunc("/opportunities/{id}/cancel", oppHandler.Cancel).Methods("POST")
	api.HandleFunc("/opportunities/{id}/quotations", oppHandler.ListQuotations).Methods("GET")

	api.HandleFunc("/quotations", quotationHandler.Create).Methods("POST")
	api.HandleFunc("/quotations/addendum", quotationHandler.CreateAddendum).Methods("POST")
	api.HandleFunc("/quotations/{id}", quotationHandler.Get).Methods("GET")
	api.HandleFunc("/quotations/{id}", quotationHandler.UpdateDetails).Methods("PUT")
	api.HandleFunc("/quotations/{id}", quotationHandler.Delete).Methods("DELETE")
	api.Handle("/quotations/{id}/approve", manager(http.HandlerFunc(quotationHandler.Approve))).Methods("POST")
	api.Handle("/quotations/{id}/reject", manager(http.HandlerFunc(quotationHandler.Reject))).Methods("POST")

	api.HandleFunc("/contracts", contractHandler.Create).Methods("POST")
	api.HandleFunc("/contracts", contractHandler.List).Methods("GET")
	api.HandleFunc("/contracts/{id}", contractHandler.Get).Methods("GET")
	api.HandleFunc("/contracts/{id}/proposal", contractHandler.UploadProposal).Methods("POST")
	api.Handle("/contracts/{id}/proposal/approve", manager(http.HandlerFunc(contractHandler.ApproveProposal))).Methods("POST")
	api.HandleFunc("/contracts/{id}/signed", contractHandler.UploadSigned).Methods("POST")
	api.Handle("/contracts/{id}/commission/paid", manager(http.HandlerFunc(contractHandler.MarkCommissionPaid))).Methods("POST")
	api.HandleFunc("/contracts/{id}/milestones", contractHandler.AddMilestone).Methods("POST")
	api.HandleFunc("/contracts/{id}/milestones", contractHandler.ListMilestones).Methods("GET")
	api.HandleFunc("/contracts/{id}/milestones/bulk", contractHandler.BulkReplaceMilestones).Methods("PUT")
	api.HandleFunc("/contracts/{id}/addenda", contractHandler.ListAddenda).Methods("GET")
	api.HandleFunc("/contracts/{id}/debts", paymentHandler.ListDebtsByContract).Methods("GET")

	api.HandleFunc("/milestones/{id}", paymentHandler.UpdateMilestone).Methods("PUT")
	api.HandleFunc("/milestones/{id}", paymentHandler.DeleteMilestone).Methods("DELETE")
	api.HandleFunc("/milestones/{id}/debt", paymentHandler.ActivateDebt).Methods("POST")

	api.HandleFunc("/debts/{id}", paymentHandler.GetDebt).Methods("GET")
	api.HandleFunc("/debts/{id}", paymentHandler.DeleteDebt).Methods("DELETE")
	api.HandleFunc("/debts/{id}/payments", paymentHandler.RecordPayment).Methods("POST")
	api.HandleFunc("/payments/{id}", paymentHandler.DeletePayment).Methods("DELETE")

	api.HandleFunc("/addenda", addendumHandler.Create).Methods("POST")
	api.HandleFunc("/addenda/{id}", addendumHandler.Get).Methods("GET")
	api.HandleFunc("/addenda/{id}/items", addendumHandler.AddItems).Methods("POST")
	api.HandleFunc("/addenda/{id}/signed", addendumHandler.UploadSigned).Methods("POST")
	api.HandleFunc("/addenda/{id}/scale-down", addendumHandler.ScaleDown).Methods("POST")

	api.HandleFunc("/projects", projectHandler.List).Methods("GET")
	api.HandleFunc("/projects/assign-team", projectHandler.AssignTeam).Methods("POST")
	api.HandleFunc("/projects/{id}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/projects/{id}/confirm", projectHandler.Confirm).Methods("POST")
	api.HandleFunc("/projects/{id}/start", projectHandler.Start).Methods("POST")
	api.HandleFunc("/projects/{id}/tasks", projectHandler.ListTasks).Methods("GET")
	api.HandleFunc("/projects/{id}/acceptance-requests", projectHandler.ListAcceptanceRequests).Methods("GET")

	api.HandleFunc("/tasks", taskHandler.Create).Methods("POST")
	api.HandleFunc("/tasks/internal", taskHandler.CreateInternal).Methods("POST")
	api.HandleFunc("/tasks/mine", taskHandler.ListMine).Methods("GET")
	api.HandleFunc("/tasks/{id}", taskHandler.Get).Methods("GET")
	api.HandleFunc("/tasks/{id}/assign", taskHandler.AssignPerformer).Methods("POST")
	api.HandleFunc("/tasks/{id}/result", taskHandler.SubmitResult).Methods("POST")
	api.Handle("/tasks/{id}/assess", manager(http.HandlerFunc(taskHandler.AssessExtra))).Methods("POST")
	api.HandleFunc("/tasks/{id}/reviews", taskHandler.ListReviews).Methods("GET")
	api.HandleFunc("/tasks/{id}/finalize", taskHandler.Finalize).Methods("POST")
	api.HandleFunc("/tasks/{id}/reject", taskHandler.Reject).Methods("POST")
	api.HandleFunc("/reviews/{reviewId}", taskHandler.ToggleReview).Methods("PUT")

	api.HandleFunc("/acceptance-requests", acceptanceHandler.Create).Methods("POST")
	api.HandleFunc("/acceptance-requests/{id}", acceptanceHandler.Get).Methods("GET")
	api.Handle("/acceptance-requests/{id}/approve", manager(http.HandlerFunc(acceptanceHandler.Approve))).Methods("POST")
	api.Handle("/acceptance-requests/{id}/reject", manager(http.HandlerFunc(acceptanceHandler.Reject))).Methods("POST")
	api.Handle("/acceptance-requests/{id}/process", manager(http.HandlerFunc(acceptanceHandler.Process))).Methods("POST")

	api.HandleFunc("/services", catalogHandler.CreateService).Methods("POST")
	api.HandleFunc("/services", catalogHandler.ListServices).Methods("GET")
	api.HandleFunc("/services/{id}", catalogHandler.GetService).Methods("GET")
	api.HandleFunc("/services/{id}", catalogHandler.UpdateService).Methods("PUT")
	api.HandleFunc("/jobs", catalogHandler.CreateJob).Methods("POST")
	api.HandleFunc("/jobs", catalogHandler.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", catalogHandler.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}/criteria", catalogHandler.AddCriteria).Methods("POST")
	api.HandleFunc("/criteria/{id}", catalogHandler.RemoveCriteria).Methods("DELETE")
	api.HandleFunc("/vendors", catalogHandler.CreateVendor).Methods("POST")
	api.HandleFunc("/vendors", catalogHandler.ListVendors).Methods("GET")
	api.HandleFunc("/vendors/{id}/jobs", catalogHandler.AddVendorJob).Methods("POST")

	api.Handle("/users", manager(http.HandlerFunc(directoryHandler.CreateUser))).Methods("POST")
	api.HandleFunc("/users", directoryHandler.ListUsers).Methods("GET")
	api.HandleFunc("/teams", directoryHandler.CreateTeam).Methods("POST")
	api.HandleFunc("/teams", directoryHandler.ListTeams).Methods("GET")
	api.HandleFunc("/teams/{id}", directoryHandler.GetTeam).Methods("GET")
	api.HandleFunc("/customers", directoryHandler.CreateCustomer).Methods("POST")
	api.HandleFunc("/customers", directoryHandler.ListCustomers).Methods("GET")
	api.HandleFunc("/customers/{id}", directoryHandler.GetCustomer).Methods("GET")
	api.HandleFunc("/referral-partners", directoryHandler.CreatePartner).Methods("POST")
	api.HandleFunc("/referral-partners", directoryHandler.ListPartners).Methods("GET")
	api.HandleFunc("/notifications", directoryHandler.ListMyNotifications).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", directoryHandler.MarkNotificationRead).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return c.Handler(withRecover(withLogging(r)))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic: %v", rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
