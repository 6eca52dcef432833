package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smgk/agency-erp/internal/auth"
	"github.com/smgk/agency-erp/internal/httpx"
	"github.com/smgk/agency-erp/internal/models"
	"github.com/smgk/agency-erp/internal/services"
)

type DirectoryHandler struct {
	directory     *services.DirectoryService
	notifications *services.NotificationService
}

func NewDirectoryHandler(directory *services.DirectoryService, notifications *services.NotificationService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, notifications: notifications}
}

func (h *DirectoryHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in services.CreateUserInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	user, err := h.directory.CreateUser(in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *DirectoryHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.directory.ListUsers()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *DirectoryHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var in services.TeamInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	team, err := h.directory.CreateTeam(in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, team)
}

func (h *DirectoryHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.directory.GetTeam(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, team)
}

func (h *DirectoryHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.directory.ListTeams()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, teams)
}

func (h *DirectoryHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var in models.Customer
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	customer, err := h.directory.CreateCustomer(in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *DirectoryHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.directory.GetCustomer(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *DirectoryHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.directory.ListCustomers()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customers)
}

func (h *DirectoryHandler) CreatePartner(w http.ResponseWriter, r *http.Request) {
	var in models.ReferralPartner
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	partner, err := h.directory.CreatePartner(in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, partner)
}

func (h *DirectoryHandler) ListPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := h.directory.ListPartners()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, partners)
}

func (h *DirectoryHandler) ListMyNotifications(w http.ResponseWriter, r *http.Request) {
	out, err := h.notifications.ListForUser(auth.UserIDFrom(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *DirectoryHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkRead(mux.Vars(r)["id"]); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Đã đánh dấu đã đọc"})
}
