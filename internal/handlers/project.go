package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smgk/agency-erp/internal/auth"
	"github.com/smgk/agency-erp/internal/httpx"
	"github.com/smgk/agency-erp/internal/models"
	"github.com/smgk/agency-erp/internal/services"
)

type ProjectHandler struct {
	projects   *services.ProjectOrchestrator
	tasks      *services.TaskOrchestrator
	acceptance *services.AcceptanceEngine
}

func NewProjectHandler(projects *services.ProjectOrchestrator, tasks *services.TaskOrchestrator, acceptance *services.AcceptanceEngine) *ProjectHandler {
	return &ProjectHandler{projects: projects, tasks: tasks, acceptance: acceptance}
}

type assignTeamRequest struct {
	ContractID string `json:"contractId"`
	TeamID     string `json:"teamId"`
	Name       string `json:"name"`
}

func (h *ProjectHandler) AssignTeam(w http.ResponseWriter, r *http.Request) {
	var req assignTeamRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	project, err := h.projects.AssignTeam(req.ContractID, req.TeamID, req.Name)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.Confirm(mux.Vars(r)["id"], auth.UserIDFrom(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) Start(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.Start(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.Get(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListByProject(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	// Staff only see their own slice of the board.
	switch auth.RoleFrom(r) {
	case models.RoleAdmin, models.RoleBOD, models.RoleTeamLead:
	default:
		userID := auth.UserIDFrom(r)
		mine := tasks[:0]
		for _, task := range tasks {
			if task.AssigneeID != nil && *task.AssigneeID == userID {
				mine = append(mine, task)
			}
		}
		tasks = mine
	}
	httpx.JSON(w, http.StatusOK, tasks)
}

func (h *ProjectHandler) ListAcceptanceRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.acceptance.ListByProject(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, requests)
}
