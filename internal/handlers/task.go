package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smgk/agency-erp/internal/auth"
	"github.com/smgk/agency-erp/internal/httpx"
	"github.com/smgk/agency-erp/internal/models"
	"github.com/smgk/agency-erp/internal/services"
)

type TaskHandler struct {
	tasks   *services.TaskOrchestrator
	reviews *services.ReviewEngine
}

func NewTaskHandler(tasks *services.TaskOrchestrator, reviews *services.ReviewEngine) *TaskHandler {
	return &TaskHandler{tasks: tasks, reviews: reviews}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateTaskInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	task, err := h.tasks.CreateTask(in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) CreateInternal(w http.ResponseWriter, r *http.Request) {
	var in services.CreateInternalTaskInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if in.AssignerID == "" {
		in.AssignerID = auth.UserIDFrom(r)
	}
	task, err := h.tasks.CreateInternalTask(in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) AssignPerformer(w http.ResponseWriter, r *http.Request) {
	var in services.AssignPerformerInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if in.AssignerID == "" {
		in.AssignerID = auth.UserIDFrom(r)
	}
	task, err := h.tasks.AssignPerformer(mux.Vars(r)["id"], in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *TaskHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	var result models.Attachment
	if err := httpx.Decode(r, &result); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	task, err := h.tasks.SubmitResult(mux.Vars(r)["id"], result)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *TaskHandler) AssessExtra(w http.ResponseWriter, r *http.Request) {
	var in services.AssessExtraTaskInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	task, err := h.tasks.AssessExtraTask(mux.Vars(r)["id"], in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *TaskHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListForAssignee(auth.UserIDFrom(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListByTask(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reviews)
}

type toggleReviewRequest struct {
	IsPassed bool   `json:"isPassed"`
	Note     string `json:"note"`
}

func (h *TaskHandler) ToggleReview(w http.ResponseWriter, r *http.Request) {
	var req toggleReviewRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	review, err := h.reviews.ToggleCriteria(mux.Vars(r)["reviewId"], req.IsPassed, req.Note)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, review)
}

func (h *TaskHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	task, err := h.reviews.CheckAndFinalize(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

type rejectTaskRequest struct {
	Note string `json:"note"`
}

func (h *TaskHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectTaskRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	task, err := h.reviews.RejectTask(mux.Vars(r)["id"], req.Note)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}
