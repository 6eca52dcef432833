package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/smgk/agency-erp/internal/httpx"
	"github.com/smgk/agency-erp/internal/models"
	"github.com/smgk/agency-erp/internal/services"
)

type AddendumHandler struct {
	addenda *services.AddendumManager
}

func NewAddendumHandler(addenda *services.AddendumManager) *AddendumHandler {
	return &AddendumHandler{addenda: addenda}
}

type createAddendumRequest struct {
	ContractID  string `json:"contractId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *AddendumHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAddendumRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	addendum, err := h.addenda.CreateDraft(req.ContractID, req.Name, req.Description)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, addendum)
}

type addItemsRequest struct {
	Services   []services.AddendumServiceInput   `json:"services"`
	Milestones []services.AddendumMilestoneInput `json:"milestones"`
}

func (h *AddendumHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	var req addItemsRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	addendum, err := h.addenda.AddItems(mux.Vars(r)["id"], req.Services, req.Milestones)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, addendum)
}

func (h *AddendumHandler) UploadSigned(w http.ResponseWriter, r *http.Request) {
	var file models.Attachment
	if err := httpx.Decode(r, &file); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	addendum, err := h.addenda.UploadSigned(mux.Vars(r)["id"], file)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, addendum)
}

type scaleDownRequest struct {
	CancelServiceIDs []string        `json:"cancelServiceIds"`
	RefundAmount     decimal.Decimal `json:"refundAmount"`
}

func (h *AddendumHandler) ScaleDown(w http.ResponseWriter, r *http.Request) {
	var req scaleDownRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	addendum, err := h.addenda.ScaleDown(mux.Vars(r)["id"], req.CancelServiceIDs, req.RefundAmount)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, addendum)
}

func (h *AddendumHandler) Get(w http.ResponseWriter, r *http.Request) {
	addendum, err := h.addenda.Get(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, addendum)
}
