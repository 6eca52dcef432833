package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smgk/agency-erp/internal/httpx"
	"github.com/smgk/agency-erp/internal/services"
)

type QuotationHandler struct {
	quotations *services.QuotationEngine
}

func NewQuotationHandler(quotations *services.QuotationEngine) *QuotationHandler {
	return &QuotationHandler{quotations: quotations}
}

type createQuotationRequest struct {
	OpportunityID string `json:"opportunityId"`
	Note          string `json:"note"`
}

func (h *QuotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createQuotationRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	quotation, err := h.quotations.Create(req.OpportunityID, req.Note)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quotation)
}

type updateQuotationRequest struct {
	Details []services.QuotationDetailInput `json:"details"`
	Note    *string                         `json:"note"`
}

func (h *QuotationHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	var req updateQuotationRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	quotation, err := h.quotations.UpdateDetails(mux.Vars(r)["id"], req.Details, req.Note)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotation)
}

func (h *QuotationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	quotation, err := h.quotations.Approve(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotation)
}

func (h *QuotationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	quotation, err := h.quotations.Reject(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotation)
}

func (h *QuotationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.quotations.Delete(mux.Vars(r)["id"]); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Đã xóa báo giá"})
}

func (h *QuotationHandler) Get(w http.ResponseWriter, r *http.Request) {
	quotation, err := h.quotations.Get(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotation)
}

type addendumQuotationRequest struct {
	OpportunityID string   `json:"opportunityId"`
	TaskIDs       []string `json:"taskIds"`
	Note          string   `json:"note"`
}

func (h *QuotationHandler) CreateAddendum(w http.ResponseWriter, r *http.Request) {
	var req addendumQuotationRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	quotation, err := h.quotations.CreateAddendum(req.OpportunityID, req.TaskIDs, req.Note)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quotation)
}
