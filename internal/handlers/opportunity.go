package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smgk/agency-erp/internal/auth"
	"github.com/smgk/agency-erp/internal/httpx"
	"github.com/smgk/agency-erp/internal/services"
)

type OpportunityHandler struct {
	opps       *services.OpportunityManager
	quotations *services.QuotationEngine
}

func NewOpportunityHandler(opps *services.OpportunityManager, quotations *services.QuotationEngine) *OpportunityHandler {
	return &OpportunityHandler{opps: opps, quotations: quotations}
}

func (h *OpportunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateOpportunityInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if in.CreatedByID == "" {
		in.CreatedByID = auth.UserIDFrom(r)
	}
	opp, err := h.opps.Create(in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, opp)
}

func (h *OpportunityHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.UpdateOpportunityInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	opp, err := h.opps.Update(mux.Vars(r)["id"], in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, opp)
}

func (h *OpportunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	opp, err := h.opps.Get(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, opp)
}

func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	opps, err := h.opps.List()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, opps)
}

func (h *OpportunityHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	opp, err := h.opps.Cancel(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, opp)
}

func (h *OpportunityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.opps.Delete(mux.Vars(r)["id"]); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Đã xóa cơ hội kinh doanh"})
}

func (h *OpportunityHandler) ListQuotations(w http.ResponseWriter, r *http.Request) {
	quotations, err := h.quotations.ListByOpportunity(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotations)
}
