package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smgk/agency-erp/internal/httpx"
	"github.com/smgk/agency-erp/internal/services"
)

// PaymentHandler covers milestones past creation plus debts and payments.
type PaymentHandler struct {
	milestones *services.MilestoneEngine
	debts      *services.DebtEngine
}

func NewPaymentHandler(milestones *services.MilestoneEngine, debts *services.DebtEngine) *PaymentHandler {
	return &PaymentHandler{milestones: milestones, debts: debts}
}

func (h *PaymentHandler) UpdateMilestone(w http.ResponseWriter, r *http.Request) {
	var in services.MilestoneInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	milestone, err := h.milestones.Update(mux.Vars(r)["id"], in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, milestone)
}

func (h *PaymentHandler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	if err := h.milestones.Delete(mux.Vars(r)["id"]); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Đã xóa giai đoạn thanh toán"})
}

func (h *PaymentHandler) ActivateDebt(w http.ResponseWriter, r *http.Request) {
	debt, err := h.debts.CreateFromMilestone(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, debt)
}

func (h *PaymentHandler) GetDebt(w http.ResponseWriter, r *http.Request) {
	debt, err := h.debts.Get(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, debt)
}

func (h *PaymentHandler) ListDebtsByContract(w http.ResponseWriter, r *http.Request) {
	debts, err := h.debts.ListByContract(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, debts)
}

func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var in services.PaymentInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	debt, err := h.debts.RecordPayment(mux.Vars(r)["id"], in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, debt)
}

func (h *PaymentHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	debt, err := h.debts.DeletePayment(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, debt)
}

func (h *PaymentHandler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := h.debts.Delete(mux.Vars(r)["id"]); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Đã xóa khoản công nợ"})
}
