package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smgk/agency-erp/internal/httpx"
	"github.com/smgk/agency-erp/internal/models"
	"github.com/smgk/agency-erp/internal/services"
)

type ContractHandler struct {
	contracts  *services.ContractManager
	milestones *services.MilestoneEngine
	addenda    *services.AddendumManager
}

func NewContractHandler(contracts *services.ContractManager, milestones *services.MilestoneEngine, addenda *services.AddendumManager) *ContractHandler {
	return &ContractHandler{contracts: contracts, milestones: milestones, addenda: addenda}
}

func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateContractInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	contract, err := h.contracts.Create(in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, contract)
}

func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	contract, err := h.contracts.Get(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.contracts.List()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contracts)
}

func (h *ContractHandler) UploadProposal(w http.ResponseWriter, r *http.Request) {
	var file models.Attachment
	if err := httpx.Decode(r, &file); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	contract, err := h.contracts.UploadProposal(mux.Vars(r)["id"], file)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

func (h *ContractHandler) ApproveProposal(w http.ResponseWriter, r *http.Request) {
	contract, err := h.contracts.ApproveProposal(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

func (h *ContractHandler) UploadSigned(w http.ResponseWriter, r *http.Request) {
	var file models.Attachment
	if err := httpx.Decode(r, &file); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	contract, err := h.contracts.UploadSigned(mux.Vars(r)["id"], file)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

func (h *ContractHandler) MarkCommissionPaid(w http.ResponseWriter, r *http.Request) {
	contract, err := h.contracts.MarkCommissionPaid(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

func (h *ContractHandler) AddMilestone(w http.ResponseWriter, r *http.Request) {
	var in services.MilestoneInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	milestone, err := h.milestones.Add(mux.Vars(r)["id"], in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, milestone)
}

func (h *ContractHandler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	milestones, err := h.milestones.ListByContract(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, milestones)
}

type bulkMilestonesRequest struct {
	Milestones []services.MilestoneInput `json:"milestones"`
}

func (h *ContractHandler) BulkReplaceMilestones(w http.ResponseWriter, r *http.Request) {
	var req bulkMilestonesRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	milestones, err := h.milestones.BulkReplace(mux.Vars(r)["id"], req.Milestones)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, milestones)
}

func (h *ContractHandler) ListAddenda(w http.ResponseWriter, r *http.Request) {
	addenda, err := h.addenda.ListByContract(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, addenda)
}
