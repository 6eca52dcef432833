package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smgk/agency-erp/internal/auth"
	"github.com/smgk/agency-erp/internal/httpx"
	"github.com/smgk/agency-erp/internal/services"
)

type AcceptanceHandler struct {
	acceptance *services.AcceptanceEngine
}

func NewAcceptanceHandler(acceptance *services.AcceptanceEngine) *AcceptanceHandler {
	return &AcceptanceHandler{acceptance: acceptance}
}

func (h *AcceptanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateAcceptanceInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if in.RequesterID == "" {
		in.RequesterID = auth.UserIDFrom(r)
	}
	request, err := h.acceptance.CreateRequest(in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, request)
}

func (h *AcceptanceHandler) Approve(w http.ResponseWriter, r *http.Request) {
	request, err := h.acceptance.Approve(mux.Vars(r)["id"], auth.UserIDFrom(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, request)
}

type rejectAcceptanceRequest struct {
	Feedback string `json:"feedback"`
}

func (h *AcceptanceHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectAcceptanceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	request, err := h.acceptance.Reject(mux.Vars(r)["id"], auth.UserIDFrom(r), req.Feedback)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, request)
}

type processAcceptanceRequest struct {
	Decisions []services.AcceptanceDecision `json:"decisions"`
}

func (h *AcceptanceHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req processAcceptanceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	request, err := h.acceptance.Process(mux.Vars(r)["id"], auth.UserIDFrom(r), req.Decisions)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, request)
}

func (h *AcceptanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	request, err := h.acceptance.Get(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, request)
}
