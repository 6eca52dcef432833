package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/smgk/agency-erp/internal/httpx"
	"github.com/smgk/agency-erp/internal/models"
	"github.com/smgk/agency-erp/internal/services"
)

type CatalogHandler struct {
	catalog *services.CatalogService
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type serviceRequest struct {
	models.Service
	JobIDs []string `json:"jobIds"`
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	svc, err := h.catalog.CreateService(req.Service, req.JobIDs)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, svc)
}

func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	svc, err := h.catalog.UpdateService(mux.Vars(r)["id"], req.Service, req.JobIDs)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, svc)
}

func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.catalog.GetService(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, svc)
}

func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListServices()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var in models.Job
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	job, err := h.catalog.CreateJob(in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, job)
}

func (h *CatalogHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.catalog.GetJob(mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *CatalogHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListJobs()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) AddCriteria(w http.ResponseWriter, r *http.Request) {
	var in models.JobCriteria
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	criteria, err := h.catalog.AddCriteria(mux.Vars(r)["id"], in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, criteria)
}

func (h *CatalogHandler) RemoveCriteria(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.RemoveCriteria(mux.Vars(r)["id"]); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Đã xóa tiêu chí đánh giá"})
}

func (h *CatalogHandler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var in models.Vendor
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	vendor, err := h.catalog.CreateVendor(in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, vendor)
}

func (h *CatalogHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListVendors()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) AddVendorJob(w http.ResponseWriter, r *http.Request) {
	var in models.VendorJob
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	vendorJob, err := h.catalog.AddVendorJob(mux.Vars(r)["id"], in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, vendorJob)
}
