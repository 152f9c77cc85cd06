package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dquiroga/ManufactureGo/internal/repository"
	"github.com/dquiroga/ManufactureGo/internal/service"
	"github.com/dquiroga/ManufactureGo/pkg/httputil"
	"github.com/dquiroga/ManufactureGo/pkg/pagination"
	"github.com/dquiroga/ManufactureGo/pkg/validator"
)

// WorkforceHandler handles HTTP requests for companies and workers.
type WorkforceHandler struct {
	service *service.WorkforceService
	logger  *slog.Logger
}

// NewWorkforceHandler creates a new workforce HTTP handler.
func NewWorkforceHandler(svc *service.WorkforceService, logger *slog.Logger) *WorkforceHandler {
	return &WorkforceHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CompanyRequest is the JSON request body for creating or updating a company.
type CompanyRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	TaxID       string `json:"tax_id" validate:"omitempty,max=50"`
	ContactName string `json:"contact_name" validate:"omitempty,max=200"`
	Phone       string `json:"phone" validate:"omitempty,max=20"`
}

// WorkerRequest is the JSON request body for creating or updating a worker.
type WorkerRequest struct {
	FirstName  string  `json:"first_name" validate:"required,min=1,max=100"`
	LastName   string  `json:"last_name" validate:"required,min=1,max=100"`
	DocumentID string  `json:"document_id" validate:"required,min=1,max=50"`
	WorkerType string  `json:"worker_type" validate:"required,oneof=payroll contractor"`
	CompanyID  *string `json:"company_id" validate:"omitempty,uuid"`
	IsActive   *bool   `json:"is_active"`
}

func (req WorkerRequest) toInput() service.WorkerInput {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return service.WorkerInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		DocumentID: req.DocumentID,
		WorkerType: req.WorkerType,
		CompanyID:  req.CompanyID,
		IsActive:   active,
	}
}

// --- Company handlers ---

// CreateCompany handles POST /api/v1/companies
func (h *WorkforceHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	company, err := h.service.CreateCompany(r.Context(), service.CompanyInput{
		Name:        req.Name,
		TaxID:       req.TaxID,
		ContactName: req.ContactName,
		Phone:       req.Phone,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: company})
}

// GetCompany handles GET /api/v1/companies/{id}
func (h *WorkforceHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	company, err := h.service.GetCompany(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: company})
}

// ListCompanies handles GET /api/v1/companies
func (h *WorkforceHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	companies, total, err := h.service.ListCompanies(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(companies, int(total), params.Page, params.PerPage))
}

// UpdateCompany handles PUT /api/v1/companies/{id}
func (h *WorkforceHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	company, err := h.service.UpdateCompany(r.Context(), id.String(), service.CompanyInput{
		Name:        req.Name,
		TaxID:       req.TaxID,
		ContactName: req.ContactName,
		Phone:       req.Phone,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: company})
}

// DeleteCompany handles DELETE /api/v1/companies/{id}
func (h *WorkforceHandler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteCompany(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Worker handlers ---

// CreateWorker handles POST /api/v1/workers
func (h *WorkforceHandler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req WorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	worker, err := h.service.CreateWorker(r.Context(), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: worker})
}

// GetWorker handles GET /api/v1/workers/{id}
func (h *WorkforceHandler) GetWorker(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	worker, err := h.service.GetWorker(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: worker})
}

// ListWorkers handles GET /api/v1/workers
func (h *WorkforceHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	var filter repository.WorkerFilter
	if v := r.URL.Query().Get("worker_type"); v != "" {
		filter.WorkerType = v
	}
	if v := r.URL.Query().Get("company_id"); v != "" {
		filter.CompanyID = v
	}
	if v := r.URL.Query().Get("search"); v != "" {
		filter.Search = v
	}
	if v := r.URL.Query().Get("active"); v == "true" {
		filter.ActiveOnly = true
	}

	workers, total, err := h.service.ListWorkers(r.Context(), filter, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(workers, int(total), params.Page, params.PerPage))
}

// UpdateWorker handles PUT /api/v1/workers/{id}
func (h *WorkforceHandler) UpdateWorker(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req WorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	worker, err := h.service.UpdateWorker(r.Context(), id.String(), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: worker})
}

// DeleteWorker handles DELETE /api/v1/workers/{id}
func (h *WorkforceHandler) DeleteWorker(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteWorker(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
