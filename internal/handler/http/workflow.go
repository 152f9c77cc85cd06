package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dquiroga/ManufactureGo/internal/service"
	"github.com/dquiroga/ManufactureGo/pkg/httputil"
	"github.com/dquiroga/ManufactureGo/pkg/validator"
)

// WorkflowHandler handles HTTP requests for the workflow template: stages,
// processes and subprocesses.
type WorkflowHandler struct {
	service *service.WorkflowService
	logger  *slog.Logger
}

// NewWorkflowHandler creates a new workflow HTTP handler.
func NewWorkflowHandler(svc *service.WorkflowService, logger *slog.Logger) *WorkflowHandler {
	return &WorkflowHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// StageRequest is the JSON request body for creating or updating a stage.
type StageRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Sequence int    `json:"sequence" validate:"gte=0"`
}

// ProcessRequest is the JSON request body for creating or updating a process.
type ProcessRequest struct {
	StageID  string `json:"stage_id" validate:"required,uuid"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Sequence int    `json:"sequence" validate:"gte=0"`
}

// SubprocessRequest is the JSON request body for creating or updating a subprocess.
type SubprocessRequest struct {
	ProcessID string `json:"process_id" validate:"required,uuid"`
	Name      string `json:"name" validate:"required,min=1,max=200"`
	Sequence  int    `json:"sequence" validate:"gte=0"`
}

// --- Handlers ---

// GetTree handles GET /api/v1/workflow
func (h *WorkflowHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.GetTree(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tree})
}

// CreateStage handles POST /api/v1/workflow/stages
func (h *WorkflowHandler) CreateStage(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req StageRequest
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

	stage, err := h.service.CreateStage(r.Context(), service.StageInput{
		Name:     req.Name,
		Sequence: req.Sequence,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: stage})
}

// UpdateStage handles PUT /api/v1/workflow/stages/{id}
func (h *WorkflowHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req StageRequest
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

	stage, err := h.service.UpdateStage(r.Context(), id.String(), service.StageInput{
		Name:     req.Name,
		Sequence: req.Sequence,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stage})
}

// DeleteStage handles DELETE /api/v1/workflow/stages/{id}
func (h *WorkflowHandler) DeleteStage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteStage(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateProcess handles POST /api/v1/workflow/processes
func (h *WorkflowHandler) CreateProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ProcessRequest
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

	process, err := h.service.CreateProcess(r.Context(), service.ProcessInput{
		StageID:  req.StageID,
		Name:     req.Name,
		Sequence: req.Sequence,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: process})
}

// UpdateProcess handles PUT /api/v1/workflow/processes/{id}
func (h *WorkflowHandler) UpdateProcess(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ProcessRequest
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

	process, err := h.service.UpdateProcess(r.Context(), id.String(), service.ProcessInput{
		StageID:  req.StageID,
		Name:     req.Name,
		Sequence: req.Sequence,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: process})
}

// DeleteProcess handles DELETE /api/v1/workflow/processes/{id}
func (h *WorkflowHandler) DeleteProcess(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteProcess(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateSubprocess handles POST /api/v1/workflow/subprocesses
func (h *WorkflowHandler) CreateSubprocess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SubprocessRequest
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

	sub, err := h.service.CreateSubprocess(r.Context(), service.SubprocessInput{
		ProcessID: req.ProcessID,
		Name:      req.Name,
		Sequence:  req.Sequence,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: sub})
}

// UpdateSubprocess handles PUT /api/v1/workflow/subprocesses/{id}
func (h *WorkflowHandler) UpdateSubprocess(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SubprocessRequest
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

	sub, err := h.service.UpdateSubprocess(r.Context(), id.String(), service.SubprocessInput{
		ProcessID: req.ProcessID,
		Name:      req.Name,
		Sequence:  req.Sequence,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sub})
}

// DeleteSubprocess handles DELETE /api/v1/workflow/subprocesses/{id}
func (h *WorkflowHandler) DeleteSubprocess(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteSubprocess(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
