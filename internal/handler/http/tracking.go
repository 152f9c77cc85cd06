package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dquiroga/ManufactureGo/internal/repository"
	"github.com/dquiroga/ManufactureGo/internal/service"
	"github.com/dquiroga/ManufactureGo/pkg/httputil"
	"github.com/dquiroga/ManufactureGo/pkg/middleware"
	"github.com/dquiroga/ManufactureGo/pkg/pagination"
	"github.com/dquiroga/ManufactureGo/pkg/validator"
)

// TrackingHandler handles HTTP requests for production tracking: records,
// worker assignment, the timer and the activity/attendance views.
type TrackingHandler struct {
	service *service.TrackingService
	logger  *slog.Logger
}

// NewTrackingHandler creates a new tracking HTTP handler.
func NewTrackingHandler(svc *service.TrackingService, logger *slog.Logger) *TrackingHandler {
	return &TrackingHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateTrackingRequest is the JSON request body for opening a tracking record.
type CreateTrackingRequest struct {
	OrderItemID  string `json:"order_item_id" validate:"required,uuid"`
	SubprocessID string `json:"subprocess_id" validate:"required,uuid"`
}

// AssignWorkersRequest is the JSON request body for replacing the worker crew.
type AssignWorkersRequest struct {
	WorkerIDs []string `json:"worker_ids" validate:"required,dive,uuid"`
}

// TimerRequest is the JSON request body for a timer event.
type TimerRequest struct {
	Event string `json:"event" validate:"required,oneof=start pause resume finish"`
}

// AssignWorkersResponse reports the crew after assignment.
type AssignWorkersResponse struct {
	Workers any `json:"workers"`
}

// --- Handlers ---

// CreateTracking handles POST /api/v1/tracking
func (h *TrackingHandler) CreateTracking(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateTrackingRequest
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

	tracking, err := h.service.CreateTracking(r.Context(), service.CreateTrackingInput{
		OrderItemID:  req.OrderItemID,
		SubprocessID: req.SubprocessID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: tracking})
}

// GetTracking handles GET /api/v1/tracking/{id}
func (h *TrackingHandler) GetTracking(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	tracking, err := h.service.GetTracking(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tracking})
}

// ListTrackings handles GET /api/v1/tracking
func (h *TrackingHandler) ListTrackings(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	var filter repository.TrackingFilter
	if v := r.URL.Query().Get("order_item_id"); v != "" {
		filter.OrderItemID = v
	}
	if v := r.URL.Query().Get("subprocess_id"); v != "" {
		filter.SubprocessID = v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = v
	}

	trackings, total, err := h.service.ListTrackings(r.Context(), filter, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(trackings, int(total), params.Page, params.PerPage))
}

// AssignWorkers handles POST /api/v1/tracking/{id}/workers
func (h *TrackingHandler) AssignWorkers(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AssignWorkersRequest
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

	workers, err := h.service.AssignWorkers(r.Context(), id.String(), req.WorkerIDs)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: AssignWorkersResponse{Workers: workers}})
}

// Timer handles POST /api/v1/tracking/{id}/timer
func (h *TrackingHandler) Timer(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req TimerRequest
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

	userID := middleware.UserIDFromContext(r.Context())

	tracking, err := h.service.HandleTimerEvent(r.Context(), id.String(), req.Event, userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tracking})
}

// ListActivity handles GET /api/v1/tracking/{id}/activity
func (h *TrackingHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	entries, err := h.service.ListActivity(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: entries})
}

// ListAttendance handles GET /api/v1/tracking/{id}/attendance
func (h *TrackingHandler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var date *time.Time
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "date must be in YYYY-MM-DD format"},
			})
			return
		}
		date = &d
	}

	records, err := h.service.ListAttendance(r.Context(), id.String(), date)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: records})
}
