package runs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"pipehealth/internal/entity"
	"pipehealth/internal/httpx"
	"pipehealth/internal/pipelines"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type createRequest struct {
	ExternalRunID   string         `json:"external_run_id" validate:"omitempty,max=255"`
	Status          string         `json:"status" validate:"required,run_status"`
	StartedAt       *time.Time     `json:"started_at"`
	FinishedAt      *time.Time     `json:"finished_at"`
	DurationSeconds *int           `json:"duration_seconds" validate:"omitempty,gte=0"`
	RowsProcessed   *int64         `json:"rows_processed" validate:"omitempty,gte=0"`
	ErrorMessage    *string        `json:"error_message"`
	StatusReason    *string        `json:"status_reason"`
	Payload         map[string]any `json:"payload"`
}

// Create handles POST /api/v1/pipelines/{id}/runs
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	pipelineID, ok := pathPipelineID(r, w)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid JSON body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Request validation failed", details)
		return
	}

	run, err := h.service.Create(r.Context(), CreateParams{
		PipelineID:      pipelineID,
		ExternalRunID:   req.ExternalRunID,
		Status:          entity.RunStatus(req.Status),
		StartedAt:       req.StartedAt,
		FinishedAt:      req.FinishedAt,
		DurationSeconds: req.DurationSeconds,
		RowsProcessed:   req.RowsProcessed,
		ErrorMessage:    req.ErrorMessage,
		StatusReason:    req.StatusReason,
		Payload:         req.Payload,
	})
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccessCreated(r, w, run)
}

// List handles GET /api/v1/pipelines/{id}/runs
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	pipelineID, ok := pathPipelineID(r, w)
	if !ok {
		return
	}

	query := r.URL.Query()
	q := ListQuery{
		PipelineID: pipelineID,
		Ascending:  query.Get("order") == "asc",
	}

	if raw := query.Get("status"); raw != "" {
		status := entity.RunStatus(raw)
		if !status.Valid() {
			httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid status filter",
				[]httpx.ErrorDetail{{Field: "status", Message: "must be a canonical run status"}})
			return
		}
		q.Status = &status
	}
	for name, dest := range map[string]**time.Time{"since": &q.Since, "until": &q.Until} {
		if raw := query.Get(name); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid timestamp",
					[]httpx.ErrorDetail{{Field: name, Message: "must be RFC 3339"}})
				return
			}
			*dest = &parsed
		}
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 1000 {
			httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid limit",
				[]httpx.ErrorDetail{{Field: "limit", Message: "must be between 1 and 1000"}})
			return
		}
		q.Limit = limit
	}

	result, err := h.service.List(r.Context(), q)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, result, map[string]interface{}{"count": len(result)})
}

// Latest handles GET /api/v1/pipelines/{id}/runs/latest
func (h *HTTPHandler) Latest(w http.ResponseWriter, r *http.Request) {
	pipelineID, ok := pathPipelineID(r, w)
	if !ok {
		return
	}

	run, err := h.service.Latest(r.Context(), pipelineID)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, run, nil)
}

func pathPipelineID(r *http.Request, w http.ResponseWriter) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid pipeline id",
			[]httpx.ErrorDetail{{Field: "id", Message: "must be a UUID"}})
		return uuid.Nil, false
	}
	return id, true
}

func respondError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(r, w, http.StatusNotFound, "not_found", "Run not found", nil)
	case errors.Is(err, pipelines.ErrNotFound):
		httpx.JSONError(r, w, http.StatusNotFound, "not_found", "Pipeline not found", nil)
	case errors.Is(err, ErrConstraint):
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		httpx.JSONError(r, w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}
