package clients

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pipehealth/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type createRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	IsActive *bool  `json:"is_active"`
}

type updateRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	IsActive *bool   `json:"is_active"`
}

// Create handles POST /api/v1/clients
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid JSON body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Request validation failed", details)
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	client, err := h.service.Create(r.Context(), CreateParams{Name: req.Name, IsActive: isActive})
	if err != nil {
		if errors.Is(err, ErrConstraint) {
			httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		httpx.JSONError(r, w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}
	httpx.JSONSuccessCreated(r, w, client)
}

// List handles GET /api/v1/clients
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	var isActive *bool
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		v := raw == "true"
		isActive = &v
	}

	result, err := h.service.List(r.Context(), isActive)
	if err != nil {
		httpx.JSONError(r, w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}
	httpx.JSONSuccess(r, w, result, nil)
}

// Get handles GET /api/v1/clients/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, w)
	if !ok {
		return
	}

	client, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, client, nil)
}

// Update handles PATCH /api/v1/clients/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, w)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid JSON body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Request validation failed", details)
		return
	}

	client, err := h.service.Update(r.Context(), id, UpdateParams{Name: req.Name, IsActive: req.IsActive})
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, client, nil)
}

// RunSummary handles GET /api/v1/clients/{id}/runs/summary
func (h *HTTPHandler) RunSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, w)
	if !ok {
		return
	}

	since, ok := queryTime(r, w, "since")
	if !ok {
		return
	}
	until, ok := queryTime(r, w, "until")
	if !ok {
		return
	}

	summary, err := h.service.RunSummary(r.Context(), id, since, until)
	if err != nil {
		if errors.Is(err, ErrInvalidWindow) {
			httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", err.Error(),
				[]httpx.ErrorDetail{{Field: "since", Message: "must be before until"}})
			return
		}
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, summary, nil)
}

func pathID(r *http.Request, w http.ResponseWriter) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid client id",
			[]httpx.ErrorDetail{{Field: "id", Message: "must be a UUID"}})
		return uuid.Nil, false
	}
	return id, true
}

func queryTime(r *http.Request, w http.ResponseWriter, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid timestamp",
			[]httpx.ErrorDetail{{Field: name, Message: "must be RFC 3339"}})
		return nil, false
	}
	return &parsed, true
}

func respondError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(r, w, http.StatusNotFound, "not_found", "Client not found", nil)
	case errors.Is(err, ErrConstraint):
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		httpx.JSONError(r, w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}
