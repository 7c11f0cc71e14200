package pipelines

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"pipehealth/internal/clients"
	"pipehealth/internal/entity"
	"pipehealth/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type createRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	Platform     string  `json:"platform" validate:"required,platform"`
	PipelineType string  `json:"pipeline_type" validate:"required,pipeline_type"`
	ExternalID   *string `json:"external_id" validate:"omitempty,max=255"`
	Description  *string `json:"description"`
	Environment  string  `json:"environment" validate:"omitempty,environment"`
	IsActive     *bool   `json:"is_active"`
}

type updateRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=255"`
	Platform     *string `json:"platform" validate:"omitempty,platform"`
	PipelineType *string `json:"pipeline_type" validate:"omitempty,pipeline_type"`
	ExternalID   *string `json:"external_id" validate:"omitempty,max=255"`
	Description  *string `json:"description"`
	Environment  *string `json:"environment" validate:"omitempty,environment"`
	IsActive     *bool   `json:"is_active"`
}

// Create handles POST /api/v1/clients/{id}/pipelines
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathUUID(r, w, "id", "client id")
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

	params := CreateParams{
		ClientID:     clientID,
		Name:         req.Name,
		Platform:     entity.Platform(req.Platform),
		PipelineType: entity.PipelineType(req.PipelineType),
		ExternalID:   req.ExternalID,
		Description:  req.Description,
		Environment:  req.Environment,
		IsActive:     true,
	}
	if params.Environment == "" {
		params.Environment = "prod"
	}
	if req.IsActive != nil {
		params.IsActive = *req.IsActive
	}

	pipeline, err := h.service.Create(r.Context(), params)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccessCreated(r, w, pipeline)
}

// ListForClient handles GET /api/v1/clients/{id}/pipelines
func (h *HTTPHandler) ListForClient(w http.ResponseWriter, r *http.Request) {
	clientID, ok := pathUUID(r, w, "id", "client id")
	if !ok {
		return
	}

	var isActive *bool
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		v := raw == "true"
		isActive = &v
	}

	result, err := h.service.ListForClient(r.Context(), clientID, isActive)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, result, nil)
}

// Get handles GET /api/v1/pipelines/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, w, "id", "pipeline id")
	if !ok {
		return
	}

	pipeline, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, pipeline, nil)
}

// Update handles PATCH /api/v1/pipelines/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, w, "id", "pipeline id")
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

	params := UpdateParams{
		Name:        req.Name,
		ExternalID:  req.ExternalID,
		Description: req.Description,
		Environment: req.Environment,
		IsActive:    req.IsActive,
	}
	if req.Platform != nil {
		platform := entity.Platform(*req.Platform)
		params.Platform = &platform
	}
	if req.PipelineType != nil {
		pipelineType := entity.PipelineType(*req.PipelineType)
		params.PipelineType = &pipelineType
	}

	pipeline, err := h.service.Update(r.Context(), id, params)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, pipeline, nil)
}

func pathUUID(r *http.Request, w http.ResponseWriter, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid "+label,
			[]httpx.ErrorDetail{{Field: name, Message: "must be a UUID"}})
		return uuid.Nil, false
	}
	return id, true
}

func respondError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(r, w, http.StatusNotFound, "not_found", "Pipeline not found", nil)
	case errors.Is(err, clients.ErrNotFound):
		httpx.JSONError(r, w, http.StatusNotFound, "not_found", "Client not found", nil)
	case errors.Is(err, ErrConstraint):
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		httpx.JSONError(r, w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}
