package alertrules

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"pipehealth/internal/clients"
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
	ClientID      *uuid.UUID `json:"client_id"`
	PipelineID    *uuid.UUID `json:"pipeline_id"`
	RuleType      string     `json:"rule_type" validate:"required,rule_type"`
	Threshold     *int       `json:"threshold" validate:"omitempty,gt=0"`
	WindowMinutes *int       `json:"window_minutes" validate:"omitempty,gt=0"`
	Channel       string     `json:"channel" validate:"required,channel"`
	Destination   string     `json:"destination" validate:"required,max=512"`
	IsEnabled     *bool      `json:"is_enabled"`
}

type updateRequest struct {
	Threshold     *int    `json:"threshold" validate:"omitempty,gt=0"`
	WindowMinutes *int    `json:"window_minutes" validate:"omitempty,gt=0"`
	Channel       *string `json:"channel" validate:"omitempty,channel"`
	Destination   *string `json:"destination" validate:"omitempty,min=1,max=512"`
	IsEnabled     *bool   `json:"is_enabled"`
}

// Create handles POST /api/v1/alert-rules
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

	params := CreateParams{
		ClientID:      req.ClientID,
		PipelineID:    req.PipelineID,
		RuleType:      entity.RuleType(req.RuleType),
		Threshold:     req.Threshold,
		WindowMinutes: req.WindowMinutes,
		Channel:       entity.Channel(req.Channel),
		Destination:   req.Destination,
		IsEnabled:     true,
	}
	if req.IsEnabled != nil {
		params.IsEnabled = *req.IsEnabled
	}

	rule, err := h.service.Create(r.Context(), params)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccessCreated(r, w, rule)
}

// List handles GET /api/v1/alert-rules
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var q ListQuery

	for name, dest := range map[string]**uuid.UUID{"client_id": &q.ClientID, "pipeline_id": &q.PipelineID} {
		if raw := query.Get(name); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid "+name,
					[]httpx.ErrorDetail{{Field: name, Message: "must be a UUID"}})
				return
			}
			*dest = &id
		}
	}
	if raw := query.Get("is_enabled"); raw != "" {
		v := raw == "true"
		q.IsEnabled = &v
	}

	result, err := h.service.List(r.Context(), q)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, result, nil)
}

// Get handles GET /api/v1/alert-rules/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, w)
	if !ok {
		return
	}

	rule, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, rule, nil)
}

// Update handles PATCH /api/v1/alert-rules/{id}
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

	params := UpdateParams{
		Threshold:     req.Threshold,
		WindowMinutes: req.WindowMinutes,
		Destination:   req.Destination,
		IsEnabled:     req.IsEnabled,
	}
	if req.Channel != nil {
		channel := entity.Channel(*req.Channel)
		params.Channel = &channel
	}

	rule, err := h.service.Update(r.Context(), id, params)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, rule, nil)
}

// Delete handles DELETE /api/v1/alert-rules/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, w)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

func pathID(r *http.Request, w http.ResponseWriter) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid alert rule id",
			[]httpx.ErrorDetail{{Field: "id", Message: "must be a UUID"}})
		return uuid.Nil, false
	}
	return id, true
}

func respondError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(r, w, http.StatusNotFound, "not_found", "Alert rule not found", nil)
	case errors.Is(err, clients.ErrNotFound):
		httpx.JSONError(r, w, http.StatusNotFound, "not_found", "Client not found", nil)
	case errors.Is(err, pipelines.ErrNotFound):
		httpx.JSONError(r, w, http.StatusNotFound, "not_found", "Pipeline not found", nil)
	case errors.Is(err, ErrInvalidScope), errors.Is(err, ErrMissingWindowParams), errors.Is(err, ErrConstraint):
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		httpx.JSONError(r, w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}
