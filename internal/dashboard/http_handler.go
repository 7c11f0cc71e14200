package dashboard

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pipehealth/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// FailuresOverTime handles GET /api/v1/dashboard/failures-over-time
func (h *HTTPHandler) FailuresOverTime(w http.ResponseWriter, r *http.Request) {
	since, ok := queryTime(r, w, "since")
	if !ok {
		return
	}
	until, ok := queryTime(r, w, "until")
	if !ok {
		return
	}

	buckets, err := h.service.FailuresOverTime(r.Context(), since, until, r.URL.Query().Get("bucket"))
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, buckets, nil)
}

// LatestStatusByPipeline handles GET /api/v1/dashboard/pipeline-statuses
func (h *HTTPHandler) LatestStatusByPipeline(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.LatestStatusByPipeline(r.Context())
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, statuses, nil)
}

// FailureCountsByClient handles GET /api/v1/dashboard/client-failures
func (h *HTTPHandler) FailureCountsByClient(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.FailureCountsByClient(r.Context())
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, counts, nil)
}

// TopFlakyPipelines handles GET /api/v1/dashboard/flaky-pipelines
func (h *HTTPHandler) TopFlakyPipelines(w http.ResponseWriter, r *http.Request) {
	since, ok := queryTime(r, w, "since")
	if !ok {
		return
	}
	limit, ok := queryInt(r, w, "limit", 100)
	if !ok {
		return
	}

	flaky, err := h.service.TopFlakyPipelines(r.Context(), since, limit)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, flaky, nil)
}

// FailureRateByPlatform handles GET /api/v1/dashboard/platform-failure-rates
func (h *HTTPHandler) FailureRateByPlatform(w http.ResponseWriter, r *http.Request) {
	since, ok := queryTime(r, w, "since")
	if !ok {
		return
	}
	until, ok := queryTime(r, w, "until")
	if !ok {
		return
	}

	rates, err := h.service.FailureRateByPlatform(r.Context(), since, until)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, rates, nil)
}

// RunDurationDistribution handles GET /api/v1/dashboard/run-durations
func (h *HTTPHandler) RunDurationDistribution(w http.ResponseWriter, r *http.Request) {
	since, ok := queryTime(r, w, "since")
	if !ok {
		return
	}
	until, ok := queryTime(r, w, "until")
	if !ok {
		return
	}
	maxDuration, ok := queryInt(r, w, "max_duration_seconds", 86400)
	if !ok {
		return
	}
	bucketCount, ok := queryInt(r, w, "buckets", 100)
	if !ok {
		return
	}

	dist, err := h.service.RunDurationDistribution(r.Context(), since, until, maxDuration, bucketCount)
	if err != nil {
		respondError(r, w, err)
		return
	}
	httpx.JSONSuccess(r, w, dist, nil)
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

func queryInt(r *http.Request, w http.ResponseWriter, name string, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 || parsed > max {
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", "Invalid query parameter",
			[]httpx.ErrorDetail{{Field: name, Message: "must be an integer between 1 and " + strconv.Itoa(max)}})
		return 0, false
	}
	return parsed, true
}

func respondError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidWindow):
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", err.Error(),
			[]httpx.ErrorDetail{{Field: "since", Message: "must be before until"}})
	case errors.Is(err, ErrInvalidBucket):
		httpx.JSONError(r, w, http.StatusBadRequest, "validation_error", err.Error(),
			[]httpx.ErrorDetail{{Field: "bucket", Message: "must be one of minute, hour, day, week"}})
	default:
		httpx.JSONError(r, w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}
