package ingestion

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"pipehealth/internal/httpx"
	"pipehealth/internal/partner"
	"pipehealth/internal/pipelines"
	"pipehealth/internal/runs"
)

// HTTPHandler exposes the synchronous ingestion trigger. Each request runs
// one full sync pass inside a single transaction so a mid-pass failure
// leaves no partial writes behind.
type HTTPHandler struct {
	pool   *pgxpool.Pool
	client PageFetcher
}

func NewHTTPHandler(pool *pgxpool.Pool, client PageFetcher) *HTTPHandler {
	return &HTTPHandler{pool: pool, client: client}
}

// Sync handles POST /api/v1/ingestion/runs/sync
func (h *HTTPHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tx, err := h.pool.Begin(ctx)
	if err != nil {
		log.Printf("ingestion: begin transaction: %v", err)
		httpx.JSONError(r, w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}
	defer tx.Rollback(context.WithoutCancel(ctx))

	service := NewService(pipelines.NewPostgresRepo(tx), runs.NewPostgresRepo(tx))
	result, err := service.Sync(ctx, h.client)
	if err != nil {
		respondError(r, w, err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("ingestion: commit transaction: %v", err)
		httpx.JSONError(r, w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
		return
	}

	log.Printf("ingestion: sync complete pipelines=%d pages=%d runs=%d request_id=%s",
		result.PipelinesProcessed, result.PagesProcessed, result.RunsProcessed, httpx.RequestIDFrom(r))
	httpx.JSONSuccess(r, w, result, nil)
}

func respondError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, partner.ErrRequest), errors.Is(err, partner.ErrResponse):
		log.Printf("ingestion: partner error: %v", err)
		httpx.JSONError(r, w, http.StatusBadGateway, "upstream_error", err.Error(), nil)
	case errors.Is(err, ErrMapping):
		log.Printf("ingestion: mapping error: %v", err)
		httpx.JSONError(r, w, http.StatusUnprocessableEntity, "mapping_error", err.Error(), nil)
	default:
		log.Printf("ingestion: sync failed: %v", err)
		httpx.JSONError(r, w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}
