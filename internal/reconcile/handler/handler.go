// Package handler serves batch results over HTTP for support dashboards.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/httputil"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/requestcontext"
)

// Results loads one batch with its row outcomes.
type Results interface {
	Batch(ctx context.Context, batchID id.BatchID) (*models.Batch, []models.RowOutcome, error)
}

type BatchLister interface {
	List(ctx context.Context, feed string, limit int) ([]models.Batch, error)
}

type TaskLister interface {
	ListByBatch(ctx context.Context, batchID id.BatchID) ([]models.SupportTask, error)
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Handler struct {
	results Results
	batches BatchLister
	tasks   TaskLister
	logger  *slog.Logger
}

func New(results Results, batches BatchLister, tasks TaskLister, logger *slog.Logger) *Handler {
	return &Handler{
		results: results,
		batches: batches,
		tasks:   tasks,
		logger:  logger,
	}
}

// Register mounts batch endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/batches", h.HandleList)
	r.Get("/batches/{id}", h.HandleGet)
	r.Get("/batches/{id}/records", h.HandleRecords)
	r.Get("/batches/{id}/support-tasks", h.HandleSupportTasks)
}

// HandleList handles GET /batches?feed=&limit=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	batches, err := h.batches.List(ctx, r.URL.Query().Get("feed"), limit)
	if err != nil {
		h.fail(ctx, w, "list batches failed", err)
		return
	}
	out := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		out = append(out, FromBatch(&batches[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, BatchListResponse{Batches: out})
}

// HandleGet handles GET /batches/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchID, err := id.ParseBatchID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	batch, _, err := h.results.Batch(ctx, batchID)
	if err != nil {
		h.fail(ctx, w, "load batch failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBatch(batch))
}

// HandleRecords handles GET /batches/{id}/records?status=success|failure.
func (h *Handler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchID, err := id.ParseBatchID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := models.RowStatus(r.URL.Query().Get("status"))
	if status != "" && status != models.RowStatusSuccess && status != models.RowStatusFailure {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "status must be success or failure"))
		return
	}
	_, rows, err := h.results.Batch(ctx, batchID)
	if err != nil {
		h.fail(ctx, w, "load batch records failed", err)
		return
	}
	out := make([]RecordResponse, 0, len(rows))
	for _, row := range rows {
		if status != "" && row.Status != status {
			continue
		}
		out = append(out, FromRow(row))
	}
	httputil.WriteJSON(w, http.StatusOK, RecordListResponse{BatchID: batchID.String(), Records: out})
}

// HandleSupportTasks handles GET /batches/{id}/support-tasks.
func (h *Handler) HandleSupportTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchID, err := id.ParseBatchID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, _, err := h.results.Batch(ctx, batchID); err != nil {
		h.fail(ctx, w, "load batch failed", err)
		return
	}
	tasks, err := h.tasks.ListByBatch(ctx, batchID)
	if err != nil {
		h.fail(ctx, w, "list support tasks failed", dErrors.Wrap(err, dErrors.CodeInternal, "failed to list support tasks"))
		return
	}
	out := make([]SupportTaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, FromTask(t))
	}
	httputil.WriteJSON(w, http.StatusOK, SupportTaskListResponse{BatchID: batchID.String(), Tasks: out})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.GetCode(err) != dErrors.CodeNotFound {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
	}
	return min(n, maxListLimit), nil
}
