package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/metrics"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/sentinel"
)

// Recorder owns the batch aggregate and its append-only row outcomes.
type Recorder struct {
	batches    BatchStore
	tx         TxRunner
	watermarks WatermarkStore
	outbox     Outbox
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

type RecorderOption func(*Recorder)

func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithRecorderMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithWatermarks enables persisting a job watermark when a batch is sealed.
func WithWatermarks(store WatermarkStore) RecorderOption {
	return func(r *Recorder) {
		r.watermarks = store
	}
}

// WithOutbox enables the batch_sealed event written alongside each seal.
func WithOutbox(outbox Outbox) RecorderOption {
	return func(r *Recorder) {
		r.outbox = outbox
	}
}

func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

func NewRecorder(batches BatchStore, tx TxRunner, opts ...RecorderOption) (*Recorder, error) {
	if batches == nil {
		return nil, fmt.Errorf("batch store is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	r := &Recorder{batches: batches, tx: tx, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// BeginBatch opens a new in-progress batch for one file of one feed.
func (r *Recorder) BeginBatch(ctx context.Context, feed, fileName string) (*models.Batch, error) {
	batch := &models.Batch{
		ID:        id.NewBatchID(),
		Feed:      feed,
		FileName:  fileName,
		Status:    models.ImportStatusInProgress,
		StartedAt: r.now(),
	}
	if err := r.batches.Create(ctx, batch); err != nil {
		return nil, dErrors.Wrap(err, codeFor(err), "failed to begin batch")
	}
	r.logInfo(ctx, "batch started", "batch_id", batch.ID, "feed", feed, "file", fileName)
	return batch, nil
}

// RecordRow appends one row outcome and applies it to the batch counters.
// When ctx already carries a transaction the write joins it, so the outcome
// commits together with the row's domain writes.
func (r *Recorder) RecordRow(ctx context.Context, batchID id.BatchID, outcome models.RowOutcome) error {
	if outcome.Status != models.RowStatusSuccess && outcome.Status != models.RowStatusFailure {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("row %d has no final status", outcome.RowNumber))
	}
	if outcome.ID.IsNil() {
		outcome.ID = id.NewRecordID()
	}
	outcome.BatchID = batchID
	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = r.now()
	}
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		return r.batches.AppendRow(ctx, outcome)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return ErrBatchSealed
		}
		return dErrors.Wrap(err, codeFor(err), fmt.Sprintf("failed to record row %d", outcome.RowNumber))
	}
	return nil
}

// SealBatch fixes the batch's final status. The optional watermark and the
// batch_sealed outbox event commit in the same transaction as the seal.
func (r *Recorder) SealBatch(ctx context.Context, batchID id.BatchID, seal models.Seal) (*models.Batch, error) {
	status := seal.Reason.Status()
	sealedAt := r.now()

	var sealed *models.Batch
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := r.batches.Seal(ctx, batchID, status, sealedAt); err != nil {
			return err
		}
		if seal.Watermark != nil && r.watermarks != nil {
			mark := *seal.Watermark
			mark.UpdatedAt = sealedAt
			if err := r.watermarks.Set(ctx, mark); err != nil {
				return err
			}
		}
		batch, err := r.batches.FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if r.outbox != nil {
			entry, err := sealedEvent(batch, seal.Reason)
			if err != nil {
				return err
			}
			if err := r.outbox.Append(ctx, entry); err != nil {
				return err
			}
		}
		sealed = batch
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, ErrBatchSealed
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "batch not found")
		default:
			return nil, dErrors.Wrap(err, codeFor(err), "failed to seal batch")
		}
	}

	if r.metrics != nil {
		r.metrics.IncrementSealed(sealed.Feed, string(sealed.Status))
		r.metrics.ObserveBatch(sealed.StartedAt)
	}
	r.logInfo(ctx, "batch sealed",
		"batch_id", batchID,
		"status", sealed.Status,
		"reason", seal.Reason,
		"total", sealed.TotalCount,
		"success", sealed.SuccessCount,
		"failure", sealed.FailureCount,
		"duplicate", sealed.DuplicateCount,
	)
	return sealed, nil
}

// Batch returns a batch and its row outcomes in row order.
func (r *Recorder) Batch(ctx context.Context, batchID id.BatchID) (*models.Batch, []models.RowOutcome, error) {
	batch, err := r.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "batch not found")
		}
		return nil, nil, dErrors.Wrap(err, codeFor(err), "failed to load batch")
	}
	rows, err := r.batches.ListRows(ctx, batchID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, codeFor(err), "failed to load batch rows")
	}
	return batch, rows, nil
}

type batchSealedPayload struct {
	BatchID        string `json:"batch_id"`
	Feed           string `json:"feed"`
	FileName       string `json:"file_name"`
	Status         string `json:"status"`
	Reason         string `json:"reason"`
	TotalCount     int    `json:"total_count"`
	SuccessCount   int    `json:"success_count"`
	FailureCount   int    `json:"failure_count"`
	DuplicateCount int    `json:"duplicate_count"`
	SealedAt       string `json:"sealed_at"`
}

func sealedEvent(batch *models.Batch, reason models.SealReason) (models.OutboxEntry, error) {
	payload := batchSealedPayload{
		BatchID:        batch.ID.String(),
		Feed:           batch.Feed,
		FileName:       batch.FileName,
		Status:         string(batch.Status),
		Reason:         string(reason),
		TotalCount:     batch.TotalCount,
		SuccessCount:   batch.SuccessCount,
		FailureCount:   batch.FailureCount,
		DuplicateCount: batch.DuplicateCount,
	}
	createdAt := time.Now()
	if batch.SealedAt != nil {
		createdAt = *batch.SealedAt
	}
	payload.SealedAt = createdAt.UTC().Format(time.RFC3339Nano)
	body, err := json.Marshal(payload)
	if err != nil {
		return models.OutboxEntry{}, fmt.Errorf("marshal batch_sealed payload: %w", err)
	}
	return models.OutboxEntry{
		ID:            uuid.New(),
		AggregateType: "batch",
		AggregateID:   batch.ID.String(),
		EventType:     models.EventBatchSealed,
		Payload:       body,
		CreatedAt:     createdAt,
	}, nil
}

// codeFor keeps unavailability visible through wrapping.
func codeFor(err error) dErrors.Code {
	if IsInfrastructure(err) {
		return dErrors.CodeUnavailable
	}
	return dErrors.CodeInternal
}

func (r *Recorder) logInfo(ctx context.Context, msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.InfoContext(ctx, msg, args...)
}
