// Package service reconciles streams of incoming person records against the
// canonical person store, one isolated unit of work per row.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/metrics"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/pii"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/requestcontext"
)

// Orchestrator drives rows from a source through validate, match, act and
// record. One row's failure never stops the batch; infrastructure failures
// do.
type Orchestrator struct {
	matcher  Matcher
	recorder *Recorder
	tx       TxRunner
	tasks    SupportTaskStore
	outbox   Outbox
	hasher   *pii.Hasher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithSupportTasks persists review tasks raised for duplicate rows.
func WithSupportTasks(store SupportTaskStore) Option {
	return func(o *Orchestrator) {
		o.tasks = store
	}
}

// WithTaskEvents writes a support_task_raised outbox event per raised task.
func WithTaskEvents(outbox Outbox) Option {
	return func(o *Orchestrator) {
		o.outbox = outbox
	}
}

// WithPIIHasher adds a keyed NINO digest to task events so consumers can
// correlate rows without seeing the number.
func WithPIIHasher(h *pii.Hasher) Option {
	return func(o *Orchestrator) {
		o.hasher = h
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

func New(matcher Matcher, recorder *Recorder, tx TxRunner, opts ...Option) (*Orchestrator, error) {
	if matcher == nil {
		return nil, fmt.Errorf("matcher is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	o := &Orchestrator{
		matcher:  matcher,
		recorder: recorder,
		tx:       tx,
		tracer:   otel.Tracer("reconcile/service"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunRequest describes one batch run: one feed job against one file.
type RunRequest struct {
	Feed     Feed
	FileName string
	Source   RowSource
	// Watermark, when set, is persisted with the seal of a completed run.
	Watermark *models.Watermark
}

func (r RunRequest) validate() error {
	if r.Feed.Name() == "" {
		return dErrors.New(dErrors.CodeBadRequest, "feed name is required")
	}
	if r.Feed.Validator == nil || r.Feed.Action == nil {
		return dErrors.New(dErrors.CodeBadRequest, "feed validator and domain action are required")
	}
	if r.Source == nil {
		return dErrors.New(dErrors.CodeBadRequest, "row source is required")
	}
	return nil
}

// Run processes every row of req.Source and seals the batch.
//
// The sealed batch is returned whenever sealing succeeded. A cancelled run is
// sealed Cancelled and returns no error. A stream read failure or an
// infrastructure failure seals the batch Failed (best effort) and returns the
// error alongside it.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*models.Batch, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	batch, err := o.recorder.BeginBatch(ctx, req.Feed.Name(), req.FileName)
	if err != nil {
		return nil, err
	}
	ctx = requestcontext.WithBatch(ctx, batch.ID, req.Feed.Name())
	ctx, span := o.tracer.Start(ctx, "reconcile.Run", trace.WithAttributes(
		attribute.String("batch_id", batch.ID.String()),
		attribute.String("feed", req.Feed.Name()),
		attribute.String("file", req.FileName),
	))
	defer span.End()

	reason, runErr := o.stream(ctx, batch, req)

	seal := models.Seal{Reason: reason}
	if reason == models.SealCompleted {
		seal.Watermark = req.Watermark
	}
	sealed, sealErr := o.recorder.SealBatch(context.WithoutCancel(ctx), batch.ID, seal)
	if sealErr != nil {
		o.logWarn(ctx, "batch seal failed", "batch_id", batch.ID, "reason", reason, "error", sealErr)
		if runErr == nil {
			runErr = sealErr
		}
	}
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, string(reason))
		return sealed, runErr
	}
	span.SetAttributes(attribute.String("status", string(sealed.Status)), attribute.Int("total", sealed.TotalCount))
	return sealed, nil
}

func (o *Orchestrator) stream(ctx context.Context, batch *models.Batch, req RunRequest) (models.SealReason, error) {
	position := 0
	for {
		if ctx.Err() != nil {
			o.logInfo(ctx, "batch cancelled", "batch_id", batch.ID, "rows", position)
			return models.SealCancelled, nil
		}
		rec, err := req.Source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return models.SealCompleted, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return models.SealCancelled, nil
			}
			o.logWarn(ctx, "row stream failed", "batch_id", batch.ID, "after_row", position, "error", err)
			return models.SealStreamFailed, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("read rows of %s", req.FileName))
		}
		position++
		if rec.RowNumber == 0 {
			rec.RowNumber = position
		}
		if err := o.processRow(ctx, batch, req.Feed, rec); err != nil {
			if ctx.Err() != nil {
				o.logInfo(ctx, "batch cancelled mid-row", "batch_id", batch.ID, "row", rec.RowNumber)
				return models.SealCancelled, nil
			}
			o.logWarn(ctx, "batch aborted", "batch_id", batch.ID, "row", rec.RowNumber, "error", err)
			return models.SealPersistenceFailed, err
		}
	}
}

// actionFailure marks a domain-action error so the row's unit rolls back and
// the row is then recorded as a Failure on its own.
type actionFailure struct {
	err       error
	duplicate *bool
}

func (e *actionFailure) Error() string { return e.err.Error() }
func (e *actionFailure) Unwrap() error { return e.err }

// processRow returns only errors that must abort the run.
func (o *Orchestrator) processRow(ctx context.Context, batch *models.Batch, feed Feed, rec models.IncomingRecord) error {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "reconcile.Row", trace.WithAttributes(attribute.Int("row", rec.RowNumber)))
	defer span.End()

	r := newRow(rec)

	if problems := validate(feed.Validator, rec); len(problems) > 0 {
		r.reject(nil, problems...)
		return o.recordAlone(ctx, batch, feed, r, start)
	}
	r.advance(rowValidated)

	res, err := o.matcher.Evaluate(ctx, rec)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeDeactivated) {
			r.reject(nil, dErrors.Message(err))
			return o.recordAlone(ctx, batch, feed, r, start)
		}
		span.RecordError(err)
		return err
	}
	r.advance(rowMatched)
	span.SetAttributes(attribute.String("outcome", string(res.Outcome)))

	if res.Outcome == models.NoMatches {
		missing, err := missingCreateFields(feed.Action, rec)
		if err != nil {
			r.reject(nil, err.Error())
			return o.recordAlone(ctx, batch, feed, r, start)
		}
		if len(missing) > 0 {
			r.reject(nil, missingFieldsMessage(missing))
			return o.recordAlone(ctx, batch, feed, r, start)
		}
	}

	err = o.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := o.act(ctx, batch, feed, r, res); err != nil {
			return err
		}
		return o.persist(ctx, batch, r)
	})
	if err == nil {
		o.observe(feed, r, start)
		return nil
	}

	var failure *actionFailure
	if !errors.As(err, &failure) || IsInfrastructure(failure.err) {
		span.RecordError(err)
		return err
	}
	o.logInfo(ctx, "domain action failed", "batch_id", batch.ID, "row", rec.RowNumber, "error", failure.err)
	retry := newRow(rec)
	retry.state = rowMatched
	retry.fail(failure.duplicate, failure.err.Error())
	return o.recordAlone(ctx, batch, feed, retry, start)
}

// act applies the match outcome through the feed's domain action. Only
// actionFailure errors come from the action itself.
func (o *Orchestrator) act(ctx context.Context, batch *models.Batch, feed Feed, r *row, res models.MatchResult) (err error) {
	var duplicate *bool
	defer func() {
		if p := recover(); p != nil {
			err = &actionFailure{err: fmt.Errorf("domain action panicked: %v", p), duplicate: duplicate}
		}
	}()

	switch res.Outcome {
	case models.NoMatches:
		duplicate = boolPtr(false)
		personID, warnings, err := feed.Action.Create(ctx, r.rec)
		if err != nil {
			return &actionFailure{err: err, duplicate: duplicate}
		}
		r.succeed(&personID, false, warnings)

	case models.DefiniteMatch:
		personID, _ := res.Single()
		flagged := !res.Explicit && feed.Policy.FlagInferredMatches
		duplicate = boolPtr(flagged)
		warnings, err := feed.Action.Update(ctx, personID, r.rec)
		if err != nil {
			return &actionFailure{err: err, duplicate: duplicate}
		}
		r.succeed(&personID, flagged, warnings)
		if flagged {
			r.task = newSupportTask(batch, r.rec, res, "record matched an existing person by inferred criteria")
		}

	case models.PotentialMatches:
		duplicate = boolPtr(true)
		if feed.Policy.OnPotentialMatches == models.RequireUnique {
			r.fail(duplicate, potentialMatchesMessage(len(res.Matches)))
			return nil
		}
		r.succeed(nil, true, nil)
		r.task = newSupportTask(batch, r.rec, res, fmt.Sprintf("record matches %d existing persons", len(res.Matches)))

	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown match outcome "+string(res.Outcome))
	}
	return nil
}

// persist writes the row's task and outcome into the caller's unit.
func (o *Orchestrator) persist(ctx context.Context, batch *models.Batch, r *row) error {
	if r.task != nil && o.tasks != nil {
		if err := o.tasks.Create(ctx, r.task); err != nil {
			return dErrors.Wrap(err, codeFor(err), "failed to raise support task")
		}
		if o.outbox != nil {
			entry, err := taskEvent(r.task, o.hasher.Hash(r.rec.NINO()))
			if err != nil {
				return err
			}
			if err := o.outbox.Append(ctx, entry); err != nil {
				return dErrors.Wrap(err, codeFor(err), "failed to append task event")
			}
		}
	}
	if err := o.recorder.RecordRow(ctx, batch.ID, r.outcome); err != nil {
		return err
	}
	r.advance(rowRecorded)
	return nil
}

func (o *Orchestrator) recordAlone(ctx context.Context, batch *models.Batch, feed Feed, r *row, start time.Time) error {
	if err := o.recorder.RecordRow(ctx, batch.ID, r.outcome); err != nil {
		return err
	}
	r.advance(rowRecorded)
	o.observe(feed, r, start)
	return nil
}

func (o *Orchestrator) observe(feed Feed, r *row, start time.Time) {
	if o.metrics == nil {
		return
	}
	o.metrics.IncrementRow(feed.Name(), string(r.outcome.Status), r.outcome.IsDuplicate())
	o.metrics.ObserveRow(start)
}

func validate(v RowValidator, rec models.IncomingRecord) (problems []string) {
	defer func() {
		if p := recover(); p != nil {
			problems = []string{fmt.Sprintf("validator panicked: %v", p)}
		}
	}()
	return v.Validate(rec)
}

func missingCreateFields(a DomainAction, rec models.IncomingRecord) (missing []string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("domain action panicked: %v", p)
		}
	}()
	return a.MissingCreateFields(rec), nil
}

func newSupportTask(batch *models.Batch, rec models.IncomingRecord, res models.MatchResult, reason string) *models.SupportTask {
	return &models.SupportTask{
		ID:         id.NewTaskID(),
		Type:       models.SupportTaskPotentialDuplicate,
		BatchID:    batch.ID,
		RowNumber:  rec.RowNumber,
		Candidates: res.PersonIDs(),
		Reason:     reason,
		CreatedAt:  time.Now(),
	}
}

type taskRaisedPayload struct {
	TaskID     string   `json:"task_id"`
	Type       string   `json:"type"`
	BatchID    string   `json:"batch_id"`
	RowNumber  int      `json:"row_number"`
	Candidates []string `json:"candidates"`
	Reason     string   `json:"reason"`
	NINOHash   string   `json:"nino_hash,omitempty"`
}

func taskEvent(task *models.SupportTask, ninoHash string) (models.OutboxEntry, error) {
	candidates := make([]string, 0, len(task.Candidates))
	for _, c := range task.Candidates {
		candidates = append(candidates, c.String())
	}
	body, err := json.Marshal(taskRaisedPayload{
		TaskID:     task.ID.String(),
		Type:       string(task.Type),
		BatchID:    task.BatchID.String(),
		RowNumber:  task.RowNumber,
		Candidates: candidates,
		Reason:     task.Reason,
		NINOHash:   ninoHash,
	})
	if err != nil {
		return models.OutboxEntry{}, fmt.Errorf("marshal support task payload: %w", err)
	}
	return models.OutboxEntry{
		ID:            uuid.New(),
		AggregateType: "support_task",
		AggregateID:   task.ID.String(),
		EventType:     models.EventSupportTaskRaised,
		Payload:       body,
		CreatedAt:     task.CreatedAt,
	}, nil
}

func (o *Orchestrator) logInfo(ctx context.Context, msg string, args ...any) {
	if o.logger == nil {
		return
	}
	o.logger.InfoContext(ctx, msg, args...)
}

func (o *Orchestrator) logWarn(ctx context.Context, msg string, args ...any) {
	if o.logger == nil {
		return
	}
	o.logger.WarnContext(ctx, msg, args...)
}
