// Package jobs schedules feed imports: one batch per pending inbox file,
// oldest first, under a per-feed lease.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/service"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/source"
	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
)

type FeedLookup interface {
	Lookup(name string) (service.Feed, error)
}

type BatchRunner interface {
	Run(ctx context.Context, req service.RunRequest) (*models.Batch, error)
}

type WatermarkReader interface {
	Get(ctx context.Context, job string) (time.Time, error)
}

// ErrLeaseHeld means another runner is importing the feed.
var ErrLeaseHeld = dErrors.New(dErrors.CodeConflict, "import already running for feed")

type Runner struct {
	feeds      FeedLookup
	batches    BatchRunner
	watermarks WatermarkReader
	lease      Lease
	inbox      string
	logger     *slog.Logger
	now        func() time.Time
	csvOpts    []source.CSVOption
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithLease(lease Lease) Option {
	return func(r *Runner) {
		if lease != nil {
			r.lease = lease
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

func WithCSVOptions(opts ...source.CSVOption) Option {
	return func(r *Runner) {
		r.csvOpts = append(r.csvOpts, opts...)
	}
}

// New builds a runner reading <inbox>/<feed>/ for each feed.
func New(feeds FeedLookup, batches BatchRunner, watermarks WatermarkReader, inbox string, opts ...Option) (*Runner, error) {
	if feeds == nil {
		return nil, fmt.Errorf("feed catalogue is required")
	}
	if batches == nil {
		return nil, fmt.Errorf("batch runner is required")
	}
	if watermarks == nil {
		return nil, fmt.Errorf("watermark store is required")
	}
	if inbox == "" {
		return nil, fmt.Errorf("inbox directory is required")
	}
	r := &Runner{
		feeds:      feeds,
		batches:    batches,
		watermarks: watermarks,
		lease:      NewLocalLease(),
		inbox:      inbox,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunFeed imports every pending file of one feed and returns the sealed
// batches in order. It stops on cancellation, loss of the lease, or an
// infrastructure error; the interrupted file is offered again because the
// watermark did not advance.
func (r *Runner) RunFeed(ctx context.Context, name string) ([]*models.Batch, error) {
	feed, err := r.feeds.Lookup(name)
	if err != nil {
		return nil, err
	}
	held, release, ok, err := r.lease.Acquire(ctx, name)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to acquire import lease")
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	defer release()
	sealed, err := r.importPending(held, feed, name)
	// A lost lease cancels the run like a shutdown would, but is reported.
	if cause := context.Cause(held); errors.Is(cause, ErrLeaseLost) {
		r.logWarn(ctx, "import lease lost", "feed", name, "error", cause)
		return sealed, cause
	}
	return sealed, err
}

func (r *Runner) importPending(ctx context.Context, feed service.Feed, name string) ([]*models.Batch, error) {
	mark, err := r.watermarks.Get(ctx, name)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read watermark")
	}
	files, err := source.NewPending(filepath.Join(r.inbox, name), mark).Files()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list pending files")
	}
	r.logInfo(ctx, "import started", "feed", name, "pending_files", len(files), "watermark", mark)

	var sealed []*models.Batch
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		batch, err := r.runFile(ctx, feed, f)
		if batch != nil {
			sealed = append(sealed, batch)
		}
		if err != nil {
			// A malformed file is sealed as failed; later files may still
			// complete and move the watermark past it.
			if batch != nil && dErrors.HasCode(err, dErrors.CodeValidation) {
				r.logWarn(ctx, "file rejected", "feed", name, "file", f.Name, "error", err)
				continue
			}
			return sealed, err
		}
		if batch.Status == models.ImportStatusCancelled {
			break
		}
	}
	return sealed, nil
}

func (r *Runner) runFile(ctx context.Context, feed service.Feed, f source.PendingFile) (*models.Batch, error) {
	var rows service.RowSource
	csv, err := f.Open(r.csvOpts...)
	if err != nil {
		// Unreadable files still get a batch so the failure is visible.
		rows = brokenSource{err: err}
	} else {
		defer csv.Close()
		rows = csv
	}

	batch, err := r.batches.Run(ctx, service.RunRequest{
		Feed:     feed,
		FileName: f.Name,
		Source:   rows,
		Watermark: &models.Watermark{
			Job:       feed.Name(),
			Value:     f.ModTime,
			UpdatedAt: r.now(),
		},
	})
	if batch != nil {
		r.logInfo(ctx, "file imported",
			"feed", feed.Name(),
			"file", f.Name,
			"batch_id", batch.ID,
			"status", batch.Status,
			"total", batch.TotalCount,
			"failures", batch.FailureCount,
		)
	}
	return batch, err
}

// Loop runs every feed on each tick until ctx is cancelled. Feed errors are
// logged and retried on the next tick.
func (r *Runner) Loop(ctx context.Context, feeds []string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		for _, name := range feeds {
			if _, err := r.RunFeed(ctx, name); err != nil {
				r.logWarn(ctx, "feed import failed", "feed", name, "error", err)
			}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Runner) logInfo(ctx context.Context, msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.InfoContext(ctx, msg, args...)
}

func (r *Runner) logWarn(ctx context.Context, msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.WarnContext(ctx, msg, args...)
}

type brokenSource struct {
	err error
}

func (s brokenSource) Next(context.Context) (models.IncomingRecord, error) {
	return models.IncomingRecord{}, s.err
}
