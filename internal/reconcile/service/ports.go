package service

import (
	"context"
	"time"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
)

// TxRunner runs fn as one atomic unit. The context passed to fn carries the
// transaction; stores called with it join the unit. A nested call joins the
// outer unit instead of opening a new one.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Matcher classifies an incoming record against existing persons.
type Matcher interface {
	Evaluate(ctx context.Context, rec models.IncomingRecord) (models.MatchResult, error)
}

// RowValidator checks one record before matching. An empty result means the
// record is valid. Implementations must be deterministic and side-effect free.
type RowValidator interface {
	Validate(rec models.IncomingRecord) []string
}

// DomainAction applies a reconciled record to the person store. Warnings are
// advisory and do not fail the row.
type DomainAction interface {
	// MissingCreateFields names the identity fields a record lacks for a new
	// person to be created. Empty means Create may be called.
	MissingCreateFields(rec models.IncomingRecord) []string
	Create(ctx context.Context, rec models.IncomingRecord) (id.PersonID, []string, error)
	Update(ctx context.Context, personID id.PersonID, rec models.IncomingRecord) ([]string, error)
}

// RowSource yields records in file order and returns io.EOF once exhausted.
type RowSource interface {
	Next(ctx context.Context) (models.IncomingRecord, error)
}

// BatchStore persists batches and their row outcomes.
type BatchStore interface {
	Create(ctx context.Context, batch *models.Batch) error
	FindByID(ctx context.Context, batchID id.BatchID) (*models.Batch, error)
	// AppendRow inserts outcome and applies it to the batch counters in one
	// step. It returns sentinel.ErrInvalidState once the batch is sealed.
	AppendRow(ctx context.Context, outcome models.RowOutcome) error
	// Seal sets the final status. It returns sentinel.ErrInvalidState when
	// the batch is already sealed.
	Seal(ctx context.Context, batchID id.BatchID, status models.ImportStatus, sealedAt time.Time) error
	ListRows(ctx context.Context, batchID id.BatchID) ([]models.RowOutcome, error)
}

type SupportTaskStore interface {
	Create(ctx context.Context, task *models.SupportTask) error
}

type WatermarkStore interface {
	Get(ctx context.Context, job string) (time.Time, error)
	Set(ctx context.Context, mark models.Watermark) error
}

type Outbox interface {
	Append(ctx context.Context, entry models.OutboxEntry) error
}

// Feed bundles the per-feed strategies the orchestrator consults.
type Feed struct {
	Policy    models.FeedPolicy
	Validator RowValidator
	Action    DomainAction
}

// Name returns the feed's job name.
func (f Feed) Name() string {
	return f.Policy.Feed
}
