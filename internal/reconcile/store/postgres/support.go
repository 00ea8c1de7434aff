package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	pg "github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/postgres"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	txcontext "github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/tx"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func (s *TaskStore) Create(ctx context.Context, task *models.SupportTask) error {
	candidates := make([]string, 0, len(task.Candidates))
	for _, c := range task.Candidates {
		candidates = append(candidates, c.String())
	}
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, `
		INSERT INTO support_tasks (id, task_type, integration_transaction_id, row_number, candidates, reason, created_at)
		VALUES ($1, $2, $3, $4, $5::uuid[], $6, $7)
	`,
		uuid.UUID(task.ID),
		string(task.Type),
		uuid.UUID(task.BatchID),
		task.RowNumber,
		pq.Array(candidates),
		task.Reason,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert support task %s: %w", task.ID, pg.Classify(err))
	}
	return nil
}

func (s *TaskStore) ListByBatch(ctx context.Context, batchID id.BatchID) ([]models.SupportTask, error) {
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, `
		SELECT id, task_type, integration_transaction_id, row_number, candidates::text, reason, created_at
		FROM support_tasks
		WHERE integration_transaction_id = $1
		ORDER BY row_number, created_at
	`, uuid.UUID(batchID))
	if err != nil {
		return nil, fmt.Errorf("query support tasks of batch %s: %w", batchID, pg.Classify(err))
	}
	defer rows.Close()

	var out []models.SupportTask
	for rows.Next() {
		var (
			t          models.SupportTask
			taskID     uuid.UUID
			bID        uuid.UUID
			taskType   string
			candidates pq.StringArray
		)
		if err := rows.Scan(&taskID, &taskType, &bID, &t.RowNumber, &candidates, &t.Reason, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan support task: %w", err)
		}
		t.ID = id.TaskID(taskID)
		t.Type = models.SupportTaskType(taskType)
		t.BatchID = id.BatchID(bID)
		for _, c := range candidates {
			pid, err := id.ParsePersonID(c)
			if err != nil {
				return nil, fmt.Errorf("support task %s candidate: %w", t.ID, err)
			}
			t.Candidates = append(t.Candidates, pid)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate support tasks: %w", pg.Classify(err))
	}
	return out, nil
}

// WatermarkStore keeps per-job watermarks in job_metadata.
type WatermarkStore struct {
	db *sql.DB
}

func NewWatermarkStore(db *sql.DB) *WatermarkStore {
	return &WatermarkStore{db: db}
}

// Get returns the zero time for a job that has never completed a run.
func (s *WatermarkStore) Get(ctx context.Context, job string) (time.Time, error) {
	var at time.Time
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT last_run_at FROM job_metadata WHERE job = $1`, job).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get watermark %s: %w", job, pg.Classify(err))
	}
	return at, nil
}

func (s *WatermarkStore) Set(ctx context.Context, mark models.Watermark) error {
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, `
		INSERT INTO job_metadata (job, last_run_at, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job) DO UPDATE SET
			last_run_at = EXCLUDED.last_run_at,
			updated_at = EXCLUDED.updated_at
	`, mark.Job, mark.Value, mark.UpdatedAt)
	if err != nil {
		return fmt.Errorf("set watermark %s: %w", mark.Job, pg.Classify(err))
	}
	return nil
}

// OutboxStore is the transactional outbox. Entries are appended in the same
// transaction as the change they describe and relayed later.
type OutboxStore struct {
	db *sql.DB
}

func NewOutboxStore(db *sql.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

func (s *OutboxStore) Append(ctx context.Context, entry models.OutboxEntry) error {
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		entry.ID,
		entry.AggregateType,
		entry.AggregateID,
		entry.EventType,
		entry.Payload,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", pg.Classify(err))
	}
	return nil
}

// FetchUnpublished returns up to limit unpublished entries, oldest first.
// Inside a transaction the rows stay locked so concurrent relays skip them.
func (s *OutboxStore) FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxEntry, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
	`
	if _, inTx := txcontext.From(ctx); inTx {
		query += ` FOR UPDATE SKIP LOCKED`
	}
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", pg.Classify(err))
	}
	defer rows.Close()

	var out []models.OutboxEntry
	for rows.Next() {
		var e models.OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", pg.Classify(err))
	}
	return out, nil
}

func (s *OutboxStore) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	values := make([]string, 0, len(ids))
	for _, i := range ids {
		values = append(values, i.String())
	}
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, `
		UPDATE outbox SET published_at = $2
		WHERE id = ANY($1::uuid[]) AND published_at IS NULL
	`, pq.Array(values), at)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", pg.Classify(err))
	}
	return nil
}
