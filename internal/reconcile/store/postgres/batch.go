package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pg "github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/postgres"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/sentinel"
	txcontext "github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/tx"
)

// BatchStore persists integration transactions and their row records.
type BatchStore struct {
	db *sql.DB
}

func NewBatchStore(db *sql.DB) *BatchStore {
	return &BatchStore{db: db}
}

const batchColumns = `id, feed, file_name, status, total_count, success_count,
	failure_count, duplicate_count, started_at, sealed_at`

func (s *BatchStore) Create(ctx context.Context, batch *models.Batch) error {
	query := `
		INSERT INTO integration_transactions (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(batch.ID),
		batch.Feed,
		batch.FileName,
		string(batch.Status),
		batch.TotalCount,
		batch.SuccessCount,
		batch.FailureCount,
		batch.DuplicateCount,
		batch.StartedAt,
		nullTime(batch.SealedAt),
	)
	if err != nil {
		return fmt.Errorf("insert batch %s: %w", batch.ID, pg.Classify(err))
	}
	return nil
}

func (s *BatchStore) FindByID(ctx context.Context, batchID id.BatchID) (*models.Batch, error) {
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM integration_transactions WHERE id = $1`, uuid.UUID(batchID))
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch %s: %w", batchID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find batch %s: %w", batchID, pg.Classify(err))
	}
	return b, nil
}

// List returns the most recent batches first. An empty feed lists all feeds.
func (s *BatchStore) List(ctx context.Context, feed string, limit int) ([]models.Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM integration_transactions
		WHERE ($1 = '' OR feed = $1)
		ORDER BY started_at DESC, id
	`
	args := []any{feed}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", pg.Classify(err))
	}
	defer rows.Close()

	var out []models.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", pg.Classify(err))
	}
	return out, nil
}

// AppendRow bumps the batch counters and inserts the row record. The counter
// update runs first so it takes the batch row lock and refuses sealed
// batches before anything is written.
func (s *BatchStore) AppendRow(ctx context.Context, outcome models.RowOutcome) error {
	exec := txcontext.Resolve(ctx, s.db)

	var success, failure, duplicate int
	if outcome.Status == models.RowStatusSuccess {
		success = 1
	} else {
		failure = 1
	}
	if outcome.IsDuplicate() {
		duplicate = 1
	}
	res, err := exec.ExecContext(ctx, `
		UPDATE integration_transactions SET
			total_count = total_count + 1,
			success_count = success_count + $2,
			failure_count = failure_count + $3,
			duplicate_count = duplicate_count + $4
		WHERE id = $1 AND status = $5
	`, uuid.UUID(outcome.BatchID), success, failure, duplicate, string(models.ImportStatusInProgress))
	if err != nil {
		return fmt.Errorf("update batch counters %s: %w", outcome.BatchID, pg.Classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.notUpdatable(ctx, exec, outcome.BatchID)
	}

	var personID uuid.NullUUID
	if outcome.PersonID != nil {
		personID = uuid.NullUUID{UUID: uuid.UUID(*outcome.PersonID), Valid: true}
	}
	var dup sql.NullBool
	if outcome.Duplicate != nil {
		dup = sql.NullBool{Bool: *outcome.Duplicate, Valid: true}
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO integration_transaction_records (
			id, integration_transaction_id, row_number, person_id,
			raw_data, failure_message, duplicate, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(outcome.ID),
		uuid.UUID(outcome.BatchID),
		outcome.RowNumber,
		personID,
		outcome.RawData,
		outcome.FailureMessage,
		dup,
		string(outcome.Status),
		outcome.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert row %d of batch %s: %w", outcome.RowNumber, outcome.BatchID, pg.Classify(err))
	}
	return nil
}

func (s *BatchStore) Seal(ctx context.Context, batchID id.BatchID, status models.ImportStatus, sealedAt time.Time) error {
	exec := txcontext.Resolve(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE integration_transactions SET status = $2, sealed_at = $3
		WHERE id = $1 AND status = $4
	`, uuid.UUID(batchID), string(status), sealedAt, string(models.ImportStatusInProgress))
	if err != nil {
		return fmt.Errorf("seal batch %s: %w", batchID, pg.Classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.notUpdatable(ctx, exec, batchID)
	}
	return nil
}

// ListRows returns the batch's row outcomes ordered by row number.
func (s *BatchStore) ListRows(ctx context.Context, batchID id.BatchID) ([]models.RowOutcome, error) {
	exec := txcontext.Resolve(ctx, s.db)
	var exists bool
	err := exec.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM integration_transactions WHERE id = $1)`, uuid.UUID(batchID)).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check batch %s: %w", batchID, pg.Classify(err))
	}
	if !exists {
		return nil, fmt.Errorf("batch %s: %w", batchID, sentinel.ErrNotFound)
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT id, integration_transaction_id, row_number, person_id,
			   raw_data, failure_message, duplicate, status, created_at
		FROM integration_transaction_records
		WHERE integration_transaction_id = $1
		ORDER BY row_number
	`, uuid.UUID(batchID))
	if err != nil {
		return nil, fmt.Errorf("query rows of batch %s: %w", batchID, pg.Classify(err))
	}
	defer rows.Close()

	var out []models.RowOutcome
	for rows.Next() {
		var (
			o        models.RowOutcome
			rowID    uuid.UUID
			bID      uuid.UUID
			personID uuid.NullUUID
			dup      sql.NullBool
			status   string
		)
		if err := rows.Scan(&rowID, &bID, &o.RowNumber, &personID,
			&o.RawData, &o.FailureMessage, &dup, &status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		o.ID = id.RecordID(rowID)
		o.BatchID = id.BatchID(bID)
		if personID.Valid {
			pid := id.PersonID(personID.UUID)
			o.PersonID = &pid
		}
		if dup.Valid {
			d := dup.Bool
			o.Duplicate = &d
		}
		o.Status = models.RowStatus(status)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows of batch %s: %w", batchID, pg.Classify(err))
	}
	return out, nil
}

// notUpdatable explains a guarded UPDATE that touched nothing.
func (s *BatchStore) notUpdatable(ctx context.Context, exec txcontext.Executor, batchID id.BatchID) error {
	var status string
	err := exec.QueryRowContext(ctx,
		`SELECT status FROM integration_transactions WHERE id = $1`, uuid.UUID(batchID)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("batch %s: %w", batchID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check batch %s: %w", batchID, pg.Classify(err))
	}
	return fmt.Errorf("batch %s is %s: %w", batchID, status, sentinel.ErrInvalidState)
}

func scanBatch(row scanner) (*models.Batch, error) {
	var (
		b        models.Batch
		batchID  uuid.UUID
		status   string
		sealedAt sql.NullTime
	)
	err := row.Scan(&batchID, &b.Feed, &b.FileName, &status, &b.TotalCount, &b.SuccessCount,
		&b.FailureCount, &b.DuplicateCount, &b.StartedAt, &sealedAt)
	if err != nil {
		return nil, err
	}
	b.ID = id.BatchID(batchID)
	b.Status = models.ImportStatus(status)
	if sealedAt.Valid {
		t := sealedAt.Time
		b.SealedAt = &t
	}
	return &b, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
