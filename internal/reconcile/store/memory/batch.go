package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/sentinel"
)

type BatchStore struct {
	db *DB
}

func (s *BatchStore) Create(ctx context.Context, batch *models.Batch) error {
	defer s.db.lock(ctx)()
	if _, exists := s.db.batches[batch.ID]; exists {
		return fmt.Errorf("batch %s: %w", batch.ID, sentinel.ErrConflict)
	}
	s.db.batches[batch.ID] = *batch
	s.db.batchOrder = append(s.db.batchOrder, batch.ID)
	return nil
}

func (s *BatchStore) FindByID(ctx context.Context, batchID id.BatchID) (*models.Batch, error) {
	defer s.db.lock(ctx)()
	b, ok := s.db.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", batchID, sentinel.ErrNotFound)
	}
	return &b, nil
}

// List returns the most recent batches first.
func (s *BatchStore) List(ctx context.Context, feed string, limit int) ([]models.Batch, error) {
	defer s.db.lock(ctx)()
	var out []models.Batch
	for i := len(s.db.batchOrder) - 1; i >= 0; i-- {
		b := s.db.batches[s.db.batchOrder[i]]
		if feed != "" && b.Feed != feed {
			continue
		}
		out = append(out, b)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *BatchStore) AppendRow(ctx context.Context, outcome models.RowOutcome) error {
	defer s.db.lock(ctx)()
	b, ok := s.db.batches[outcome.BatchID]
	if !ok {
		return fmt.Errorf("batch %s: %w", outcome.BatchID, sentinel.ErrNotFound)
	}
	if b.Status.IsSealed() {
		return fmt.Errorf("batch %s is %s: %w", b.ID, b.Status, sentinel.ErrInvalidState)
	}
	b.Apply(outcome)
	s.db.batches[b.ID] = b
	s.db.rows[b.ID] = append(s.db.rows[b.ID], outcome)
	return nil
}

func (s *BatchStore) Seal(ctx context.Context, batchID id.BatchID, status models.ImportStatus, sealedAt time.Time) error {
	defer s.db.lock(ctx)()
	b, ok := s.db.batches[batchID]
	if !ok {
		return fmt.Errorf("batch %s: %w", batchID, sentinel.ErrNotFound)
	}
	if b.Status.IsSealed() {
		return fmt.Errorf("batch %s is %s: %w", b.ID, b.Status, sentinel.ErrInvalidState)
	}
	b.Status = status
	b.SealedAt = &sealedAt
	s.db.batches[batchID] = b
	return nil
}

// ListRows returns the batch's row outcomes ordered by row number.
func (s *BatchStore) ListRows(ctx context.Context, batchID id.BatchID) ([]models.RowOutcome, error) {
	defer s.db.lock(ctx)()
	if _, ok := s.db.batches[batchID]; !ok {
		return nil, fmt.Errorf("batch %s: %w", batchID, sentinel.ErrNotFound)
	}
	rows := append([]models.RowOutcome(nil), s.db.rows[batchID]...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].RowNumber < rows[j].RowNumber })
	return rows, nil
}
