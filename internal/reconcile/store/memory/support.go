package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/sentinel"
)

type TaskStore struct {
	db *DB
}

func (s *TaskStore) Create(ctx context.Context, task *models.SupportTask) error {
	defer s.db.lock(ctx)()
	for _, t := range s.db.tasks {
		if t.ID == task.ID {
			return fmt.Errorf("support task %s: %w", task.ID, sentinel.ErrConflict)
		}
	}
	s.db.tasks = append(s.db.tasks, *task)
	return nil
}

func (s *TaskStore) ListByBatch(ctx context.Context, batchID id.BatchID) ([]models.SupportTask, error) {
	defer s.db.lock(ctx)()
	var out []models.SupportTask
	for _, t := range s.db.tasks {
		if t.BatchID == batchID {
			out = append(out, t)
		}
	}
	return out, nil
}

type WatermarkStore struct {
	db *DB
}

// Get returns the zero time for a job that has never completed a run.
func (s *WatermarkStore) Get(ctx context.Context, job string) (time.Time, error) {
	defer s.db.lock(ctx)()
	return s.db.watermarks[job].Value, nil
}

func (s *WatermarkStore) Set(ctx context.Context, mark models.Watermark) error {
	defer s.db.lock(ctx)()
	s.db.watermarks[mark.Job] = mark
	return nil
}

type OutboxStore struct {
	db *DB
}

func (s *OutboxStore) Append(ctx context.Context, entry models.OutboxEntry) error {
	defer s.db.lock(ctx)()
	s.db.outbox = append(s.db.outbox, entry)
	return nil
}

// FetchUnpublished returns up to limit unpublished entries, oldest first.
func (s *OutboxStore) FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxEntry, error) {
	defer s.db.lock(ctx)()
	var out []models.OutboxEntry
	for _, e := range s.db.outbox {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *OutboxStore) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	defer s.db.lock(ctx)()
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, i := range ids {
		want[i] = struct{}{}
	}
	for i := range s.db.outbox {
		if _, ok := want[s.db.outbox[i].ID]; ok && s.db.outbox[i].PublishedAt == nil {
			published := at
			s.db.outbox[i].PublishedAt = &published
		}
	}
	return nil
}
