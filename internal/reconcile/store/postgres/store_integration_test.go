//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	platformpg "github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/postgres"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/feeds"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/matching"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/service"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/source"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/store/postgres"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/sentinel"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres   *containers.PostgresContainer
	persons    *postgres.PersonStore
	batches    *postgres.BatchStore
	tasks      *postgres.TaskStore
	watermarks *postgres.WatermarkStore
	outbox     *postgres.OutboxStore
	tx         *platformpg.TxRunner
	ctx        context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.persons = postgres.NewPersonStore(s.postgres.DB)
	s.batches = postgres.NewBatchStore(s.postgres.DB)
	s.tasks = postgres.NewTaskStore(s.postgres.DB)
	s.watermarks = postgres.NewWatermarkStore(s.postgres.DB)
	s.outbox = postgres.NewOutboxStore(s.postgres.DB)
	s.tx = platformpg.NewTxRunner(s.postgres.DB, 5*time.Second)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(s.ctx,
		"support_tasks", "integration_transaction_records", "integration_transactions",
		"persons", "job_metadata", "outbox")
	s.Require().NoError(err)
}

func dob() time.Time {
	return time.Date(1985, 3, 14, 0, 0, 0, 0, time.UTC)
}

func newPerson(trn, first, last, nino string) *models.Person {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Person{
		ID:                      id.NewPersonID(),
		Trn:                     id.Trn(trn),
		FirstName:               first,
		LastName:                last,
		DateOfBirth:             dob(),
		NationalInsuranceNumber: nino,
		Status:                  models.PersonStatusActive,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

func newBatch() *models.Batch {
	return &models.Batch{
		ID:        id.NewBatchID(),
		Feed:      feeds.Payroll,
		FileName:  "payroll.csv",
		Status:    models.ImportStatusInProgress,
		StartedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// =============================================================================
// Person Store
// =============================================================================

func (s *PostgresStoreSuite) TestPersonRoundTrip() {
	p := newPerson("1234567", "Ann", "Lee", "AB123456C")
	s.Require().NoError(s.persons.Create(s.ctx, p))

	got, err := s.persons.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.Trn, got.Trn)
	s.Equal("Ann", got.FirstName)
	s.True(dob().Equal(got.DateOfBirth))

	_, err = s.persons.FindByID(s.ctx, id.NewPersonID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.persons.Update(s.ctx, newPerson("", "Nobody", "Here", ""))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestActiveTrnUniqueness() {
	s.Run("second active holder violates the partial index", func() {
		s.Require().NoError(s.persons.Create(s.ctx, newPerson("2000001", "Ann", "Lee", "")))
		err := s.persons.Create(s.ctx, newPerson("2000001", "Bob", "Lee", ""))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("deactivated holders do not block", func() {
		old := newPerson("2000002", "Cat", "Ray", "")
		s.Require().NoError(s.persons.Create(s.ctx, old))
		s.Require().NoError(s.persons.Deactivate(s.ctx, old.ID, time.Now()))
		s.NoError(s.persons.Create(s.ctx, newPerson("2000002", "Cat", "Ray", "")))
	})

	s.Run("concurrent creates with one trn yield one winner", func() {
		const goroutines = 20
		var wg sync.WaitGroup
		var wins, conflicts atomic.Int32
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.persons.Create(s.ctx, newPerson("2000003", "Dee", "Fox", ""))
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, sentinel.ErrConflict):
					conflicts.Add(1)
				}
			}()
		}
		wg.Wait()
		s.Equal(int32(1), wins.Load())
		s.Equal(int32(goroutines-1), conflicts.Load())
	})
}

func (s *PostgresStoreSuite) TestNextTrnSkipsHeldValues() {
	first, err := s.persons.NextTrn(s.ctx)
	s.Require().NoError(err)
	s.Len(first.String(), 7)

	// a feed-supplied TRN that sits where the sequence is heading
	next := id.Trn(incrementTrn(first.String()))
	s.Require().NoError(s.persons.Create(s.ctx, newPerson(next.String(), "Eve", "Gray", "")))

	second, err := s.persons.NextTrn(s.ctx)
	s.Require().NoError(err)
	s.NotEqual(next, second)
}

func incrementTrn(trn string) string {
	b := []byte(trn)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < '9' {
			b[i]++
			break
		}
		b[i] = '0'
	}
	return string(b)
}

func (s *PostgresStoreSuite) TestCandidateQueries() {
	ann := newPerson("3000101", "Ann", "Lee", "AB123456C")
	ann2 := newPerson("", "ANN ", "lee", "")
	gone := newPerson("3000102", "Zed", "Moe", "CD654321A")
	for _, p := range []*models.Person{ann, ann2, gone} {
		s.Require().NoError(s.persons.Create(s.ctx, p))
	}
	s.Require().NoError(s.persons.Deactivate(s.ctx, gone.ID, time.Now()))

	s.Run("nino and dob uses the normalised column", func() {
		got, err := s.persons.FindByNationalInsuranceAndDob(s.ctx, "AB123456C", dob())
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(ann.ID, got[0].PersonID)
	})

	s.Run("name keys fold case and whitespace", func() {
		got, err := s.persons.FindByNameAndDob(s.ctx, id.NameKey("ann"), id.NameKey("LEE"), dob())
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("trn lookup reports deactivated holders", func() {
		got, err := s.persons.FindByTrn(s.ctx, "3000102")
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.True(got[0].Deactivated)
	})

	s.Run("empty keys never match", func() {
		got, err := s.persons.FindByNationalInsurance(s.ctx, "")
		s.Require().NoError(err)
		s.Empty(got)
	})
}

// =============================================================================
// Batch Store
// =============================================================================

func (s *PostgresStoreSuite) TestBatchLifecycle() {
	b := newBatch()
	s.Require().NoError(s.batches.Create(s.ctx, b))

	dup := true
	pid := id.NewPersonID()
	rows := []models.RowOutcome{
		{ID: id.NewRecordID(), BatchID: b.ID, RowNumber: 2, Status: models.RowStatusFailure, FailureMessage: "last_name is required", CreatedAt: time.Now()},
		{ID: id.NewRecordID(), BatchID: b.ID, RowNumber: 1, PersonID: &pid, Duplicate: &dup, Status: models.RowStatusSuccess, RawData: "a,b", CreatedAt: time.Now()},
	}
	for _, r := range rows {
		s.Require().NoError(s.batches.AppendRow(s.ctx, r))
	}

	got, err := s.batches.FindByID(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(2, got.TotalCount)
	s.Equal(1, got.SuccessCount)
	s.Equal(1, got.FailureCount)
	s.Equal(1, got.DuplicateCount)

	listed, err := s.batches.ListRows(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(1, listed[0].RowNumber)
	s.Equal(pid, *listed[0].PersonID)
	s.True(listed[0].IsDuplicate())
	s.Nil(listed[1].Duplicate)
	s.Nil(listed[1].PersonID)

	s.Require().NoError(s.batches.Seal(s.ctx, b.ID, models.ImportStatusSuccess, time.Now()))

	s.Run("sealed batches refuse rows and reseal", func() {
		err := s.batches.AppendRow(s.ctx, models.RowOutcome{
			ID: id.NewRecordID(), BatchID: b.ID, RowNumber: 3, Status: models.RowStatusSuccess, CreatedAt: time.Now(),
		})
		s.ErrorIs(err, sentinel.ErrInvalidState)
		s.ErrorIs(s.batches.Seal(s.ctx, b.ID, models.ImportStatusFailed, time.Now()), sentinel.ErrInvalidState)
	})

	s.Run("unknown batches are not found", func() {
		s.ErrorIs(s.batches.Seal(s.ctx, id.NewBatchID(), models.ImportStatusFailed, time.Now()), sentinel.ErrNotFound)
		_, err := s.batches.ListRows(s.ctx, id.NewBatchID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("list filters by feed", func() {
		other := newBatch()
		other.Feed = feeds.Partner
		s.Require().NoError(s.batches.Create(s.ctx, other))
		got, err := s.batches.List(s.ctx, feeds.Partner, 10)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(other.ID, got[0].ID)
	})
}

// =============================================================================
// Transactions
// =============================================================================

func (s *PostgresStoreSuite) TestTxRunner() {
	s.Run("rolls back every write on error", func() {
		b := newBatch()
		boom := errors.New("boom")
		err := s.tx.RunInTx(s.ctx, func(ctx context.Context) error {
			s.Require().NoError(s.batches.Create(ctx, b))
			s.Require().NoError(s.persons.Create(ctx, newPerson("4000001", "Ian", "Kay", "")))
			return boom
		})
		s.ErrorIs(err, boom)
		_, err = s.batches.FindByID(s.ctx, b.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		got, err := s.persons.FindByTrn(s.ctx, "4000001")
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("nested units join the outer transaction", func() {
		b := newBatch()
		err := s.tx.RunInTx(s.ctx, func(ctx context.Context) error {
			return s.tx.RunInTx(ctx, func(ctx context.Context) error {
				return s.batches.Create(ctx, b)
			})
		})
		s.Require().NoError(err)
		_, err = s.batches.FindByID(s.ctx, b.ID)
		s.NoError(err)
	})

	s.Run("refuses to start with a cancelled context", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		called := false
		err := s.tx.RunInTx(ctx, func(context.Context) error {
			called = true
			return nil
		})
		s.Error(err)
		s.False(called)
	})
}

// =============================================================================
// Support Tasks, Watermarks, Outbox
// =============================================================================

func (s *PostgresStoreSuite) TestSupportTasksWatermarksOutbox() {
	b := newBatch()
	s.Require().NoError(s.batches.Create(s.ctx, b))

	s.Run("support task candidates survive the array round trip", func() {
		task := &models.SupportTask{
			ID:         id.NewTaskID(),
			Type:       models.SupportTaskPotentialDuplicate,
			BatchID:    b.ID,
			RowNumber:  4,
			Candidates: []id.PersonID{id.NewPersonID(), id.NewPersonID()},
			Reason:     "record matches 2 existing persons",
			CreatedAt:  time.Now(),
		}
		s.Require().NoError(s.tasks.Create(s.ctx, task))
		got, err := s.tasks.ListByBatch(s.ctx, b.ID)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(task.Candidates, got[0].Candidates)
	})

	s.Run("watermarks upsert per job", func() {
		at, err := s.watermarks.Get(s.ctx, feeds.Payroll)
		s.Require().NoError(err)
		s.True(at.IsZero())

		first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		second := first.Add(time.Hour)
		s.Require().NoError(s.watermarks.Set(s.ctx, models.Watermark{Job: feeds.Payroll, Value: first, UpdatedAt: time.Now()}))
		s.Require().NoError(s.watermarks.Set(s.ctx, models.Watermark{Job: feeds.Payroll, Value: second, UpdatedAt: time.Now()}))
		at, err = s.watermarks.Get(s.ctx, feeds.Payroll)
		s.Require().NoError(err)
		s.True(second.Equal(at))
	})

	s.Run("outbox relays each entry once", func() {
		for i := 0; i < 3; i++ {
			s.Require().NoError(s.outbox.Append(s.ctx, models.OutboxEntry{
				ID:            uuid.New(),
				AggregateType: "batch",
				AggregateID:   b.ID.String(),
				EventType:     models.EventBatchSealed,
				Payload:       []byte(`{"n":1}`),
				CreatedAt:     time.Now().Add(time.Duration(i) * time.Millisecond),
			}))
		}
		pending, err := s.outbox.FetchUnpublished(s.ctx, 2)
		s.Require().NoError(err)
		s.Require().Len(pending, 2)

		s.Require().NoError(s.outbox.MarkPublished(s.ctx, []uuid.UUID{pending[0].ID, pending[1].ID}, time.Now()))
		rest, err := s.outbox.FetchUnpublished(s.ctx, 10)
		s.Require().NoError(err)
		s.Len(rest, 1)
	})
}

// =============================================================================
// End to end
// =============================================================================

func (s *PostgresStoreSuite) TestPayrollRunAgainstPostgres() {
	existing := newPerson("5000001", "Ann", "Lee", "AB123456C")
	s.Require().NoError(s.persons.Create(s.ctx, existing))

	catalogue, err := feeds.NewCatalogue(s.persons, s.persons)
	s.Require().NoError(err)
	feed, err := catalogue.Lookup(feeds.Payroll)
	s.Require().NoError(err)

	evaluator, err := matching.New(s.persons)
	s.Require().NoError(err)
	recorder, err := service.NewRecorder(s.batches, s.tx,
		service.WithWatermarks(s.watermarks), service.WithOutbox(s.outbox))
	s.Require().NoError(err)
	orchestrator, err := service.New(evaluator, recorder, s.tx,
		service.WithSupportTasks(s.tasks), service.WithTaskEvents(s.outbox))
	s.Require().NoError(err)

	rows := source.NewSlice(
		models.IncomingRecord{Trn: "5000001", LastName: "Lee-Smith", DateOfBirth: dob(), NationalInsuranceNumber: "AB123456C"},
		models.IncomingRecord{FirstName: "New", LastName: "Person", DateOfBirth: dob(), NationalInsuranceNumber: "ZZ999999A"},
		models.IncomingRecord{FirstName: "No", DateOfBirth: dob()},
	)
	mark := models.Watermark{Job: feeds.Payroll, Value: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), UpdatedAt: time.Now()}

	batch, err := orchestrator.Run(s.ctx, service.RunRequest{
		Feed: feed, FileName: "payroll.csv", Source: rows, Watermark: &mark,
	})
	s.Require().NoError(err)
	s.Equal(models.ImportStatusSuccess, batch.Status)
	s.Equal(3, batch.TotalCount)
	s.Equal(2, batch.SuccessCount)
	s.Equal(1, batch.FailureCount)

	updated, err := s.persons.FindByID(s.ctx, existing.ID)
	s.Require().NoError(err)
	s.Equal("Lee-Smith", updated.LastName)

	at, err := s.watermarks.Get(s.ctx, feeds.Payroll)
	s.Require().NoError(err)
	s.True(mark.Value.Equal(at))

	events, err := s.outbox.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(models.EventBatchSealed, events[0].EventType)
}
