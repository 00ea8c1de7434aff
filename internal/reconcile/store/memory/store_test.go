package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.db = NewDB()
	s.ctx = context.Background()
}

func dob() time.Time {
	return time.Date(1985, 3, 14, 0, 0, 0, 0, time.UTC)
}

func (s *MemoryStoreSuite) newPerson(trn, first, last, nino string) *models.Person {
	now := time.Now()
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

func (s *MemoryStoreSuite) newBatch() *models.Batch {
	return &models.Batch{
		ID:        id.NewBatchID(),
		Feed:      "payroll",
		FileName:  "payroll.csv",
		Status:    models.ImportStatusInProgress,
		StartedAt: time.Now(),
	}
}

// =============================================================================
// Person Store
// =============================================================================

func (s *MemoryStoreSuite) TestPersonTrnUniqueness() {
	persons := s.db.Persons()

	s.Run("rejects a second active holder of a trn", func() {
		s.Require().NoError(persons.Create(s.ctx, s.newPerson("1234567", "Ann", "Lee", "")))
		err := persons.Create(s.ctx, s.newPerson("1234567", "Bob", "Lee", ""))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("allows an active holder alongside a deactivated one", func() {
		old := s.newPerson("7654321", "Cat", "Ray", "")
		old.Status = models.PersonStatusDeactivated
		s.Require().NoError(persons.Create(s.ctx, old))
		s.NoError(persons.Create(s.ctx, s.newPerson("7654321", "Cat", "Ray", "")))
	})

	s.Run("allocates trns that no person holds", func() {
		s.Require().NoError(persons.Create(s.ctx, s.newPerson("3000000", "Dee", "Fox", "")))
		trn, err := persons.NextTrn(s.ctx)
		s.Require().NoError(err)
		s.Equal(id.Trn("3000001"), trn)
	})
}

func (s *MemoryStoreSuite) TestCandidateQueries() {
	persons := s.db.Persons()
	ann := s.newPerson("1111111", "Ann", "Lee", "AB123456C")
	bob := s.newPerson("2222222", "Bob", "Lee", "")
	s.Require().NoError(persons.Create(s.ctx, ann))
	s.Require().NoError(persons.Create(s.ctx, bob))
	s.Require().NoError(persons.Deactivate(s.ctx, bob.ID, time.Now()))

	s.Run("matches nino and date of birth", func() {
		got, err := persons.FindByNationalInsuranceAndDob(s.ctx, "AB123456C", dob())
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(ann.ID, got[0].PersonID)
	})

	s.Run("matches folded names", func() {
		got, err := persons.FindByNameAndDob(s.ctx, id.NameKey("ANN"), id.NameKey(" lee "), dob())
		s.Require().NoError(err)
		s.Len(got, 1)
	})

	s.Run("empty values never match", func() {
		got, err := persons.FindByNationalInsurance(s.ctx, "")
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("reports deactivated holders", func() {
		got, err := persons.FindByTrn(s.ctx, "2222222")
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.True(got[0].Deactivated)
	})
}

// =============================================================================
// Batch Store
// =============================================================================

func (s *MemoryStoreSuite) TestBatchLifecycle() {
	batches := s.db.Batches()
	b := s.newBatch()
	s.Require().NoError(batches.Create(s.ctx, b))

	yes := true
	s.Require().NoError(batches.AppendRow(s.ctx, models.RowOutcome{ID: id.NewRecordID(), BatchID: b.ID, RowNumber: 2, Status: models.RowStatusFailure}))
	s.Require().NoError(batches.AppendRow(s.ctx, models.RowOutcome{ID: id.NewRecordID(), BatchID: b.ID, RowNumber: 1, Status: models.RowStatusSuccess, Duplicate: &yes}))

	got, err := batches.FindByID(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(2, got.TotalCount)
	s.Equal(1, got.SuccessCount)
	s.Equal(1, got.FailureCount)
	s.Equal(1, got.DuplicateCount)

	rows, err := batches.ListRows(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(1, rows[0].RowNumber)

	s.Require().NoError(batches.Seal(s.ctx, b.ID, models.ImportStatusSuccess, time.Now()))

	s.Run("a sealed batch rejects rows and second seals", func() {
		err := batches.AppendRow(s.ctx, models.RowOutcome{BatchID: b.ID, Status: models.RowStatusSuccess})
		s.ErrorIs(err, sentinel.ErrInvalidState)
		err = batches.Seal(s.ctx, b.ID, models.ImportStatusFailed, time.Now())
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("unknown batch is not found", func() {
		_, err := batches.FindByID(s.ctx, id.NewBatchID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// =============================================================================
// Transactions
// =============================================================================

func (s *MemoryStoreSuite) TestRunInTx() {
	persons := s.db.Persons()
	batches := s.db.Batches()
	b := s.newBatch()
	s.Require().NoError(batches.Create(s.ctx, b))

	s.Run("failed unit leaves no trace", func() {
		p := s.newPerson("", "Eve", "Moss", "")
		boom := errors.New("boom")
		err := s.db.RunInTx(s.ctx, func(ctx context.Context) error {
			s.Require().NoError(persons.Create(ctx, p))
			s.Require().NoError(batches.AppendRow(ctx, models.RowOutcome{BatchID: b.ID, Status: models.RowStatusSuccess}))
			return boom
		})
		s.ErrorIs(err, boom)

		_, err = persons.FindByID(s.ctx, p.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		got, err := batches.FindByID(s.ctx, b.ID)
		s.Require().NoError(err)
		s.Equal(0, got.TotalCount)
	})

	s.Run("nested unit joins the outer one", func() {
		p := s.newPerson("", "Fay", "Moss", "")
		err := s.db.RunInTx(s.ctx, func(ctx context.Context) error {
			return s.db.RunInTx(ctx, func(ctx context.Context) error {
				return persons.Create(ctx, p)
			})
		})
		s.Require().NoError(err)
		_, err = persons.FindByID(s.ctx, p.ID)
		s.NoError(err)
	})

	s.Run("cancelled context opens no unit", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		called := false
		err := s.db.RunInTx(ctx, func(context.Context) error {
			called = true
			return nil
		})
		s.ErrorIs(err, context.Canceled)
		s.False(called)
	})
}

// =============================================================================
// Watermarks and Outbox
// =============================================================================

func (s *MemoryStoreSuite) TestWatermarksAndOutbox() {
	marks := s.db.Watermarks()
	got, err := marks.Get(s.ctx, "payroll")
	s.Require().NoError(err)
	s.True(got.IsZero())

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.Require().NoError(marks.Set(s.ctx, models.Watermark{Job: "payroll", Value: at}))
	got, err = marks.Get(s.ctx, "payroll")
	s.Require().NoError(err)
	s.Equal(at, got)

	outbox := s.db.Outbox()
	entry := models.OutboxEntry{EventType: models.EventBatchSealed}
	entry.ID[0] = 1
	s.Require().NoError(outbox.Append(s.ctx, entry))
	pending, err := outbox.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(pending, 1)
}
