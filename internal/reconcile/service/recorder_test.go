package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/service/mocks"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/store/memory"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/sentinel"
)

type RecorderSuite struct {
	suite.Suite
	ctx      context.Context
	db       *memory.DB
	recorder *Recorder
	clock    time.Time
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = memory.NewDB()
	s.clock = time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)
	var err error
	s.recorder, err = NewRecorder(s.db.Batches(), s.db,
		WithClock(func() time.Time { return s.clock }),
		WithWatermarks(s.db.Watermarks()),
	)
	s.Require().NoError(err)
}

func (s *RecorderSuite) TestNew() {
	s.Run("nil batch store returns error", func() {
		_, err := NewRecorder(nil, s.db)
		s.Error(err)
		s.Contains(err.Error(), "batch store is required")
	})

	s.Run("nil tx runner returns error", func() {
		_, err := NewRecorder(s.db.Batches(), nil)
		s.Error(err)
		s.Contains(err.Error(), "tx runner is required")
	})
}

func (s *RecorderSuite) TestLifecycle() {
	batch, err := s.recorder.BeginBatch(s.ctx, "payroll", "jan.csv")
	s.Require().NoError(err)
	s.Equal(models.ImportStatusInProgress, batch.Status)
	s.Equal(s.clock, batch.StartedAt)

	yes, no := true, false
	s.Require().NoError(s.recorder.RecordRow(s.ctx, batch.ID, models.RowOutcome{RowNumber: 1, Status: models.RowStatusSuccess, Duplicate: &no}))
	s.Require().NoError(s.recorder.RecordRow(s.ctx, batch.ID, models.RowOutcome{RowNumber: 2, Status: models.RowStatusFailure, Duplicate: &yes}))
	s.Require().NoError(s.recorder.RecordRow(s.ctx, batch.ID, models.RowOutcome{RowNumber: 3, Status: models.RowStatusSuccess, Duplicate: &yes}))

	s.Run("row without a final status is rejected", func() {
		err := s.recorder.RecordRow(s.ctx, batch.ID, models.RowOutcome{RowNumber: 4})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	mark := models.Watermark{Job: "payroll", Value: s.clock.Add(-time.Hour)}
	sealed, err := s.recorder.SealBatch(s.ctx, batch.ID, models.Seal{Reason: models.SealCompleted, Watermark: &mark})
	s.Require().NoError(err)

	s.Run("seal carries the final counts", func() {
		s.Equal(models.ImportStatusSuccess, sealed.Status)
		s.Equal(3, sealed.TotalCount)
		s.Equal(2, sealed.SuccessCount)
		s.Equal(1, sealed.FailureCount)
		s.Equal(2, sealed.DuplicateCount)
		s.Require().NotNil(sealed.SealedAt)
		s.Equal(s.clock, *sealed.SealedAt)
	})

	s.Run("watermark is stored with the seal", func() {
		got, err := s.db.Watermarks().Get(s.ctx, "payroll")
		s.Require().NoError(err)
		s.Equal(mark.Value, got)
	})

	s.Run("sealed batch is immutable", func() {
		err := s.recorder.RecordRow(s.ctx, batch.ID, models.RowOutcome{RowNumber: 5, Status: models.RowStatusSuccess})
		s.ErrorIs(err, ErrBatchSealed)
		_, err = s.recorder.SealBatch(s.ctx, batch.ID, models.Seal{Reason: models.SealStreamFailed})
		s.ErrorIs(err, ErrBatchSealed)

		got, rows, err := s.recorder.Batch(s.ctx, batch.ID)
		s.Require().NoError(err)
		s.Equal(models.ImportStatusSuccess, got.Status)
		s.Len(rows, 3)
	})
}

func (s *RecorderSuite) TestSealReasons() {
	for reason, want := range map[models.SealReason]models.ImportStatus{
		models.SealCompleted:         models.ImportStatusSuccess,
		models.SealCancelled:         models.ImportStatusCancelled,
		models.SealStreamFailed:      models.ImportStatusFailed,
		models.SealPersistenceFailed: models.ImportStatusFailed,
	} {
		s.Run(string(reason), func() {
			batch, err := s.recorder.BeginBatch(s.ctx, "partner", "x.csv")
			s.Require().NoError(err)
			sealed, err := s.recorder.SealBatch(s.ctx, batch.ID, models.Seal{Reason: reason})
			s.Require().NoError(err)
			s.Equal(want, sealed.Status)
		})
	}
}

func (s *RecorderSuite) TestNotFound() {
	_, _, err := s.recorder.Batch(s.ctx, id.NewBatchID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.recorder.SealBatch(s.ctx, id.NewBatchID(), models.Seal{Reason: models.SealCompleted})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RecorderSuite) TestStoreUnavailable() {
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()
	batches := mocks.NewMockBatchStore(ctrl)
	recorder, err := NewRecorder(batches, s.db)
	s.Require().NoError(err)

	batches.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrUnavailable)
	_, err = recorder.BeginBatch(s.ctx, "payroll", "x.csv")
	s.True(IsInfrastructure(err))

	batches.EXPECT().AppendRow(gomock.Any(), gomock.Any()).Return(errors.New("write failed"))
	err = recorder.RecordRow(s.ctx, id.NewBatchID(), models.RowOutcome{Status: models.RowStatusSuccess})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.False(IsInfrastructure(err))
}

func TestIsInfrastructure(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":             {nil, false},
		"unavailable":     {sentinel.ErrUnavailable, true},
		"coded":           {dErrors.New(dErrors.CodeUnavailable, "down"), true},
		"deadline":        {context.DeadlineExceeded, true},
		"conflict":        {sentinel.ErrConflict, false},
		"domain failure":  {dErrors.New(dErrors.CodeValidation, "bad"), false},
		"wrapped timeout": {dErrors.Wrap(context.Canceled, dErrors.CodeTimeout, "aborted"), true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := IsInfrastructure(tc.err); got != tc.want {
				t.Fatalf("IsInfrastructure(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
