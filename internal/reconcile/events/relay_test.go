package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/kafka"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/events/mocks"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/metrics"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/store/memory"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/circuit"
)

type RelaySuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	db        *memory.DB
	publisher *mocks.MockPublisher
	metrics   *metrics.Metrics
	relay     *Relay
	ctx       context.Context
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.db = memory.NewDB()
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	s.ctx = context.Background()

	relay, err := New(s.db.Outbox(), s.db, s.publisher, WithBatchSize(2), WithMetrics(s.metrics))
	s.Require().NoError(err)
	s.relay = relay
}

func (s *RelaySuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RelaySuite) appendEntries(n int) []models.OutboxEntry {
	var out []models.OutboxEntry
	for i := 0; i < n; i++ {
		e := models.OutboxEntry{
			ID:            uuid.New(),
			AggregateType: "batch",
			AggregateID:   uuid.NewString(),
			EventType:     models.EventBatchSealed,
			Payload:       []byte(`{}`),
			CreatedAt:     time.Now(),
		}
		s.Require().NoError(s.db.Outbox().Append(s.ctx, e))
		out = append(out, e)
	}
	return out
}

func (s *RelaySuite) TestNew() {
	s.Run("requires collaborators", func() {
		_, err := New(nil, s.db, s.publisher)
		s.Error(err)
		_, err = New(s.db.Outbox(), nil, s.publisher)
		s.Error(err)
		_, err = New(s.db.Outbox(), s.db, nil)
		s.Error(err)
	})
}

func (s *RelaySuite) TestRelayOnce() {
	s.Run("publishes a page keyed by aggregate and marks it", func() {
		entries := s.appendEntries(3)

		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msgs []kafka.Message) error {
				s.Require().Len(msgs, 2)
				s.Equal([]byte(entries[0].AggregateID), msgs[0].Key)
				s.Equal(models.EventBatchSealed, msgs[0].Headers[HeaderEventType])
				s.Equal(entries[0].ID.String(), msgs[0].Headers[HeaderOutboxID])
				return nil
			})

		n, err := s.relay.RelayOnce(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, n)

		rest, err := s.db.Outbox().FetchUnpublished(s.ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(rest, 1)
		s.Equal(entries[2].ID, rest[0].ID)
		s.Equal(float64(2), testutil.ToFloat64(s.metrics.OutboxPublished))
	})

	s.Run("nothing pending publishes nothing", func() {
		s.SetupTest()
		n, err := s.relay.RelayOnce(s.ctx)
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("publish failure leaves entries pending", func() {
		s.SetupTest()
		s.appendEntries(1)
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		_, err := s.relay.RelayOnce(s.ctx)
		s.Require().Error(err)

		rest, err := s.db.Outbox().FetchUnpublished(s.ctx, 10)
		s.Require().NoError(err)
		s.Len(rest, 1)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.OutboxFailures))
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.OutboxBacklog))
	})
}

func (s *RelaySuite) TestRunDrainsUntilCancelled() {
	relay, err := New(s.db.Outbox(), s.db, s.publisher, WithBatchSize(2), WithInterval(5*time.Millisecond))
	s.Require().NoError(err)
	s.appendEntries(5)

	ctx, cancel := context.WithCancel(s.ctx)
	var published int
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msgs []kafka.Message) error {
			published += len(msgs)
			if published == 5 {
				cancel()
			}
			return nil
		}).Times(3)

	err = relay.Run(ctx)
	s.ErrorIs(err, context.Canceled)
	s.Equal(5, published)
}

func (s *RelaySuite) TestBreakerPausesPublishing() {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	breaker := circuit.New("kafka",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	relay, err := New(s.db.Outbox(), s.db, s.publisher, WithBreaker(breaker))
	s.Require().NoError(err)
	s.appendEntries(1)

	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).Times(2)
	for i := 0; i < 2; i++ {
		_, err := relay.RelayOnce(s.ctx)
		s.Require().Error(err)
	}
	s.True(breaker.IsOpen())

	s.Run("no publish is attempted while open", func() {
		n, err := relay.RelayOnce(s.ctx)
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("a probe after the cooldown resumes publishing", func() {
		now = now.Add(time.Minute)
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

		n, err := relay.RelayOnce(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, n)
		s.False(breaker.IsOpen())
	})
}
