// Package events relays outbox entries to the broker. Entries are fetched,
// published and marked in one transaction, so a crash between publish and
// mark republishes rather than drops (at-least-once).
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/kafka"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/metrics"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/service"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/circuit"
)

//go:generate mockgen -source=relay.go -destination=mocks/mocks.go -package=mocks OutboxStore,Publisher

type OutboxStore interface {
	FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, msgs []kafka.Message) error
}

// Message headers set on every relayed record.
const (
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
	HeaderOutboxID      = "outbox_id"
)

const (
	defaultBatchSize = 100
	defaultInterval  = 2 * time.Second
)

type Relay struct {
	store     OutboxStore
	tx        service.TxRunner
	publisher Publisher
	breaker   *circuit.Breaker
	logger    *slog.Logger
	metrics   *metrics.Metrics
	batchSize int
	interval  time.Duration
	now       func() time.Time
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

// WithBreaker stops publishing attempts while the broker keeps failing.
// Entries stay in the outbox until a probe succeeds.
func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Relay) {
		r.breaker = b
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

func New(store OutboxStore, tx service.TxRunner, publisher Publisher, opts ...Option) (*Relay, error) {
	if store == nil {
		return nil, fmt.Errorf("outbox store is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	r := &Relay{
		store:     store,
		tx:        tx,
		publisher: publisher,
		batchSize: defaultBatchSize,
		interval:  defaultInterval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run relays on every tick until ctx is cancelled. Failed cycles are logged
// and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					if r.logger != nil {
						r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
					}
					break
				}
				// a full page means more may be waiting
				if n < r.batchSize {
					break
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RelayOnce publishes up to one page of unpublished entries and returns how
// many were published.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	if r.breaker != nil && !r.breaker.Allow() {
		return 0, nil
	}
	var published, seen int
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := r.store.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox: %w", err)
		}
		seen = len(entries)
		if seen == 0 {
			return nil
		}
		msgs := make([]kafka.Message, 0, len(entries))
		ids := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			msgs = append(msgs, toMessage(e))
			ids = append(ids, e.ID)
		}
		if err := r.publisher.Publish(ctx, msgs); err != nil {
			r.recordPublish(ctx, err)
			return fmt.Errorf("publish outbox: %w", err)
		}
		r.recordPublish(ctx, nil)
		if err := r.store.MarkPublished(ctx, ids, r.now()); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		published = len(ids)
		return nil
	})
	if r.metrics != nil {
		r.metrics.ObserveRelay(published, seen-published, err != nil)
	}
	if err != nil {
		return 0, err
	}
	if published > 0 && r.logger != nil {
		r.logger.DebugContext(ctx, "outbox relayed", "count", published)
	}
	return published, nil
}

func (r *Relay) recordPublish(ctx context.Context, err error) {
	if r.breaker == nil {
		return
	}
	if err == nil {
		if _, change := r.breaker.RecordSuccess(); change.Closed && r.logger != nil {
			r.logger.InfoContext(ctx, "outbox publishing resumed", "breaker", r.breaker.Name())
		}
		return
	}
	if _, change := r.breaker.RecordFailure(); change.Opened && r.logger != nil {
		r.logger.WarnContext(ctx, "outbox publishing paused", "breaker", r.breaker.Name(), "error", err)
	}
}

func toMessage(e models.OutboxEntry) kafka.Message {
	return kafka.Message{
		Key:   []byte(e.AggregateID),
		Value: e.Payload,
		Headers: map[string]string{
			HeaderEventType:     e.EventType,
			HeaderAggregateType: e.AggregateType,
			HeaderOutboxID:      e.ID.String(),
		},
	}
}
