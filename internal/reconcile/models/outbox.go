package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types written to the outbox.
const (
	EventBatchSealed       = "batch_sealed"
	EventSupportTaskRaised = "support_task_raised"
)

// OutboxEntry is an event persisted in the same transaction as the state
// change it describes, waiting to be relayed to the broker.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}
