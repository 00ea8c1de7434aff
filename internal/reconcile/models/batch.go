package models

import (
	"time"

	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
)

// ImportStatus is the overall status of a batch.
type ImportStatus string

const (
	ImportStatusInProgress ImportStatus = "in_progress"
	ImportStatusSuccess    ImportStatus = "success"
	ImportStatusFailed     ImportStatus = "failed"
	ImportStatusCancelled  ImportStatus = "cancelled"
)

// IsSealed reports whether the status is terminal.
func (s ImportStatus) IsSealed() bool {
	return s != ImportStatusInProgress && s != ""
}

// SealReason says why a run stopped reading rows.
type SealReason string

const (
	// SealCompleted: the row stream was exhausted. Row failures do not matter.
	SealCompleted SealReason = "completed"
	// SealCancelled: the run observed cancellation between rows.
	SealCancelled SealReason = "cancelled"
	// SealStreamFailed: the row source could not be read to completion.
	SealStreamFailed SealReason = "stream_failed"
	// SealPersistenceFailed: row outcomes could not be persisted.
	SealPersistenceFailed SealReason = "persistence_failed"
)

// Status maps a seal reason onto the batch's final ImportStatus.
func (r SealReason) Status() ImportStatus {
	switch r {
	case SealCompleted:
		return ImportStatusSuccess
	case SealCancelled:
		return ImportStatusCancelled
	default:
		return ImportStatusFailed
	}
}

// Batch is one run of one feed job against one file (an integration
// transaction).
//
// Invariants:
//   - TotalCount == SuccessCount + FailureCount
//   - DuplicateCount counts rows flagged duplicate regardless of status
//   - counters only grow while InProgress; nothing changes once sealed
type Batch struct {
	ID             id.BatchID
	Feed           string
	FileName       string
	Status         ImportStatus
	TotalCount     int
	SuccessCount   int
	FailureCount   int
	DuplicateCount int
	StartedAt      time.Time
	SealedAt       *time.Time
}

// Apply adds one row outcome to the aggregate counters.
func (b *Batch) Apply(outcome RowOutcome) {
	b.TotalCount++
	if outcome.Status == RowStatusSuccess {
		b.SuccessCount++
	} else {
		b.FailureCount++
	}
	if outcome.IsDuplicate() {
		b.DuplicateCount++
	}
}

// RowStatus is the final status of one row.
type RowStatus string

const (
	RowStatusSuccess RowStatus = "success"
	RowStatusFailure RowStatus = "failure"
)

// RowOutcome is the durable per-row record (an integration transaction
// record). It is written exactly once and never updated.
type RowOutcome struct {
	ID        id.RecordID
	BatchID   id.BatchID
	RowNumber int
	// PersonID is nil when no person was created or updated.
	PersonID *id.PersonID
	RawData  string
	// FailureMessage is "" for clean rows; otherwise one or more messages
	// joined with "; ". Successful rows may carry advisory warnings here.
	FailureMessage string
	// Duplicate is nil when duplication was never evaluated.
	Duplicate *bool
	Status    RowStatus
	CreatedAt time.Time
}

// IsDuplicate reports whether the row was flagged as a duplicate.
func (o RowOutcome) IsDuplicate() bool {
	return o.Duplicate != nil && *o.Duplicate
}

// Watermark is the per-job "processed up to" marker. The pending-file source
// only offers files newer than it.
type Watermark struct {
	Job       string
	Value     time.Time
	UpdatedAt time.Time
}

// Seal describes how a batch should be sealed.
type Seal struct {
	Reason SealReason
	// Watermark, when set, is persisted atomically with the seal.
	Watermark *Watermark
}
