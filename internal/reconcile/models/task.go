package models

import (
	"time"

	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
)

// SupportTaskType names the kind of review a support task asks for.
type SupportTaskType string

const (
	// SupportTaskPotentialDuplicate asks a caseworker to confirm which (if
	// any) existing person an imported row refers to.
	SupportTaskPotentialDuplicate SupportTaskType = "potential_duplicate"
)

// SupportTask is a reviewable task raised alongside a row outcome.
type SupportTask struct {
	ID        id.TaskID
	Type      SupportTaskType
	BatchID   id.BatchID
	RowNumber int
	// Candidates are the matched persons, in first-hit order.
	Candidates []id.PersonID
	Reason     string
	CreatedAt  time.Time
}
