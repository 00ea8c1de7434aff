package service

import (
	"fmt"
	"strings"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	platformstrings "github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/strings"
)

// rowState tracks one row through the pipeline.
type rowState string

const (
	rowReceived  rowState = "received"
	rowValidated rowState = "validated"
	rowMatched   rowState = "matched"
	rowActioned  rowState = "actioned"
	rowRecorded  rowState = "recorded"
	rowRejected  rowState = "rejected"
)

var rowTransitions = map[rowState][]rowState{
	rowReceived:  {rowValidated, rowRejected},
	rowValidated: {rowMatched, rowRejected},
	rowMatched:   {rowActioned, rowRejected},
	rowActioned:  {rowRecorded},
	rowRejected:  {rowRecorded},
}

// row is the working state of one record between receipt and recording.
type row struct {
	rec     models.IncomingRecord
	state   rowState
	outcome models.RowOutcome
	// task is raised in the same unit as the outcome when set.
	task *models.SupportTask
}

func newRow(rec models.IncomingRecord) *row {
	return &row{
		rec:   rec,
		state: rowReceived,
		outcome: models.RowOutcome{
			RowNumber: rec.RowNumber,
			RawData:   rec.RawLine,
		},
	}
}

func (r *row) advance(to rowState) {
	for _, next := range rowTransitions[r.state] {
		if next == to {
			r.state = to
			return
		}
	}
	panic(fmt.Sprintf("row %d: illegal transition %s -> %s", r.rec.RowNumber, r.state, to))
}

// reject ends the row as a Failure. duplicate is left as given: nil when
// duplication was never evaluated.
func (r *row) reject(duplicate *bool, messages ...string) {
	r.advance(rowRejected)
	r.outcome.Status = models.RowStatusFailure
	r.outcome.PersonID = nil
	r.outcome.Duplicate = duplicate
	r.outcome.FailureMessage = platformstrings.JoinMessages(messages...)
}

func (r *row) succeed(personID *id.PersonID, duplicate bool, warnings []string) {
	r.advance(rowActioned)
	r.outcome.Status = models.RowStatusSuccess
	r.outcome.PersonID = personID
	r.outcome.Duplicate = boolPtr(duplicate)
	r.outcome.FailureMessage = platformstrings.AppendMessages(r.outcome.FailureMessage, warnings...)
}

// fail ends an actioned row as a Failure without a person.
func (r *row) fail(duplicate *bool, messages ...string) {
	r.advance(rowActioned)
	r.outcome.Status = models.RowStatusFailure
	r.outcome.PersonID = nil
	r.outcome.Duplicate = duplicate
	r.outcome.FailureMessage = platformstrings.JoinMessages(messages...)
}

func missingFieldsMessage(fields []string) string {
	return "cannot create record without required fields: " + strings.Join(fields, ", ")
}

func potentialMatchesMessage(n int) string {
	return fmt.Sprintf("ambiguous identity: record matches %d existing persons", n)
}

func boolPtr(b bool) *bool {
	return &b
}
