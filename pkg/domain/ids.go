package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
)

// Typed identifiers keep person, batch, record and task ids from being
// swapped at call sites. Construct them with the Parse functions at trust
// boundaries (HTTP paths, database scans) or with New* inside the service.
type (
	PersonID uuid.UUID
	BatchID  uuid.UUID
	RecordID uuid.UUID
	TaskID   uuid.UUID
)

func NewPersonID() PersonID { return PersonID(uuid.New()) }
func NewBatchID() BatchID   { return BatchID(uuid.New()) }
func NewRecordID() RecordID { return RecordID(uuid.New()) }
func NewTaskID() TaskID     { return TaskID(uuid.New()) }

func (id PersonID) String() string { return uuid.UUID(id).String() }
func (id BatchID) String() string  { return uuid.UUID(id).String() }
func (id RecordID) String() string { return uuid.UUID(id).String() }
func (id TaskID) String() string   { return uuid.UUID(id).String() }

func (id PersonID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id BatchID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TaskID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

func ParsePersonID(s string) (PersonID, error) {
	u, err := parseUUID(s, "person_id")
	return PersonID(u), err
}

func ParseBatchID(s string) (BatchID, error) {
	u, err := parseUUID(s, "batch_id")
	return BatchID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record_id")
	return RecordID(u), err
}

func ParseTaskID(s string) (TaskID, error) {
	u, err := parseUUID(s, "task_id")
	return TaskID(u), err
}

// maxUUIDInput bounds what we hand to uuid.Parse; the longest accepted form is
// the 45-character urn:uuid: prefix variant.
const maxUUIDInput = 45

func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	if len(s) > maxUUIDInput {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}
