package models

import (
	"time"

	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
)

// PersonStatus is the lifecycle state of a canonical person.
type PersonStatus string

const (
	PersonStatusActive      PersonStatus = "active"
	PersonStatusDeactivated PersonStatus = "deactivated"
)

// Person is the canonical record owned by the person store.
//
// Invariants:
//   - Trn is unique among active persons
//   - persons are never deleted by imports; deactivation is external
type Person struct {
	ID                      id.PersonID
	Trn                     id.Trn
	FirstName               string
	MiddleName              string
	LastName                string
	DateOfBirth             time.Time
	NationalInsuranceNumber string
	Gender                  id.Gender
	Status                  PersonStatus
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (p *Person) IsActive() bool {
	return p.Status == PersonStatusActive
}

// Candidate is what the candidate store returns for a lookup: the person id
// plus enough state to apply the explicit-TRN rule.
type Candidate struct {
	PersonID    id.PersonID
	Trn         id.Trn
	Deactivated bool
}

// CandidateFor projects a person onto a Candidate.
func CandidateFor(p *Person) Candidate {
	return Candidate{PersonID: p.ID, Trn: p.Trn, Deactivated: !p.IsActive()}
}
