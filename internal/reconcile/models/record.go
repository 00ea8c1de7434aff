package models

import (
	"time"

	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
)

// IncomingRecord is one parsed row from an external feed. It lives only for
// the duration of a batch run.
//
// Every identity field is optional; absent values are the zero value. Name and
// NINO fields hold the feed's text as supplied (trimmed); comparison forms are
// derived with domain.NameKey and domain.NormalizeNINO.
type IncomingRecord struct {
	RowNumber               int
	Trn                     id.Trn
	FirstName               string
	MiddleName              string
	LastName                string
	DateOfBirth             time.Time
	NationalInsuranceNumber string
	Gender                  id.Gender
	RawLine                 string
	// Problems lists field-level parse failures reported by the row source,
	// e.g. an unparseable date. Validators surface them as row failures.
	Problems []string
}

// Field names a matchable IncomingRecord field.
type Field string

const (
	FieldTrn                     Field = "trn"
	FieldFirstName               Field = "first_name"
	FieldLastName                Field = "last_name"
	FieldDateOfBirth             Field = "date_of_birth"
	FieldNationalInsuranceNumber Field = "national_insurance_number"
)

// Has reports whether the record carries a usable value for f.
func (r IncomingRecord) Has(f Field) bool {
	switch f {
	case FieldTrn:
		return !r.Trn.IsZero()
	case FieldFirstName:
		return id.NameKey(r.FirstName) != ""
	case FieldLastName:
		return id.NameKey(r.LastName) != ""
	case FieldDateOfBirth:
		return !r.DateOfBirth.IsZero()
	case FieldNationalInsuranceNumber:
		return id.NormalizeNINO(r.NationalInsuranceNumber) != ""
	default:
		return false
	}
}

// HasAll reports whether every field in fields is present.
func (r IncomingRecord) HasAll(fields ...Field) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !r.Has(f) {
			return false
		}
	}
	return true
}

// Missing returns the subset of fields that are absent, in order.
func (r IncomingRecord) Missing(fields ...Field) []Field {
	var missing []Field
	for _, f := range fields {
		if !r.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// NINO returns the normalised national insurance number.
func (r IncomingRecord) NINO() string {
	return id.NormalizeNINO(r.NationalInsuranceNumber)
}

// DateOnly truncates t to a UTC calendar date so dates parsed in different
// locations compare equal.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
