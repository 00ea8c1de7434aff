package matching

import (
	"context"
	"time"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
)

// CandidateStore is the read-only query surface over the person repository.
// Name arguments are comparison keys (domain.NameKey), NINOs are normalised,
// and dates are calendar dates in UTC.
type CandidateStore interface {
	FindByNationalInsuranceAndDob(ctx context.Context, nino string, dob time.Time) ([]models.Candidate, error)
	FindByNameAndDob(ctx context.Context, firstNameKey, lastNameKey string, dob time.Time) ([]models.Candidate, error)
	FindByNationalInsurance(ctx context.Context, nino string) ([]models.Candidate, error)
	FindByTrn(ctx context.Context, trn id.Trn) ([]models.Candidate, error)
}

// Criterion is one exact-match rule. Find is only called when the record
// carries every field in Fields.
type Criterion struct {
	Name   models.CriterionName
	Fields []models.Field
	Find   func(ctx context.Context, store CandidateStore, rec models.IncomingRecord) ([]models.Candidate, error)
}

// DefaultCriteria is the production hierarchy, highest priority first.
var DefaultCriteria = []Criterion{
	{
		Name:   models.CriterionNINOAndDOB,
		Fields: []models.Field{models.FieldNationalInsuranceNumber, models.FieldDateOfBirth},
		Find: func(ctx context.Context, store CandidateStore, rec models.IncomingRecord) ([]models.Candidate, error) {
			return store.FindByNationalInsuranceAndDob(ctx, rec.NINO(), models.DateOnly(rec.DateOfBirth))
		},
	},
	{
		Name:   models.CriterionNameAndDOB,
		Fields: []models.Field{models.FieldFirstName, models.FieldLastName, models.FieldDateOfBirth},
		Find: func(ctx context.Context, store CandidateStore, rec models.IncomingRecord) ([]models.Candidate, error) {
			return store.FindByNameAndDob(ctx, id.NameKey(rec.FirstName), id.NameKey(rec.LastName), models.DateOnly(rec.DateOfBirth))
		},
	},
	{
		Name:   models.CriterionNINO,
		Fields: []models.Field{models.FieldNationalInsuranceNumber},
		Find: func(ctx context.Context, store CandidateStore, rec models.IncomingRecord) ([]models.Candidate, error) {
			return store.FindByNationalInsurance(ctx, rec.NINO())
		},
	},
}
