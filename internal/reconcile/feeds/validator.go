package feeds

import (
	"fmt"
	"time"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
)

var earliestDateOfBirth = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Validator checks a record for the fields a feed requires and for values
// that are present but malformed. Source-reported parse problems come first.
type Validator struct {
	Required []models.Field
	// Today bounds dates of birth; nil means the current UTC date.
	Today func() time.Time
}

func (v Validator) Validate(rec models.IncomingRecord) []string {
	problems := append([]string(nil), rec.Problems...)
	for _, f := range rec.Missing(v.Required...) {
		problems = append(problems, fmt.Sprintf("%s is required", f))
	}
	if rec.Has(models.FieldNationalInsuranceNumber) && !id.ValidNINO(rec.NINO()) {
		problems = append(problems, "national_insurance_number is not a valid national insurance number")
	}
	if rec.Has(models.FieldDateOfBirth) {
		dob := models.DateOnly(rec.DateOfBirth)
		switch {
		case dob.Before(earliestDateOfBirth):
			problems = append(problems, "date_of_birth is before 1900")
		case dob.After(v.today()):
			problems = append(problems, "date_of_birth is in the future")
		}
	}
	return problems
}

func (v Validator) today() time.Time {
	if v.Today != nil {
		return models.DateOnly(v.Today())
	}
	return models.DateOnly(time.Now().UTC())
}
