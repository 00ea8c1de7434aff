package feeds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/sentinel"
)

type PersonStore interface {
	Create(ctx context.Context, p *models.Person) error
	Update(ctx context.Context, p *models.Person) error
	FindByID(ctx context.Context, personID id.PersonID) (*models.Person, error)
}

type TrnAllocator interface {
	NextTrn(ctx context.Context) (id.Trn, error)
}

// Attribute is a person attribute a feed may write.
type Attribute string

const (
	AttrFirstName   Attribute = "first_name"
	AttrMiddleName  Attribute = "middle_name"
	AttrLastName    Attribute = "last_name"
	AttrDateOfBirth Attribute = "date_of_birth"
	AttrNINO        Attribute = "national_insurance_number"
	AttrGender      Attribute = "gender"
)

var attributeOrder = []Attribute{AttrFirstName, AttrMiddleName, AttrLastName, AttrDateOfBirth, AttrNINO, AttrGender}

// PersonAction creates and updates persons from reconciled records. Only
// attributes in Updatable are changed on an existing person; a differing
// value for any other attribute produces an "attempted to change" warning.
type PersonAction struct {
	persons PersonStore
	trns    TrnAllocator
	create  []models.Field
	update  map[Attribute]bool
	now     func() time.Time
}

func NewPersonAction(persons PersonStore, trns TrnAllocator, createRequires []models.Field, updatable ...Attribute) (*PersonAction, error) {
	if persons == nil {
		return nil, fmt.Errorf("person store is required")
	}
	if trns == nil {
		return nil, fmt.Errorf("trn allocator is required")
	}
	update := make(map[Attribute]bool, len(updatable))
	for _, a := range updatable {
		update[a] = true
	}
	return &PersonAction{persons: persons, trns: trns, create: createRequires, update: update, now: time.Now}, nil
}

func (a *PersonAction) MissingCreateFields(rec models.IncomingRecord) []string {
	var missing []string
	for _, f := range rec.Missing(a.create...) {
		missing = append(missing, string(f))
	}
	return missing
}

// Create adds a new active person. A record without a TRN gets a newly
// allocated one.
func (a *PersonAction) Create(ctx context.Context, rec models.IncomingRecord) (id.PersonID, []string, error) {
	trn := rec.Trn
	if trn.IsZero() {
		allocated, err := a.trns.NextTrn(ctx)
		if err != nil {
			return id.PersonID{}, nil, translate(err, "failed to allocate trn")
		}
		trn = allocated
	}
	now := a.now()
	p := &models.Person{
		ID:                      id.NewPersonID(),
		Trn:                     trn,
		FirstName:               rec.FirstName,
		MiddleName:              rec.MiddleName,
		LastName:                rec.LastName,
		DateOfBirth:             models.DateOnly(rec.DateOfBirth),
		NationalInsuranceNumber: rec.NINO(),
		Gender:                  rec.Gender,
		Status:                  models.PersonStatusActive,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := a.persons.Create(ctx, p); err != nil {
		return id.PersonID{}, nil, translate(err, "failed to create person with trn "+trn.String())
	}
	return p.ID, nil, nil
}

// Update applies the feed's authorised attributes to an existing person.
func (a *PersonAction) Update(ctx context.Context, personID id.PersonID, rec models.IncomingRecord) ([]string, error) {
	p, err := a.persons.FindByID(ctx, personID)
	if err != nil {
		return nil, translate(err, "failed to load matched person")
	}
	if !p.IsActive() {
		return nil, dErrors.New(dErrors.CodeDeactivated, "de-activated record exists for trn "+p.Trn.String())
	}

	var warnings []string
	changed := false
	for _, attr := range attributeOrder {
		incoming, supplied := incomingValue(rec, attr)
		if !supplied || incoming == currentValue(p, attr) {
			continue
		}
		if !a.update[attr] {
			warnings = append(warnings, fmt.Sprintf("attempted to change %s, ignored", attributeLabel(attr)))
			continue
		}
		apply(p, rec, attr)
		changed = true
	}
	if !changed {
		return warnings, nil
	}
	p.UpdatedAt = a.now()
	if err := a.persons.Update(ctx, p); err != nil {
		return nil, translate(err, "failed to update person with trn "+p.Trn.String())
	}
	return warnings, nil
}

func incomingValue(rec models.IncomingRecord, attr Attribute) (string, bool) {
	switch attr {
	case AttrFirstName:
		return id.NameKey(rec.FirstName), rec.Has(models.FieldFirstName)
	case AttrMiddleName:
		key := id.NameKey(rec.MiddleName)
		return key, key != ""
	case AttrLastName:
		return id.NameKey(rec.LastName), rec.Has(models.FieldLastName)
	case AttrDateOfBirth:
		return models.DateOnly(rec.DateOfBirth).Format(time.DateOnly), rec.Has(models.FieldDateOfBirth)
	case AttrNINO:
		return rec.NINO(), rec.Has(models.FieldNationalInsuranceNumber)
	case AttrGender:
		return string(rec.Gender), rec.Gender != ""
	}
	return "", false
}

func currentValue(p *models.Person, attr Attribute) string {
	switch attr {
	case AttrFirstName:
		return id.NameKey(p.FirstName)
	case AttrMiddleName:
		return id.NameKey(p.MiddleName)
	case AttrLastName:
		return id.NameKey(p.LastName)
	case AttrDateOfBirth:
		if p.DateOfBirth.IsZero() {
			return ""
		}
		return models.DateOnly(p.DateOfBirth).Format(time.DateOnly)
	case AttrNINO:
		return id.NormalizeNINO(p.NationalInsuranceNumber)
	case AttrGender:
		return string(p.Gender)
	}
	return ""
}

func apply(p *models.Person, rec models.IncomingRecord, attr Attribute) {
	switch attr {
	case AttrFirstName:
		p.FirstName = rec.FirstName
	case AttrMiddleName:
		p.MiddleName = rec.MiddleName
	case AttrLastName:
		p.LastName = rec.LastName
	case AttrDateOfBirth:
		p.DateOfBirth = models.DateOnly(rec.DateOfBirth)
	case AttrNINO:
		p.NationalInsuranceNumber = rec.NINO()
	case AttrGender:
		p.Gender = rec.Gender
	}
}

func attributeLabel(attr Attribute) string {
	switch attr {
	case AttrFirstName:
		return "first name"
	case AttrMiddleName:
		return "middle name"
	case AttrLastName:
		return "last name"
	case AttrDateOfBirth:
		return "date of birth"
	case AttrNINO:
		return "national insurance number"
	}
	return string(attr)
}

// translate maps store facts onto coded errors. Unavailability stays
// unavailability so the run aborts instead of failing the row.
func translate(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrUnavailable), dErrors.HasCode(err, dErrors.CodeUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
