package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/store/memory"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// anyIdentity rejects records with no identity fields at all.
type anyIdentity struct{}

func (anyIdentity) Validate(rec models.IncomingRecord) []string {
	problems := append([]string(nil), rec.Problems...)
	if !rec.Has(models.FieldTrn) && !rec.Has(models.FieldFirstName) && !rec.Has(models.FieldLastName) &&
		!rec.Has(models.FieldDateOfBirth) && !rec.Has(models.FieldNationalInsuranceNumber) {
		problems = append(problems, "record has no identity fields")
	}
	return problems
}

type panickingValidator struct{}

func (panickingValidator) Validate(models.IncomingRecord) []string {
	panic("nil map")
}

// personAction writes through the in-memory person store. Rows listed in
// failAfterWrite write first and then fail, so rollback is observable.
type personAction struct {
	persons        *memory.PersonStore
	requires       []models.Field
	failAfterWrite map[int]error
	panicOn        map[int]bool
	warnings       []string
}

func (a *personAction) MissingCreateFields(rec models.IncomingRecord) []string {
	var missing []string
	for _, f := range rec.Missing(a.requires...) {
		missing = append(missing, string(f))
	}
	return missing
}

func (a *personAction) Create(ctx context.Context, rec models.IncomingRecord) (id.PersonID, []string, error) {
	trn := rec.Trn
	if trn.IsZero() {
		next, err := a.persons.NextTrn(ctx)
		if err != nil {
			return id.PersonID{}, nil, err
		}
		trn = next
	}
	p := &models.Person{
		ID:                      id.NewPersonID(),
		Trn:                     trn,
		FirstName:               rec.FirstName,
		LastName:                rec.LastName,
		DateOfBirth:             rec.DateOfBirth,
		NationalInsuranceNumber: rec.NINO(),
		Gender:                  rec.Gender,
		Status:                  models.PersonStatusActive,
	}
	if err := a.persons.Create(ctx, p); err != nil {
		return id.PersonID{}, nil, fmt.Errorf("create person: %w", err)
	}
	if err := a.hooks(rec); err != nil {
		return id.PersonID{}, nil, err
	}
	return p.ID, a.warnings, nil
}

func (a *personAction) Update(ctx context.Context, personID id.PersonID, rec models.IncomingRecord) ([]string, error) {
	p, err := a.persons.FindByID(ctx, personID)
	if err != nil {
		return nil, err
	}
	if rec.LastName != "" {
		p.LastName = rec.LastName
	}
	if err := a.persons.Update(ctx, p); err != nil {
		return nil, err
	}
	if err := a.hooks(rec); err != nil {
		return nil, err
	}
	return a.warnings, nil
}

func (a *personAction) hooks(rec models.IncomingRecord) error {
	if a.panicOn[rec.RowNumber] {
		panic(fmt.Sprintf("row %d exploded", rec.RowNumber))
	}
	if err := a.failAfterWrite[rec.RowNumber]; err != nil {
		return err
	}
	return nil
}

// cancelAfter cancels the run once n records have been handed out.
type cancelAfter struct {
	inner  RowSource
	n      int
	cancel context.CancelFunc
	served int
}

func (c *cancelAfter) Next(ctx context.Context) (models.IncomingRecord, error) {
	rec, err := c.inner.Next(ctx)
	if err == nil {
		c.served++
		if c.served == c.n {
			c.cancel()
		}
	}
	return rec, err
}

// failingBatches fails AppendRow for one row number.
type failingBatches struct {
	*memory.BatchStore
	failRow int
}

var errDiskFull = errors.New("disk full")

func (f *failingBatches) AppendRow(ctx context.Context, outcome models.RowOutcome) error {
	if outcome.RowNumber == f.failRow {
		return errDiskFull
	}
	return f.BatchStore.AppendRow(ctx, outcome)
}
