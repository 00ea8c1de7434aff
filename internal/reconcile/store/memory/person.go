package memory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/sentinel"
)

// PersonStore is the canonical person repository. It also serves the
// candidate queries used by matching and allocates TRNs.
type PersonStore struct {
	db *DB
}

func (s *PersonStore) Create(ctx context.Context, p *models.Person) error {
	defer s.db.lock(ctx)()
	if _, exists := s.db.persons[p.ID]; exists {
		return fmt.Errorf("person %s: %w", p.ID, sentinel.ErrConflict)
	}
	if err := s.checkTrn(p); err != nil {
		return err
	}
	s.db.persons[p.ID] = *p
	s.db.personOrder = append(s.db.personOrder, p.ID)
	return nil
}

func (s *PersonStore) Update(ctx context.Context, p *models.Person) error {
	defer s.db.lock(ctx)()
	if _, exists := s.db.persons[p.ID]; !exists {
		return fmt.Errorf("person %s: %w", p.ID, sentinel.ErrNotFound)
	}
	if err := s.checkTrn(p); err != nil {
		return err
	}
	s.db.persons[p.ID] = *p
	return nil
}

func (s *PersonStore) FindByID(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	defer s.db.lock(ctx)()
	p, ok := s.db.persons[personID]
	if !ok {
		return nil, fmt.Errorf("person %s: %w", personID, sentinel.ErrNotFound)
	}
	return &p, nil
}

// Deactivate marks a person deactivated. Deactivation happens outside
// imports; the store exposes it for administration and tests.
func (s *PersonStore) Deactivate(ctx context.Context, personID id.PersonID, at time.Time) error {
	defer s.db.lock(ctx)()
	p, ok := s.db.persons[personID]
	if !ok {
		return fmt.Errorf("person %s: %w", personID, sentinel.ErrNotFound)
	}
	p.Status = models.PersonStatusDeactivated
	p.UpdatedAt = at
	s.db.persons[personID] = p
	return nil
}

// NextTrn allocates the next unused TRN.
func (s *PersonStore) NextTrn(ctx context.Context) (id.Trn, error) {
	defer s.db.lock(ctx)()
	for {
		trn := id.Trn(strconv.Itoa(s.db.nextTrn))
		s.db.nextTrn++
		if !s.trnAllocated(trn) {
			return trn, nil
		}
	}
}

func (s *PersonStore) FindByNationalInsuranceAndDob(ctx context.Context, nino string, dob time.Time) ([]models.Candidate, error) {
	if nino == "" {
		return nil, nil
	}
	return s.find(ctx, func(p models.Person) bool {
		return id.NormalizeNINO(p.NationalInsuranceNumber) == nino && sameDate(p.DateOfBirth, dob)
	}), nil
}

func (s *PersonStore) FindByNameAndDob(ctx context.Context, firstNameKey, lastNameKey string, dob time.Time) ([]models.Candidate, error) {
	if firstNameKey == "" || lastNameKey == "" {
		return nil, nil
	}
	return s.find(ctx, func(p models.Person) bool {
		return id.NameKey(p.FirstName) == firstNameKey &&
			id.NameKey(p.LastName) == lastNameKey &&
			sameDate(p.DateOfBirth, dob)
	}), nil
}

func (s *PersonStore) FindByNationalInsurance(ctx context.Context, nino string) ([]models.Candidate, error) {
	if nino == "" {
		return nil, nil
	}
	return s.find(ctx, func(p models.Person) bool {
		return id.NormalizeNINO(p.NationalInsuranceNumber) == nino
	}), nil
}

func (s *PersonStore) FindByTrn(ctx context.Context, trn id.Trn) ([]models.Candidate, error) {
	if trn.IsZero() {
		return nil, nil
	}
	return s.find(ctx, func(p models.Person) bool {
		return p.Trn == trn
	}), nil
}

// find never matches on empty values; callers only query fields they have.
func (s *PersonStore) find(ctx context.Context, match func(models.Person) bool) []models.Candidate {
	defer s.db.lock(ctx)()
	var out []models.Candidate
	for _, pid := range s.db.personOrder {
		p := s.db.persons[pid]
		if match(p) {
			out = append(out, models.CandidateFor(&p))
		}
	}
	return out
}

func (s *PersonStore) checkTrn(p *models.Person) error {
	if p.Trn.IsZero() || !p.IsActive() {
		return nil
	}
	if s.trnTaken(p.Trn, p.ID) {
		return fmt.Errorf("trn %s held by another active person: %w", p.Trn, sentinel.ErrConflict)
	}
	return nil
}

func (s *PersonStore) trnTaken(trn id.Trn, except id.PersonID) bool {
	for pid, other := range s.db.persons {
		if pid != except && other.Trn == trn && other.IsActive() {
			return true
		}
	}
	return false
}

func (s *PersonStore) trnAllocated(trn id.Trn) bool {
	for _, other := range s.db.persons {
		if other.Trn == trn {
			return true
		}
	}
	return false
}

func sameDate(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return models.DateOnly(a).Equal(models.DateOnly(b))
}
