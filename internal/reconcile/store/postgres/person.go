// Package postgres holds the PostgreSQL implementations of the reconcile
// stores. Every store joins the transaction carried in the context, so a
// TxRunner unit covers all writes made through it.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	pg "github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/postgres"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/sentinel"
	txcontext "github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/tx"
)

// PersonStore persists canonical persons and answers candidate lookups.
// Name and NINO comparisons run against key columns computed on write.
type PersonStore struct {
	db *sql.DB
}

func NewPersonStore(db *sql.DB) *PersonStore {
	return &PersonStore{db: db}
}

const personColumns = `id, trn, first_name, middle_name, last_name, date_of_birth,
	national_insurance_number, gender, status, created_at, updated_at`

func (s *PersonStore) Create(ctx context.Context, p *models.Person) error {
	query := `
		INSERT INTO persons (` + personColumns + `, first_name_key, last_name_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		nullTrn(p.Trn),
		p.FirstName,
		p.MiddleName,
		p.LastName,
		nullDate(p.DateOfBirth),
		id.NormalizeNINO(p.NationalInsuranceNumber),
		string(p.Gender),
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
		id.NameKey(p.FirstName),
		id.NameKey(p.LastName),
	)
	if err != nil {
		return fmt.Errorf("insert person %s: %w", p.ID, pg.Classify(err))
	}
	return nil
}

func (s *PersonStore) Update(ctx context.Context, p *models.Person) error {
	query := `
		UPDATE persons SET
			trn = $2,
			first_name = $3,
			middle_name = $4,
			last_name = $5,
			date_of_birth = $6,
			national_insurance_number = $7,
			gender = $8,
			status = $9,
			updated_at = $10,
			first_name_key = $11,
			last_name_key = $12
		WHERE id = $1
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		nullTrn(p.Trn),
		p.FirstName,
		p.MiddleName,
		p.LastName,
		nullDate(p.DateOfBirth),
		id.NormalizeNINO(p.NationalInsuranceNumber),
		string(p.Gender),
		string(p.Status),
		p.UpdatedAt,
		id.NameKey(p.FirstName),
		id.NameKey(p.LastName),
	)
	if err != nil {
		return fmt.Errorf("update person %s: %w", p.ID, pg.Classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("person %s: %w", p.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PersonStore) FindByID(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE id = $1`, uuid.UUID(personID))
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("person %s: %w", personID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find person %s: %w", personID, pg.Classify(err))
	}
	return p, nil
}

// Deactivate marks a person deactivated. Deactivation happens outside
// imports; the store exposes it for administration and tests.
func (s *PersonStore) Deactivate(ctx context.Context, personID id.PersonID, at time.Time) error {
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx,
		`UPDATE persons SET status = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(personID), string(models.PersonStatusDeactivated), at)
	if err != nil {
		return fmt.Errorf("deactivate person %s: %w", personID, pg.Classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("person %s: %w", personID, sentinel.ErrNotFound)
	}
	return nil
}

// NextTrn allocates from trn_seq, skipping values already held by a person
// (TRNs supplied by feeds are stored as-is).
func (s *PersonStore) NextTrn(ctx context.Context) (id.Trn, error) {
	exec := txcontext.Resolve(ctx, s.db)
	for {
		var n int64
		if err := exec.QueryRowContext(ctx, `SELECT nextval('trn_seq')`).Scan(&n); err != nil {
			return "", fmt.Errorf("allocate trn: %w", pg.Classify(err))
		}
		trn := id.Trn(strconv.FormatInt(n, 10))
		var taken bool
		err := exec.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM persons WHERE trn = $1)`, string(trn)).Scan(&taken)
		if err != nil {
			return "", fmt.Errorf("check trn %s: %w", trn, pg.Classify(err))
		}
		if !taken {
			return trn, nil
		}
	}
}

func (s *PersonStore) FindByNationalInsuranceAndDob(ctx context.Context, nino string, dob time.Time) ([]models.Candidate, error) {
	if nino == "" || dob.IsZero() {
		return nil, nil
	}
	return s.candidates(ctx, "nino_and_dob",
		`national_insurance_number = $1 AND date_of_birth = $2`, nino, models.DateOnly(dob))
}

func (s *PersonStore) FindByNameAndDob(ctx context.Context, firstNameKey, lastNameKey string, dob time.Time) ([]models.Candidate, error) {
	if firstNameKey == "" || lastNameKey == "" || dob.IsZero() {
		return nil, nil
	}
	return s.candidates(ctx, "name_and_dob",
		`first_name_key = $1 AND last_name_key = $2 AND date_of_birth = $3`,
		firstNameKey, lastNameKey, models.DateOnly(dob))
}

func (s *PersonStore) FindByNationalInsurance(ctx context.Context, nino string) ([]models.Candidate, error) {
	if nino == "" {
		return nil, nil
	}
	return s.candidates(ctx, "nino", `national_insurance_number = $1`, nino)
}

func (s *PersonStore) FindByTrn(ctx context.Context, trn id.Trn) ([]models.Candidate, error) {
	if trn.IsZero() {
		return nil, nil
	}
	return s.candidates(ctx, "trn", `trn = $1`, string(trn))
}

func (s *PersonStore) candidates(ctx context.Context, lookup, where string, args ...any) ([]models.Candidate, error) {
	query := `SELECT id, trn, status FROM persons WHERE ` + where + ` ORDER BY created_at, id`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates by %s: %w", lookup, pg.Classify(err))
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		var (
			pid    uuid.UUID
			trn    sql.NullString
			status string
		)
		if err := rows.Scan(&pid, &trn, &status); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, models.Candidate{
			PersonID:    id.PersonID(pid),
			Trn:         id.Trn(trn.String),
			Deactivated: models.PersonStatus(status) != models.PersonStatusActive,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates by %s: %w", lookup, pg.Classify(err))
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row scanner) (*models.Person, error) {
	var (
		p      models.Person
		pid    uuid.UUID
		trn    sql.NullString
		dob    sql.NullTime
		gender string
		status string
	)
	err := row.Scan(&pid, &trn, &p.FirstName, &p.MiddleName, &p.LastName, &dob,
		&p.NationalInsuranceNumber, &gender, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = id.PersonID(pid)
	p.Trn = id.Trn(trn.String)
	if dob.Valid {
		p.DateOfBirth = models.DateOnly(dob.Time)
	}
	p.Gender = id.Gender(gender)
	p.Status = models.PersonStatus(status)
	return &p, nil
}

func nullTrn(t id.Trn) sql.NullString {
	return sql.NullString{String: string(t), Valid: !t.IsZero()}
}

func nullDate(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: models.DateOnly(t), Valid: true}
}
