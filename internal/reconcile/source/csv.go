// Package source turns feed files into lazy, forward-only streams of
// incoming records.
package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
)

type column string

const (
	colTrn        column = "trn"
	colFirstName  column = "first_name"
	colMiddleName column = "middle_name"
	colLastName   column = "last_name"
	colDOB        column = "date_of_birth"
	colNINO       column = "national_insurance_number"
	colGender     column = "gender"
)

// headerAliases maps squashed header text (lower case, letters and digits
// only) to columns. Unknown headers are ignored.
var headerAliases = map[string]column{
	"trn":                     colTrn,
	"teacherreferencenumber":  colTrn,
	"firstname":               colFirstName,
	"forename":                colFirstName,
	"givenname":               colFirstName,
	"middlename":              colMiddleName,
	"middlenames":             colMiddleName,
	"lastname":                colLastName,
	"surname":                 colLastName,
	"familyname":              colLastName,
	"dateofbirth":             colDOB,
	"dob":                     colDOB,
	"birthdate":               colDOB,
	"nino":                    colNINO,
	"nationalinsurancenumber": colNINO,
	"ninumber":                colNINO,
	"gender":                  colGender,
	"sex":                     colGender,
}

// DefaultDateLayouts are tried in order when parsing dates of birth.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"20060102",
}

// CSV reads records from a delimited file with a header row.
//
// A row whose field count differs from the header's is still returned, with
// the columns it has mapped and a problem recorded, so the row fails alone.
// Malformed quoting or an I/O error is a stream error that ends the file.
type CSV struct {
	name    string
	reader  *csv.Reader
	closer  io.Closer
	columns map[int]column
	width   int
	layouts []string
	rows    int
	done    bool
}

type CSVOption func(*CSV)

// WithComma sets the field delimiter.
func WithComma(r rune) CSVOption {
	return func(c *CSV) {
		c.reader.Comma = r
	}
}

func WithDateLayouts(layouts ...string) CSVOption {
	return func(c *CSV) {
		c.layouts = layouts
	}
}

// NewCSV decodes r (see Decode) and reads its header. A file with no header
// at all, or only a header, yields no records.
func NewCSV(name string, r io.Reader, opts ...CSVOption) (*CSV, error) {
	decoded, closer, err := Decode(name, r)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "open "+name)
	}
	cr := csv.NewReader(decoded)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	c := &CSV{name: name, reader: cr, closer: closer, layouts: DefaultDateLayouts}
	for _, opt := range opts {
		opt(c)
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		c.done = true
		return c, nil
	}
	if err != nil {
		_ = closer.Close()
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "read header of "+name)
	}
	c.columns = mapHeader(header)
	c.width = len(header)
	if len(c.columns) == 0 {
		_ = closer.Close()
		return nil, dErrors.New(dErrors.CodeValidation, "header of "+name+" has no recognised columns")
	}
	return c, nil
}

func mapHeader(header []string) map[int]column {
	columns := make(map[int]column, len(header))
	seen := make(map[column]bool, len(header))
	for i, h := range header {
		col, ok := headerAliases[squash(h)]
		if !ok || seen[col] {
			continue
		}
		columns[i] = col
		seen[col] = true
	}
	return columns
}

func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Next returns the next record, or io.EOF once the file is exhausted.
func (c *CSV) Next(ctx context.Context) (models.IncomingRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.IncomingRecord{}, err
	}
	if c.done {
		return models.IncomingRecord{}, io.EOF
	}
	fields, err := c.reader.Read()
	if errors.Is(err, io.EOF) {
		c.done = true
		return models.IncomingRecord{}, io.EOF
	}
	if err != nil {
		c.done = true
		return models.IncomingRecord{}, fmt.Errorf("%s: %w", c.name, err)
	}
	c.rows++
	return c.record(fields), nil
}

// Close releases the underlying decoder.
func (c *CSV) Close() error {
	return c.closer.Close()
}

func (c *CSV) record(fields []string) models.IncomingRecord {
	rec := models.IncomingRecord{RowNumber: c.rows, RawLine: rawLine(fields, c.reader.Comma)}
	if len(fields) != c.width {
		rec.Problems = append(rec.Problems, fmt.Sprintf("row has %d fields, header has %d", len(fields), c.width))
	}
	for i, value := range fields {
		col, ok := c.columns[i]
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch col {
		case colTrn:
			trn, err := id.ParseTrn(value)
			if err != nil {
				rec.Problems = append(rec.Problems, fmt.Sprintf("trn: %s", dErrors.Message(err)))
			}
			rec.Trn = trn
		case colFirstName:
			rec.FirstName = value
		case colMiddleName:
			rec.MiddleName = value
		case colLastName:
			rec.LastName = value
		case colDOB:
			dob, ok := c.parseDate(value)
			if !ok {
				rec.Problems = append(rec.Problems, fmt.Sprintf("date_of_birth: cannot parse %q", value))
			}
			rec.DateOfBirth = dob
		case colNINO:
			rec.NationalInsuranceNumber = value
		case colGender:
			g, err := id.ParseGender(value)
			if err != nil {
				rec.Problems = append(rec.Problems, fmt.Sprintf("gender: %s", dErrors.Message(err)))
			}
			rec.Gender = g
		}
	}
	return rec
}

func (c *CSV) parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	for _, layout := range c.layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.DateOnly(t), true
		}
	}
	return time.Time{}, false
}

// rawLine re-encodes fields so the stored payload round-trips as CSV.
func rawLine(fields []string, comma rune) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma
	_ = w.Write(fields)
	w.Flush()
	return strings.TrimRight(buf.String(), "\r\n")
}
