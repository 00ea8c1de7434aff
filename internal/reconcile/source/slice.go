package source

import (
	"context"
	"io"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
)

// Slice serves records already held in memory, numbering rows from 1 when
// they carry no row number.
type Slice struct {
	records []models.IncomingRecord
	next    int
}

func NewSlice(records ...models.IncomingRecord) *Slice {
	return &Slice{records: records}
}

func (s *Slice) Next(ctx context.Context) (models.IncomingRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.IncomingRecord{}, err
	}
	if s.next >= len(s.records) {
		return models.IncomingRecord{}, io.EOF
	}
	rec := s.records[s.next]
	s.next++
	if rec.RowNumber == 0 {
		rec.RowNumber = s.next
	}
	return rec, nil
}
