package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/models"
	id "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/testutil"
)

func drain(t *testing.T, c *CSV) ([]models.IncomingRecord, error) {
	t.Helper()
	var out []models.IncomingRecord
	for {
		rec, err := c.Next(context.Background())
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func TestCSV(t *testing.T) {
	testutil.Given(t, "a well formed file", func(t *testing.T) {
		input := "TRN,Forename,Surname,Date of Birth,NI Number,Sex,Employer\n" +
			"1234567,Ann,Lee,1980-02-29,ab 12 34 56 c,F,Acme\n" +
			",\"Bob, Jr\",Day,03/04/1975,,,\n"
		c, err := NewCSV("payroll.csv", strings.NewReader(input))
		require.NoError(t, err)

		recs, err := drain(t, c)
		require.NoError(t, err)
		require.Len(t, recs, 2)

		testutil.Then(t, "recognised columns are mapped", func(t *testing.T) {
			assert.Equal(t, 1, recs[0].RowNumber)
			assert.Equal(t, id.Trn("1234567"), recs[0].Trn)
			assert.Equal(t, "Ann", recs[0].FirstName)
			assert.Equal(t, time.Date(1980, 2, 29, 0, 0, 0, 0, time.UTC), recs[0].DateOfBirth)
			assert.Equal(t, "AB123456C", recs[0].NINO())
			assert.Equal(t, id.GenderFemale, recs[0].Gender)
			assert.Empty(t, recs[0].Problems)
		})

		testutil.Then(t, "raw data keeps the row as csv", func(t *testing.T) {
			assert.Equal(t, `,"Bob, Jr",Day,03/04/1975,,,`, recs[1].RawLine)
			assert.Equal(t, time.Date(1975, 4, 3, 0, 0, 0, 0, time.UTC), recs[1].DateOfBirth)
			assert.True(t, recs[1].Trn.IsZero())
		})
	})

	testutil.Given(t, "a header only file", func(t *testing.T) {
		c, err := NewCSV("empty.csv", strings.NewReader("trn,first_name,last_name\n"))
		require.NoError(t, err)
		recs, err := drain(t, c)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	testutil.Given(t, "a completely empty file", func(t *testing.T) {
		c, err := NewCSV("empty.csv", strings.NewReader(""))
		require.NoError(t, err)
		recs, err := drain(t, c)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	testutil.Given(t, "bad values in a well formed row", func(t *testing.T) {
		c, err := NewCSV("bad.csv", strings.NewReader("trn,dob,gender\n12AB,31/02/1980,x\n"))
		require.NoError(t, err)
		recs, err := drain(t, c)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Len(t, recs[0].Problems, 3)
		assert.Contains(t, recs[0].Problems[1], "date_of_birth")
	})

	testutil.Given(t, "rows with the wrong field count", func(t *testing.T) {
		input := "trn,first_name,last_name\n" +
			"1234567,Ann,Lee\n" +
			"7654321,Bob\n" +
			"2345678,Cy,O,Neil\n" +
			"3456789,Dee,Fry\n"
		c, err := NewCSV("short.csv", strings.NewReader(input))
		require.NoError(t, err)
		recs, err := drain(t, c)
		require.NoError(t, err)
		require.Len(t, recs, 4)

		testutil.Then(t, "each uneven row carries a problem and keeps its columns", func(t *testing.T) {
			assert.Equal(t, []string{"row has 2 fields, header has 3"}, recs[1].Problems)
			assert.Equal(t, "Bob", recs[1].FirstName)
			assert.Equal(t, []string{"row has 4 fields, header has 3"}, recs[2].Problems)
			assert.Equal(t, "7654321,Bob", recs[1].RawLine)
		})

		testutil.Then(t, "rows after them are still read", func(t *testing.T) {
			assert.Empty(t, recs[3].Problems)
			assert.Equal(t, 4, recs[3].RowNumber)
			assert.Equal(t, "Dee", recs[3].FirstName)
		})
	})

	testutil.Given(t, "malformed quoting", func(t *testing.T) {
		c, err := NewCSV("quote.csv", strings.NewReader("first_name,last_name\nAnn,Lee\n\"Bob,Day\n"))
		require.NoError(t, err)
		recs, err := drain(t, c)
		testutil.Then(t, "rows before it are read and the stream fails", func(t *testing.T) {
			assert.Len(t, recs, 1)
			assert.Error(t, err)
		})
	})

	testutil.Given(t, "a header with no recognised columns", func(t *testing.T) {
		_, err := NewCSV("junk.csv", strings.NewReader("a,b,c\n1,2,3\n"))
		assert.Error(t, err)
	})
}

func TestDecode(t *testing.T) {
	const body = "first_name,last_name\nZoë,O'Brien\n"

	testutil.Given(t, "a utf-8 file with a byte order mark", func(t *testing.T) {
		c, err := NewCSV("bom.csv", strings.NewReader("\uFEFF"+body))
		require.NoError(t, err)
		recs, err := drain(t, c)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "Zoë", recs[0].FirstName)
	})

	testutil.Given(t, "a windows-1252 file", func(t *testing.T) {
		encoded, err := charmap.Windows1252.NewEncoder().String(body)
		require.NoError(t, err)
		c, err := NewCSV("legacy.csv", strings.NewReader(encoded))
		require.NoError(t, err)
		recs, err := drain(t, c)
		require.NoError(t, err)
		assert.Equal(t, "Zoë", recs[0].FirstName)
	})

	testutil.Given(t, "a gzip file", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte(body))
		require.NoError(t, zw.Close())

		c, err := NewCSV("feed.csv.gz", &buf)
		require.NoError(t, err)
		defer c.Close()
		recs, err := drain(t, c)
		require.NoError(t, err)
		assert.Equal(t, "O'Brien", recs[0].LastName)
	})

	testutil.Given(t, "a zstd file", func(t *testing.T) {
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		compressed := enc.EncodeAll([]byte(body), nil)
		require.NoError(t, enc.Close())

		c, err := NewCSV("feed.csv.zst", bytes.NewReader(compressed))
		require.NoError(t, err)
		defer c.Close()
		recs, err := drain(t, c)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})
}

func TestPending(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	write := func(name string, mod time.Time) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("trn\n1234567\n"), 0o600))
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
	write("old.csv", base)
	write("b.csv", base.Add(2*time.Hour))
	write("a.csv.gz", base.Add(time.Hour))
	write("notes.txt", base.Add(3*time.Hour))

	files, err := NewPending(dir, base).Files()
	require.NoError(t, err)

	testutil.Then(t, "only newer feed files are listed oldest first", func(t *testing.T) {
		require.Len(t, files, 2)
		assert.Equal(t, "a.csv.gz", files[0].Name)
		assert.Equal(t, "b.csv", files[1].Name)
	})

	testutil.Then(t, "a pending file opens as a stream", func(t *testing.T) {
		c, err := files[1].Open()
		require.NoError(t, err)
		defer c.Close()
		recs, err := drain(t, c)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	testutil.Then(t, "a missing inbox is an error", func(t *testing.T) {
		_, err := NewPending(filepath.Join(dir, "missing"), base).Files()
		assert.Error(t, err)
	})
}

func TestSlice(t *testing.T) {
	s := NewSlice(models.IncomingRecord{LastName: "Lee"}, models.IncomingRecord{RowNumber: 9})
	ctx := context.Background()

	first, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.RowNumber)
	second, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, second.RowNumber)
	_, err = s.Next(ctx)
	assert.Equal(t, io.EOF, err)
}
