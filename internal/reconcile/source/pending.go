package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// PendingFile is a feed file waiting to be imported.
type PendingFile struct {
	Path    string
	Name    string
	ModTime time.Time
}

// Pending lists feed files in an inbox directory that arrived after a
// watermark. The watermark is the modification time of the last file whose
// batch was sealed; the caller persists it with that seal.
type Pending struct {
	dir       string
	watermark time.Time
}

func NewPending(dir string, watermark time.Time) *Pending {
	return &Pending{dir: dir, watermark: watermark}
}

var feedSuffixes = []string{".csv", ".csv.gz", ".csv.zst", ".csv.zstd"}

// Files returns pending files oldest first. Ties are broken by name.
func (p *Pending) Files() ([]PendingFile, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("list inbox %s: %w", p.dir, err)
	}
	var files []PendingFile
	for _, e := range entries {
		if !e.Type().IsRegular() || !isFeedFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		if !info.ModTime().After(p.watermark) {
			continue
		}
		files = append(files, PendingFile{
			Path:    filepath.Join(p.dir, e.Name()),
			Name:    e.Name(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.Before(files[j].ModTime)
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// Open returns a CSV stream over f. The caller closes it.
func (f PendingFile) Open(opts ...CSVOption) (*CSV, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	c, err := NewCSV(f.Name, fh, opts...)
	if err != nil {
		_ = fh.Close()
		return nil, err
	}
	c.closer = multiCloser{c.closer, fh}
	return c, nil
}

func isFeedFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range feedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
