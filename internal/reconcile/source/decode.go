package source

import (
	"bufio"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffSize is how much of a file is inspected to pick a character set.
const sniffSize = 64 << 10

// Compression is inferred from a file name's final extension.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// CompressionFor returns the compression implied by name.
func CompressionFor(name string) Compression {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// Decode returns a UTF-8 reader over r. Compressed input is inflated first.
// A UTF-8 byte order mark is dropped; input that is not valid UTF-8 is read
// as Windows-1252, which is what spreadsheet exports from feed providers use.
// The returned closer releases decompressor state and must be called.
func Decode(name string, r io.Reader) (io.Reader, io.Closer, error) {
	var closer io.Closer = nopCloser{}
	switch CompressionFor(name) {
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		r, closer = zr, zr
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		rc := zr.IOReadCloser()
		r, closer = rc, rc
	}

	br := bufio.NewReaderSize(r, sniffSize)
	sample, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		_ = closer.Close()
		return nil, nil, err
	}
	var fallback *encoding.Decoder
	if validUTF8Prefix(sample) {
		fallback = unicode.UTF8.NewDecoder()
	} else {
		fallback = charmap.Windows1252.NewDecoder()
	}
	return transform.NewReader(br, unicode.BOMOverride(fallback)), closer, nil
}

// validUTF8Prefix tolerates one rune cut off by the end of the sample.
func validUTF8Prefix(b []byte) bool {
	if utf8.Valid(b) {
		return true
	}
	for i := 1; i < utf8.UTFMax && i < len(b); i++ {
		head, tail := b[:len(b)-i], b[len(b)-i:]
		if utf8.RuneStart(tail[0]) && !utf8.FullRune(tail) {
			return utf8.Valid(head)
		}
	}
	return false
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
