package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"agent-optimus/models"
)

const byteOrderMark = "\uFEFF"

// ErrNoHeader is returned when the input has no header line.
var ErrNoHeader = errors.New("csv: missing header row")

// RowError describes a row that could not be read. The stream stays usable:
// the next call to Next moves on to the following row.
type RowError struct {
	Line int
	Raw  string
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("csv: line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// RowReader pulls ';'-delimited rows one at a time, keyed by the normalized
// header. It never holds more than the current row in memory.
type RowReader struct {
	r      *csv.Reader
	header []string
	line   int
}

// NewRowReader reads and normalizes the header row of r.
func NewRowReader(r io.Reader) (*RowReader, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	// Strict quoting: a stray quote fails its own row as a ParseError
	// instead of swallowing the lines after it into one field.
	cr.LazyQuotes = false
	cr.ReuseRecord = true

	fields, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = NormalizeHeader(f)
	}
	line, _ := cr.FieldPos(0)
	return &RowReader{r: cr, header: header, line: line}, nil
}

// Header returns the normalized header names in column order.
func (rr *RowReader) Header() []string {
	return append([]string(nil), rr.header...)
}

// Next returns the next row, io.EOF at the end of input, or a *RowError for
// a row that is malformed.
func (rr *RowReader) Next() (models.RawRecord, error) {
	fields, err := rr.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		var pe *csv.ParseError
		rr.line++
		if errors.As(err, &pe) {
			rr.line = pe.StartLine
		}
		return nil, &RowError{Line: rr.line, Raw: strings.Join(fields, ";"), Err: err}
	}
	line, _ := rr.r.FieldPos(0)
	rr.line = line

	raw := strings.Join(fields, ";")
	if !utf8.ValidString(raw) {
		return nil, &RowError{Line: line, Raw: strings.ToValidUTF8(raw, "?"), Err: errors.New("invalid UTF-8")}
	}

	rec := make(models.RawRecord, len(rr.header))
	for i, value := range fields {
		if i >= len(rr.header) {
			break
		}
		key := rr.header[i]
		if key == "" {
			continue
		}
		if _, dup := rec[key]; dup {
			continue
		}
		rec[key] = strings.TrimSpace(value)
	}
	return rec, nil
}

// Line returns the input line the last row started on.
func (rr *RowReader) Line() int { return rr.line }

// NormalizeHeader maps a header cell to its canonical key: BOM stripped,
// trimmed, lower-cased, whitespace runs replaced by underscores.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, byteOrderMark)
	h = strings.Trim(strings.TrimSpace(h), `"`)
	h = strings.ToLower(h)
	return strings.Join(strings.Fields(h), "_")
}
