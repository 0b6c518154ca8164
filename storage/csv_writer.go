package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// RejectWriter records rows an import skipped, so they can be inspected and
// fixed by hand. It is safe for concurrent use.
type RejectWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
	rows   int
}

// NewRejectWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewRejectWriter(path string) (*RejectWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	w.Comma = ';'

	if err := w.Write([]string{"line", "reason", "row"}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &RejectWriter{path: path, file: f, writer: w}, nil
}

// Reject appends one skipped row.
func (c *RejectWriter) Reject(line int, reason, row string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write([]string{strconv.Itoa(line), reason, row}); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	c.rows++
	c.writer.Flush()
	return c.writer.Error()
}

// Rows returns how many rows have been rejected so far.
func (c *RejectWriter) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

func (c *RejectWriter) Path() string {
	return c.path
}

// Close flushes and closes the underlying file. An empty report is removed.
func (c *RejectWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if err := c.file.Close(); err != nil {
		return err
	}
	if c.rows == 0 {
		return os.Remove(c.path)
	}
	return nil
}
