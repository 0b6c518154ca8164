package services

import (
	"context"
	"fmt"

	"agent-optimus/metrics"
	"agent-optimus/models"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

// DefaultBatchSize keeps a chunk well inside document-store batch limits.
const DefaultBatchSize = 500

// Enricher fills fields a CSV left empty before records are committed.
type Enricher interface {
	Enrich(ctx context.Context, records []*models.PropertyRecord)
}

// BatchWriter buffers records and commits them in chunks of at most size
// records. Each chunk is one atomic CommitBatch; a multi-chunk import is
// atomic per chunk, not across the whole file.
type BatchWriter struct {
	store    storage.PropertyStore
	size     int
	enricher Enricher
	logger   *utils.Logger

	pending   []*models.PropertyRecord
	committed int
	chunks    int
}

// NewBatchWriter creates a writer. A size below 1 falls back to DefaultBatchSize.
func NewBatchWriter(store storage.PropertyStore, size int, logger *utils.Logger) *BatchWriter {
	if size < 1 {
		size = DefaultBatchSize
	}
	return &BatchWriter{store: store, size: size, logger: logger}
}

// WithEnricher sets an enricher run on every chunk before it is committed.
func (w *BatchWriter) WithEnricher(e Enricher) *BatchWriter {
	w.enricher = e
	return w
}

// Add buffers rec and commits the buffer once it is full.
func (w *BatchWriter) Add(ctx context.Context, rec *models.PropertyRecord) error {
	w.pending = append(w.pending, rec)
	if len(w.pending) >= w.size {
		return w.Flush(ctx)
	}
	return nil
}

// Flush commits whatever is buffered. On failure the buffer is dropped and
// nothing from it has been stored.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	chunk := w.pending
	w.pending = nil

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("writer: chunk %d not committed: %w", w.chunks+1, err)
	}
	if w.enricher != nil {
		w.enricher.Enrich(ctx, chunk)
	}
	if err := w.store.CommitBatch(ctx, chunk); err != nil {
		metrics.ImportBatches.WithLabelValues("error").Inc()
		return fmt.Errorf("writer: commit chunk %d (%d records): %w", w.chunks+1, len(chunk), err)
	}
	metrics.ImportBatches.WithLabelValues("ok").Inc()

	w.chunks++
	w.committed += len(chunk)
	w.logger.Debug("[writer] Committed chunk %d with %d records", w.chunks, len(chunk))
	return nil
}

// Commit writes records and returns how many were included.
func (w *BatchWriter) Commit(ctx context.Context, records []*models.PropertyRecord) (int, error) {
	for _, r := range records {
		if err := w.Add(ctx, r); err != nil {
			return w.committed, err
		}
	}
	if err := w.Flush(ctx); err != nil {
		return w.committed, err
	}
	return w.committed, nil
}

// Committed returns the number of records stored so far.
func (w *BatchWriter) Committed() int { return w.committed }

// Chunks returns the number of chunks committed so far.
func (w *BatchWriter) Chunks() int { return w.chunks }
