package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"agent-optimus/metrics"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

// ImporterConfig carries the import settings from config.Config.
type ImporterConfig struct {
	BatchSize  int
	Source     string
	Editor     string
	RejectsDir string
}

// ImportSummary reports what one import did.
type ImportSummary struct {
	RunID     string
	Rows      int
	Processed int
	Skipped   int
	Failed    int
	Committed int
	Chunks    int
	Rejects   string
}

// Importer streams an uploaded CSV into the properties collection.
type Importer struct {
	bucket   storage.Bucket
	store    storage.PropertyStore
	cleaner  *Cleaner
	enricher Enricher
	cfg      ImporterConfig
	logger   *utils.Logger
}

func NewImporter(bucket storage.Bucket, store storage.PropertyStore, cfg ImporterConfig, logger *utils.Logger) *Importer {
	return &Importer{
		bucket:  bucket,
		store:   store,
		cleaner: NewCleaner(cfg.Source, cfg.Editor),
		cfg:     cfg,
		logger:  logger,
	}
}

// WithEnricher enables listing enrichment for every import.
func (im *Importer) WithEnricher(e Enricher) *Importer {
	im.enricher = e
	return im
}

// Import processes the blob at path for agentID and deletes it once every
// record has been committed. On failure the blob is left for inspection.
func (im *Importer) Import(ctx context.Context, path, agentID string) (*ImportSummary, error) {
	rc, err := im.bucket.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("import: open %q: %w", path, err)
	}

	summary, err := im.ImportReader(ctx, rc, agentID)
	// Release the blob before deleting it; object stores may refuse to
	// remove a blob that is still being read.
	if cerr := rc.Close(); cerr != nil {
		im.logger.Warn("[importer] Closing %s: %v", path, cerr)
	}
	if err != nil {
		im.logger.Error("[importer] Import of %s failed, file kept for retry: %v", path, err)
		return summary, err
	}

	if err := im.bucket.Delete(ctx, path); err != nil {
		im.logger.Warn("[importer] Could not delete %s after commit: %v", path, err)
	}
	return summary, nil
}

// ImportReader runs the pipeline over r. Bad rows are logged and skipped;
// only read and commit failures are returned.
func (im *Importer) ImportReader(ctx context.Context, r io.Reader, agentID string) (*ImportSummary, error) {
	start := time.Now()
	summary := &ImportSummary{RunID: uuid.NewString()}
	log := im.logger.With("run", summary.RunID)

	err := im.run(ctx, r, agentID, summary, log)
	metrics.ImportDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Imports.WithLabelValues("error").Inc()
		return summary, err
	}
	metrics.Imports.WithLabelValues("ok").Inc()

	log.Info("[importer] Imported %d rows for agent %s: %d committed in %d chunks, %d skipped, %d failed",
		summary.Rows, agentID, summary.Committed, summary.Chunks, summary.Skipped, summary.Failed)
	return summary, nil
}

func (im *Importer) run(ctx context.Context, r io.Reader, agentID string, summary *ImportSummary, log *utils.Logger) error {
	rows, err := NewRowReader(r)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	rejects := im.openRejects(summary.RunID, log)
	if rejects != nil {
		defer func() {
			summary.Rejects = rejects.Path()
			if rejects.Rows() == 0 {
				summary.Rejects = ""
			}
			if err := rejects.Close(); err != nil {
				log.Warn("[importer] Closing rejects report: %v", err)
			}
		}()
	}
	reject := func(line int, reason, raw string) {
		if rejects == nil {
			return
		}
		if err := rejects.Reject(line, reason, raw); err != nil {
			log.Warn("[importer] Could not record rejected line %d: %v", line, err)
		}
	}

	writer := NewBatchWriter(im.store, im.cfg.BatchSize, log)
	if im.enricher != nil {
		writer.WithEnricher(im.enricher)
	}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import: cancelled after %d rows: %w", summary.Rows, err)
		}

		raw, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		summary.Rows++
		line := rows.Line()

		var rowErr *RowError
		if errors.As(err, &rowErr) {
			summary.Failed++
			metrics.ImportRows.WithLabelValues("failed").Inc()
			log.Warn("[importer] Skipping malformed line %d (%v): %q", line, rowErr.Err, rowErr.Raw)
			reject(line, rowErr.Err.Error(), rowErr.Raw)
			continue
		}
		if err != nil {
			return fmt.Errorf("import: read: %w", err)
		}

		rec, ok := im.cleaner.Clean(raw, agentID)
		if !ok {
			summary.Skipped++
			metrics.ImportRows.WithLabelValues("skipped").Inc()
			log.Debug("[importer] Skipping line %d without property_url", line)
			reject(line, "missing property_url", joinRaw(rows.Header(), raw))
			continue
		}

		summary.Processed++
		metrics.ImportRows.WithLabelValues("processed").Inc()
		if err := writer.Add(ctx, rec); err != nil {
			summary.Committed, summary.Chunks = writer.Committed(), writer.Chunks()
			return fmt.Errorf("import: %w", err)
		}
	}

	err = writer.Flush(ctx)
	summary.Committed, summary.Chunks = writer.Committed(), writer.Chunks()
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}

func (im *Importer) openRejects(runID string, log *utils.Logger) *storage.RejectWriter {
	if im.cfg.RejectsDir == "" {
		return nil
	}
	path := filepath.Join(im.cfg.RejectsDir, time.Now().UTC().Format("20060102T150405")+"_"+runID+".csv")
	w, err := storage.NewRejectWriter(path)
	if err != nil {
		log.Warn("[importer] Rejects report disabled for this run: %v", err)
		return nil
	}
	return w
}

func joinRaw(header []string, raw map[string]string) string {
	values := make([]string, 0, len(header))
	for _, h := range header {
		values = append(values, raw[h])
	}
	return strings.Join(values, ";")
}
