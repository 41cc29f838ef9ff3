// Package archive exports processed ledger rows to cold storage and prunes
// them from the primary database.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

// Config holds the archiver's schedule and retention parameters.
type Config struct {
	// Retention is how long processed rows stay in the primary database
	// before being exported and pruned.
	Retention time.Duration

	// Interval is how often the archiver checks for exportable rows.
	Interval time.Duration
}

// Archiver exports processed activity rows older than the retention window
// as JSONL objects and deletes them afterwards. Rows are only pruned after
// the upload succeeds, so a failed export leaves the database untouched.
type Archiver struct {
	ledger domain.ActivityStore
	blob   domain.BlobWriter
	cfg    Config
	logger *slog.Logger

	now func() time.Time
}

// New creates an Archiver.
func New(ledger domain.ActivityStore, blob domain.BlobWriter, cfg Config, logger *slog.Logger) *Archiver {
	return &Archiver{
		ledger: ledger,
		blob:   blob,
		cfg:    cfg,
		logger: logger.With("component", "archiver"),
		now:    time.Now,
	}
}

// Run archives on the configured interval until the context is cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	a.logger.Info("ledger archiver started",
		"retention", a.cfg.Retention, "interval", a.cfg.Interval)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		if n, err := a.ArchiveOnce(ctx); err != nil {
			a.logger.Warn("archive pass failed", "error", err)
		} else if n > 0 {
			a.logger.Info("archived processed trades", "count", n)
		}

		select {
		case <-ctx.Done():
			a.logger.Info("ledger archiver stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ArchiveOnce exports and prunes one batch of expired rows. Returns how many
// rows were archived.
func (a *Archiver) ArchiveOnce(ctx context.Context) (int64, error) {
	cutoff := a.now().Add(-a.cfg.Retention)

	rows, err := a.ledger.ListProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive: query expired rows: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(rows)
	if err != nil {
		return 0, fmt.Errorf("archive: marshal rows: %w", err)
	}

	path := archivePath(cutoff)
	if err := a.blob.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("archive: upload %s: %w", path, err)
	}

	deleted, err := a.ledger.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		// The export landed; the rows will be re-exported and pruned on the
		// next pass.
		return int64(len(rows)), fmt.Errorf("archive: prune after upload: %w", err)
	}

	a.logger.Info("archive uploaded", "path", path, "rows", len(rows), "pruned", deleted)
	return deleted, nil
}

// archivePath builds the object key for one export, partitioned by the
// year-month of the cutoff:
//
//	archive/activities/2026-03.jsonl
func archivePath(cutoff time.Time) string {
	return fmt.Sprintf("archive/activities/%s.jsonl", cutoff.Format("2006-01"))
}

// marshalJSONL serialises rows as newline-delimited JSON.
func marshalJSONL(rows []domain.Activity) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, row := range rows {
		if err := enc.Encode(row); err != nil {
			return nil, fmt.Errorf("jsonl encode row %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
