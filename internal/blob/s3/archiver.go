package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// BlobWriter is the upload surface the archiver requires.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// OpportunityArchiveStore provides read access to expired opportunities for
// archival purposes.
type OpportunityArchiveStore interface {
	// ListExpiredBefore returns all inactive opportunities that expired
	// strictly before the given cutoff time.
	ListExpiredBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error)
}

// ScanArchiveStore provides read access to finished scan records for
// archival purposes.
type ScanArchiveStore interface {
	// ListBefore returns all non-running scan records started strictly
	// before the given cutoff time.
	ListBefore(ctx context.Context, before time.Time) ([]domain.ScanRecord, error)
}

// Archiver serialises old records to JSONL and uploads them to object
// storage, partitioned by year-month.
//
// Deletion of the archived rows from Postgres is intentionally NOT performed
// here. That is a separate, explicit step to run after the archive has been
// verified.
type Archiver struct {
	writer BlobWriter
	opps   OpportunityArchiveStore
	scans  ScanArchiveStore
	logger *slog.Logger
}

// NewArchiver creates an Archiver over the given writer and stores.
func NewArchiver(writer BlobWriter, opps OpportunityArchiveStore, scans ScanArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		opps:   opps,
		scans:  scans,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveExpiredOpportunities uploads all opportunities expired before the
// cutoff to archive/opportunities/YYYY-MM.jsonl and returns the count.
func (a *Archiver) ArchiveExpiredOpportunities(ctx context.Context, before time.Time) (int64, error) {
	opps, err := a.opps.ListExpiredBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities marshal: %w", err)
	}

	path := archivePath("opportunities", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities upload: %w", err)
	}

	return int64(len(opps)), nil
}

// ArchiveScans uploads all finished scan records started before the cutoff
// to archive/scans/YYYY-MM.jsonl and returns the count.
func (a *Archiver) ArchiveScans(ctx context.Context, before time.Time) (int64, error) {
	scans, err := a.scans.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive scans query: %w", err)
	}
	if len(scans) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(scans)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive scans marshal: %w", err)
	}

	path := archivePath("scans", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive scans upload: %w", err)
	}

	return int64(len(scans)), nil
}

// RunPeriodic archives everything older than the retention window on a fixed
// interval until the context ends. Failures are logged and retried on the
// next tick.
func (a *Archiver) RunPeriodic(ctx context.Context, interval time.Duration, retention time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)

			nOpps, err := a.ArchiveExpiredOpportunities(ctx, cutoff)
			if err != nil {
				a.logger.Warn("opportunity archival failed", slog.String("error", err.Error()))
			}

			nScans, err := a.ArchiveScans(ctx, cutoff)
			if err != nil {
				a.logger.Warn("scan archival failed", slog.String("error", err.Error()))
			}

			if nOpps > 0 || nScans > 0 {
				a.logger.Info("archival cycle complete",
					slog.Int64("opportunities", nOpps),
					slog.Int64("scans", nScans),
					slog.Time("cutoff", cutoff),
				)
			}
		}
	}
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/opportunities/2026-08.jsonl
//	archive/scans/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
