package s3blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeWriter captures uploads in memory.
type fakeWriter struct {
	paths        []string
	contentTypes []string
	bodies       [][]byte
	err          error
}

func (f *fakeWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if f.err != nil {
		return f.err
	}
	body, _ := io.ReadAll(data)
	f.paths = append(f.paths, path)
	f.contentTypes = append(f.contentTypes, contentType)
	f.bodies = append(f.bodies, body)
	return nil
}

type fakeOppArchive struct {
	opps []domain.Opportunity
	err  error
}

func (f *fakeOppArchive) ListExpiredBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error) {
	return f.opps, f.err
}

type fakeScanArchive struct {
	scans []domain.ScanRecord
	err   error
}

func (f *fakeScanArchive) ListBefore(ctx context.Context, before time.Time) ([]domain.ScanRecord, error) {
	return f.scans, f.err
}

func TestArchiveExpiredOpportunities(t *testing.T) {
	w := &fakeWriter{}
	a := NewArchiver(w, &fakeOppArchive{opps: []domain.Opportunity{
		{ID: "opp-1", MarketQuestion: "q1"},
		{ID: "opp-2", MarketQuestion: "q2"},
	}}, &fakeScanArchive{}, testLogger())

	cutoff := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	n, err := a.ArchiveExpiredOpportunities(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ArchiveExpiredOpportunities error = %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	if len(w.paths) != 1 || w.paths[0] != "archive/opportunities/2026-08.jsonl" {
		t.Errorf("paths = %v, want [archive/opportunities/2026-08.jsonl]", w.paths)
	}
	if w.contentTypes[0] != "application/x-ndjson" {
		t.Errorf("content type = %q, want application/x-ndjson", w.contentTypes[0])
	}

	lines := bytes.Split(bytes.TrimSpace(w.bodies[0]), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("jsonl lines = %d, want 2", len(lines))
	}
	if !strings.Contains(string(lines[0]), `"opp-1"`) {
		t.Errorf("first line = %s, want opp-1 record", lines[0])
	}
}

func TestArchiveSkipsEmpty(t *testing.T) {
	w := &fakeWriter{}
	a := NewArchiver(w, &fakeOppArchive{}, &fakeScanArchive{}, testLogger())

	ctx := context.Background()
	cutoff := time.Now()

	if n, err := a.ArchiveExpiredOpportunities(ctx, cutoff); err != nil || n != 0 {
		t.Errorf("ArchiveExpiredOpportunities = (%d, %v), want (0, nil)", n, err)
	}
	if n, err := a.ArchiveScans(ctx, cutoff); err != nil || n != 0 {
		t.Errorf("ArchiveScans = (%d, %v), want (0, nil)", n, err)
	}
	if len(w.paths) != 0 {
		t.Errorf("uploads = %v, want none for empty datasets", w.paths)
	}
}

func TestArchiveScansPath(t *testing.T) {
	w := &fakeWriter{}
	a := NewArchiver(w, &fakeOppArchive{}, &fakeScanArchive{scans: []domain.ScanRecord{
		{ID: "scan-1"},
	}}, testLogger())

	cutoff := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	n, err := a.ArchiveScans(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ArchiveScans error = %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	if len(w.paths) != 1 || w.paths[0] != "archive/scans/2025-12.jsonl" {
		t.Errorf("paths = %v, want [archive/scans/2025-12.jsonl]", w.paths)
	}
}

func TestArchiveErrors(t *testing.T) {
	t.Run("query failure", func(t *testing.T) {
		a := NewArchiver(&fakeWriter{}, &fakeOppArchive{err: errors.New("db down")}, &fakeScanArchive{}, testLogger())
		if _, err := a.ArchiveExpiredOpportunities(context.Background(), time.Now()); err == nil {
			t.Error("error = nil, want query failure surfaced")
		}
	})

	t.Run("upload failure", func(t *testing.T) {
		w := &fakeWriter{err: errors.New("no bucket")}
		a := NewArchiver(w, &fakeOppArchive{opps: []domain.Opportunity{{ID: "x"}}}, &fakeScanArchive{}, testLogger())
		if _, err := a.ArchiveExpiredOpportunities(context.Background(), time.Now()); err == nil {
			t.Error("error = nil, want upload failure surfaced")
		}
	})
}
