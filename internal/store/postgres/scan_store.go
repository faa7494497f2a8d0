package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// ScanStore implements domain.ScanStore using PostgreSQL.
type ScanStore struct {
	pool *pgxpool.Pool
}

// NewScanStore creates a ScanStore backed by the given pool.
func NewScanStore(pool *pgxpool.Pool) *ScanStore {
	return &ScanStore{pool: pool}
}

const scanSelectCols = `id, started_at, completed_at, markets_scanned,
	opportunities_found, duration_ms, status, error_message`

// LogScanStart records a new scan in the running state and returns its ID.
func (s *ScanStore) LogScanStart(ctx context.Context, startedAt time.Time) (string, error) {
	id := uuid.NewString()

	const query = `
		INSERT INTO scans (id, started_at, status)
		VALUES ($1, $2, $3)`

	if _, err := s.pool.Exec(ctx, query, id, startedAt, string(domain.ScanStatusRunning)); err != nil {
		return "", fmt.Errorf("postgres: log scan start: %w", err)
	}
	return id, nil
}

// LogScanComplete finalizes a scan record with its counts, duration, and
// terminal status. A non-nil scanErr marks the record as errored with the
// message preserved.
func (s *ScanStore) LogScanComplete(ctx context.Context, id string, marketsScanned, opportunitiesFound int, duration time.Duration, scanErr error) error {
	status := domain.ScanStatusCompleted
	var errMsg *string
	if scanErr != nil {
		status = domain.ScanStatusError
		msg := scanErr.Error()
		errMsg = &msg
	}

	const query = `
		UPDATE scans SET
			completed_at        = $2,
			markets_scanned     = $3,
			opportunities_found = $4,
			duration_ms         = $5,
			status              = $6,
			error_message       = $7
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		id, time.Now().UTC(), marketsScanned, opportunitiesFound,
		duration.Milliseconds(), string(status), errMsg,
	)
	if err != nil {
		return fmt.Errorf("postgres: log scan complete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// History returns the most recent scan records, newest first.
func (s *ScanStore) History(ctx context.Context, limit int) ([]domain.ScanRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + scanSelectCols + `
		FROM scans
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan history: %w", err)
	}
	defer rows.Close()

	var records []domain.ScanRecord
	for rows.Next() {
		var (
			rec    domain.ScanRecord
			status string
			errMsg *string
		)
		if err := rows.Scan(
			&rec.ID, &rec.StartedAt, &rec.CompletedAt, &rec.MarketsScanned,
			&rec.OpportunitiesFound, &rec.DurationMs, &status, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan history row: %w", err)
		}
		rec.Status = domain.ScanStatus(status)
		if errMsg != nil {
			rec.ErrorMessage = *errMsg
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan history rows: %w", err)
	}
	return records, nil
}

// ListBefore returns completed or errored scans started strictly before the
// cutoff. Used by the cold-storage archiver.
func (s *ScanStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ScanRecord, error) {
	query := `SELECT ` + scanSelectCols + `
		FROM scans
		WHERE started_at < $1 AND status <> $2
		ORDER BY started_at`

	rows, err := s.pool.Query(ctx, query, before, string(domain.ScanStatusRunning))
	if err != nil {
		return nil, fmt.Errorf("postgres: list scans before: %w", err)
	}
	defer rows.Close()

	var records []domain.ScanRecord
	for rows.Next() {
		var (
			rec    domain.ScanRecord
			status string
			errMsg *string
		)
		if err := rows.Scan(
			&rec.ID, &rec.StartedAt, &rec.CompletedAt, &rec.MarketsScanned,
			&rec.OpportunitiesFound, &rec.DurationMs, &status, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("postgres: list scans row: %w", err)
		}
		rec.Status = domain.ScanStatus(status)
		if errMsg != nil {
			rec.ErrorMessage = *errMsg
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list scans rows: %w", err)
	}
	return records, nil
}

// Compile-time interface check.
var _ domain.ScanStore = (*ScanStore)(nil)
