package domain

import (
	"context"
	"time"
)

// ActiveSort selects the ordering for active-opportunity listings.
type ActiveSort string

const (
	SortByProfit    ActiveSort = "profit"
	SortByLiquidity ActiveSort = "liquidity"
	SortByRecent    ActiveSort = "recent"
)

// ActiveListOpts filters and orders an active-opportunity listing.
type ActiveListOpts struct {
	MinProfitPct float64
	Sort         ActiveSort
	Limit        int
}

// OpportunityStore persists detected opportunities. Upsert is keyed on the
// opportunity ID: a new ID inserts; an existing ID bumps times_detected,
// refreshes last_seen_at and the profit/cost fields, and reactivates the row.
type OpportunityStore interface {
	Upsert(ctx context.Context, opp Opportunity) (string, error)
	MarkInactive(ctx context.Context, id string, expiredAt time.Time) error
	ListActive(ctx context.Context, opts ActiveListOpts) ([]Opportunity, error)
	GetByID(ctx context.Context, id string) (Opportunity, error)
	Summary(ctx context.Context) (Summary, error)
}

// ScanStore persists scan cycle records.
type ScanStore interface {
	LogScanStart(ctx context.Context, startedAt time.Time) (string, error)
	LogScanComplete(ctx context.Context, id string, marketsScanned, opportunitiesFound int, duration time.Duration, scanErr error) error
	History(ctx context.Context, limit int) ([]ScanRecord, error)
}
