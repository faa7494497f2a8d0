package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, detected_at, arbitrage_type, event_title, market_question,
	markets_involved, total_cost, guaranteed_payout, gross_profit,
	gross_profit_percent, estimated_fees, net_profit, net_profit_percent,
	trade_legs, min_liquidity, slug, is_active, last_seen_at, times_detected,
	expired_at`

// Upsert inserts the opportunity or, when the ID already exists, bumps its
// detection count, refreshes last_seen_at and the profit/cost fields, and
// reactivates it. The deterministic ID makes this idempotent across rescans
// of the same market.
func (s *OpportunityStore) Upsert(ctx context.Context, opp domain.Opportunity) (string, error) {
	markets, err := json.Marshal(opp.MarketsInvolved)
	if err != nil {
		return "", fmt.Errorf("postgres: marshal markets involved: %w", err)
	}
	legs, err := json.Marshal(opp.TradeLegs)
	if err != nil {
		return "", fmt.Errorf("postgres: marshal trade legs: %w", err)
	}

	const query = `
		INSERT INTO opportunities (
			id, detected_at, arbitrage_type, event_title, market_question,
			markets_involved, total_cost, guaranteed_payout, gross_profit,
			gross_profit_percent, estimated_fees, net_profit, net_profit_percent,
			trade_legs, min_liquidity, slug, is_active, last_seen_at, times_detected
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, TRUE, $17, 1
		)
		ON CONFLICT (id) DO UPDATE SET
			last_seen_at         = EXCLUDED.last_seen_at,
			times_detected       = opportunities.times_detected + 1,
			is_active            = TRUE,
			expired_at           = NULL,
			total_cost           = EXCLUDED.total_cost,
			gross_profit         = EXCLUDED.gross_profit,
			gross_profit_percent = EXCLUDED.gross_profit_percent,
			estimated_fees       = EXCLUDED.estimated_fees,
			net_profit           = EXCLUDED.net_profit,
			net_profit_percent   = EXCLUDED.net_profit_percent,
			trade_legs           = EXCLUDED.trade_legs,
			min_liquidity        = EXCLUDED.min_liquidity
		RETURNING id`

	var eventTitle *string
	if opp.EventTitle != "" {
		eventTitle = &opp.EventTitle
	}

	var id string
	err = s.pool.QueryRow(ctx, query,
		opp.ID, opp.DetectedAt, string(opp.ArbitrageType), eventTitle, opp.MarketQuestion,
		markets, opp.TotalCost, opp.GuaranteedPayout, opp.GrossProfit,
		opp.GrossProfitPct, opp.EstimatedFees, opp.NetProfit, opp.NetProfitPct,
		legs, opp.MinLiquidity, opp.Slug, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("postgres: upsert opportunity %s: %w", opp.ID, err)
	}
	return id, nil
}

// MarkInactive flags the opportunity inactive with the given expiry time.
func (s *OpportunityStore) MarkInactive(ctx context.Context, id string, expiredAt time.Time) error {
	const query = `
		UPDATE opportunities SET
			is_active  = FALSE,
			expired_at = $2
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, expiredAt)
	if err != nil {
		return fmt.Errorf("postgres: mark opportunity inactive %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListActive returns currently active opportunities above the profit floor,
// ordered by the requested sort key.
func (s *OpportunityStore) ListActive(ctx context.Context, opts domain.ActiveListOpts) ([]domain.Opportunity, error) {
	orderBy := "net_profit_percent DESC"
	switch opts.Sort {
	case domain.SortByLiquidity:
		orderBy = "min_liquidity DESC"
	case domain.SortByRecent:
		orderBy = "detected_at DESC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + oppSelectCols + `
		FROM opportunities
		WHERE is_active = TRUE AND net_profit_percent >= $1
		ORDER BY ` + orderBy + `
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, opts.MinProfitPct, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active opportunities: %w", err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// GetByID returns one opportunity, active or not.
func (s *OpportunityStore) GetByID(ctx context.Context, id string) (domain.Opportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities WHERE id = $1`

	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("postgres: get opportunity %s: %w", id, err)
	}
	defer rows.Close()

	opps, err := scanOpportunities(rows)
	if err != nil {
		return domain.Opportunity{}, err
	}
	if len(opps) == 0 {
		return domain.Opportunity{}, domain.ErrNotFound
	}
	return opps[0], nil
}

// Summary aggregates the active set: count, total net profit, best net
// profit percent, plus the market count of the most recent scan.
func (s *OpportunityStore) Summary(ctx context.Context) (domain.Summary, error) {
	const query = `
		SELECT
			COUNT(*),
			COALESCE(SUM(net_profit), 0),
			COALESCE(MAX(net_profit_percent), 0)
		FROM opportunities
		WHERE is_active = TRUE`

	var sum domain.Summary
	if err := s.pool.QueryRow(ctx, query).Scan(
		&sum.ActiveOpportunities,
		&sum.TotalProfitPotential,
		&sum.BestOpportunityPct,
	); err != nil {
		return domain.Summary{}, fmt.Errorf("postgres: summary aggregates: %w", err)
	}

	err := s.pool.QueryRow(ctx,
		`SELECT markets_scanned FROM scans ORDER BY started_at DESC LIMIT 1`,
	).Scan(&sum.MarketsScanned)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.Summary{}, fmt.Errorf("postgres: summary last scan: %w", err)
	}

	return sum, nil
}

// ListExpiredBefore returns inactive opportunities whose expiry is strictly
// before the cutoff. Used by the cold-storage archiver.
func (s *OpportunityStore) ListExpiredBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error) {
	query := `SELECT ` + oppSelectCols + `
		FROM opportunities
		WHERE is_active = FALSE AND expired_at IS NOT NULL AND expired_at < $1
		ORDER BY expired_at`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list expired opportunities: %w", err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// scanOpportunities reads all rows into domain opportunities, decoding the
// JSONB columns.
func scanOpportunities(rows pgx.Rows) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	for rows.Next() {
		var (
			opp        domain.Opportunity
			arbType    string
			eventTitle *string
			markets    []byte
			legs       []byte
		)
		if err := rows.Scan(
			&opp.ID, &opp.DetectedAt, &arbType, &eventTitle, &opp.MarketQuestion,
			&markets, &opp.TotalCost, &opp.GuaranteedPayout, &opp.GrossProfit,
			&opp.GrossProfitPct, &opp.EstimatedFees, &opp.NetProfit, &opp.NetProfitPct,
			&legs, &opp.MinLiquidity, &opp.Slug, &opp.IsActive, &opp.LastSeenAt,
			&opp.TimesDetected, &opp.ExpiredAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity row: %w", err)
		}

		opp.ArbitrageType = domain.ArbitrageType(arbType)
		if eventTitle != nil {
			opp.EventTitle = *eventTitle
		}
		if len(markets) > 0 {
			if err := json.Unmarshal(markets, &opp.MarketsInvolved); err != nil {
				return nil, fmt.Errorf("postgres: decode markets involved: %w", err)
			}
		}
		if len(legs) > 0 {
			if err := json.Unmarshal(legs, &opp.TradeLegs); err != nil {
				return nil, fmt.Errorf("postgres: decode trade legs: %w", err)
			}
		}

		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: opportunity rows: %w", err)
	}
	return opps, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
