package arbitrage

import (
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// guaranteedPayout is what one full set of complementary outcome tokens
// settles for.
const guaranteedPayout = 1.0

// Params configures the detector thresholds.
type Params struct {
	// FeePct is the flat fee charged on settlement, as a fraction of the
	// payout (0.02 means 2%).
	FeePct float64

	// MinNetProfitPct is the minimum net profit, as a percentage of capital
	// committed, below which a mispricing is not worth reporting.
	MinNetProfitPct float64
}

// OpportunityID derives the stable identity of an opportunity from its
// market. xxhash is a non-cryptographic 64-bit hash; collisions are accepted
// as negligible at the scale of one venue's market list. The same market
// always yields the same ID, which is what makes the store upsert
// idempotent across rescans.
func OpportunityID(m domain.Market) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(m.Key()))
}

// Detect maps one market snapshot to at most one opportunity. It returns nil
// when the market has fewer than two positively priced tokens, when the
// price sum reaches the guaranteed payout, or when the net profit after fees
// falls below the configured minimum.
func Detect(p Params, m domain.Market, now time.Time) *domain.Opportunity {
	if len(m.Tokens) < 2 {
		return nil
	}

	var valid []domain.Token
	for _, t := range m.Tokens {
		if t.Price > 0 {
			valid = append(valid, t)
		}
	}
	if len(valid) < 2 {
		return nil
	}

	priceSum := PriceSum(valid)
	if priceSum >= guaranteedPayout {
		return nil
	}

	totalCost := priceSum
	grossProfit := guaranteedPayout - totalCost
	grossProfitPct := 0.0
	if totalCost > 0 {
		grossProfitPct = grossProfit / totalCost * 100
	}

	estimatedFees := guaranteedPayout * p.FeePct
	netProfit := grossProfit - estimatedFees
	netProfitPct := 0.0
	if totalCost > 0 {
		netProfitPct = netProfit / totalCost * 100
	}

	if netProfitPct < p.MinNetProfitPct {
		return nil
	}

	arbType := domain.ArbDutchBookUnder
	if len(valid) == 2 {
		arbType = domain.ArbBinaryMispricing
	}

	return &domain.Opportunity{
		ID:               OpportunityID(m),
		DetectedAt:       now,
		ArbitrageType:    arbType,
		EventTitle:       m.EventTitle,
		MarketQuestion:   m.Question,
		MarketsInvolved:  []string{m.Key()},
		TotalCost:        round4(totalCost),
		GuaranteedPayout: guaranteedPayout,
		GrossProfit:      round4(grossProfit),
		GrossProfitPct:   round2(grossProfitPct),
		EstimatedFees:    round4(estimatedFees),
		NetProfit:        round4(netProfit),
		NetProfitPct:     round2(netProfitPct),
		TradeLegs:        tradeLegs(m),
		MinLiquidity:     m.Liquidity,
		Slug:             m.Slug,
		IsActive:         true,
		TimesDetected:    1,
	}
}

// tradeLegs builds one BUY leg per outcome token. SuggestedSize is fixed at
// one unit; there is no depth-aware sizing.
func tradeLegs(m domain.Market) []domain.TradeLeg {
	legs := make([]domain.TradeLeg, 0, len(m.Tokens))
	for _, t := range m.Tokens {
		legs = append(legs, domain.TradeLeg{
			TokenID:       t.TokenID,
			Outcome:       t.Outcome,
			Side:          domain.SideBuy,
			Price:         t.Price,
			SuggestedSize: 1.0,
		})
	}
	return legs
}

// round4 and round2 pin cost/profit values to 4 decimals and percentages to
// 2 for display and storage stability.
func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
func round2(v float64) float64 { return math.Round(v*1e2) / 1e2 }
