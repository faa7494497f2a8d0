package domain

import "time"

// ArbitrageType classifies how an opportunity was mispriced.
type ArbitrageType string

const (
	// ArbBinaryMispricing is a two-outcome market whose Yes+No asks sum
	// below the guaranteed payout.
	ArbBinaryMispricing ArbitrageType = "BINARY_MISPRICING"

	// ArbDutchBookUnder is a multi-outcome market whose complete outcome
	// set can be bought for less than the guaranteed payout.
	ArbDutchBookUnder ArbitrageType = "DUTCH_BOOK_UNDER"

	// ArbMultiMarketInconsistency is reserved for cross-condition
	// detection, which the scanner does not perform yet.
	ArbMultiMarketInconsistency ArbitrageType = "MULTI_MARKET_INCONSISTENCY"
)

// OrderSide is the direction of a trade leg.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// TradeLeg is one buy instruction inside an opportunity. Current detection
// always buys one unit of every outcome; SuggestedSize is not a sizing
// recommendation.
type TradeLeg struct {
	TokenID       string    `json:"token_id"`
	Outcome       string    `json:"outcome"`
	Side          OrderSide `json:"side"`
	Price         float64   `json:"price"`
	SuggestedSize float64   `json:"suggested_size"`
}

// Opportunity is a detected risk-free arbitrage: buying all complementary
// outcome tokens of one market costs less than the guaranteed $1 payout.
// The ID is a pure function of the market identity, so rescans of the same
// market upsert the same row instead of creating duplicates.
type Opportunity struct {
	ID               string        `json:"id"`
	DetectedAt       time.Time     `json:"detected_at"`
	ArbitrageType    ArbitrageType `json:"arbitrage_type"`
	EventTitle       string        `json:"event_title,omitempty"`
	MarketQuestion   string        `json:"market_question"`
	MarketsInvolved  []string      `json:"markets_involved"`
	TotalCost        float64       `json:"total_cost"`
	GuaranteedPayout float64       `json:"guaranteed_payout"`
	GrossProfit      float64       `json:"gross_profit"`
	GrossProfitPct   float64       `json:"gross_profit_percent"`
	EstimatedFees    float64       `json:"estimated_fees"`
	NetProfit        float64       `json:"net_profit"`
	NetProfitPct     float64       `json:"net_profit_percent"`
	TradeLegs        []TradeLeg    `json:"trade_legs"`
	MinLiquidity     float64       `json:"min_liquidity"`
	Slug             string        `json:"slug"`
	IsActive         bool          `json:"is_active"`
	LastSeenAt       *time.Time    `json:"last_seen_at,omitempty"`
	TimesDetected    int           `json:"times_detected"`
	ExpiredAt        *time.Time    `json:"expired_at,omitempty"`
}
