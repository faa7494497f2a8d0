package domain

// Token is one tradable outcome share of a market, priced in [0,1]. The
// upstream API does not enforce the price range, so consumers must treat
// out-of-range prices as suspect rather than impossible.
type Token struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
}

// Market represents a Polymarket prediction market as seen by the scan
// pipeline. ConditionID is the preferred stable key; ID is the fallback.
type Market struct {
	ID          string  `json:"id"`
	ConditionID string  `json:"condition_id"`
	Question    string  `json:"question"`
	Slug        string  `json:"slug"`
	Tokens      []Token `json:"tokens"`
	Liquidity   float64 `json:"liquidity"`
	Volume24h   float64 `json:"volume_24h"`
	Closed      bool    `json:"closed"`
	EventTitle  string  `json:"event_title,omitempty"`
}

// Key returns the stable identity of the market: the condition ID when
// present, the market ID otherwise.
func (m Market) Key() string {
	if m.ConditionID != "" {
		return m.ConditionID
	}
	return m.ID
}
