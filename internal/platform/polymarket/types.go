package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// flexFloat unmarshals from a JSON number or a numeric string. The Gamma API
// sends liquidity and volume as strings on some endpoints and numbers on
// others.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// flexPrice decodes the price-lookup payload, which the CLOB API delivers
// either as a bare number, a numeric string, or an object carrying a "price"
// field. A shape that cannot be interpreted leaves ok false so the caller
// falls back to the token's existing price.
type flexPrice struct {
	value float64
	ok    bool
}

func (p *flexPrice) UnmarshalJSON(data []byte) error {
	var f flexFloat
	if err := json.Unmarshal(data, &f); err == nil {
		p.value = float64(f)
		p.ok = true
		return nil
	}
	var obj struct {
		Price *flexFloat `json:"price"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Price != nil {
		p.value = float64(*obj.Price)
		p.ok = true
		return nil
	}
	p.ok = false
	return nil
}

// APIToken is a market outcome token as returned by the Gamma API.
type APIToken struct {
	TokenID string    `json:"token_id"`
	Outcome string    `json:"outcome"`
	Price   flexFloat `json:"price"`
}

// APIMarket is a market listing as returned by the Gamma API.
type APIMarket struct {
	ID             string     `json:"id"`
	Question       string     `json:"question"`
	ConditionID    string     `json:"conditionId"`
	Slug           string     `json:"slug"`
	Tokens         []APIToken `json:"tokens"`
	Volume24h      flexFloat  `json:"volume24hr"`
	Liquidity      flexFloat  `json:"liquidity"`
	Closed         bool       `json:"closed"`
	GroupItemTitle string     `json:"groupItemTitle"`
	EventTitle     string     `json:"eventTitle"`
}

// ToDomainMarket converts an APIMarket to a domain.Market.
func (m *APIMarket) ToDomainMarket() domain.Market {
	tokens := make([]domain.Token, 0, len(m.Tokens))
	for _, t := range m.Tokens {
		tokens = append(tokens, domain.Token{
			TokenID: t.TokenID,
			Outcome: t.Outcome,
			Price:   float64(t.Price),
		})
	}

	title := m.GroupItemTitle
	if title == "" {
		title = m.EventTitle
	}

	return domain.Market{
		ID:          m.ID,
		ConditionID: m.ConditionID,
		Question:    m.Question,
		Slug:        m.Slug,
		Tokens:      tokens,
		Liquidity:   float64(m.Liquidity),
		Volume24h:   float64(m.Volume24h),
		Closed:      m.Closed,
		EventTitle:  title,
	}
}

// APIBookLevel is one price level of an order book.
type APIBookLevel struct {
	Price flexFloat `json:"price"`
	Size  flexFloat `json:"size"`
}

// APIBook is an order book snapshot as returned by the CLOB API. It is
// fetched by FetchOrderbook, which exists for future depth-aware sizing and
// is not consumed by the detection flow.
type APIBook struct {
	Market  string         `json:"market"`
	AssetID string         `json:"asset_id"`
	Bids    []APIBookLevel `json:"bids"`
	Asks    []APIBookLevel `json:"asks"`
}
