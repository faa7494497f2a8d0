// Package arbitrage holds the pure detection logic: price arithmetic and
// the market-snapshot-to-opportunity function. Nothing in here performs IO,
// which keeps the math independently testable.
package arbitrage

import "github.com/alanyoungcy/polyarb/internal/domain"

// PriceSum returns the sum of the given tokens' prices.
func PriceSum(tokens []domain.Token) float64 {
	var sum float64
	for _, t := range tokens {
		sum += t.Price
	}
	return sum
}

// AskPrices projects the per-token prices into an ordered list, matching the
// token order of the input.
func AskPrices(tokens []domain.Token) []float64 {
	prices := make([]float64, len(tokens))
	for i, t := range tokens {
		prices[i] = t.Price
	}
	return prices
}
