package notify

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// Sink adapts a Notifier to the scanner's EventSink contract. Only
// new_opportunity produces an alert; expiries and scan summaries are too
// noisy for outbound channels and are dropped here (the WebSocket feed
// still carries them).
type Sink struct {
	notifier *Notifier
}

// NewSink creates a Sink on top of the given Notifier.
func NewSink(notifier *Notifier) *Sink {
	return &Sink{notifier: notifier}
}

// NewOpportunity formats and dispatches an arbitrage alert.
func (s *Sink) NewOpportunity(ctx context.Context, opp domain.Opportunity) error {
	message := fmt.Sprintf(
		"%s\nNet profit: $%.4f (%.2f%%)\nTotal cost: $%.4f\nLiquidity: $%.0f",
		opp.MarketQuestion, opp.NetProfit, opp.NetProfitPct, opp.TotalCost, opp.MinLiquidity,
	)
	if opp.Slug != "" {
		message += "\nhttps://polymarket.com/event/" + opp.Slug
	}
	return s.notifier.Notify(ctx, domain.EventNewOpportunity, "New Arbitrage Opportunity!", message)
}

// OpportunityExpired is a no-op for outbound alerting.
func (s *Sink) OpportunityExpired(context.Context, string) error {
	return nil
}

// ScanComplete is a no-op for outbound alerting.
func (s *Sink) ScanComplete(context.Context, int, int) error {
	return nil
}

// Compile-time interface check.
var _ domain.EventSink = (*Sink)(nil)
