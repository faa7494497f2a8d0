package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// EventSink implements domain.EventSink by publishing JSON-encoded events to
// the signal bus channels. Opportunity lifecycle events go to
// ChannelOpportunities, cycle summaries to ChannelScans.
type EventSink struct {
	bus *SignalBus
}

// NewEventSink creates an EventSink on top of the given bus.
func NewEventSink(bus *SignalBus) *EventSink {
	return &EventSink{bus: bus}
}

// NewOpportunity publishes a new_opportunity event.
func (s *EventSink) NewOpportunity(ctx context.Context, opp domain.Opportunity) error {
	return s.publish(ctx, ChannelOpportunities, domain.NewOpportunityEvent{
		Type: domain.EventNewOpportunity,
		Data: opp,
	})
}

// OpportunityExpired publishes an opportunity_expired event.
func (s *EventSink) OpportunityExpired(ctx context.Context, id string) error {
	return s.publish(ctx, ChannelOpportunities, domain.OpportunityExpiredEvent{
		Type:          domain.EventOpportunityExpired,
		OpportunityID: id,
	})
}

// ScanComplete publishes a scan_complete summary event.
func (s *EventSink) ScanComplete(ctx context.Context, markets, opportunities int) error {
	return s.publish(ctx, ChannelScans, domain.ScanCompleteEvent{
		Type: domain.EventScanComplete,
		Data: domain.ScanCompleteData{
			Markets:       markets,
			Opportunities: opportunities,
		},
	})
}

func (s *EventSink) publish(ctx context.Context, channel string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}
	return s.bus.Publish(ctx, channel, payload)
}

// Compile-time interface check.
var _ domain.EventSink = (*EventSink)(nil)
