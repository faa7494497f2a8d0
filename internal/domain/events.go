package domain

import "context"

// Event types emitted by the scanner. Payload shapes match what WebSocket
// clients and the notification channels consume.
const (
	EventNewOpportunity     = "new_opportunity"
	EventOpportunityExpired = "opportunity_expired"
	EventScanComplete       = "scan_complete"
)

// NewOpportunityEvent is published when a market first becomes (or returns
// to being) profitable in a cycle.
type NewOpportunityEvent struct {
	Type string      `json:"type"`
	Data Opportunity `json:"data"`
}

// OpportunityExpiredEvent is published exactly once when a previously
// active opportunity is no longer detected.
type OpportunityExpiredEvent struct {
	Type          string `json:"type"`
	OpportunityID string `json:"opportunity_id"`
}

// ScanCompleteEvent is published unconditionally at the end of every cycle,
// successful or not.
type ScanCompleteEvent struct {
	Type string           `json:"type"`
	Data ScanCompleteData `json:"data"`
}

// ScanCompleteData carries the cycle summary counts.
type ScanCompleteData struct {
	Markets       int `json:"markets"`
	Opportunities int `json:"opportunities"`
}

// EventSink receives scanner lifecycle events. Implementations must be
// transport-agnostic; the scanner treats every sink as fire-and-forget and
// swallows sink errors, so a failing subscriber can never abort a cycle.
type EventSink interface {
	NewOpportunity(ctx context.Context, opp Opportunity) error
	OpportunityExpired(ctx context.Context, id string) error
	ScanComplete(ctx context.Context, markets, opportunities int) error
}
