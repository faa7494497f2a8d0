package domain

import "time"

// ScanStatus is the lifecycle state of a scan record.
type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusError     ScanStatus = "error"
)

// ScanRecord is the persisted outcome of one scan cycle.
type ScanRecord struct {
	ID                 string     `json:"id"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	MarketsScanned     int        `json:"markets_scanned"`
	OpportunitiesFound int        `json:"opportunities_found"`
	DurationMs         int64      `json:"duration_ms"`
	Status             ScanStatus `json:"status"`
	ErrorMessage       string     `json:"error_message,omitempty"`
}

// ScannerStatus is the live state of the scan controller.
type ScannerStatus struct {
	IsRunning           bool       `json:"is_running"`
	LastScanAt          *time.Time `json:"last_scan_at,omitempty"`
	ScanCount           int        `json:"scan_count"`
	MarketsScanned      int        `json:"markets_scanned"`
	ActiveOpportunities int        `json:"active_opportunities_count"`
}

// Summary aggregates the currently active opportunity set.
type Summary struct {
	ActiveOpportunities  int     `json:"active_opportunities"`
	TotalProfitPotential float64 `json:"total_profit_potential"`
	BestOpportunityPct   float64 `json:"best_opportunity_percent"`
	MarketsScanned       int     `json:"markets_scanned"`
}
