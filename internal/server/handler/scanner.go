package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/scanner"
)

// ScannerControl defines the scanner lifecycle methods the handler requires.
type ScannerControl interface {
	StartContinuous() bool
	StopContinuous() bool
	TriggerScan(ctx context.Context) scanner.ScanOutcome
	Status() domain.ScannerStatus
}

// ScannerHandler serves the scanner control endpoints.
type ScannerHandler struct {
	control ScannerControl
	logger  *slog.Logger
}

// NewScannerHandler creates a ScannerHandler with the given control and logger.
func NewScannerHandler(control ScannerControl, logger *slog.Logger) *ScannerHandler {
	return &ScannerHandler{control: control, logger: logger}
}

// GetStatus responds with the current scanner state and cycle counters.
// GET /api/status
func (h *ScannerHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.control.Status())
}

// Start begins continuous scanning. Starting an already-running scanner is
// reported but not treated as an error.
// POST /api/start
func (h *ScannerHandler) Start(w http.ResponseWriter, r *http.Request) {
	if !h.control.StartContinuous() {
		writeJSON(w, http.StatusOK, map[string]string{"message": "scanner already running"})
		return
	}
	h.logger.InfoContext(r.Context(), "handler: continuous scanning started")
	writeJSON(w, http.StatusOK, map[string]string{"message": "scanner started"})
}

// Stop halts continuous scanning after the current cycle finishes.
// POST /api/stop
func (h *ScannerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if !h.control.StopContinuous() {
		writeJSON(w, http.StatusOK, map[string]string{"message": "scanner not running"})
		return
	}
	h.logger.InfoContext(r.Context(), "handler: continuous scanning stopped")
	writeJSON(w, http.StatusOK, map[string]string{"message": "scanner stopped"})
}

// TriggerScan runs a single on-demand scan cycle. The request is skipped
// (not failed) while continuous mode is active or another scan is in flight.
// POST /api/scan
func (h *ScannerHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	outcome := h.control.TriggerScan(r.Context())
	if outcome.Skipped {
		writeJSON(w, http.StatusConflict, outcome)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}
