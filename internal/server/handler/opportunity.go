package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// OpportunityReader defines the read methods the opportunity handler requires.
type OpportunityReader interface {
	ListActive(ctx context.Context, opts domain.ActiveListOpts) ([]domain.Opportunity, error)
	GetByID(ctx context.Context, id string) (domain.Opportunity, error)
	Summary(ctx context.Context) (domain.Summary, error)
}

// ScanHistoryReader serves past scan cycle records.
type ScanHistoryReader interface {
	History(ctx context.Context, limit int) ([]domain.ScanRecord, error)
}

// OpportunityHandler serves opportunity query endpoints.
type OpportunityHandler struct {
	opps   OpportunityReader
	scans  ScanHistoryReader
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler with the given stores.
func NewOpportunityHandler(opps OpportunityReader, scans ScanHistoryReader, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{opps: opps, scans: scans, logger: logger}
}

// listOpportunitiesResponse wraps the active-opportunity listing.
type listOpportunitiesResponse struct {
	Opportunities []domain.Opportunity `json:"opportunities"`
	Count         int                  `json:"count"`
}

// ListActive returns the currently active opportunities, optionally filtered
// by a minimum net profit and ordered by profit, liquidity, or recency.
// GET /api/opportunities?min_profit=1.5&sort=profit&limit=50
func (h *OpportunityHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := domain.ActiveListOpts{Sort: domain.SortByProfit, Limit: 100}

	if v := q.Get("min_profit"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			writeError(w, http.StatusBadRequest, "min_profit must be a non-negative number")
			return
		}
		opts.MinProfitPct = f
	}

	if v := q.Get("sort"); v != "" {
		switch domain.ActiveSort(v) {
		case domain.SortByProfit, domain.SortByLiquidity, domain.SortByRecent:
			opts.Sort = domain.ActiveSort(v)
		default:
			writeError(w, http.StatusBadRequest, "sort must be one of: profit, liquidity, recent")
			return
		}
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if opts.Limit > 500 {
		opts.Limit = 500
	}

	opps, err := h.opps.ListActive(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	if opps == nil {
		opps = []domain.Opportunity{}
	}

	writeJSON(w, http.StatusOK, listOpportunitiesResponse{
		Opportunities: opps,
		Count:         len(opps),
	})
}

// GetByID returns a single opportunity, active or expired.
// GET /api/opportunities/{id}
func (h *OpportunityHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing opportunity id")
		return
	}

	opp, err := h.opps.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "opportunity not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get opportunity failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get opportunity")
		return
	}

	writeJSON(w, http.StatusOK, opp)
}

// Summary returns headline stats across the active set.
// GET /api/summary
func (h *OpportunityHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.opps.Summary(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: summary failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// History returns past scan cycles, newest first.
// GET /api/history?limit=50
func (h *OpportunityHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 200 {
		limit = 200
	}

	scans, err := h.scans.History(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: scan history failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list scan history")
		return
	}

	if scans == nil {
		scans = []domain.ScanRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"scans": scans})
}
