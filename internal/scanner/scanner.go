// Package scanner implements the stateful scan controller: it runs
// detection cycles over the full market list, maintains the in-memory
// active-opportunity set, diffs it cycle-over-cycle, persists changes, and
// emits lifecycle events.
package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/polyarb/internal/arbitrage"
	"github.com/alanyoungcy/polyarb/internal/domain"
)

// MarketSource provides the full current market listing.
type MarketSource interface {
	FetchAllMarkets(ctx context.Context) ([]domain.Market, error)
}

// PriceSource provides batched token price lookups.
type PriceSource interface {
	FetchPrices(ctx context.Context, tokenIDs []string) (map[string]float64, error)
}

// Config holds the scan cadence and detection thresholds.
type Config struct {
	Interval        time.Duration
	MinProfitPct    float64
	MinLiquidityUSD float64
	FeePct          float64
}

// ScanOutcome is the structured result of a manual scan request.
type ScanOutcome struct {
	Skipped            bool   `json:"skipped"`
	Message            string `json:"message"`
	MarketsScanned     int    `json:"markets_scanned"`
	OpportunitiesFound int    `json:"opportunities_found"`
}

// Scanner owns all mutable scan state: the running flag, the active
// opportunity map, and the cycle counters. All access goes through its
// mutex, and the concurrency guard ensures at most one cycle is ever in
// flight, so the map is effectively single-writer.
type Scanner struct {
	markets MarketSource
	prices  PriceSource
	opps    domain.OpportunityStore
	scans   domain.ScanStore
	sink    domain.EventSink
	cfg     Config
	logger  *slog.Logger

	mu             sync.Mutex
	running        bool
	inFlight       bool
	active         map[string]domain.Opportunity
	scanCount      int
	lastScanAt     time.Time
	marketsScanned int
}

// New creates a Scanner. sink may be nil, in which case events are dropped.
func New(markets MarketSource, prices PriceSource, opps domain.OpportunityStore, scans domain.ScanStore, sink domain.EventSink, cfg Config, logger *slog.Logger) *Scanner {
	return &Scanner{
		markets: markets,
		prices:  prices,
		opps:    opps,
		scans:   scans,
		sink:    sink,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "scanner")),
		active:  make(map[string]domain.Opportunity),
	}
}

// RunContinuous runs scan cycles separated by the configured interval until
// Stop is called or the context is cancelled. A stop request takes effect at
// the next loop boundary; an in-flight fetch or backoff wait is not
// interrupted by Stop (context cancellation does interrupt the sleep).
func (s *Scanner) RunContinuous(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("continuous scanning already running")
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("continuous scanning started",
		slog.Duration("interval", s.cfg.Interval),
	)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.logger.Info("continuous scanning stopped")
	}()

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		if !s.isRunning() {
			return nil
		}

		s.beginCycle()
		s.runSingleScan(ctx)
		s.endCycle()

		if !s.isRunning() {
			return nil
		}

		timer.Reset(s.cfg.Interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Stop clears the running flag. The continuous loop notices it at the next
// loop boundary; it does not preempt a cycle in progress.
func (s *Scanner) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// TriggerScan runs one scan cycle on demand. It is rejected with a skipped
// outcome while continuous mode is active or another manual scan is still in
// flight, preventing two cycles from concurrently mutating the active set.
func (s *Scanner) TriggerScan(ctx context.Context) ScanOutcome {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ScanOutcome{Skipped: true, Message: "scanner is running continuously, skipping manual trigger"}
	}
	if s.inFlight {
		s.mu.Unlock()
		return ScanOutcome{Skipped: true, Message: "a scan is already in flight"}
	}
	s.inFlight = true
	s.mu.Unlock()
	defer s.endCycle()

	markets, found := s.runSingleScan(ctx)
	return ScanOutcome{
		Message:            "scan complete",
		MarketsScanned:     markets,
		OpportunitiesFound: found,
	}
}

// Status reports the controller's live state.
func (s *Scanner) Status() domain.ScannerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.ScannerStatus{
		IsRunning:           s.running,
		ScanCount:           s.scanCount,
		MarketsScanned:      s.marketsScanned,
		ActiveOpportunities: len(s.active),
	}
	if !s.lastScanAt.IsZero() {
		t := s.lastScanAt
		st.LastScanAt = &t
	}
	return st
}

// runSingleScan executes one complete cycle: fetch, per-market detection,
// active-set diff, persistence, and event emission. It never returns an
// error; failures are recorded on the scan record and logged. It returns the
// market and opportunity counts for the caller's structured result.
func (s *Scanner) runSingleScan(ctx context.Context) (marketCount, foundCount int) {
	start := time.Now()
	scanID := s.logScanStart(ctx, start)

	var cycleErr error
	currentIDs := make(map[string]struct{})

	markets, err := s.markets.FetchAllMarkets(ctx)
	if err != nil {
		// Only context cancellation surfaces here; retry exhaustion comes
		// back as a shorter list.
		cycleErr = err
	}
	marketCount = len(markets)

	if cycleErr == nil {
		prices := s.fetchPriceOverrides(ctx, markets)

		for i := range markets {
			opp, perr := s.processMarket(ctx, markets[i], prices)
			if perr != nil {
				s.logger.Warn("error processing market, skipping",
					slog.String("market_id", markets[i].ID),
					slog.String("error", perr.Error()),
				)
				continue
			}
			if opp == nil {
				continue
			}

			foundCount++
			currentIDs[opp.ID] = struct{}{}

			if _, uerr := s.opps.Upsert(ctx, *opp); uerr != nil {
				s.logger.Warn("opportunity upsert failed, skipping market",
					slog.String("opportunity_id", opp.ID),
					slog.String("error", uerr.Error()),
				)
				continue
			}

			s.mu.Lock()
			s.active[opp.ID] = *opp
			s.mu.Unlock()

			s.emit(ctx, domain.EventNewOpportunity, func(ctx context.Context) error {
				return s.sink.NewOpportunity(ctx, *opp)
			})
		}

		s.expireMissing(ctx, currentIDs)

		s.mu.Lock()
		s.marketsScanned = marketCount
		s.scanCount++
		s.lastScanAt = time.Now().UTC()
		s.mu.Unlock()

		s.logger.Info("scan complete",
			slog.Int("markets", marketCount),
			slog.Int("opportunities", foundCount),
			slog.Duration("duration", time.Since(start)),
		)
	} else {
		s.logger.Error("scan failed", slog.String("error", cycleErr.Error()))
	}

	s.logScanComplete(ctx, scanID, marketCount, foundCount, time.Since(start), cycleErr)

	s.emit(ctx, domain.EventScanComplete, func(ctx context.Context) error {
		return s.sink.ScanComplete(ctx, marketCount, foundCount)
	})

	return marketCount, foundCount
}

// processMarket applies the liquidity floor, merges fetched price overrides
// into the market's tokens, and runs the detector. Tokens without an
// override keep the price they arrived with.
func (s *Scanner) processMarket(_ context.Context, m domain.Market, prices map[string]float64) (*domain.Opportunity, error) {
	if m.Liquidity < s.cfg.MinLiquidityUSD {
		return nil, nil
	}

	for i := range m.Tokens {
		if p, ok := prices[m.Tokens[i].TokenID]; ok {
			m.Tokens[i].Price = p
		}
	}

	params := arbitrage.Params{
		FeePct:          s.cfg.FeePct,
		MinNetProfitPct: s.cfg.MinProfitPct,
	}
	return arbitrage.Detect(params, m, time.Now().UTC()), nil
}

// fetchPriceOverrides collects every token ID across the market list and
// resolves current prices in one batched call.
func (s *Scanner) fetchPriceOverrides(ctx context.Context, markets []domain.Market) map[string]float64 {
	var tokenIDs []string
	for i := range markets {
		for _, t := range markets[i].Tokens {
			if t.TokenID != "" {
				tokenIDs = append(tokenIDs, t.TokenID)
			}
		}
	}
	if len(tokenIDs) == 0 {
		return nil
	}

	prices, err := s.prices.FetchPrices(ctx, tokenIDs)
	if err != nil {
		s.logger.Warn("price fetch failed, using listing prices",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return prices
}

// expireMissing transitions every previously active opportunity that was not
// detected this cycle to inactive: mark it in persistence, drop it from the
// active map, and emit the expiry event. Each ID transitions exactly once;
// a persistence failure is logged but does not keep the ID active, which
// would re-emit the expiry on the next cycle.
func (s *Scanner) expireMissing(ctx context.Context, currentIDs map[string]struct{}) {
	s.mu.Lock()
	var expired []string
	for id := range s.active {
		if _, ok := currentIDs[id]; !ok {
			expired = append(expired, id)
			delete(s.active, id)
		}
	}
	s.mu.Unlock()

	now := time.Now().UTC()
	for _, id := range expired {
		if err := s.opps.MarkInactive(ctx, id, now); err != nil {
			s.logger.Warn("mark inactive failed",
				slog.String("opportunity_id", id),
				slog.String("error", err.Error()),
			)
		}
		s.emit(ctx, domain.EventOpportunityExpired, func(ctx context.Context) error {
			return s.sink.OpportunityExpired(ctx, id)
		})
	}
}

// emit delivers one event to the sink, swallowing any failure. A broken
// subscriber never aborts a cycle.
func (s *Scanner) emit(ctx context.Context, event string, fn func(context.Context) error) {
	if s.sink == nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.logger.Warn("event sink failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Scanner) logScanStart(ctx context.Context, startedAt time.Time) string {
	if s.scans == nil {
		return ""
	}
	id, err := s.scans.LogScanStart(ctx, startedAt)
	if err != nil {
		s.logger.Warn("log scan start failed", slog.String("error", err.Error()))
		return ""
	}
	return id
}

func (s *Scanner) logScanComplete(ctx context.Context, id string, markets, found int, d time.Duration, scanErr error) {
	if s.scans == nil || id == "" {
		return
	}
	if err := s.scans.LogScanComplete(ctx, id, markets, found, d, scanErr); err != nil {
		s.logger.Warn("log scan complete failed", slog.String("error", err.Error()))
	}
}

func (s *Scanner) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scanner) beginCycle() {
	s.mu.Lock()
	s.inFlight = true
	s.mu.Unlock()
}

func (s *Scanner) endCycle() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}
