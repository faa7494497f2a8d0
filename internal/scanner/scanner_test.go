package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeMarketSource returns a fixed market list.
type fakeMarketSource struct {
	mu      sync.Mutex
	markets []domain.Market
	err     error
}

func (f *fakeMarketSource) FetchAllMarkets(ctx context.Context) ([]domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markets, f.err
}

func (f *fakeMarketSource) set(markets []domain.Market) {
	f.mu.Lock()
	f.markets = markets
	f.mu.Unlock()
}

// fakePriceSource returns a fixed price map.
type fakePriceSource struct {
	prices map[string]float64
	err    error
}

func (f *fakePriceSource) FetchPrices(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.prices == nil {
		return map[string]float64{}, nil
	}
	return f.prices, nil
}

// fakeOppStore records store calls in memory.
type fakeOppStore struct {
	mu           sync.Mutex
	upserts      []domain.Opportunity
	inactive     []string
	upsertErr    error
	markInactErr error
}

func (f *fakeOppStore) Upsert(ctx context.Context, opp domain.Opportunity) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return "", f.upsertErr
	}
	f.upserts = append(f.upserts, opp)
	return opp.ID, nil
}

func (f *fakeOppStore) MarkInactive(ctx context.Context, id string, expiredAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inactive = append(f.inactive, id)
	return f.markInactErr
}

func (f *fakeOppStore) ListActive(ctx context.Context, opts domain.ActiveListOpts) ([]domain.Opportunity, error) {
	return nil, nil
}

func (f *fakeOppStore) GetByID(ctx context.Context, id string) (domain.Opportunity, error) {
	return domain.Opportunity{}, domain.ErrNotFound
}

func (f *fakeOppStore) Summary(ctx context.Context) (domain.Summary, error) {
	return domain.Summary{}, nil
}

func (f *fakeOppStore) inactiveIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inactive...)
}

func (f *fakeOppStore) upserted() []domain.Opportunity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Opportunity(nil), f.upserts...)
}

// fakeScanStore records scan lifecycle calls.
type fakeScanStore struct {
	mu        sync.Mutex
	starts    int
	completes int
	lastErr   error
}

func (f *fakeScanStore) LogScanStart(ctx context.Context, startedAt time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return "scan-1", nil
}

func (f *fakeScanStore) LogScanComplete(ctx context.Context, id string, marketsScanned, opportunitiesFound int, duration time.Duration, scanErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	f.lastErr = scanErr
	return nil
}

func (f *fakeScanStore) History(ctx context.Context, limit int) ([]domain.ScanRecord, error) {
	return nil, nil
}

// fakeSink records emitted events.
type fakeSink struct {
	mu      sync.Mutex
	found   []string
	expired []string
	scans   int
	emitErr error
}

func (f *fakeSink) NewOpportunity(ctx context.Context, opp domain.Opportunity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.found = append(f.found, opp.ID)
	return f.emitErr
}

func (f *fakeSink) OpportunityExpired(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = append(f.expired, id)
	return f.emitErr
}

func (f *fakeSink) ScanComplete(ctx context.Context, marketsScanned, opportunitiesFound int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	return f.emitErr
}

func (f *fakeSink) expiredIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.expired...)
}

func (f *fakeSink) foundIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.found...)
}

func underpriced(id string) domain.Market {
	return domain.Market{
		ID:          id,
		ConditionID: "0x" + id,
		Question:    "q-" + id,
		Liquidity:   1000,
		Tokens: []domain.Token{
			{TokenID: id + "-yes", Outcome: "Yes", Price: 0.4},
			{TokenID: id + "-no", Outcome: "No", Price: 0.5},
		},
	}
}

func fairPriced(id string) domain.Market {
	m := underpriced(id)
	m.Tokens[0].Price = 0.5
	m.Tokens[1].Price = 0.5
	return m
}

func testConfig() Config {
	return Config{
		Interval:        10 * time.Millisecond,
		MinProfitPct:    0.5,
		MinLiquidityUSD: 100,
		FeePct:          0.02,
	}
}

func newTestScanner(src *fakeMarketSource, prices *fakePriceSource, opps *fakeOppStore, scans *fakeScanStore, sink *fakeSink) *Scanner {
	return New(src, prices, opps, scans, sink, testConfig(), testLogger())
}

func TestTriggerScanDetectsAndPersists(t *testing.T) {
	src := &fakeMarketSource{markets: []domain.Market{underpriced("m1"), fairPriced("m2")}}
	opps := &fakeOppStore{}
	scans := &fakeScanStore{}
	sink := &fakeSink{}
	s := newTestScanner(src, &fakePriceSource{}, opps, scans, sink)

	outcome := s.TriggerScan(context.Background())

	if outcome.Skipped {
		t.Fatalf("outcome skipped: %s", outcome.Message)
	}
	if outcome.MarketsScanned != 2 {
		t.Errorf("MarketsScanned = %d, want 2", outcome.MarketsScanned)
	}
	if outcome.OpportunitiesFound != 1 {
		t.Errorf("OpportunitiesFound = %d, want 1", outcome.OpportunitiesFound)
	}

	if got := opps.upserted(); len(got) != 1 {
		t.Fatalf("upserts = %d, want 1", len(got))
	}
	if got := sink.foundIDs(); len(got) != 1 {
		t.Errorf("new-opportunity events = %d, want 1", len(got))
	}
	if sink.scans != 1 {
		t.Errorf("scan-complete events = %d, want 1", sink.scans)
	}
	if scans.starts != 1 || scans.completes != 1 {
		t.Errorf("scan log start/complete = %d/%d, want 1/1", scans.starts, scans.completes)
	}

	st := s.Status()
	if st.ScanCount != 1 {
		t.Errorf("ScanCount = %d, want 1", st.ScanCount)
	}
	if st.MarketsScanned != 2 {
		t.Errorf("MarketsScanned = %d, want 2", st.MarketsScanned)
	}
	if st.ActiveOpportunities != 1 {
		t.Errorf("ActiveOpportunities = %d, want 1", st.ActiveOpportunities)
	}
	if st.LastScanAt == nil {
		t.Error("LastScanAt = nil, want set")
	}
	if st.IsRunning {
		t.Error("IsRunning = true, want false after manual scan")
	}
}

func TestExpiryExactlyOnce(t *testing.T) {
	src := &fakeMarketSource{markets: []domain.Market{underpriced("m1")}}
	opps := &fakeOppStore{}
	sink := &fakeSink{}
	s := newTestScanner(src, &fakePriceSource{}, opps, &fakeScanStore{}, sink)

	ctx := context.Background()

	s.TriggerScan(ctx)
	if len(sink.foundIDs()) != 1 {
		t.Fatalf("first scan found %d opportunities, want 1", len(sink.foundIDs()))
	}

	// The mispricing closes; the opportunity must expire on the next cycle.
	src.set([]domain.Market{fairPriced("m1")})
	s.TriggerScan(ctx)

	if got := sink.expiredIDs(); len(got) != 1 {
		t.Fatalf("expiry events after second scan = %d, want 1", len(got))
	}
	if got := opps.inactiveIDs(); len(got) != 1 {
		t.Fatalf("MarkInactive calls = %d, want 1", len(got))
	}
	if st := s.Status(); st.ActiveOpportunities != 0 {
		t.Errorf("ActiveOpportunities = %d, want 0", st.ActiveOpportunities)
	}

	// A third cycle must not re-emit the expiry.
	s.TriggerScan(ctx)
	if got := sink.expiredIDs(); len(got) != 1 {
		t.Errorf("expiry events after third scan = %d, want 1", len(got))
	}
}

func TestExpiryOnceEvenWhenMarkInactiveFails(t *testing.T) {
	src := &fakeMarketSource{markets: []domain.Market{underpriced("m1")}}
	opps := &fakeOppStore{markInactErr: errors.New("db down")}
	sink := &fakeSink{}
	s := newTestScanner(src, &fakePriceSource{}, opps, &fakeScanStore{}, sink)

	ctx := context.Background()
	s.TriggerScan(ctx)

	src.set(nil)
	s.TriggerScan(ctx)
	s.TriggerScan(ctx)

	if got := sink.expiredIDs(); len(got) != 1 {
		t.Errorf("expiry events = %d, want 1 despite persistence failure", len(got))
	}
}

func TestRedetectionBumpsStoreNotEvents(t *testing.T) {
	src := &fakeMarketSource{markets: []domain.Market{underpriced("m1")}}
	opps := &fakeOppStore{}
	sink := &fakeSink{}
	s := newTestScanner(src, &fakePriceSource{}, opps, &fakeScanStore{}, sink)

	ctx := context.Background()
	s.TriggerScan(ctx)
	s.TriggerScan(ctx)

	// Re-detection upserts again; the ID is stable across cycles.
	ups := opps.upserted()
	if len(ups) != 2 {
		t.Fatalf("upserts = %d, want 2", len(ups))
	}
	if ups[0].ID != ups[1].ID {
		t.Errorf("opportunity id changed across cycles: %q vs %q", ups[0].ID, ups[1].ID)
	}
	if got := sink.expiredIDs(); len(got) != 0 {
		t.Errorf("expiry events = %d, want 0 while still detected", len(got))
	}
}

func TestUpsertFailureSkipsActiveSetAndEvent(t *testing.T) {
	src := &fakeMarketSource{markets: []domain.Market{underpriced("m1")}}
	opps := &fakeOppStore{upsertErr: errors.New("db down")}
	sink := &fakeSink{}
	s := newTestScanner(src, &fakePriceSource{}, opps, &fakeScanStore{}, sink)

	outcome := s.TriggerScan(context.Background())

	if outcome.OpportunitiesFound != 1 {
		t.Errorf("OpportunitiesFound = %d, want 1 (detection still counted)", outcome.OpportunitiesFound)
	}
	if got := sink.foundIDs(); len(got) != 0 {
		t.Errorf("new-opportunity events = %d, want 0 after failed upsert", len(got))
	}
	if st := s.Status(); st.ActiveOpportunities != 0 {
		t.Errorf("ActiveOpportunities = %d, want 0 after failed upsert", st.ActiveOpportunities)
	}
}

func TestLiquidityFloor(t *testing.T) {
	thin := underpriced("m1")
	thin.Liquidity = 50 // below the 100 floor
	src := &fakeMarketSource{markets: []domain.Market{thin}}
	opps := &fakeOppStore{}
	s := newTestScanner(src, &fakePriceSource{}, opps, &fakeScanStore{}, &fakeSink{})

	outcome := s.TriggerScan(context.Background())

	if outcome.OpportunitiesFound != 0 {
		t.Errorf("OpportunitiesFound = %d, want 0 below liquidity floor", outcome.OpportunitiesFound)
	}
	if len(opps.upserted()) != 0 {
		t.Errorf("upserts = %d, want 0", len(opps.upserted()))
	}
}

func TestPriceOverridesApplied(t *testing.T) {
	// Listing prices show no arbitrage; live prices do.
	m := fairPriced("m1")
	src := &fakeMarketSource{markets: []domain.Market{m}}
	prices := &fakePriceSource{prices: map[string]float64{
		"m1-yes": 0.4,
		"m1-no":  0.5,
	}}
	opps := &fakeOppStore{}
	s := newTestScanner(src, prices, opps, &fakeScanStore{}, &fakeSink{})

	outcome := s.TriggerScan(context.Background())

	if outcome.OpportunitiesFound != 1 {
		t.Fatalf("OpportunitiesFound = %d, want 1 with live price overrides", outcome.OpportunitiesFound)
	}
	ups := opps.upserted()
	if len(ups) != 1 || ups[0].TotalCost != 0.9 {
		t.Errorf("upserted TotalCost = %v, want 0.9", ups[0].TotalCost)
	}
}

func TestPriceFetchFailureFallsBackToListing(t *testing.T) {
	src := &fakeMarketSource{markets: []domain.Market{underpriced("m1")}}
	prices := &fakePriceSource{err: errors.New("clob down")}
	s := newTestScanner(src, prices, &fakeOppStore{}, &fakeScanStore{}, &fakeSink{})

	outcome := s.TriggerScan(context.Background())

	if outcome.OpportunitiesFound != 1 {
		t.Errorf("OpportunitiesFound = %d, want 1 from listing prices", outcome.OpportunitiesFound)
	}
}

func TestTriggerScanSkippedWhileContinuous(t *testing.T) {
	src := &fakeMarketSource{}
	s := newTestScanner(src, &fakePriceSource{}, &fakeOppStore{}, &fakeScanStore{}, &fakeSink{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunContinuous(ctx)
	}()

	// Wait for the loop to take ownership.
	deadline := time.Now().Add(time.Second)
	for !s.Status().IsRunning {
		if time.Now().After(deadline) {
			t.Fatal("scanner never reported running")
		}
		time.Sleep(time.Millisecond)
	}

	outcome := s.TriggerScan(ctx)
	if !outcome.Skipped {
		t.Error("TriggerScan not skipped while continuous mode is active")
	}

	s.Stop()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("continuous loop did not exit")
	}

	if s.Status().IsRunning {
		t.Error("IsRunning = true after stop")
	}
}
