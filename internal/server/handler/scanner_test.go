package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/scanner"
)

// fakeControl scripts the scanner lifecycle responses.
type fakeControl struct {
	running bool
	outcome scanner.ScanOutcome
	status  domain.ScannerStatus
}

func (f *fakeControl) StartContinuous() bool {
	if f.running {
		return false
	}
	f.running = true
	return true
}

func (f *fakeControl) StopContinuous() bool {
	if !f.running {
		return false
	}
	f.running = false
	return true
}

func (f *fakeControl) TriggerScan(ctx context.Context) scanner.ScanOutcome {
	return f.outcome
}

func (f *fakeControl) Status() domain.ScannerStatus {
	return f.status
}

func newScannerMux(ctrl *fakeControl) *http.ServeMux {
	h := NewScannerHandler(ctrl, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", h.GetStatus)
	mux.HandleFunc("POST /api/start", h.Start)
	mux.HandleFunc("POST /api/stop", h.Stop)
	mux.HandleFunc("POST /api/scan", h.TriggerScan)
	return mux
}

func TestStartStopLifecycle(t *testing.T) {
	ctrl := &fakeControl{}
	mux := newScannerMux(ctrl)

	post := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
		return rr
	}

	if rr := post("/api/start"); rr.Code != http.StatusOK {
		t.Errorf("start status = %d, want 200", rr.Code)
	}
	if !ctrl.running {
		t.Error("controller not running after start")
	}

	// Idempotent: a second start reports but does not fail.
	if rr := post("/api/start"); rr.Code != http.StatusOK {
		t.Errorf("second start status = %d, want 200", rr.Code)
	}

	if rr := post("/api/stop"); rr.Code != http.StatusOK {
		t.Errorf("stop status = %d, want 200", rr.Code)
	}
	if ctrl.running {
		t.Error("controller still running after stop")
	}

	if rr := post("/api/stop"); rr.Code != http.StatusOK {
		t.Errorf("second stop status = %d, want 200", rr.Code)
	}
}

func TestTriggerScanOutcomes(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		ctrl := &fakeControl{outcome: scanner.ScanOutcome{
			Message:            "scan complete",
			MarketsScanned:     42,
			OpportunitiesFound: 2,
		}}
		mux := newScannerMux(ctrl)

		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		var out scanner.ScanOutcome
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("response not JSON: %v", err)
		}
		if out.MarketsScanned != 42 || out.OpportunitiesFound != 2 {
			t.Errorf("outcome = %+v, want 42 markets / 2 found", out)
		}
	})

	t.Run("skipped", func(t *testing.T) {
		ctrl := &fakeControl{outcome: scanner.ScanOutcome{
			Skipped: true,
			Message: "scanner is running continuously, skipping manual trigger",
		}}
		mux := newScannerMux(ctrl)

		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

		if rr.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409 for skipped scan", rr.Code)
		}
	})
}

func TestGetStatus(t *testing.T) {
	ctrl := &fakeControl{status: domain.ScannerStatus{
		IsRunning:           true,
		ScanCount:           7,
		MarketsScanned:      340,
		ActiveOpportunities: 3,
	}}
	mux := newScannerMux(ctrl)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var st domain.ScannerStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if !st.IsRunning || st.ScanCount != 7 || st.ActiveOpportunities != 3 {
		t.Errorf("status = %+v, want canned values", st)
	}
}
