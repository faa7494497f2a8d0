package polymarket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastRetryClient returns a retryClient with all waits shrunk so tests run
// in milliseconds.
func fastRetryClient() *retryClient {
	c := newRetryClient(testLogger())
	c.baseBackoff = time.Millisecond
	c.rateLimitWait = time.Millisecond
	c.requestSpacing = 0
	return c
}

func TestGetWithRetryRateLimitDoesNotConsumeBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := fastRetryClient()
	// With a single attempt allowed, success is only possible if the two
	// rate-limited responses did not charge the budget.
	c.maxAttempts = 1

	res, err := c.getWithRetry(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("getWithRetry error = %v, want nil", err)
	}
	if res.exhausted {
		t.Fatal("result marked exhausted, want success")
	}
	if string(res.body) != `{"ok":true}` {
		t.Errorf("body = %q, want %q", res.body, `{"ok":true}`)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("request count = %d, want 3", got)
	}
}

func TestGetWithRetryExhaustsBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := fastRetryClient()

	res, err := c.getWithRetry(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("getWithRetry error = %v, want nil", err)
	}
	if !res.exhausted {
		t.Error("result not marked exhausted")
	}
	if len(res.body) != 0 {
		t.Errorf("body = %q, want empty", res.body)
	}
	if got := calls.Load(); got != int32(defaultMaxAttempts) {
		t.Errorf("request count = %d, want %d", got, defaultMaxAttempts)
	}
}

func TestGetWithRetryContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := fastRetryClient()
	c.rateLimitWait = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.getWithRetry(ctx, srv.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("getWithRetry error = %v, want context.DeadlineExceeded", err)
	}
}

func TestCheckHTTPStatus(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		if err := checkHTTPStatus(200, nil); err != nil {
			t.Errorf("checkHTTPStatus(200) = %v, want nil", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		err := checkHTTPStatus(404, []byte("missing"))
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("checkHTTPStatus(404) = %v, want ErrNotFound", err)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		err := checkHTTPStatus(429, nil)
		if !errors.Is(err, domain.ErrRateLimited) {
			t.Errorf("checkHTTPStatus(429) = %v, want ErrRateLimited", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		err := checkHTTPStatus(500, []byte("boom"))
		if err == nil {
			t.Fatal("checkHTTPStatus(500) = nil, want error")
		}
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrRateLimited) {
			t.Errorf("checkHTTPStatus(500) mapped to a sentinel: %v", err)
		}
	})
}
