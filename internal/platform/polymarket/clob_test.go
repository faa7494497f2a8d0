package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestClobClient(baseURL string) *ClobClient {
	c := NewClobClient(baseURL, testLogger())
	c.rest = fastRetryClient()
	return c
}

func TestFetchPricesBatching(t *testing.T) {
	var calls atomic.Int32
	var batchSizes []int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		ids := strings.Split(r.URL.Query().Get("token_ids"), ",")
		batchSizes = append(batchSizes, len(ids))

		out := make(map[string]float64, len(ids))
		for _, id := range ids {
			out[id] = 0.5
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	tokenIDs := make([]string, 250)
	for i := range tokenIDs {
		tokenIDs[i] = fmt.Sprintf("tok-%d", i)
	}

	c := newTestClobClient(srv.URL)

	prices, err := c.FetchPrices(context.Background(), tokenIDs)
	if err != nil {
		t.Fatalf("FetchPrices error = %v, want nil", err)
	}
	if len(prices) != 250 {
		t.Errorf("len(prices) = %d, want 250", len(prices))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("request count = %d, want 3", got)
	}
	want := []int{100, 100, 50}
	for i, n := range want {
		if i >= len(batchSizes) || batchSizes[i] != n {
			t.Errorf("batchSizes = %v, want %v", batchSizes, want)
			break
		}
	}
}

func TestFetchPricesMixedValueShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"num": 0.42,
			"str": "0.33",
			"obj": {"price": 0.25},
			"objstr": {"price": "0.61"},
			"bogus": {"mid": 0.5}
		}`))
	}))
	defer srv.Close()

	c := newTestClobClient(srv.URL)

	prices, err := c.FetchPrices(context.Background(), []string{"num", "str", "obj", "objstr", "bogus"})
	if err != nil {
		t.Fatalf("FetchPrices error = %v, want nil", err)
	}

	want := map[string]float64{
		"num":    0.42,
		"str":    0.33,
		"obj":    0.25,
		"objstr": 0.61,
	}
	if len(prices) != len(want) {
		t.Errorf("len(prices) = %d, want %d (%v)", len(prices), len(want), prices)
	}
	for id, p := range want {
		if prices[id] != p {
			t.Errorf("prices[%q] = %v, want %v", id, prices[id], p)
		}
	}
	if _, ok := prices["bogus"]; ok {
		t.Error("uninterpretable price shape was not omitted")
	}
}

func TestFetchPricesNoTokens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClobClient(srv.URL)

	prices, err := c.FetchPrices(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchPrices error = %v, want nil", err)
	}
	if len(prices) != 0 {
		t.Errorf("len(prices) = %d, want 0", len(prices))
	}
	if calls.Load() != 0 {
		t.Errorf("request count = %d, want 0", calls.Load())
	}
}

func TestFetchPricesExhaustedBatchContributesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("token_ids"), ",")
		if len(ids) == 100 && ids[0] == "tok-0" {
			// Fail the first batch every time.
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		out := make(map[string]float64, len(ids))
		for _, id := range ids {
			out[id] = 0.5
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	tokenIDs := make([]string, 150)
	for i := range tokenIDs {
		tokenIDs[i] = fmt.Sprintf("tok-%d", i)
	}

	c := newTestClobClient(srv.URL)

	prices, err := c.FetchPrices(context.Background(), tokenIDs)
	if err != nil {
		t.Fatalf("FetchPrices error = %v, want nil", err)
	}
	if len(prices) != 50 {
		t.Errorf("len(prices) = %d, want 50 (second batch only)", len(prices))
	}
}
