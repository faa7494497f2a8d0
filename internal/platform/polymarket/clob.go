package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// priceBatchSize is the number of token IDs sent per price-lookup request.
const priceBatchSize = 100

// ClobClient is the REST client for the Polymarket CLOB API. The scanner
// only uses its read-side endpoints: batched price lookups and, reserved for
// depth-aware sizing, single-token order books.
type ClobClient struct {
	baseURL string
	rest    *retryClient
	logger  *slog.Logger
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string, logger *slog.Logger) *ClobClient {
	l := logger.With(slog.String("component", "clob_client"))
	return &ClobClient{
		baseURL: baseURL,
		rest:    newRetryClient(l),
		logger:  l,
	}
}

// FetchPrices looks up current prices for the given token IDs, issuing one
// request per 100-token batch and merging the results. The response value
// shape varies (bare number, numeric string, or object with a "price"
// field); entries that cannot be interpreted are omitted from the returned
// map so callers fall back to the price they already hold. A batch that
// exhausts its retry budget contributes nothing.
func (c *ClobClient) FetchPrices(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	if len(tokenIDs) == 0 {
		return map[string]float64{}, nil
	}

	prices := make(map[string]float64)

	for start := 0; start < len(tokenIDs); start += priceBatchSize {
		end := start + priceBatchSize
		if end > len(tokenIDs) {
			end = len(tokenIDs)
		}

		params := url.Values{}
		params.Set("token_ids", strings.Join(tokenIDs[start:end], ","))

		res, err := c.rest.getWithRetry(ctx, c.baseURL+"/prices?"+params.Encode())
		if err != nil {
			return prices, err
		}
		if res.exhausted || len(res.body) == 0 {
			continue
		}

		var batch map[string]flexPrice
		if err := json.Unmarshal(res.body, &batch); err != nil {
			c.logger.Warn("clob: undecodable price batch, skipping",
				slog.String("error", err.Error()),
			)
			continue
		}
		for id, p := range batch {
			if p.ok {
				prices[id] = p.value
			}
		}
	}

	return prices, nil
}

// FetchOrderbook retrieves the order book for a single token. It is not part
// of the detection flow yet; it exists so depth-aware sizing can be added
// without touching the transport layer.
func (c *ClobClient) FetchOrderbook(ctx context.Context, tokenID string) (APIBook, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	res, err := c.rest.getWithRetry(ctx, c.baseURL+"/book?"+params.Encode())
	if err != nil {
		return APIBook{}, err
	}
	if res.exhausted || len(res.body) == 0 {
		return APIBook{}, nil
	}

	var book APIBook
	if err := json.Unmarshal(res.body, &book); err != nil {
		return APIBook{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}
	return book, nil
}
