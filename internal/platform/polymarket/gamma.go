// Package polymarket implements the REST clients for the Polymarket Gamma
// and CLOB APIs used by the scan pipeline.
package polymarket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// marketPageSize is the fixed page size for the paginated market listing.
const marketPageSize = 100

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery and metadata.
type GammaClient struct {
	baseURL string
	rest    *retryClient
	logger  *slog.Logger
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, logger *slog.Logger) *GammaClient {
	l := logger.With(slog.String("component", "gamma_client"))
	return &GammaClient{
		baseURL: baseURL,
		rest:    newRetryClient(l),
		logger:  l,
	}
}

// FetchAllMarkets retrieves every non-closed, non-archived market using
// offset pagination with a fixed page size. Pages accumulate until one comes
// back shorter than the page size or empty. Pages are assumed
// non-overlapping; no deduplication is performed. A page fetch that exhausts
// its retry budget ends the crawl and returns whatever accumulated so far.
func (g *GammaClient) FetchAllMarkets(ctx context.Context) ([]domain.Market, error) {
	var markets []domain.Market

	for offset := 0; ; offset += marketPageSize {
		params := url.Values{}
		params.Set("closed", "false")
		params.Set("archived", "false")
		params.Set("limit", strconv.Itoa(marketPageSize))
		params.Set("offset", strconv.Itoa(offset))

		res, err := g.rest.getWithRetry(ctx, g.baseURL+"/markets?"+params.Encode())
		if err != nil {
			return markets, err
		}
		if res.exhausted || len(res.body) == 0 {
			break
		}

		var page []APIMarket
		if err := json.Unmarshal(res.body, &page); err != nil {
			g.logger.Warn("gamma: undecodable markets page, stopping pagination",
				slog.Int("offset", offset),
				slog.String("error", err.Error()),
			)
			break
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			markets = append(markets, page[i].ToDomainMarket())
		}

		if len(page) < marketPageSize {
			break
		}
	}

	g.logger.Info("gamma: fetched markets", slog.Int("count", len(markets)))
	return markets, nil
}
