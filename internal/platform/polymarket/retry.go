package polymarket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

const (
	defaultMaxAttempts   = 3
	defaultBaseBackoff   = 1 * time.Second
	defaultRateLimitWait = 60 * time.Second

	// requestSpacing is a small politeness delay before every request so a
	// paginated crawl does not hammer the upstream.
	defaultRequestSpacing = 100 * time.Millisecond
)

// fetchResult tags a response payload with how the request terminated.
// Callers currently treat an exhausted fetch the same as a confirmed empty
// payload (the upstream contract of this scanner), but the tag keeps the two
// distinguishable so stricter handling can be opted into later.
type fetchResult struct {
	body      []byte
	exhausted bool
}

// retryClient wraps an http.Client with the scanner's retry policy: HTTP 429
// waits a fixed long interval and is retried without charging the attempt
// budget; any other failure backs off exponentially up to maxAttempts. After
// the budget is spent the result is returned empty rather than as an error.
type retryClient struct {
	httpClient     *http.Client
	maxAttempts    int
	baseBackoff    time.Duration
	rateLimitWait  time.Duration
	requestSpacing time.Duration
	logger         *slog.Logger
}

func newRetryClient(logger *slog.Logger) *retryClient {
	return &retryClient{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		maxAttempts:    defaultMaxAttempts,
		baseBackoff:    defaultBaseBackoff,
		rateLimitWait:  defaultRateLimitWait,
		requestSpacing: defaultRequestSpacing,
		logger:         logger,
	}
}

// getWithRetry issues a GET against url, applying the retry policy. It only
// returns an error when the context is cancelled; every other failure mode
// ends in an empty, exhausted-tagged result.
func (c *retryClient) getWithRetry(ctx context.Context, url string) (fetchResult, error) {
	for attempt := 0; attempt < c.maxAttempts; {
		if err := sleepCtx(ctx, c.requestSpacing); err != nil {
			return fetchResult{}, err
		}

		body, err := c.doGet(ctx, url)
		if err == nil {
			return fetchResult{body: body}, nil
		}
		if ctx.Err() != nil {
			return fetchResult{}, ctx.Err()
		}

		if isRateLimited(err) {
			// Rate limiting does not consume the attempt budget.
			c.logger.Warn("rate limited, backing off",
				slog.Duration("wait", c.rateLimitWait),
			)
			if err := sleepCtx(ctx, c.rateLimitWait); err != nil {
				return fetchResult{}, err
			}
			continue
		}

		attempt++
		c.logger.Error("request failed",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if attempt < c.maxAttempts {
			backoff := c.baseBackoff << (attempt - 1)
			if err := sleepCtx(ctx, backoff); err != nil {
				return fetchResult{}, err
			}
		}
	}

	c.logger.Warn("retry budget exhausted, returning empty result",
		slog.String("url", url),
	)
	return fetchResult{exhausted: true}, nil
}

// doGet performs a single GET request and returns the response body, mapping
// non-2xx statuses to domain errors.
func (c *retryClient) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

func isRateLimited(err error) bool {
	return errors.Is(err, domain.ErrRateLimited)
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
