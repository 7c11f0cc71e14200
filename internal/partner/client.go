// Package partner fetches paginated run pages from the partner API with
// bounded retry and backoff.
package partner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ErrRequest marks partner request failures: connection errors, timeouts,
// exhausted retry budgets, and non-retryable HTTP statuses.
var ErrRequest = errors.New("partner request failed")

// ErrResponse marks malformed partner response payloads.
var ErrResponse = errors.New("malformed partner response")

const userAgent = "pipehealth-ingestion/0.1"

var retryableStatusCodes = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Page is one normalized page of partner run events. NextCursor is empty when
// there are no further pages.
type Page struct {
	Runs       []map[string]any
	NextCursor string
}

// Config configures a Client. Sleep and Jitter are test seams: they default
// to time.Sleep and rand.Float64.
type Config struct {
	BaseURL    string
	APIToken   string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration

	// RequestsPerSecond throttles outgoing requests when positive.
	RequestsPerSecond int

	Sleep  func(time.Duration)
	Jitter func() float64
}

// Client fetches run pages for a pipeline external id. It holds no mutable
// state beyond the underlying HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	maxRetries int
	backoff    time.Duration
	limiter    *rate.Limiter
	sleep      func(time.Duration)
	jitter     func() float64
}

// NewClient builds a partner client, applying defaults for unset fields.
func NewClient(cfg Config) (*Client, error) {
	baseURL := trimTrailingSlash(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("partner: base URL is required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("partner: max retries must be >= 0")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	jitter := cfg.Jitter
	if jitter == nil {
		jitter = rand.Float64
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Second/time.Duration(cfg.RequestsPerSecond)), 1)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiToken:   cfg.APIToken,
		maxRetries: cfg.MaxRetries,
		backoff:    backoff,
		limiter:    limiter,
		sleep:      sleep,
		jitter:     jitter,
	}, nil
}

// FetchPage fetches one page of run events for a pipeline external id.
// cursor is opaque and passed through verbatim; empty means the first page.
func (c *Client) FetchPage(ctx context.Context, pipelineExternalID, cursor string) (Page, error) {
	if pipelineExternalID == "" {
		return Page{}, fmt.Errorf("partner: pipeline external id is required")
	}

	endpoint := fmt.Sprintf("%s/pipelines/%s/runs", c.baseURL, url.PathEscape(pipelineExternalID))
	if cursor != "" {
		endpoint += "?cursor=" + url.QueryEscape(cursor)
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return Page{}, fmt.Errorf("%w: %v", ErrRequest, err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return Page{}, fmt.Errorf("%w: %v", ErrRequest, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt >= c.maxRetries {
				return Page{}, fmt.Errorf("%w after retry budget was exhausted: %v", ErrRequest, err)
			}
			c.sleep(c.retryDelay(attempt, nil))
			continue
		}

		if retryableStatusCodes[resp.StatusCode] {
			headers := resp.Header
			drain(resp.Body)
			if attempt >= c.maxRetries {
				return Page{}, fmt.Errorf("%w with retryable status %d", ErrRequest, resp.StatusCode)
			}
			c.sleep(c.retryDelay(attempt, headers))
			continue
		}

		if resp.StatusCode >= 400 {
			drain(resp.Body)
			return Page{}, fmt.Errorf("%w with status %d", ErrRequest, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if attempt >= c.maxRetries {
				return Page{}, fmt.Errorf("%w after retry budget was exhausted: %v", ErrRequest, err)
			}
			c.sleep(c.retryDelay(attempt, nil))
			continue
		}

		return normalizePage(body)
	}

	return Page{}, ErrRequest
}

// retryDelay computes backoff*2^attempt plus jitter, floored by a parseable
// Retry-After header when the failing response carried one.
func (c *Client) retryDelay(attempt int, headers http.Header) time.Duration {
	base := c.backoff * (1 << uint(attempt))
	jitter := time.Duration(c.jitter() * float64(c.backoff))
	delay := base + jitter

	if headers != nil {
		if retryAfter := headers.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.ParseFloat(retryAfter, 64); err == nil {
				headerDelay := time.Duration(seconds * float64(time.Second))
				if headerDelay > delay {
					delay = headerDelay
				}
			}
		}
	}
	return delay
}

func normalizePage(body []byte) (Page, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Page{}, fmt.Errorf("%w: payload must be a JSON object", ErrResponse)
	}

	page := Page{Runs: []map[string]any{}}

	if runsRaw, ok := raw["runs"]; ok && !isJSONNull(runsRaw) {
		if err := json.Unmarshal(runsRaw, &page.Runs); err != nil {
			return Page{}, fmt.Errorf("%w: field `runs` must be a list", ErrResponse)
		}
	}

	if cursorRaw, ok := raw["next_cursor"]; ok && !isJSONNull(cursorRaw) {
		var cursor any
		if err := json.Unmarshal(cursorRaw, &cursor); err != nil {
			return Page{}, fmt.Errorf("%w: field `next_cursor` is not valid JSON", ErrResponse)
		}
		switch v := cursor.(type) {
		case string:
			page.NextCursor = v
		case float64:
			page.NextCursor = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			page.NextCursor = fmt.Sprint(v)
		}
	}

	return page, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
