package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// defaultRateLimitReset is assumed when a 429/403 carries no Retry-After.
const defaultRateLimitReset = time.Minute

// StatusError is a non-rate-limit HTTP failure. It is never retried.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client issues GET requests to one upstream API, throttled per endpoint and
// governed by a shared AdaptiveController. Rate-limit responses (429/403)
// are retried without bound: upstream rate limits are transient by nature,
// so giving up on them only loses work. Every other failure propagates to
// the caller untouched.
type Client struct {
	baseURL    string
	apiKey     string
	keyParam   string // query parameter name carrying the API key
	httpClient *http.Client
	tracker    *endpointTracker
	ctrl       *AdaptiveController
	log        *slog.Logger

	// onRateLimit, when set, observes each 429/403 with the computed reset
	// time. The importer uses it to surface rate_limited status.
	onRateLimit func(reset time.Time)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client for the API rooted at baseURL. keyParam is the
// query parameter the API expects the key under (e.g. "api_token",
// "apikey", "apiKey").
func NewClient(name, baseURL, apiKey, keyParam string, ctrl *AdaptiveController) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		keyParam:   keyParam,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tracker:    newEndpointTracker(defaultRateClasses, fallbackRateClass),
		ctrl:       ctrl,
		log:        slog.Default().With("provider", name),
		sleep:      sleepCtx,
	}
}

// OnRateLimit registers a hook observing rate-limit responses.
func (c *Client) OnRateLimit(fn func(reset time.Time)) { c.onRateLimit = fn }

// Get issues a GET to endpoint with the given query parameters and returns
// the raw JSON body. It blocks first for any throttling delay the endpoint's
// rate class requires, then for the adaptive backoff on each 429/403.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint %s: %w", endpoint, err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if c.apiKey != "" {
		q.Set(c.keyParam, c.apiKey)
	}
	u.RawQuery = q.Encode()

	for {
		// Throttle before the request is issued, never after.
		if d := c.tracker.Reserve(endpoint); d > 0 {
			c.log.Debug("throttling", "endpoint", endpoint, "delay", d)
			if err := c.sleep(ctx, d); err != nil {
				return nil, err
			}
		}

		body, retryable, err := c.doOnce(ctx, u.String(), endpoint)
		if err == nil {
			c.ctrl.RecordSuccess()
			return body, nil
		}
		if !retryable {
			return nil, err
		}

		backoff := c.ctrl.Backoff()
		c.log.Warn("rate limited", "endpoint", endpoint, "backoff", backoff)
		if err := c.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
}

// doOnce performs a single request. retryable is true only for 429/403,
// which it records on the controller before returning.
func (c *Client) doOnce(ctx context.Context, fullURL, endpoint string) (body json.RawMessage, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%s: reading response: %w", endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return data, false, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		c.ctrl.RecordRateLimit()
		reset := parseRetryAfter(resp.Header.Get("Retry-After"))
		if c.onRateLimit != nil {
			c.onRateLimit(reset)
		}
		return nil, true, fmt.Errorf("%s: rate limited (%d)", endpoint, resp.StatusCode)

	default:
		return nil, false, &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), 200),
		}
	}
}

// parseRetryAfter converts a Retry-After header (delta-seconds form) into an
// absolute reset time, falling back to a default when absent or malformed.
func parseRetryAfter(header string) time.Time {
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			return time.Now().Add(time.Duration(secs) * time.Second)
		}
	}
	return time.Now().Add(defaultRateLimitReset)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
