// Package captcha is a client for an external CAPTCHA-solving service using
// the 2Captcha submit-then-poll API. The service is an external dependency
// with a bounded timeout: the client polls a fixed number of times with a
// fixed delay and fails with ErrSolveTimeout on exhaustion, so callers are
// never left blocked indefinitely.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrSolveTimeout is returned when the service did not produce a solution
// within the attempt budget. Callers fall back to a manual or blocking path.
var ErrSolveTimeout = errors.New("captcha solve timed out")

const (
	defaultBaseURL      = "https://2captcha.com"
	defaultMaxAttempts  = 30
	defaultPollInterval = 5 * time.Second
	notReadyMarker      = "CAPCHA_NOT_READY"
)

// Client talks to the solving service.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	maxAttempts  int
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the service endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollInterval overrides the delay between result polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithMaxAttempts overrides the poll attempt budget.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// NewClient creates a client for the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		maxAttempts:  defaultMaxAttempts,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// Solve submits a reCAPTCHA task and polls until a solution token is ready,
// the attempt budget runs out, or ctx is cancelled.
func (c *Client) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	id, err := c.submit(ctx, siteKey, pageURL)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		solution, ready, err := c.poll(ctx, id)
		if err != nil {
			return "", err
		}
		if ready {
			return solution, nil
		}
	}

	return "", ErrSolveTimeout
}

func (c *Client) submit(ctx context.Context, siteKey, pageURL string) (string, error) {
	form := url.Values{
		"key":       {c.apiKey},
		"method":    {"userrecaptcha"},
		"googlekey": {siteKey},
		"pageurl":   {pageURL},
		"json":      {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/in.php", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("submit captcha: %w", err)
	}
	if resp.Status != 1 {
		return "", fmt.Errorf("submit captcha: service error %q", resp.Request)
	}
	return resp.Request, nil
}

func (c *Client) poll(ctx context.Context, id string) (string, bool, error) {
	q := url.Values{
		"key":    {c.apiKey},
		"action": {"get"},
		"id":     {id},
		"json":   {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/res.php?"+q.Encode(), nil)
	if err != nil {
		return "", false, err
	}

	resp, err := c.do(req)
	if err != nil {
		return "", false, fmt.Errorf("poll captcha: %w", err)
	}
	if resp.Status == 1 {
		return resp.Request, true, nil
	}
	if resp.Request != notReadyMarker {
		return "", false, fmt.Errorf("poll captcha: service error %q", resp.Request)
	}
	return "", false, nil
}

func (c *Client) do(req *http.Request) (*apiResponse, error) {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", httpResp.StatusCode)
	}

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
