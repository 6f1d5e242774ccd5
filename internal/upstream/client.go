// Package upstream is the single shared HTTP client used to talk to CMS-style
// upstream sources. Collection Engine, Source Health Tracker and Aggregator all go
// through this package so retry/backoff/timeout/User-Agent behavior is defined once
// (spec §6 "external interfaces" / §7 "error handling").
package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "CatalogCore/1.0 (+collection-engine)"

// Client wraps a resty.Client configured with the retry/backoff policy spec §7
// assigns to TransientNetwork errors: retried per MaxRetries with backoff
// min(1000*2^i, cap) ms, never retried on 4xx.
type Client struct {
	rc *resty.Client
}

// Config controls retry/timeout behavior.
type Config struct {
	Timeout     time.Duration
	MaxRetries  int
	BackoffCap  time.Duration
	InitialWait time.Duration
}

// New builds a Client. A zero Config falls back to the spec's stated defaults.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 5 * time.Second
	}
	if cfg.InitialWait <= 0 {
		cfg.InitialWait = time.Second
	}

	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.InitialWait).
		SetRetryMaxWaitTime(cfg.BackoffCap).
		SetHeader("User-Agent", userAgent).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true // network-level: timeout, connection refused, etc.
			}
			// Permanent4xx is not retried; only 5xx (and 429) are transient.
			return r.StatusCode() >= 500 || r.StatusCode() == http.StatusTooManyRequests
		})

	return &Client{rc: rc}
}

// Get issues a GET to rawURL with ctx's deadline, returning the raw response body.
// A non-2xx status after retries is returned as *StatusError so callers can tell
// Permanent4xx apart from TransientNetwork without re-parsing the error string.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, int, error) {
	resp, err := c.rc.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("upstream: get %s: %w", rawURL, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return resp.Body(), resp.StatusCode(), &StatusError{URL: rawURL, Status: resp.StatusCode()}
	}
	return resp.Body(), resp.StatusCode(), nil
}

// Probe issues a lightweight HEAD request to rawURL to check reachability
// without pulling down the body, falling back to GET when the server
// rejects HEAD (some play-URL CDNs don't implement it). It does not retry:
// the URL Validator runs its own batch cadence and a single timeout is
// enough signal to flag a dead link.
func (c *Client) Probe(ctx context.Context, rawURL string) (int, error) {
	resp, err := c.rc.R().SetContext(ctx).Head(rawURL)
	if err == nil && resp.StatusCode() != http.StatusMethodNotAllowed && resp.StatusCode() != http.StatusNotImplemented {
		return resp.StatusCode(), nil
	}
	resp, err = c.rc.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return 0, fmt.Errorf("upstream: probe %s: %w", rawURL, err)
	}
	return resp.StatusCode(), nil
}

// Post sends a JSON body to rawURL, used by the Scheduler's health-alert
// webhook rather than any CMS source (spec's six-hourly "post alert to
// external webhook if not all green").
func (c *Client) Post(ctx context.Context, rawURL string, body interface{}) (int, error) {
	resp, err := c.rc.R().SetContext(ctx).SetHeader("Content-Type", "application/json").SetBody(body).Post(rawURL)
	if err != nil {
		return 0, fmt.Errorf("upstream: post %s: %w", rawURL, err)
	}
	return resp.StatusCode(), nil
}

// BuildListURL composes a CMS-style list request: <base>?ac=list&pg=<page>[&t=<cat>][&wd=<q>].
func BuildListURL(base string, page int, categoryID, query string) string {
	v := url.Values{}
	v.Set("ac", "list")
	v.Set("pg", fmt.Sprintf("%d", page))
	if categoryID != "" {
		v.Set("t", categoryID)
	}
	if query != "" {
		v.Set("wd", query)
	}
	return base + "?" + v.Encode()
}

// BuildDetailURL composes a CMS-style detail request: <base>?ac=detail&ids=<id>.
func BuildDetailURL(base, id string) string {
	v := url.Values{}
	v.Set("ac", "detail")
	v.Set("ids", id)
	return base + "?" + v.Encode()
}

// StatusError represents a non-2xx HTTP response; 4xx is Permanent, 5xx is transient
// but this type is returned only once retries are exhausted.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: %s returned HTTP %d", e.URL, e.Status)
}

// IsPermanent reports whether the status indicates a Permanent4xx error (spec §7).
func (e *StatusError) IsPermanent() bool {
	return e.Status >= 400 && e.Status < 500
}
