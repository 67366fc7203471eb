// Package github talks to the upstream source-control host: release
// listing through the REST API, webhook signature verification, and a
// single-slot fallback cache for read paths.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenk/backoff"
	"github.com/rs/dnscache"
	circuit "github.com/rubyist/circuitbreaker"
)

var (
	// ErrUpstreamUnavailable is returned when the upstream API cannot be
	// reached or answers with a server error.
	ErrUpstreamUnavailable = errors.New("upstream release host unavailable")

	// ErrReleaseNotFound is returned when the upstream repository has no
	// matching release.
	ErrReleaseNotFound = errors.New("release not found upstream")
)

const defaultBaseURL = "https://api.github.com"

// Asset is a single downloadable file attached to an upstream release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Release is the subset of the upstream release representation the
// mirror cares about.
type Release struct {
	TagName     string  `json:"tag_name"`
	Draft       bool    `json:"draft"`
	Prerelease  bool    `json:"prerelease"`
	PublishedAt string  `json:"published_at"`
	Assets      []Asset `json:"assets"`
}

// Client queries the releases API of one fixed repository.
type Client struct {
	owner   string
	repo    string
	baseURL string
	http    *http.Client
	breaker *circuit.Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests to point the
// client at a local fake.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTransport sets the HTTP transport, keeping the client's timeout.
// Lets the daemon share one DNS-caching transport between the API
// client and the asset fetcher.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// NewClient creates a releases API client for owner/repo. API calls use
// a bounded 15s timeout, distinct from the larger asset-transfer timeout
// of the fetcher, and are guarded by a circuit breaker that trips after
// five consecutive failures and resets with exponential backoff.
func NewClient(owner, repo string, opts ...Option) *Client {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	c := &Client{
		owner:   owner,
		repo:    repo,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		breaker: circuit.NewBreakerWithOptions(&circuit.Options{
			BackOff:    expBackoff,
			ShouldTrip: circuit.ThresholdTripFunc(5),
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	// The transport is filled in after options so a shared or custom
	// transport never leaves an unused refresh goroutine behind.
	if c.http.Transport == nil {
		c.http.Transport = NewCachingTransport()
	}
	return c
}

// ListReleases fetches up to 20 of the most recent releases, draft
// releases excluded.
func (c *Client) ListReleases(ctx context.Context) ([]Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=20", c.baseURL, c.owner, c.repo)

	var releases []Release
	if err := c.getJSON(ctx, url, &releases); err != nil {
		return nil, err
	}

	filtered := releases[:0]
	for _, r := range releases {
		if !r.Draft {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// LatestRelease fetches the latest non-draft, non-prerelease release as
// reported by the upstream host.
func (c *Client) LatestRelease(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, c.owner, c.repo)

	var release Release
	if err := c.getJSON(ctx, url, &release); err != nil {
		return nil, err
	}
	return &release, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	if !c.breaker.Ready() {
		return fmt.Errorf("circuit breaker open: %w", ErrUpstreamUnavailable)
	}

	// A 404 is a definitive answer from a healthy upstream, not an
	// outage: it is reported outside the breaker-counted path so a
	// repository without a matching release cannot trip the breaker.
	var notFound bool
	err := c.breaker.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("User-Agent", "relaypoint-release-sync")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decoding upstream response: %w", err)
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			notFound = true
			return nil
		default:
			return fmt.Errorf("%w: unexpected status %d", ErrUpstreamUnavailable, resp.StatusCode)
		}
	}, 0)
	if err != nil {
		return err
	}
	if notFound {
		return ErrReleaseNotFound
	}
	return nil
}

// NewCachingTransport builds an HTTP transport with cached DNS lookups,
// refreshed every five minutes. Shared by the API client and the asset
// fetcher.
func NewCachingTransport() *http.Transport {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if err == nil {
					return conn, nil
				}
			}
			return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
