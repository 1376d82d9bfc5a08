// Package afrimarket provides a scraping client for african-markets.com.
// This package centralizes all upstream page access for the application.
package afrimarket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/interfaces"
	"github.com/ternarybob/mercatus/internal/models"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

const (
	// DefaultBaseURL is the base URL for african-markets.com.
	DefaultBaseURL = "https://www.african-markets.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	// The source is a small public site; one request per second is plenty.
	DefaultRateLimit = 1

	// DefaultUserAgent identifies the client to the source.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// kindPaths maps dataset kinds to their per-exchange page paths.
var kindPaths = map[models.DatasetKind]string{
	models.DatasetIndex:     "/en/stock-markets/%s/index",
	models.DatasetGainers:   "/en/stock-markets/%s/gainers",
	models.DatasetLosers:    "/en/stock-markets/%s/losers",
	models.DatasetCompanies: "/en/stock-markets/%s/listed-companies",
}

// Client scrapes exchange pages from african-markets.com.
type Client struct {
	baseURL   string
	timeout   time.Duration
	proxyURL  string
	userAgent string
	http      *resty.Client
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets a custom HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithProxy routes requests through an outbound proxy.
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new african-markets.com client.
// Request retries belong to the export pipeline, so the underlying HTTP
// client performs none of its own.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		limiter:   rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	httpClient := resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(c.timeout).
		SetHeader("User-Agent", c.userAgent).
		SetHeader("Accept", "text/html")
	if c.proxyURL != "" {
		httpClient.SetProxy(c.proxyURL)
	}
	c.http = httpClient

	return c
}

// Resolve returns a fetcher bound to the exchange. It fails for
// exchanges missing from the registry and performs no network traffic.
func (c *Client) Resolve(exchange models.Exchange) (interfaces.ExchangeFetcher, error) {
	if !models.IsValidExchange(exchange.Code) {
		return nil, fmt.Errorf("unsupported exchange: %q", exchange.Code)
	}
	return &Fetcher{client: c, exchange: exchange}, nil
}

// Fetcher retrieves dataset tables for a single exchange.
type Fetcher struct {
	client   *Client
	exchange models.Exchange
}

// Fetch downloads the page for the dataset kind and returns its first
// data table.
func (f *Fetcher) Fetch(ctx context.Context, kind models.DatasetKind) (*models.RawTable, error) {
	pattern, ok := kindPaths[kind]
	if !ok {
		return nil, fmt.Errorf("unknown dataset kind: %q", kind)
	}
	path := fmt.Sprintf(pattern, f.exchange.Code)

	c := f.client

	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("exchange", f.exchange.Code).
			Str("dataset", string(kind)).
			Str("path", path).
			Msg("Fetching exchange page")
	}

	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}

	if !resp.IsSuccess() {
		return nil, &SourceError{
			StatusCode: resp.StatusCode(),
			Message:    http.StatusText(resp.StatusCode()),
			Endpoint:   path,
		}
	}

	return FirstTable(resp.String())
}

// SourceError represents a non-success HTTP response from the source.
type SourceError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("afrimarket error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}
