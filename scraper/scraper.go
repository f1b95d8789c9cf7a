// Package scraper implements the pooled, retrying HTTP fetcher shared by all
// platform adapters.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/gocolly/colly/v2"
)

const responseKey = "response"

// DefaultAcceptLanguage is sent with every request unless overridden.
const DefaultAcceptLanguage = "en-US,en;q=0.9,ar;q=0.8"

// Options configures a Client.
type Options struct {
	// Platform labels log lines and metrics.
	Platform         string
	UserAgent        string
	Timeout          time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	RetryBackoffMax  time.Duration
	RetryJitter      bool
	RespectRobotsTxt bool
	// PoolSize bounds idle and parallel connections per host.
	PoolSize int
	Headers  http.Header
}

// OptionsFromConfig derives client options for one platform.
func OptionsFromConfig(cfg *config.Config, platform string) Options {
	return Options{
		Platform:         platform,
		UserAgent:        cfg.UserAgent,
		Timeout:          cfg.Timeout,
		MaxRetries:       cfg.MaxRetries,
		RetryBackoff:     cfg.RetryBackoff,
		RetryBackoffMax:  cfg.RetryBackoffMax,
		RetryJitter:      cfg.RetryJitter,
		RespectRobotsTxt: cfg.RespectRobotsTxt,
		PoolSize:         cfg.Concurrency + 5,
	}
}

// Response is a fetched page.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client fetches URLs through a synchronous colly collector. It is safe for
// concurrent use; each platform run owns one Client.
type Client struct {
	opts      Options
	collector *colly.Collector
	retry     retryPolicy
	metrics   *Metrics

	requests atomic.Int64
	retries  atomic.Int64
	failures atomic.Int64
}

// NewClient builds a client. metrics may be nil.
func NewClient(opts Options, metrics *Metrics) (*Client, error) {
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}
	if opts.UserAgent == "" {
		return nil, fmt.Errorf("user agent cannot be empty")
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 1
	}

	collector := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.ParseHTTPErrorResponse = true
	collector.IgnoreRobotsTxt = !opts.RespectRobotsTxt
	collector.SetRequestTimeout(opts.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        opts.PoolSize * 2,
		MaxIdleConnsPerHost: opts.PoolSize,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: opts.PoolSize,
	}); err != nil {
		return nil, fmt.Errorf("configure limits: %w", err)
	}

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
	})

	return &Client{
		opts:      opts,
		collector: collector,
		retry:     newRetryPolicy(opts),
		metrics:   metrics,
	}, nil
}

// WithTransport swaps the underlying round tripper.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.collector.WithTransport(rt)
}

// Stats returns the number of attempts, retries and failed fetches so far.
func (c *Client) Stats() (requests, retries, failures int64) {
	return c.requests.Load(), c.retries.Load(), c.failures.Load()
}

// Fetch issues a GET for target. Transient failures (timeouts, connection
// errors, 429 and 5xx gateway statuses) are retried with exponential backoff;
// 403, 404 and other statuses fail at once. Every failure is a *FetchFailed.
func (c *Client) Fetch(ctx context.Context, target string) (*Response, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= c.retry.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retry.backoff(attempt)
			c.retries.Add(1)
			c.metrics.IncRetries(c.opts.Platform)
			slog.Debug("retrying request",
				slog.String("platform", c.opts.Platform),
				slog.String("url", target),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay),
				slog.String("category", ErrorTypeLabel(lastErr)),
			)
			if err := sleepContext(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		attempts++
		resp, err := c.do(target)
		if err == nil {
			c.metrics.IncRequest(c.opts.Platform, "ok")
			return resp, nil
		}
		lastErr = err
		category := ErrorTypeLabel(err)
		c.metrics.IncError(c.opts.Platform, category)
		if !IsNetworkError(err) {
			break
		}
		c.metrics.IncRequest(c.opts.Platform, "retryable")
	}

	c.failures.Add(1)
	c.metrics.IncRequest(c.opts.Platform, "failed")
	slog.Warn("fetch failed",
		slog.String("platform", c.opts.Platform),
		slog.String("url", target),
		slog.Int("attempts", attempts),
		slog.String("category", ErrorTypeLabel(lastErr)),
		slog.Any("error", lastErr),
	)
	return nil, &FetchFailed{URL: target, Attempts: attempts, Err: lastErr}
}

func (c *Client) do(target string) (*Response, error) {
	c.requests.Add(1)
	cctx := colly.NewContext()

	start := time.Now()
	err := c.collector.Request(http.MethodGet, target, nil, cctx, c.header())
	c.metrics.ObserveDuration(c.opts.Platform, time.Since(start))

	resp, _ := cctx.GetAny(responseKey).(*colly.Response)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		if classified := classifyError(nil, status); classified != nil {
			return nil, classified
		}
		return nil, classifyError(err, 0)
	}
	if resp == nil {
		return nil, fmt.Errorf("no response captured for %s", target)
	}
	if classified := classifyError(nil, resp.StatusCode); classified != nil {
		return nil, classified
	}

	out := &Response{
		URL:        target,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		out.URL = resp.Request.URL.String()
	}
	if resp.Headers != nil {
		out.Header = resp.Headers.Clone()
	}
	return out, nil
}

func (c *Client) header() http.Header {
	hdr := http.Header{}
	hdr.Set("User-Agent", c.opts.UserAgent)
	hdr.Set("Accept-Language", DefaultAcceptLanguage)
	hdr.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for key, values := range c.opts.Headers {
		hdr.Del(key)
		for _, v := range values {
			hdr.Add(key, v)
		}
	}
	return hdr
}
