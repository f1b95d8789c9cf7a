package scraper

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/jarcoal/httpmock"
)

func newTestClient(t *testing.T, maxRetries int) (*Client, *httpmock.MockTransport) {
	t.Helper()
	cfg := config.DefaultConfig()
	opts := OptionsFromConfig(cfg, "Amazon")
	opts.MaxRetries = maxRetries
	opts.RetryBackoff = time.Millisecond
	opts.RetryBackoffMax = 4 * time.Millisecond
	opts.RetryJitter = false

	c, err := NewClient(opts, NewMetrics())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	transport := httpmock.NewMockTransport()
	c.WithTransport(transport)
	return c, transport
}

func sequenceResponder(calls *int32, statuses ...int) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		n := int(atomic.AddInt32(calls, 1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		resp := httpmock.NewStringResponse(statuses[n], "<html><body>ok</body></html>")
		resp.Header.Set("Content-Type", "text/html")
		return resp, nil
	}
}

func TestFetchRetriesRateLimitThenSucceeds(t *testing.T) {
	c, transport := newTestClient(t, 3)
	var calls int32
	transport.RegisterResponder("GET", "https://www.amazon.eg/s?k=tv",
		sequenceResponder(&calls, http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK))

	resp, err := c.Fetch(context.Background(), "https://www.amazon.eg/s?k=tv")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != "<html><body>ok</body></html>" {
		t.Fatalf("unexpected body %q", resp.Body)
	}
	requests, retries, failures := c.Stats()
	if retries != 2 || requests != 3 || failures != 0 {
		t.Fatalf("requests=%d retries=%d failures=%d, want 3/2/0", requests, retries, failures)
	}
}

func TestFetchNonRetryableStatusFailsImmediately(t *testing.T) {
	tests := []struct {
		status   int
		category string
	}{
		{status: http.StatusNotFound, category: "not_found"},
		{status: http.StatusForbidden, category: "forbidden"},
		{status: http.StatusGone, category: "http_status"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, transport := newTestClient(t, 3)
			var calls int32
			transport.RegisterResponder("GET", "https://www.jumia.com.eg/catalog/?q=tv",
				sequenceResponder(&calls, tt.status))

			_, err := c.Fetch(context.Background(), "https://www.jumia.com.eg/catalog/?q=tv")
			var failed *FetchFailed
			if !errors.As(err, &failed) {
				t.Fatalf("expected *FetchFailed, got %v", err)
			}
			if failed.Attempts != 1 || atomic.LoadInt32(&calls) != 1 {
				t.Fatalf("attempts=%d calls=%d, want 1", failed.Attempts, calls)
			}
			if got := ErrorTypeLabel(err); got != tt.category {
				t.Fatalf("category=%q, want %q", got, tt.category)
			}
		})
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	c, transport := newTestClient(t, 2)
	var calls int32
	transport.RegisterResponder("GET", "https://www.noon.com/x",
		sequenceResponder(&calls, http.StatusServiceUnavailable))

	_, err := c.Fetch(context.Background(), "https://www.noon.com/x")
	var failed *FetchFailed
	if !errors.As(err, &failed) {
		t.Fatalf("expected *FetchFailed, got %v", err)
	}
	if failed.Attempts != 3 {
		t.Fatalf("attempts=%d, want 3", failed.Attempts)
	}
	if failed.URL != "https://www.noon.com/x" {
		t.Fatalf("url=%q", failed.URL)
	}
	if !IsNetworkError(err) {
		t.Fatalf("503 should classify as transient, got %v", err)
	}
}

func TestFetchRetriesTransportErrors(t *testing.T) {
	c, transport := newTestClient(t, 1)
	var calls int32
	transport.RegisterResponder("GET", "https://www.noon.com/y",
		func(req *http.Request) (*http.Response, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, errors.New("connection reset by peer")
			}
			return httpmock.NewStringResponse(http.StatusOK, "{}"), nil
		})

	if _, err := c.Fetch(context.Background(), "https://www.noon.com/y"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, retries, _ := c.Stats(); retries != 1 {
		t.Fatalf("retries=%d, want 1", retries)
	}
}

func TestFetchHonorsCancellation(t *testing.T) {
	c, transport := newTestClient(t, 3)
	var calls int32
	transport.RegisterResponder("GET", "https://www.amazon.eg/z",
		sequenceResponder(&calls, http.StatusOK))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, "https://www.amazon.eg/z")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("no request should be issued after cancellation")
	}
}

func TestFetchSendsHeaders(t *testing.T) {
	c, transport := newTestClient(t, 0)
	c.opts.Headers = http.Header{"Referer": []string{"https://www.noon.com/"}}

	var gotLang, gotUA, gotRef string
	transport.RegisterResponder("GET", "https://www.noon.com/h",
		func(req *http.Request) (*http.Response, error) {
			gotLang = req.Header.Get("Accept-Language")
			gotUA = req.Header.Get("User-Agent")
			gotRef = req.Header.Get("Referer")
			return httpmock.NewStringResponse(http.StatusOK, ""), nil
		})

	if _, err := c.Fetch(context.Background(), "https://www.noon.com/h"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotLang != DefaultAcceptLanguage {
		t.Fatalf("accept-language=%q", gotLang)
	}
	if gotUA != config.DefaultConfig().UserAgent {
		t.Fatalf("user-agent=%q", gotUA)
	}
	if gotRef != "https://www.noon.com/" {
		t.Fatalf("referer=%q", gotRef)
	}
}

func TestRetryBackoffCapped(t *testing.T) {
	p := retryPolicy{maxRetries: 5, base: 200 * time.Millisecond, max: 500 * time.Millisecond}

	if got := p.backoff(1); got != 200*time.Millisecond {
		t.Fatalf("first backoff=%v, want 200ms", got)
	}
	if got := p.backoff(2); got != 400*time.Millisecond {
		t.Fatalf("second backoff=%v, want 400ms", got)
	}
	if got := p.backoff(4); got != 500*time.Millisecond {
		t.Fatalf("capped backoff=%v, want 500ms", got)
	}

	p.jitter = true
	for i := 0; i < 20; i++ {
		got := p.backoff(2)
		if got < 200*time.Millisecond || got > 400*time.Millisecond {
			t.Fatalf("jittered backoff %v outside [200ms, 400ms]", got)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "bad gateway", err: nil, statusCode: http.StatusBadGateway, expected: "unavailable"},
		{name: "teapot", err: nil, statusCode: http.StatusTeapot, expected: "http_status"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}
