package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure (refused, reset, DNS).
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request (HTTP 429).
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrUnavailable indicates a transient server-side failure (HTTP 500/502/503/504).
type ErrUnavailable struct {
	Err error
}

func (e ErrUnavailable) Error() string {
	return fmt.Errorf("unavailable: %w", e.Err).Error()
}

func (e ErrUnavailable) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrHTTPStatus covers any other non-success status.
type ErrHTTPStatus struct {
	StatusCode int
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// FetchFailed is returned once a URL is given up on, after retries when the
// cause was transient.
type FetchFailed struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchFailed) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchFailed) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is transient and worth retrying.
func IsNetworkError(err error) bool {
	var timeout ErrTimeout
	var conn ErrConnection
	var rateLimited ErrRateLimited
	var unavailable ErrUnavailable
	return errors.As(err, &timeout) ||
		errors.As(err, &conn) ||
		errors.As(err, &rateLimited) ||
		errors.As(err, &unavailable)
}

// ErrorTypeLabel maps an error onto a stable label for logs and metrics.
func ErrorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var unavailable ErrUnavailable
	if errors.As(err, &unavailable) {
		return "unavailable"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return "http_status"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "other"
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout{Err: err}
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrTimeout{Err: err}
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return ErrConnection{Err: err}
		}
		if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
			return ErrConnection{Err: err}
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return ErrConnection{Err: err}
		}
		return err
	}

	if statusCode < http.StatusBadRequest {
		return nil
	}
	wrapped := fmt.Errorf("http status %d", statusCode)
	switch statusCode {
	case http.StatusForbidden:
		return ErrForbidden{Err: wrapped}
	case http.StatusNotFound:
		return ErrNotFound{Err: wrapped}
	case http.StatusTooManyRequests:
		return ErrRateLimited{Err: wrapped}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable{Err: wrapped}
	}
	return ErrHTTPStatus{StatusCode: statusCode}
}
