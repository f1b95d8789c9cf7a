package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/platform"
)

// Platform error kinds recorded in CrawlResult.Errors.
const (
	KindUnavailable = "unavailable"
	KindTimeout     = "timeout"
	KindCanceled    = "canceled"
	KindPanic       = "panic"
	KindError       = "error"
)

// PlatformResult is the outcome of one adapter run.
type PlatformResult struct {
	Platform models.Platform
	Records  []models.ProductRecord
	Err      error
	Duration time.Duration
}

// PanicError wraps a value recovered from a panicking adapter.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("adapter panic: %v", e.Value)
}

// Combine merges results in the given order, keeping each platform's own
// order. Records repeating an earlier (website, product_link) are dropped.
// Every platform in results gets a count, even when it is zero.
func Combine(results []PlatformResult) *models.CrawlResult {
	out := &models.CrawlResult{
		Counts: make(map[models.Platform]int, len(results)),
	}

	seen := make(map[recordKey]struct{})
	for _, res := range results {
		if _, ok := out.Counts[res.Platform]; !ok {
			out.Counts[res.Platform] = 0
		}
		for _, rec := range res.Records {
			key := keyOf(rec)
			if _, ok := seen[key]; ok {
				out.Duplicates++
				continue
			}
			seen[key] = struct{}{}
			out.Records = append(out.Records, rec)
			out.Counts[res.Platform]++
		}
		if res.Err != nil {
			out.Errors = append(out.Errors, models.PlatformError{
				Platform: res.Platform,
				Kind:     errorKind(res.Err),
				Err:      res.Err,
			})
		}
	}
	return out
}

func errorKind(err error) string {
	var unavailable *platform.PlatformUnavailable
	var panicked *PanicError
	switch {
	case errors.As(err, &panicked):
		return KindPanic
	case errors.As(err, &unavailable):
		return KindUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	return KindError
}
