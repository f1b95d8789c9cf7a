package platform

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-products/models"
)

// ErrNoListings is returned when no listing container selector matched.
var ErrNoListings = errors.New("no listing container matched")

// PlatformUnavailable means the first search page could not be fetched with
// any query variant; the platform contributes no records.
type PlatformUnavailable struct {
	Platform models.Platform
	Err      error
}

func (e *PlatformUnavailable) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Platform, e.Err)
}

func (e *PlatformUnavailable) Unwrap() error {
	return e.Err
}

// ParseError means a fetched page could not be turned into listings.
type ParseError struct {
	Platform models.Platform
	URL      string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s page %s: %v", e.Platform, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
