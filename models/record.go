// Package models defines data structures shared by the crawler packages.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies one supported e-commerce source.
type Platform string

const (
	Amazon Platform = "Amazon"
	Noon   Platform = "Noon"
	Jumia  Platform = "Jumia"
)

// AllPlatforms lists the known platforms in their default crawl order.
var AllPlatforms = []Platform{Amazon, Noon, Jumia}

// Valid reports whether p is one of the statically known platforms.
func (p Platform) Valid() bool {
	for _, known := range AllPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePlatform matches a platform name case-insensitively.
func ParsePlatform(name string) (Platform, error) {
	name = strings.TrimSpace(name)
	for _, known := range AllPlatforms {
		if strings.EqualFold(name, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", name)
}

// Columns is the fixed column order of the tabular sink.
var Columns = []string{
	"title", "price", "rating", "image", "product_link",
	"description", "search_query", "website",
}

// ProductRecord is one scraped listing. Detail-only fields are always present
// and stay empty when the detail page was not fetched or yielded nothing.
type ProductRecord struct {
	Title       string   `csv:"title" json:"title"`
	Price       string   `csv:"price" json:"price"`
	Rating      string   `csv:"rating" json:"rating"`
	Image       string   `csv:"image" json:"image"`
	ProductLink string   `csv:"product_link" json:"product_link"`
	Description string   `csv:"description" json:"description"`
	SearchQuery string   `csv:"search_query" json:"search_query"`
	Website     Platform `csv:"website" json:"website"`
}

// Row returns the record values in Columns order.
func (r ProductRecord) Row() []string {
	return []string{
		r.Title,
		r.Price,
		r.Rating,
		r.Image,
		r.ProductLink,
		r.Description,
		r.SearchQuery,
		string(r.Website),
	}
}

// CrawlRequest describes one crawl invocation.
type CrawlRequest struct {
	Query                  string
	Pages                  int
	MaxProductsPerPlatform int
	Detailed               bool
	Platforms              []Platform
}

// WithDefaults returns a copy with defaults applied and duplicate platforms removed.
func (r CrawlRequest) WithDefaults() CrawlRequest {
	out := r
	out.Query = strings.TrimSpace(r.Query)
	if out.Pages == 0 {
		out.Pages = 1
	}
	if len(r.Platforms) == 0 {
		out.Platforms = append([]Platform(nil), AllPlatforms...)
		return out
	}
	seen := make(map[Platform]struct{}, len(r.Platforms))
	out.Platforms = make([]Platform, 0, len(r.Platforms))
	for _, p := range r.Platforms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out.Platforms = append(out.Platforms, p)
	}
	return out
}

// Validate ensures the request is coherent.
func (r CrawlRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.Pages <= 0 {
		return fmt.Errorf("pages must be positive")
	}
	if r.MaxProductsPerPlatform < 0 {
		return fmt.Errorf("max products per platform cannot be negative")
	}
	if len(r.Platforms) == 0 {
		return fmt.Errorf("at least one platform is required")
	}
	for _, p := range r.Platforms {
		if !p.Valid() {
			return fmt.Errorf("unknown platform %q", p)
		}
	}
	return nil
}

// PlatformError records a platform-level failure.
type PlatformError struct {
	Platform Platform
	Kind     string
	Err      error
}

func (e PlatformError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Platform, e.Kind, e.Err)
}

func (e PlatformError) Unwrap() error {
	return e.Err
}

// CrawlResult holds the overall result of a crawl invocation.
type CrawlResult struct {
	Records    []ProductRecord
	Counts     map[Platform]int
	Errors     []PlatformError
	Duplicates int
	StartTime  time.Time
	EndTime    time.Time
}

// TotalCount returns the number of records in the result.
func (r *CrawlResult) TotalCount() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}
