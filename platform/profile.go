// Package platform holds the site adapters: one data-driven Profile per
// marketplace and a generic Adapter that crawls search pages, extracts
// listings through fallback selector chains and enriches them from detail pages.
package platform

import (
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
)

// Format is the body format of a platform's search results.
type Format int

const (
	FormatHTML Format = iota
	FormatJSON
)

// ListingSelectors locate listings on a search page and the fields inside
// each listing container.
type ListingSelectors struct {
	Containers Chain `yaml:"containers"`
	Title      Chain `yaml:"title"`
	Price      Chain `yaml:"price"`
	Rating     Chain `yaml:"rating"`
	Image      Chain `yaml:"image"`
	Link       Chain `yaml:"link"`
}

// DetailSelectors locate fields on a product detail page. Bullets items are
// joined with " | " when Description yields nothing.
type DetailSelectors struct {
	Title       Chain `yaml:"title"`
	Price       Chain `yaml:"price"`
	Rating      Chain `yaml:"rating"`
	Image       Chain `yaml:"image"`
	Description Chain `yaml:"description"`
	Bullets     Chain `yaml:"bullets"`
}

// Profile describes everything platform-specific about a marketplace.
type Profile struct {
	Platform    models.Platform
	BaseURL     string
	Accept      string
	Referer     string
	Format      Format
	PriceFormat parser.PriceFormat
	Listing     ListingSelectors
	Detail      DetailSelectors

	searchURL     func(base, query string, page int) string
	queryVariants func(query string) []string
	// parseJSON decodes a JSON search response into raw listings.
	parseJSON func(p *Profile, body []byte) ([]listing, error)
	// listingPrice runs before the Price chain.
	listingPrice func(s *goquery.Selection) string
	imageFixup   func(raw string) string
	linkAccept   func(href string) bool
}

// listing is a listing's raw field values before normalization.
type listing struct {
	Title, Price, Rating, Image, Link string
}

// detail is what a detail page contributed.
type detail struct {
	Title, Price, Rating, Image, Description string
}

// SearchURL builds the search page URL for query and 1-based page.
func (p *Profile) SearchURL(query string, page int) string {
	return p.searchURL(p.BaseURL, query, page)
}

// QueryVariants lists the query spellings to try, in order.
func (p *Profile) QueryVariants(query string) []string {
	if p.queryVariants == nil {
		return []string{query}
	}
	seen := make(map[string]struct{})
	var out []string
	for _, v := range p.queryVariants(query) {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		out = append(out, query)
	}
	return out
}

// Headers returns the per-platform request headers.
func (p *Profile) Headers() http.Header {
	hdr := http.Header{}
	if p.Accept != "" {
		hdr.Set("Accept", p.Accept)
	}
	if p.Referer != "" {
		hdr.Set("Referer", p.Referer)
	}
	return hdr
}

func applyListing(dst *ListingSelectors, src ListingSelectors) {
	mergeChain(&dst.Containers, src.Containers)
	mergeChain(&dst.Title, src.Title)
	mergeChain(&dst.Price, src.Price)
	mergeChain(&dst.Rating, src.Rating)
	mergeChain(&dst.Image, src.Image)
	mergeChain(&dst.Link, src.Link)
}

func applyDetail(dst *DetailSelectors, src DetailSelectors) {
	mergeChain(&dst.Title, src.Title)
	mergeChain(&dst.Price, src.Price)
	mergeChain(&dst.Rating, src.Rating)
	mergeChain(&dst.Image, src.Image)
	mergeChain(&dst.Description, src.Description)
	mergeChain(&dst.Bullets, src.Bullets)
}

// Profiles returns fresh copies of the built-in profiles keyed by platform.
func Profiles() map[models.Platform]*Profile {
	return map[models.Platform]*Profile{
		models.Amazon: amazonProfile(),
		models.Noon:   noonProfile(),
		models.Jumia:  jumiaProfile(),
	}
}
