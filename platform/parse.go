package platform

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
)

const bulletSeparator = " | "

// parseListings extracts raw listings from a search response body.
func (p *Profile) parseListings(body []byte) ([]listing, error) {
	if p.Format == FormatJSON {
		if p.parseJSON == nil {
			return nil, fmt.Errorf("%s: json profile without decoder", p.Platform)
		}
		return p.parseJSON(p, body)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	items := p.Listing.Containers.Match(doc.Selection)
	if items.Length() == 0 {
		return nil, ErrNoListings
	}

	out := make([]listing, 0, items.Length())
	items.Each(func(_ int, s *goquery.Selection) {
		l := listing{
			Title:  p.Listing.Title.First(s),
			Rating: p.Listing.Rating.First(s),
			Image:  p.Listing.Image.First(s),
			Link:   p.Listing.Link.FirstMatching(s, p.linkAccept),
		}
		var assembled string
		if p.listingPrice != nil {
			assembled = p.listingPrice(s)
		}
		l.Price = parser.FirstNonEmpty(assembled, p.Listing.Price.First(s))
		out = append(out, l)
	})
	return out, nil
}

// parseDetail extracts the detail-page fields.
func (p *Profile) parseDetail(body []byte, pageURL string) (detail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return detail{}, fmt.Errorf("parse html: %w", err)
	}
	root := doc.Selection

	description := parser.FirstNonEmpty(
		parser.CleanText(p.Detail.Description.First(root)),
		parser.CleanText(p.Detail.Bullets.Join(root, bulletSeparator)),
	)

	return detail{
		Title:       parser.CleanText(p.Detail.Title.First(root)),
		Price:       p.cleanPrice(p.Detail.Price.First(root)),
		Rating:      cleanRating(p.Detail.Rating.First(root)),
		Image:       p.normalizeImage(p.Detail.Image.First(root), p.resolveBase(pageURL)),
		Description: description,
	}, nil
}

// toRecord normalizes a raw listing; a validation error means the record is dropped.
func (p *Profile) toRecord(l listing, pageURL, query string) (models.ProductRecord, error) {
	base := p.resolveBase(pageURL)
	rec := models.ProductRecord{
		Title:       parser.CleanText(l.Title),
		Price:       p.cleanPrice(l.Price),
		Rating:      cleanRating(l.Rating),
		Image:       p.normalizeImage(l.Image, base),
		ProductLink: parser.NormalizeURL(l.Link, base),
		SearchQuery: query,
		Website:     p.Platform,
	}
	if err := parser.ValidateRecord(rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// resolveBase is what relative links resolve against: the platform origin, or
// pageURL when the profile has no BaseURL. A redirect to a consent or captcha
// host must not move product links off the platform.
func (p *Profile) resolveBase(pageURL string) string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	return pageURL
}

func (p *Profile) cleanPrice(raw string) string {
	text := parser.CleanText(raw)
	if _, ok := parser.NormalizePrice(text, p.PriceFormat); !ok {
		return ""
	}
	return text
}

func cleanRating(raw string) string {
	text := parser.CleanText(raw)
	if _, ok := parser.NormalizeRating(text); !ok {
		return ""
	}
	return text
}

func (p *Profile) normalizeImage(raw, base string) string {
	if raw == "" {
		return ""
	}
	if p.imageFixup != nil {
		raw = p.imageFixup(raw)
	}
	return parser.NormalizeURL(raw, base)
}

// apply merges detail values into rec. Listing values are kept where the
// detail page had nothing.
func (d detail) apply(rec models.ProductRecord) models.ProductRecord {
	if d.Title != "" {
		rec.Title = d.Title
	}
	if d.Price != "" {
		rec.Price = d.Price
	}
	if d.Rating != "" {
		rec.Rating = d.Rating
	}
	if d.Image != "" {
		rec.Image = d.Image
	}
	rec.Description = d.Description
	return rec
}
