package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
)

const (
	noonSearchPath = "/_svc/catalog/api/v3/u/search/"
	noonLocale     = "egypt-en"
	noonCountry    = "eg"
	noonPageSize   = 50
	noonCDN        = "https://f.nooncdn.com/"
)

var (
	noonPricePaths  = []string{"price.value", "sale_price.value", "offer_price.value", "final_price", "price", "sale_price", "offer_price"}
	noonRatingPaths = []string{"rating.average", "rating.value", "rating", "reviews_average", "avg_rating", "average_rating"}
	noonTitlePaths  = []string{"name", "title"}
	noonImagePaths  = []string{"image_key", "imageKey", "image", "thumbnail", "product_image", "images.key", "images.image_key", "images.url"}
	noonSKUPaths    = []string{"sku", "SKU", "product_sku"}
	noonSlugPaths   = []string{"url", "product_url", "path", "slug"}

	noonStripPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d+gb\b`),
		regexp.MustCompile(`\bram\b`),
		regexp.MustCompile(`\bssd\b`),
		regexp.MustCompile(`\bhdd\b`),
		regexp.MustCompile(`\b\d+\b`),
	}
	imageExtRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)$`)
)

func noonProfile() *Profile {
	return &Profile{
		Platform:    models.Noon,
		BaseURL:     "https://www.noon.com",
		Accept:      "application/json, text/html;q=0.9, */*;q=0.8",
		Referer:     "https://www.noon.com/" + noonLocale + "/",
		Format:      FormatJSON,
		PriceFormat: parser.DecimalPoint,
		Detail: DetailSelectors{
			Title: Chain{"h1[data-qa='pdp-name']", "h1"},
			Price: Chain{
				"[data-qa='div-price-now']",
				".priceNow",
				"meta[property='product:price:amount']@content",
			},
			Rating: Chain{"[data-qa='pdp-rating']", "[class*='ratingValue']"},
			Image: Chain{
				"meta[property='og:image']@content",
				"img[data-qa='pdp-image']@src",
			},
			Description: Chain{
				"[data-qa='pdp-description']",
				".overviewDesc",
				"meta[name='description']@content",
			},
			Bullets: Chain{"[class*='highlights'] ul li"},
		},
		searchURL: func(base, query string, page int) string {
			params := url.Values{}
			params.Set("q", query)
			params.Set("page", strconv.Itoa(page))
			params.Set("limit", strconv.Itoa(noonPageSize))
			params.Set("country", noonCountry)
			return strings.TrimRight(base, "/") + noonSearchPath + "?" + params.Encode()
		},
		queryVariants: func(query string) []string {
			return []string{NormalizeNoonQuery(query), query}
		},
		parseJSON:  parseNoonHits,
		imageFixup: noonImageURL,
	}
}

// NormalizeNoonQuery drops storage and memory qualifiers and bare numbers,
// which the Noon catalog search matches poorly.
func NormalizeNoonQuery(query string) string {
	q := strings.ToLower(query)
	for _, re := range noonStripPatterns {
		q = re.ReplaceAllString(q, "")
	}
	return strings.Join(strings.Fields(q), " ")
}

func parseNoonHits(p *Profile, body []byte) ([]listing, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload struct {
		Hits []map[string]any `json:"hits"`
	}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode noon search response: %w", err)
	}

	out := make([]listing, 0, len(payload.Hits))
	for _, hit := range payload.Hits {
		title := firstScalar(hit, noonTitlePaths...)
		if title == "" {
			continue
		}
		out = append(out, listing{
			Title:  title,
			Price:  firstScalar(hit, noonPricePaths...),
			Rating: firstScalar(hit, noonRatingPaths...),
			Image:  noonImageKey(hit),
			Link:   noonLink(p.BaseURL, hit),
		})
	}
	return out, nil
}

// lookup follows a dotted key path through nested objects.
func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// firstScalar returns the first path resolving to a non-empty string or number.
func firstScalar(doc map[string]any, paths ...string) string {
	for _, path := range paths {
		v, ok := lookup(doc, path)
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				return s
			}
		case json.Number:
			return val.String()
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return ""
}

func noonImageKey(hit map[string]any) string {
	if key := firstScalar(hit, noonImagePaths...); key != "" {
		return key
	}
	images, ok := hit["images"].([]any)
	if !ok || len(images) == 0 {
		return ""
	}
	switch first := images[0].(type) {
	case string:
		return strings.TrimSpace(first)
	case map[string]any:
		return firstScalar(first, "key", "image_key", "url")
	}
	return ""
}

// noonImageURL expands a CDN image key. Product keys live under /p/.
func noonImageURL(key string) string {
	key = strings.TrimSpace(key)
	if key == "" || parser.IsAbsoluteURL(key) || strings.HasPrefix(key, "//") {
		return key
	}
	key = strings.TrimLeft(key, "/")

	var u string
	switch {
	case strings.HasPrefix(key, "pnsku/"), strings.HasPrefix(key, "pim/"),
		strings.HasPrefix(key, "pmd/"), strings.HasPrefix(key, "psku/"):
		u = noonCDN + "p/" + key
	default:
		u = noonCDN + key
	}
	if !imageExtRe.MatchString(u) {
		u += ".jpg"
	}
	return u
}

// noonLink builds https://www.noon.com/egypt-en/{slug}/{sku}/p/.
func noonLink(base string, hit map[string]any) string {
	slug := firstScalar(hit, noonSlugPaths...)
	sku := firstScalar(hit, noonSKUPaths...)
	if parser.IsAbsoluteURL(slug) {
		return slug
	}
	if slug == "" {
		return ""
	}

	base = strings.TrimRight(base, "/")
	slug = strings.Trim(slug, "/")
	slug = strings.TrimPrefix(slug, noonLocale+"/")
	if sku == "" {
		return base + "/" + noonLocale + "/" + slug
	}
	slug = strings.TrimSuffix(slug, "/p")
	slug = strings.TrimSuffix(slug, "/"+sku)
	return base + "/" + noonLocale + "/" + slug + "/" + sku + "/p/"
}
