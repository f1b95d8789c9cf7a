package platform

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
)

var (
	jumiaLinkMarkers = []string{"/product/", "/catalog/", ".html", "jumia.com"}
	jumiaProductIDRe = regexp.MustCompile(`[-\d]`)
)

func jumiaProfile() *Profile {
	return &Profile{
		Platform:    models.Jumia,
		BaseURL:     "https://www.jumia.com.eg",
		Accept:      htmlAccept,
		Referer:     "https://www.jumia.com.eg/",
		Format:      FormatHTML,
		PriceFormat: parser.DecimalPoint,
		Listing: ListingSelectors{
			Containers: Chain{
				"article.prd",
				"article.c-prd",
				"article[class*='prd']",
				"article[class*='product']",
				"article[class*='card']",
			},
			Title: Chain{
				"h3.name", "h2.name", "h3", ".name",
				"[data-name]@data-name",
				"a.name", ".prd-name",
			},
			Price: Chain{
				".prc", ".price",
				"[data-price]@data-price",
				".price-box", ".old", "[class*='price']",
			},
			Rating: Chain{
				".rev .stars", ".rev", ".rating",
				"[data-rating]@data-rating",
				"[class*='star']",
			},
			Image: Chain{
				"img.img@data-src|src|data-lazy-src|data-original",
				"img@data-src|src|data-lazy-src|data-original",
				"[data-src]@data-src",
			},
			Link: Chain{
				"a.core@href",
				"a[href*='/product/']@href",
				"a[href*='/catalog/']@href",
				"a[href*='jumia.com']@href",
				"a@href",
			},
		},
		Detail: DetailSelectors{
			Title: Chain{"h1", ".name", "[data-name]@data-name"},
			Price: Chain{".-b.-fs24", ".price", ".-b", "[data-price]@data-price", ".-fs16"},
			Rating: Chain{
				".stars",
				".rating",
				"[data-rating]@data-rating",
			},
			Image: Chain{
				"img.-fw@data-src|src|data-lazy-src",
				"img[data-src]@data-src",
				".sldr img@data-src|src",
				".images img@data-src|src",
				"picture img@data-src|src",
				"meta[property='og:image']@content",
			},
			Description: Chain{".markup", ".description", "[data-description]@data-description"},
		},
		searchURL: func(base, query string, page int) string {
			params := url.Values{}
			params.Set("q", query)
			params.Set("page", strconv.Itoa(page))
			return strings.TrimRight(base, "/") + "/catalog/?" + params.Encode()
		},
		imageFixup: parser.StripQuery,
		linkAccept: jumiaLinkAccept,
	}
}

// jumiaLinkAccept keeps hrefs that look like a product page.
func jumiaLinkAccept(href string) bool {
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "http") {
		return false
	}
	for _, marker := range jumiaLinkMarkers {
		if strings.Contains(href, marker) {
			return jumiaProductIDRe.MatchString(href)
		}
	}
	return false
}
