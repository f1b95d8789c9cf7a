package platform

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
)

const htmlAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

func amazonProfile() *Profile {
	return &Profile{
		Platform:    models.Amazon,
		BaseURL:     "https://www.amazon.eg",
		Accept:      htmlAccept,
		Referer:     "https://www.amazon.eg/",
		Format:      FormatHTML,
		PriceFormat: parser.DecimalPoint,
		Listing: ListingSelectors{
			Containers: Chain{
				"div[data-component-type='s-search-result']",
				"div.s-result-item[data-asin]",
			},
			Title: Chain{
				"h2.a-text-normal",
				"h2 span.a-text-normal",
				"h2 a.a-text-normal span",
				"h2",
				".s-title-instructions-style span",
				"a.a-link-normal",
			},
			Price: Chain{
				"span.a-price .a-offscreen",
				"span.a-price",
			},
			Rating: Chain{"span.a-icon-alt"},
			Image:  Chain{"img.s-image@src|data-src|data-lazy-src"},
			Link: Chain{
				"h2 a@href",
				"a.a-link-normal.s-no-outline@href",
				"a.a-link-normal@href",
			},
		},
		Detail: DetailSelectors{
			Title: Chain{"#productTitle", "h1 span"},
			Price: Chain{
				"#priceblock_ourprice",
				"#priceblock_dealprice",
				".a-price .a-offscreen",
			},
			Rating: Chain{"span.a-icon-alt", "#acrPopover .a-icon-alt"},
			Image: Chain{
				"img#landingImage@src|data-old-hires",
				"img[data-a-dynamic-image]@data-a-dynamic-image",
				"img.a-dynamic-image@src|data-old-hires",
				"meta[property='og:image']@content",
			},
			Description: Chain{
				"#productDescription_feature_div #productDescription",
				"#productDescription",
			},
			Bullets: Chain{"#feature-bullets ul li", "#feature-bullets"},
		},
		searchURL: func(base, query string, page int) string {
			params := url.Values{}
			params.Set("k", query)
			params.Set("language", "en")
			params.Set("page", strconv.Itoa(page))
			return strings.TrimRight(base, "/") + "/s?" + params.Encode()
		},
		listingPrice: amazonListingPrice,
		imageFixup:   amazonDynamicImage,
	}
}

// amazonListingPrice assembles whole, fraction and currency symbol spans.
func amazonListingPrice(s *goquery.Selection) string {
	whole := parser.CleanText(s.Find("span.a-price-whole").First().Text())
	if whole == "" {
		return ""
	}
	fraction := parser.CleanText(s.Find("span.a-price-fraction").First().Text())
	symbol := parser.CleanText(s.Find("span.a-price-symbol").First().Text())
	if fraction != "" && !strings.HasSuffix(whole, ".") {
		whole += "."
	}
	return strings.TrimSpace(whole + fraction + " " + symbol)
}

// amazonDynamicImage picks the first URL of a data-a-dynamic-image JSON map.
func amazonDynamicImage(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return raw
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return ""
	}
	tok, err := dec.Token()
	if err != nil {
		return ""
	}
	key, _ := tok.(string)
	return key
}
