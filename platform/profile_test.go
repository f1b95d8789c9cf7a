package platform

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-scrape-products/models"
)

func doc(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d.Selection
}

func TestChainFallbacks(t *testing.T) {
	root := doc(t, `<div>
		<h2 class="title"> </h2>
		<h3 class="name">  Fallback   title </h3>
		<img class="lazy" src="data:x" data-src="https://cdn.example.com/1.jpg">
		<img class="plain">
		<a href="#">skip</a><a href="/item-42.html">item</a>
	</div>`)

	assert.Equal(t, "Fallback title", Chain{"h2.title", "h3.name"}.First(root))
	assert.Equal(t, "https://cdn.example.com/1.jpg", Chain{"img.plain@src", "img.lazy@data-src|src"}.First(root))
	assert.Equal(t, "", Chain{"span.missing", "img.plain@src"}.First(root))
	assert.Equal(t, "/item-42.html", Chain{"a@href"}.FirstMatching(root, func(v string) bool { return v != "#" }))
	assert.Equal(t, 2, Chain{"li", "a", "img"}.Match(root).Length())
	assert.Equal(t, 0, Chain{"li", "table"}.Match(root).Length())
}

func TestChainJoin(t *testing.T) {
	root := doc(t, `<ul id="b"><li>one</li><li> </li><li>two  words</li></ul><p id="full">full text</p>`)
	assert.Equal(t, "one | two words", Chain{"#missing li", "#b li"}.Join(root, " | "))
	assert.Equal(t, "full text", Chain{"#none li", "#full"}.Join(root, " | "))
}

func TestAmazonListings(t *testing.T) {
	p := amazonProfile()
	listings, err := p.parseListings([]byte(amazonSearchPage(1, 2)))
	require.NoError(t, err)
	require.Len(t, listings, 2)

	pageURL := p.SearchURL("laptop", 1)
	assert.Equal(t, "https://www.amazon.eg/s?k=laptop&language=en&page=1", pageURL)

	rec, err := p.toRecord(listings[0], pageURL, "laptop")
	require.NoError(t, err)
	assert.Equal(t, "Laptop model 1", rec.Title)
	assert.Equal(t, "1,001.00 EGP", rec.Price)
	assert.Equal(t, "4.1 out of 5 stars", rec.Rating)
	assert.Equal(t, "https://m.media-amazon.com/images/I/1.jpg", rec.Image)
	assert.Equal(t, "https://www.amazon.eg/dp/A1?ref=sr_1_1", rec.ProductLink)
	assert.Equal(t, models.Amazon, rec.Website)
	assert.Equal(t, "laptop", rec.SearchQuery)
	assert.Empty(t, rec.Description)
}

func TestAmazonDetail(t *testing.T) {
	p := amazonProfile()
	d, err := p.parseDetail([]byte(amazonDetailPage("Full Laptop Title")), "https://www.amazon.eg/dp/A1")
	require.NoError(t, err)
	assert.Equal(t, "Full Laptop Title", d.Title)
	assert.Equal(t, "EGP 1,234.50", d.Price)
	assert.Equal(t, "", d.Rating)
	assert.Equal(t, "https://m.media-amazon.com/big.jpg", d.Image)
	assert.Equal(t, "16GB RAM | 512GB SSD", d.Description)
}

func TestAmazonListingPriceAddsDecimalPoint(t *testing.T) {
	root := doc(t, `<div><span class="a-price-symbol">EGP</span><span class="a-price-whole">2,499</span><span class="a-price-fraction">99</span></div>`)
	assert.Equal(t, "2,499.99 EGP", amazonListingPrice(root))
}

func TestJumiaListings(t *testing.T) {
	p := jumiaProfile()
	listings, err := p.parseListings([]byte(jumiaSearchPage))
	require.NoError(t, err)
	require.Len(t, listings, 3)

	pageURL := p.SearchURL("phone", 1)
	assert.Equal(t, "https://www.jumia.com.eg/catalog/?page=1&q=phone", pageURL)

	first, err := p.toRecord(listings[0], pageURL, "phone")
	require.NoError(t, err)
	assert.Equal(t, "Samsung Galaxy A15", first.Title)
	assert.Equal(t, "EGP 7,499.00", first.Price)
	assert.Equal(t, "4.5 out of 5", first.Rating)
	assert.Equal(t, "https://eg.jumia.is/unsafe/fit-in/300x300/product/51/1.jpg", first.Image)
	assert.Equal(t, "https://www.jumia.com.eg/samsung-galaxy-a15-123456.html", first.ProductLink)

	_, err = p.toRecord(listings[1], pageURL, "phone")
	assert.Error(t, err, "listing without a product link must be dropped")

	third, err := p.toRecord(listings[2], pageURL, "phone")
	require.NoError(t, err)
	assert.Equal(t, "https://eg.jumia.is/product/2.jpg", third.Image)
	assert.Equal(t, "EGP ٤٬٩٩٩", third.Price)
	assert.Empty(t, third.Rating)
}

func TestJumiaLinkAccept(t *testing.T) {
	tests := []struct {
		href string
		want bool
	}{
		{href: "/phone-x-123.html", want: true},
		{href: "https://www.jumia.com.eg/catalog/item-9", want: true},
		{href: "/product/abc-def", want: true},
		{href: "#", want: false},
		{href: "javascript:void(0)", want: false},
		{href: "/customer/account/", want: false},
		{href: "relative-1.html", want: false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, jumiaLinkAccept(tt.href), tt.href)
	}
}

func TestNoonHits(t *testing.T) {
	p := noonProfile()
	listings, err := p.parseListings([]byte(noonSearchJSON))
	require.NoError(t, err)
	require.Len(t, listings, 2, "hit without a title is skipped")

	pageURL := p.SearchURL("phone", 2)
	assert.Equal(t, "https://www.noon.com/_svc/catalog/api/v3/u/search/?country=eg&limit=50&page=2&q=phone", pageURL)

	first, err := p.toRecord(listings[0], pageURL, "phone")
	require.NoError(t, err)
	assert.Equal(t, "Noon Phone X", first.Title)
	assert.Equal(t, "4999", first.Price)
	assert.Equal(t, "4.4", first.Rating)
	assert.Equal(t, "https://f.nooncdn.com/p/pnsku/N123/45/_/1700.jpg", first.Image)
	assert.Equal(t, "https://www.noon.com/egypt-en/noon-phone-x/N123/p/", first.ProductLink)

	second, err := p.toRecord(listings[1], pageURL, "phone")
	require.NoError(t, err)
	assert.Equal(t, "1,250.50", second.Price)
	assert.Equal(t, "https://f.nooncdn.com/p/pim/abc.jpg", second.Image)
	assert.Equal(t, "https://www.noon.com/egypt-en/tablet/N9/p/", second.ProductLink)
}

func TestNoonHitsMalformed(t *testing.T) {
	_, err := noonProfile().parseListings([]byte(`<html>blocked</html>`))
	assert.Error(t, err)

	listings, err := noonProfile().parseListings([]byte(`{"hits":[]}`))
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestNoonImageURL(t *testing.T) {
	tests := map[string]string{
		"pnsku/N1/45/_/1.jpg":         "https://f.nooncdn.com/p/pnsku/N1/45/_/1.jpg",
		"/psku/abc":                   "https://f.nooncdn.com/p/psku/abc.jpg",
		"banners/x.png":               "https://f.nooncdn.com/banners/x.png",
		"https://cdn.noon.com/a.webp": "https://cdn.noon.com/a.webp",
		"":                            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, noonImageURL(in), in)
	}
}

func TestNoonLink(t *testing.T) {
	base := "https://www.noon.com"
	assert.Equal(t, "https://www.noon.com/egypt-en/slug/SKU1/p/",
		noonLink(base, map[string]any{"url": "/egypt-en/slug/p/", "sku": "SKU1"}))
	assert.Equal(t, "https://www.noon.com/egypt-en/plain-slug",
		noonLink(base, map[string]any{"slug": "plain-slug"}))
	assert.Equal(t, "", noonLink(base, map[string]any{"sku": "ONLY"}))
}

func TestNormalizeNoonQuery(t *testing.T) {
	assert.Equal(t, "laptop", NormalizeNoonQuery("Laptop 16GB RAM 512 SSD"))
	assert.Equal(t, "iphone pro", NormalizeNoonQuery("iPhone 15 Pro"))
	assert.Equal(t, []string{"laptop", "laptop 16gb"}, noonProfile().QueryVariants("laptop 16gb"))
	assert.Equal(t, []string{"tv"}, noonProfile().QueryVariants("tv"))
}
