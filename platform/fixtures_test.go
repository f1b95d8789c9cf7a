package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-products/scraper"
)

type fakePage struct {
	body     string
	err      error
	delay    time.Duration
	finalURL string // reported as the post-redirect URL when set
}

// fakeFetcher serves canned bodies by URL; unknown URLs fail like a 404.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]fakePage
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]fakePage)}
}

func (f *fakeFetcher) set(url string, page fakePage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = page
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*scraper.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	page, ok := f.pages[url]
	f.mu.Unlock()

	if page.delay > 0 {
		select {
		case <-time.After(page.delay):
		case <-ctx.Done():
			return nil, &scraper.FetchFailed{URL: url, Attempts: 1, Err: ctx.Err()}
		}
	}
	if !ok {
		return nil, &scraper.FetchFailed{URL: url, Attempts: 1, Err: scraper.ErrNotFound{Err: errors.New("http status 404")}}
	}
	if page.err != nil {
		return nil, page.err
	}
	final := url
	if page.finalURL != "" {
		final = page.finalURL
	}
	return &scraper.Response{URL: final, StatusCode: 200, Body: []byte(page.body)}, nil
}

func (f *fakeFetcher) called(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}

func unavailable(url string) error {
	return &scraper.FetchFailed{URL: url, Attempts: 4, Err: scraper.ErrUnavailable{Err: errors.New("http status 503")}}
}

// amazonSearchPage renders n Amazon result cards numbered from start.
func amazonSearchPage(start, n int) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"s-main-slot\">")
	for i := start; i < start+n; i++ {
		fmt.Fprintf(&b, `
<div data-component-type="s-search-result" data-asin="A%[1]d">
  <h2><a class="a-link-normal" href="/dp/A%[1]d?ref=sr_1_%[1]d"><span class="a-size-medium a-text-normal">Laptop model %[1]d</span></a></h2>
  <span class="a-price"><span class="a-offscreen">EGP 1,%03[1]d.00</span><span aria-hidden="true"><span class="a-price-symbol">EGP</span><span class="a-price-whole">1,%03[1]d<span class="a-price-decimal">.</span></span><span class="a-price-fraction">00</span></span></span>
  <span class="a-icon-alt">4.%[2]d out of 5 stars</span>
  <img class="s-image" src="https://m.media-amazon.com/images/I/%[1]d.jpg">
</div>`, i, i%10)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func amazonDetailPage(title string) string {
	return `<html><head><meta property="og:image" content="https://m.media-amazon.com/og.jpg"></head><body>
<span id="productTitle">  ` + title + `  </span>
<span class="a-price"><span class="a-offscreen">EGP 1,234.50</span></span>
<div id="feature-bullets"><ul><li> 16GB RAM </li><li>512GB SSD</li><li> </li></ul></div>
<img id="landingImage" data-a-dynamic-image='{"https://m.media-amazon.com/big.jpg":[1500,1500],"https://m.media-amazon.com/small.jpg":[300,300]}'>
</body></html>`
}

const jumiaSearchPage = `<html><body><section class="card">
<article class="prd _fb col c-prd">
  <a class="core" href="/samsung-galaxy-a15-123456.html" data-name="Samsung Galaxy A15">
    <div class="img-c"><img class="img" data-src="https://eg.jumia.is/unsafe/fit-in/300x300/product/51/1.jpg?1700" src="data:image/svg+xml;base64,AAA"></div>
    <div class="info">
      <h3 class="name">Samsung Galaxy A15</h3>
      <div class="prc">EGP 7,499.00</div>
      <div class="rev"><div class="stars _s">4.5 out of 5</div>(120)</div>
    </div>
  </a>
</article>
<article class="prd _fb col c-prd">
  <a class="core" href="#"><h3 class="name">Sponsored banner</h3></a>
</article>
<article class="prd _fb col c-prd">
  <a class="core" href="https://www.jumia.com.eg/xiaomi-redmi-13c-654321.html">
    <img class="img" src="//eg.jumia.is/product/2.jpg">
    <h3 class="name">Xiaomi Redmi 13C</h3>
    <div class="prc">EGP ٤٬٩٩٩</div>
  </a>
</article>
</section></body></html>`

const noonSearchJSON = `{"nbHits":3,"hits":[
 {"name":"Noon Phone X","sku":"N123","url":"noon-phone-x","price":{"value":4999},"rating":{"average":4.4},"image_key":"pnsku/N123/45/_/1700.jpg"},
 {"title":"Only Title Tablet","url":"https://www.noon.com/egypt-en/tablet/N9/p/","sale_price":"1,250.50","images":[{"key":"pim/abc"}]},
 {"sku":"NAMELESS","url":"nameless"}
]}`
