package platform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/scraper"
)

const defaultDetailConcurrency = 10

// Fetcher is the HTTP surface an Adapter depends on.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*scraper.Response, error)
}

// CrawlOptions controls one adapter run.
type CrawlOptions struct {
	Query       string
	Pages       int
	MaxProducts int // 0 means no cap
	Detailed    bool
	Delay       time.Duration
	Concurrency int
}

func (o CrawlOptions) withDefaults() CrawlOptions {
	if o.Pages <= 0 {
		o.Pages = 1
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultDetailConcurrency
	}
	return o
}

// Adapter crawls one platform.
type Adapter struct {
	profile *Profile
	fetcher Fetcher
	metrics *scraper.Metrics
	seen    *lru.Cache[string, struct{}]
}

// New builds an adapter with its own HTTP client and connection pool.
func New(cfg *config.Config, profile *Profile, metrics *scraper.Metrics) (*Adapter, error) {
	opts := scraper.OptionsFromConfig(cfg, string(profile.Platform))
	opts.Headers = profile.Headers()
	client, err := scraper.NewClient(opts, metrics)
	if err != nil {
		return nil, fmt.Errorf("%s client: %w", profile.Platform, err)
	}
	return NewAdapter(profile, client, metrics, cfg.DedupeMaxSize)
}

// NewAdapter wires an adapter around an existing fetcher. metrics may be nil.
func NewAdapter(profile *Profile, fetcher Fetcher, metrics *scraper.Metrics, dedupeSize int) (*Adapter, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if dedupeSize <= 0 {
		dedupeSize = 10000
	}
	seen, err := lru.New[string, struct{}](dedupeSize)
	if err != nil {
		return nil, fmt.Errorf("listing cache: %w", err)
	}
	return &Adapter{
		profile: profile,
		fetcher: fetcher,
		metrics: metrics,
		seen:    seen,
	}, nil
}

// Platform returns the platform this adapter crawls.
func (a *Adapter) Platform() models.Platform {
	return a.profile.Platform
}

// CrawlToRecords crawls search pages 1..Pages and returns the normalized
// records in discovery order. A first page that cannot be fetched yields a
// *PlatformUnavailable. If ctx ends mid-run the records gathered so far are
// returned together with the context error.
func (a *Adapter) CrawlToRecords(ctx context.Context, opts CrawlOptions) ([]models.ProductRecord, int, error) {
	opts = opts.withDefaults()
	platform := a.profile.Platform
	logger := slog.With(slog.String("platform", string(platform)))

	a.seen.Purge()
	limiter := newPageLimiter(opts.Delay)

	var (
		records []models.ProductRecord
		runErr  error
	)

pages:
	for page := 1; page <= opts.Pages; page++ {
		if err := waitTurn(ctx, limiter); err != nil {
			runErr = fmt.Errorf("wait for page %d: %w", page, err)
			break
		}

		listings, pageURL, err := a.fetchPage(ctx, opts.Query, page)
		if err != nil {
			if page == 1 {
				a.metrics.IncPlatformFailure(string(platform), "unavailable")
				return nil, 0, &PlatformUnavailable{Platform: platform, Err: err}
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				runErr = ctxErr
				break
			}
			logger.Warn("skipping search page",
				slog.Int("page", page),
				slog.String("category", scraper.ErrorTypeLabel(err)),
				slog.Any("error", err),
			)
			continue
		}
		if len(listings) == 0 {
			logger.Debug("no more listings", slog.Int("page", page))
			break
		}

		added := 0
		for _, l := range listings {
			rec, err := a.profile.toRecord(l, pageURL, opts.Query)
			if err != nil {
				logger.Debug("dropping listing", slog.Any("error", err))
				continue
			}
			if seen, _ := a.seen.ContainsOrAdd(rec.ProductLink, struct{}{}); seen {
				continue
			}
			records = append(records, rec)
			added++
			if opts.MaxProducts > 0 && len(records) >= opts.MaxProducts {
				logger.Debug("product cap reached", slog.Int("max_products", opts.MaxProducts))
				break pages
			}
		}
		logger.Debug("search page parsed",
			slog.Int("page", page),
			slog.Int("listings", len(listings)),
			slog.Int("added", added),
		)
	}

	if opts.Detailed && len(records) > 0 {
		a.enrich(ctx, records, opts.Concurrency)
	}
	if runErr == nil {
		runErr = ctx.Err()
	}

	a.metrics.AddRecords(string(platform), len(records))
	logger.Info("platform crawl finished",
		slog.Int("records", len(records)),
		slog.Bool("detailed", opts.Detailed),
	)
	return records, len(records), runErr
}

// fetchPage tries each query variant until one yields listings. It only
// returns an error when no variant could be fetched at all.
func (a *Adapter) fetchPage(ctx context.Context, query string, page int) ([]listing, string, error) {
	var (
		lastErr error
		lastURL string
		fetched bool
	)
	for _, variant := range a.profile.QueryVariants(query) {
		pageURL := a.profile.SearchURL(variant, page)
		resp, err := a.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		fetched = true
		lastURL = resp.URL
		if lastURL == "" {
			lastURL = pageURL
		}

		listings, err := a.profile.parseListings(resp.Body)
		if err != nil {
			slog.Warn("search page not parsed",
				slog.String("platform", string(a.profile.Platform)),
				slog.Any("error", &ParseError{Platform: a.profile.Platform, URL: pageURL, Err: err}),
			)
			continue
		}
		if len(listings) > 0 {
			return listings, lastURL, nil
		}
	}
	if !fetched {
		return nil, "", lastErr
	}
	return nil, lastURL, nil
}

// waitTurn blocks until the limiter grants the next page or ctx ends, in
// which case ctx.Err() is returned. Unlike rate.Limiter.Wait it does not give
// up early when the delay would outlast the deadline.
func waitTurn(ctx context.Context, limiter *rate.Limiter) error {
	r := limiter.Reserve()
	delay := r.Delay()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

func newPageLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
