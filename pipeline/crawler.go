package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/platform"
	"github.com/aluiziolira/go-scrape-products/scraper"
)

// PlatformCrawler is what the coordinator needs from a site adapter.
type PlatformCrawler interface {
	CrawlToRecords(ctx context.Context, opts platform.CrawlOptions) ([]models.ProductRecord, int, error)
}

// AdapterFactory builds a fresh crawler for one platform and run.
type AdapterFactory func(p models.Platform) (PlatformCrawler, error)

// Crawler runs one adapter per requested platform concurrently and combines
// their output.
type Crawler struct {
	cfg        *config.Config
	newAdapter AdapterFactory
}

// NewCrawler builds a coordinator using the built-in platform profiles, with
// selector overrides from cfg.SelectorsFile applied. metrics may be nil.
func NewCrawler(cfg *config.Config, metrics *scraper.Metrics) (*Crawler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	profiles := platform.Profiles()
	if cfg.SelectorsFile != "" {
		overrides, err := platform.LoadOverrides(cfg.SelectorsFile)
		if err != nil {
			return nil, err
		}
		if err := overrides.Apply(profiles); err != nil {
			return nil, err
		}
	}

	c := &Crawler{cfg: cfg}
	c.newAdapter = func(p models.Platform) (PlatformCrawler, error) {
		profile, ok := profiles[p]
		if !ok {
			return nil, fmt.Errorf("no profile for platform %q", p)
		}
		return platform.New(cfg, profile, metrics)
	}
	return c, nil
}

// WithAdapterFactory replaces how adapters are built.
func (c *Crawler) WithAdapterFactory(f AdapterFactory) *Crawler {
	c.newAdapter = f
	return c
}

// Run crawls every platform in req. Platform failures never fail the run;
// they are recorded in the result. Only an invalid request returns an error.
func (c *Crawler) Run(ctx context.Context, req models.CrawlRequest) (*models.CrawlResult, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid crawl request: %w", err)
	}

	start := time.Now()
	results := make([]PlatformResult, len(req.Platforms))

	var g errgroup.Group
	g.SetLimit(len(req.Platforms))
	for i, p := range req.Platforms {
		g.Go(func() error {
			results[i] = c.runPlatform(ctx, p, req)
			return nil
		})
	}
	g.Wait()

	out := Combine(results)
	out.StartTime = start
	out.EndTime = time.Now()

	slog.Info("crawl finished",
		slog.Int("records", out.TotalCount()),
		slog.Int("duplicates", out.Duplicates),
		slog.Int("platform_errors", len(out.Errors)),
		slog.Duration("elapsed", out.EndTime.Sub(start)),
	)
	return out, nil
}

func (c *Crawler) runPlatform(ctx context.Context, p models.Platform, req models.CrawlRequest) (res PlatformResult) {
	res.Platform = p
	start := time.Now()
	logger := slog.With(slog.String("platform", string(p)))

	defer func() {
		if r := recover(); r != nil {
			res.Records = nil
			res.Err = &PanicError{Value: r}
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			logger.Warn("platform failed",
				slog.String("kind", errorKind(res.Err)),
				slog.Int("records", len(res.Records)),
				slog.Any("error", res.Err),
			)
		}
	}()

	if c.cfg.PlatformTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.PlatformTimeout)
		defer cancel()
	}

	adapter, err := c.newAdapter(p)
	if err != nil {
		res.Err = err
		return res
	}

	records, _, err := adapter.CrawlToRecords(ctx, platform.CrawlOptions{
		Query:       req.Query,
		Pages:       req.Pages,
		MaxProducts: req.MaxProductsPerPlatform,
		Detailed:    req.Detailed,
		Delay:       c.cfg.PageDelay,
		Concurrency: c.cfg.Concurrency,
	})
	res.Records = records
	res.Err = err
	return res
}
