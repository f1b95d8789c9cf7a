package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/pipeline"
	"github.com/aluiziolira/go-scrape-products/scraper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	query := flag.String("query", "", "Search query (required)")
	pages := flag.Int("pages", 1, "Search result pages per platform")
	maxProducts := flag.Int("max-products", 0, "Maximum products per platform (0 = no cap)")
	detailed := flag.Bool("detailed", false, "Fetch product detail pages for descriptions")
	platforms := flag.String("platforms", "Amazon,Noon,Jumia", "Comma-separated platforms to crawl")
	flag.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "Output file path")
	flag.BoolVar(&cfg.Append, "append", cfg.Append, "Append to an existing output file")
	flag.BoolVar(&cfg.DedupeExisting, "dedupe-existing", cfg.DedupeExisting, "Skip records already present in the appended file")
	flag.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Detail fetch workers per platform")
	flag.DurationVar(&cfg.PageDelay, "delay", cfg.PageDelay, "Delay between search pages")
	flag.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Maximum retry attempts per URL")
	flag.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Initial retry backoff")
	flag.DurationVar(&cfg.RetryBackoffMax, "retry-backoff-max", cfg.RetryBackoffMax, "Maximum retry backoff")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	flag.DurationVar(&cfg.PlatformTimeout, "platform-timeout", cfg.PlatformTimeout, "Time budget per platform (0 = none)")
	flag.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	flag.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: csv, json, or dual")
	flag.StringVar(&cfg.SelectorsFile, "selectors", cfg.SelectorsFile, "YAML file overriding built-in selectors")
	flag.StringVar(&cfg.PostgresDSN, "pg-dsn", cfg.PostgresDSN, "Also store records in PostgreSQL")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	req, err := buildRequest(*query, *pages, *maxProducts, *detailed, *platforms)
	if err != nil {
		slog.Error("invalid request", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := scraper.NewMetrics()
	crawler, err := pipeline.NewCrawler(cfg, metrics)
	if err != nil {
		slog.Error("initialising crawler", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, keeping records gathered so far")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting crawl",
		slog.String("query", req.Query),
		slog.Int("pages", req.Pages),
		slog.Any("platforms", req.Platforms),
		slog.Bool("detailed", req.Detailed),
	)

	result, err := crawler.Run(ctx, req)
	if err != nil {
		slog.Error("crawl failed", slog.Any("error", err))
		os.Exit(1)
	}

	stats, err := persist(context.Background(), cfg, result.Records)
	if err != nil {
		slog.Error("writing output failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, stats, cfg)
}

func buildRequest(query string, pages, maxProducts int, detailed bool, platformList string) (models.CrawlRequest, error) {
	req := models.CrawlRequest{
		Query:                  query,
		Pages:                  pages,
		MaxProductsPerPlatform: maxProducts,
		Detailed:               detailed,
	}
	for _, name := range strings.Split(platformList, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		p, err := models.ParsePlatform(name)
		if err != nil {
			return req, err
		}
		req.Platforms = append(req.Platforms, p)
	}
	req = req.WithDefaults()
	return req, req.Validate()
}

func persist(ctx context.Context, cfg *config.Config, records []models.ProductRecord) (pipeline.Stats, error) {
	opts := pipeline.WriterOptions{Append: cfg.Append, DedupeExisting: cfg.DedupeExisting}

	writer, err := pipeline.NewOutputWriter(cfg.OutputFormat, cfg.OutputFile, opts)
	if err != nil {
		return pipeline.Stats{}, err
	}
	stats, err := pipeline.Persist(writer, records)
	if err != nil {
		return stats, err
	}
	if stats.RejectedTotal() > 0 {
		slog.Warn("records dropped before writing", slog.Any("rejected", stats.Rejected))
	}

	if cfg.PostgresDSN == "" {
		return stats, nil
	}
	pg, err := pipeline.NewPostgresWriter(ctx, cfg.PostgresDSN, opts)
	if err != nil {
		return stats, err
	}
	if _, err := pipeline.Persist(pg, records); err != nil {
		return stats, err
	}
	slog.Info("records stored in postgres", slog.Int("inserted", pg.Stored()))
	return stats, nil
}

func printSummary(result *models.CrawlResult, stats pipeline.Stats, cfg *config.Config) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl complete")

	fmt.Printf("  Total records: %d\n", result.TotalCount())
	platforms := make([]string, 0, len(result.Counts))
	for p := range result.Counts {
		platforms = append(platforms, string(p))
	}
	sort.Strings(platforms)
	for _, p := range platforms {
		fmt.Printf("  %-13s  %d\n", p+":", result.Counts[models.Platform(p)])
	}
	fmt.Printf("  Duplicates:    %d\n", result.Duplicates)
	fmt.Printf("  Written:       %d\n", stats.Written)
	if len(stats.Rejected) > 0 {
		fmt.Printf("  Rejected:      %v\n", stats.Rejected)
	}
	for _, e := range result.Errors {
		fmt.Printf("  Failed:        %s (%s): %v\n", e.Platform, e.Kind, e.Err)
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", cfg.OutputFile)
	if cfg.OutputFormat == "dual" {
		fmt.Printf("  JSONL file:    %s\n", pipeline.JSONLPath(cfg.OutputFile))
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
