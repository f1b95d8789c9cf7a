package platform

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/scraper"
)

// enrich fetches one detail page per unique link with a bounded pool of
// workers and merges the results into every record carrying that link.
// Records keep their positions, so output order is discovery order whatever
// the completion order. Once ctx ends, queued links are skipped.
func (a *Adapter) enrich(ctx context.Context, records []models.ProductRecord, concurrency int) {
	if concurrency <= 0 {
		concurrency = defaultDetailConcurrency
	}

	slots := make(map[string][]int, len(records))
	order := make([]string, 0, len(records))
	for i, rec := range records {
		if _, ok := slots[rec.ProductLink]; !ok {
			order = append(order, rec.ProductLink)
		}
		slots[rec.ProductLink] = append(slots[rec.ProductLink], i)
	}
	if concurrency > len(order) {
		concurrency = len(order)
	}

	platform := string(a.profile.Platform)
	jobs := make(chan string)
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range jobs {
				if ctx.Err() != nil {
					a.metrics.IncDetail(platform, "skipped")
					continue
				}
				d, err := a.fetchDetail(ctx, link)
				if err != nil {
					a.metrics.IncDetail(platform, "failed")
					slog.Debug("detail fetch failed",
						slog.String("platform", platform),
						slog.String("url", link),
						slog.String("category", scraper.ErrorTypeLabel(err)),
						slog.Any("error", err),
					)
					continue
				}
				a.metrics.IncDetail(platform, "ok")
				// each link is handled by exactly one worker, so its slots are never shared
				for _, idx := range slots[link] {
					records[idx] = d.apply(records[idx])
				}
			}
		}()
	}

feed:
	for _, link := range order {
		select {
		case jobs <- link:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}

func (a *Adapter) fetchDetail(ctx context.Context, link string) (detail, error) {
	resp, err := a.fetcher.Fetch(ctx, link)
	if err != nil {
		return detail{}, err
	}
	base := resp.URL
	if base == "" {
		base = link
	}
	return a.profile.parseDetail(resp.Body, base)
}
