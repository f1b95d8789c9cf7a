package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler.
type Metrics struct {
	Registry         *prometheus.Registry
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RetriesTotal     *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	RecordsTotal     *prometheus.CounterVec
	PlatformFailures *prometheus.CounterVec
	DetailFetches    *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_requests_total",
			Help: "Total HTTP requests issued, by platform and outcome.",
		},
		[]string{"platform", "outcome"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawler_request_duration_seconds",
			Help:    "HTTP request latency per platform.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)
	retries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_retries_total",
			Help: "Total number of retry attempts.",
		},
		[]string{"platform"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_errors_total",
			Help: "Total number of request errors by type.",
		},
		[]string{"platform", "error_type"},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_records_scraped_total",
			Help: "Total number of product records emitted by adapters.",
		},
		[]string{"platform"},
	)
	platformFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_platform_failures_total",
			Help: "Platform runs that contributed no records because of an error.",
		},
		[]string{"platform", "kind"},
	)
	detailFetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_detail_fetches_total",
			Help: "Detail page fetches by outcome.",
		},
		[]string{"platform", "outcome"},
	)

	registry.MustRegister(requests, requestDuration, retries, errorsTotal, records, platformFailures, detailFetches)

	return &Metrics{
		Registry:         registry,
		RequestsTotal:    requests,
		RequestDuration:  requestDuration,
		RetriesTotal:     retries,
		ErrorsTotal:      errorsTotal,
		RecordsTotal:     records,
		PlatformFailures: platformFailures,
		DetailFetches:    detailFetches,
	}
}

// IncRequest increments the requests counter.
func (m *Metrics) IncRequest(platform, outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(platform, outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(platform string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(platform).Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries(platform string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(platform).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(platform, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(platform, errorType).Inc()
}

// AddRecords adds n to the records counter.
func (m *Metrics) AddRecords(platform string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsTotal.WithLabelValues(platform).Add(float64(n))
}

// IncPlatformFailure counts a failed platform run.
func (m *Metrics) IncPlatformFailure(platform, kind string) {
	if m == nil {
		return
	}
	m.PlatformFailures.WithLabelValues(platform, kind).Inc()
}

// IncDetail counts a detail fetch outcome.
func (m *Metrics) IncDetail(platform, outcome string) {
	if m == nil {
		return
	}
	m.DetailFetches.WithLabelValues(platform, outcome).Inc()
}
