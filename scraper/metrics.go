package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	ListingPagesTotal *prometheus.CounterVec
	ProductsTotal     *prometheus.CounterVec
	FailuresTotal     *prometheus.CounterVec
	OrphansTotal      prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	listingPages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_listing_pages_total",
			Help: "Listing pages crawled, sentinel pages excluded.",
		},
		[]string{"category"},
	)
	products := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_products_extracted_total",
			Help: "Product pages turned into records.",
		},
		[]string{"category"},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_product_failures_total",
			Help: "Product pages that produced no record, by reason.",
		},
		[]string{"reason"},
	)
	orphans := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_orphan_definitions_total",
			Help: "Data sheet values dropped because no term preceded them.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, listingPages, products, failures, orphans, errorsTotal)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		ListingPagesTotal: listingPages,
		ProductsTotal:     products,
		FailuresTotal:     failures,
		OrphansTotal:      orphans,
		ErrorsTotal:       errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncListingPage counts one crawled listing page.
func (m *Metrics) IncListingPage(category string) {
	if m == nil {
		return
	}
	m.ListingPagesTotal.WithLabelValues(category).Inc()
}

// IncProduct counts one extracted product.
func (m *Metrics) IncProduct(category string) {
	if m == nil {
		return
	}
	m.ProductsTotal.WithLabelValues(category).Inc()
}

// IncFailure counts one product page that produced no record.
func (m *Metrics) IncFailure(reason string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(reason).Inc()
}

// AddOrphans counts dropped data sheet values.
func (m *Metrics) AddOrphans(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OrphansTotal.Add(float64(n))
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
