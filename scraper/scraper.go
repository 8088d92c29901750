package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/pipeline"
)

// Scraper runs the paginator and the extractor over every configured
// category, one category after the other.
type Scraper struct {
	cfg       *config.Config
	runID     string
	fetcher   Fetcher
	paginator *Paginator
	extractor *Extractor
	Metrics   *Metrics

	errorCount   int
	errorsByType map[string]int
}

// NewScraper builds a scraper backed by a colly fetcher.
func NewScraper(cfg *config.Config, runID string) (*Scraper, error) {
	metrics := NewMetrics()
	fetcher, err := NewCollyFetcher(cfg, metrics)
	if err != nil {
		return nil, fmt.Errorf("initialise fetcher: %w", err)
	}
	return newScraper(cfg, runID, fetcher, metrics)
}

// NewScraperWithFetcher builds a scraper on top of an arbitrary fetcher.
func NewScraperWithFetcher(cfg *config.Config, runID string, fetcher Fetcher) (*Scraper, error) {
	return newScraper(cfg, runID, fetcher, NewMetrics())
}

func newScraper(cfg *config.Config, runID string, fetcher Fetcher, metrics *Metrics) (*Scraper, error) {
	extractor, err := NewExtractor(fetcher, cfg, metrics)
	if err != nil {
		return nil, err
	}
	return &Scraper{
		cfg:          cfg,
		runID:        runID,
		fetcher:      fetcher,
		paginator:    NewPaginator(fetcher, cfg, metrics),
		extractor:    extractor,
		Metrics:      metrics,
		errorsByType: make(map[string]int),
	}, nil
}

// Paginator exposes the paginator, e.g. to replace its stop condition.
func (s *Scraper) Paginator() *Paginator {
	return s.paginator
}

// Run crawls every category in configuration order and hands each batch to
// p. Listing failures abort the run; product failures are reported in the
// result unless FailFast is set.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.ScraperResult{
		RunID:     s.runID,
		StartTime: time.Now(),
	}

	for _, category := range s.cfg.Categories {
		slog.Info("searching product urls", slog.String("category", category.Name))
		discovery, err := s.paginator.Discover(ctx, category)
		if err != nil {
			s.recordError(err)
			return nil, fmt.Errorf("category %s: discover products: %w", category.Name, err)
		}

		slog.Info("fetching product details",
			slog.String("category", category.Name),
			slog.Int("products", len(discovery.ProductURLs)),
		)
		results, runErr := s.extractor.ExtractAll(ctx, discovery.ProductURLs)

		label := category.DisplayLabel()
		summary := models.CategoryResult{
			Name:         category.Name,
			Label:        label,
			ListingPages: len(discovery.ListingURLs),
			ProductURLs:  len(discovery.ProductURLs),
		}
		records := make([]*models.ProductRecord, 0, len(results))
		for _, r := range results {
			if r.Err != nil {
				reason := s.recordError(r.Err)
				s.Metrics.IncFailure(reason)
				summary.Failed++
				result.FailedURLs = append(result.FailedURLs, models.FailedURL{
					Category: category.Name,
					URL:      r.URL,
					Reason:   reason,
					Err:      r.Err,
				})
				continue
			}
			r.Record.Category = label
			records = append(records, r.Record)
			s.Metrics.IncProduct(category.Name)
		}
		summary.Extracted = len(records)

		if runErr != nil {
			return nil, fmt.Errorf("category %s: extract products: %w", category.Name, runErr)
		}
		if err := p.Process(label, records); err != nil {
			return nil, fmt.Errorf("category %s: %w", category.Name, err)
		}

		result.Categories = append(result.Categories, summary)
		result.PageCount += summary.ListingPages
		result.TotalCount += summary.Extracted
		slog.Info("category complete",
			slog.String("category", category.Name),
			slog.Int("extracted", summary.Extracted),
			slog.Int("failed", summary.Failed),
		)
	}

	result.EndTime = time.Now()
	result.ErrorCount = s.errorCount
	result.ErrorsByType = s.snapshotErrors()
	if counter, ok := s.fetcher.(interface{ Requests() int }); ok {
		result.RequestCount = counter.Requests()
	}
	if counter, ok := s.fetcher.(interface{ Errors() int }); ok {
		result.RequestErrorCount = counter.Errors()
	}
	return result, nil
}

func (s *Scraper) recordError(err error) string {
	label := errorTypeLabel(err)
	s.errorCount++
	s.errorsByType[label]++
	s.Metrics.IncError(label)
	return label
}

func (s *Scraper) snapshotErrors() map[string]int {
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}
