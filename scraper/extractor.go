package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
)

// Result is the outcome of one product URL. Exactly one of Record and Err is set.
type Result struct {
	URL    string
	Record *models.ProductRecord
	Err    error
}

// Extractor turns product pages into records, one URL at a time.
type Extractor struct {
	fetcher   Fetcher
	selectors config.Selectors
	policy    parser.Policy
	metrics   *Metrics
	now       func() time.Time

	// FailFast stops a batch at the first failed URL.
	FailFast bool
}

// NewExtractor builds an extractor using the configured selectors and
// required fields.
func NewExtractor(fetcher Fetcher, cfg *config.Config, metrics *Metrics) (*Extractor, error) {
	policy, err := parser.PolicyFromRequired(cfg.RequiredFields)
	if err != nil {
		return nil, fmt.Errorf("field policy: %w", err)
	}
	return &Extractor{
		fetcher:   fetcher,
		selectors: cfg.Selectors,
		policy:    policy,
		metrics:   metrics,
		now:       time.Now,
		FailFast:  cfg.FailFast,
	}, nil
}

// Extract fetches and parses one product page.
func (e *Extractor) Extract(ctx context.Context, productURL string) (*models.ProductRecord, error) {
	page, err := e.fetcher.Fetch(ctx, productURL)
	if err != nil {
		return nil, err
	}

	doc, err := parser.NewDocument(page.Body, page.ContentType)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", productURL, err)
	}

	out, err := parser.ExtractProduct(doc, e.selectors, e.policy, productURL)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", productURL, err)
	}
	if out.OrphanDefinitions > 0 {
		e.metrics.AddOrphans(out.OrphanDefinitions)
		slog.Warn("data sheet values without a feature name were dropped",
			slog.String("url", productURL),
			slog.Int("values", out.OrphanDefinitions),
		)
	}

	out.Record.ScrapedAt = e.now()
	return out.Record, nil
}

// ExtractAll processes urls in order and returns one result per URL processed.
// A failed URL does not stop the batch unless FailFast is set, in which case
// the failure is also returned as the error. Cancellation stops the batch.
func (e *Extractor) ExtractAll(ctx context.Context, urls []string) ([]Result, error) {
	results := make([]Result, 0, len(urls))
	for i, productURL := range urls {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		record, err := e.Extract(ctx, productURL)
		results = append(results, Result{URL: productURL, Record: record, Err: err})
		if err != nil {
			slog.Error("product extraction failed",
				slog.String("url", productURL),
				slog.Any("error", err),
			)
			if e.FailFast {
				return results, err
			}
		}

		if done := i + 1; done%25 == 0 || done == len(urls) {
			slog.Debug("product extraction progress",
				slog.Int("done", done),
				slog.Int("total", len(urls)),
			)
		}
	}
	return results, nil
}
