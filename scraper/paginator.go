package scraper

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

// StopFunc reports whether a listing page lies past the end of the catalog.
type StopFunc func(page *Page) bool

// SentinelStop stops on pages whose body contains marker.
func SentinelStop(marker string) StopFunc {
	needle := []byte(marker)
	return func(page *Page) bool {
		return bytes.Contains(page.Body, needle)
	}
}

// ListingPage is one crawled listing page and the product links it holds.
type ListingPage struct {
	Index int
	URL   string
	Links []string
}

// Discovery is the outcome of walking one category listing.
type Discovery struct {
	ListingURLs []string
	ProductURLs []string
}

// Paginator walks a category listing page by page until Stop matches.
type Paginator struct {
	fetcher   Fetcher
	selectors config.Selectors
	metrics   *Metrics

	// Stop ends pagination. The matching page is not part of the listing.
	Stop StopFunc
	// MaxPages caps the walk when positive.
	MaxPages int
	// RepeatGuardSize, when positive, is the number of page fingerprints
	// remembered to detect a listing that serves the same products forever.
	RepeatGuardSize int
}

// NewPaginator builds a paginator stopping on the configured sentinel.
func NewPaginator(fetcher Fetcher, cfg *config.Config, metrics *Metrics) *Paginator {
	return &Paginator{
		fetcher:         fetcher,
		selectors:       cfg.Selectors,
		metrics:         metrics,
		Stop:            SentinelStop(cfg.Sentinel),
		MaxPages:        cfg.MaxPages,
		RepeatGuardSize: cfg.RepeatGuardSize,
	}
}

// ListingPages lazily fetches baseURL+1, baseURL+2, ... and yields each page
// before the first one matched by Stop. A fetch or parse failure is yielded
// once and ends the sequence. Each range over the sequence starts again at
// page 1.
func (p *Paginator) ListingPages(ctx context.Context, baseURL string) iter.Seq2[ListingPage, error] {
	return func(yield func(ListingPage, error) bool) {
		var guard *lru.Cache[string, int]
		if p.RepeatGuardSize > 0 {
			guard, _ = lru.New[string, int](p.RepeatGuardSize)
		}

		for index := 1; p.MaxPages == 0 || index <= p.MaxPages; index++ {
			listing := ListingPage{Index: index, URL: baseURL + strconv.Itoa(index)}

			page, err := p.fetcher.Fetch(ctx, listing.URL)
			if err != nil {
				yield(listing, err)
				return
			}
			if p.Stop(page) {
				slog.Debug("first empty listing page found",
					slog.Int("page", index),
					slog.String("url", listing.URL),
				)
				return
			}

			doc, err := parser.NewDocument(page.Body, page.ContentType)
			if err != nil {
				yield(listing, fmt.Errorf("listing %s: %w", listing.URL, err))
				return
			}
			listing.Links = parser.ListingLinks(doc, p.selectors, listing.URL)

			if guard != nil && len(listing.Links) > 0 {
				key := fingerprint(listing.Links)
				if first, seen := guard.Get(key); seen {
					yield(listing, fmt.Errorf("page %d repeats page %d: %w", index, first, ErrPaginationLoop))
					return
				}
				guard.Add(key, index)
			}

			if !yield(listing, nil) {
				return
			}
		}
	}
}

// Discover collects every product link of a category, in listing order.
func (p *Paginator) Discover(ctx context.Context, category config.Category) (*Discovery, error) {
	d := &Discovery{}
	for listing, err := range p.ListingPages(ctx, category.BaseURL) {
		if err != nil {
			return nil, err
		}
		p.metrics.IncListingPage(category.Name)
		d.ListingURLs = append(d.ListingURLs, listing.URL)
		d.ProductURLs = append(d.ProductURLs, listing.Links...)
		slog.Debug("listing page crawled",
			slog.String("category", category.Name),
			slog.Int("page", listing.Index),
			slog.Int("products", len(listing.Links)),
		)
	}

	if p.MaxPages > 0 && len(d.ListingURLs) == p.MaxPages {
		slog.Warn("page limit reached before the end of the listing",
			slog.String("category", category.Name),
			slog.Int("max_pages", p.MaxPages),
		)
	}
	slog.Info("listing crawled",
		slog.String("category", category.Name),
		slog.Int("pages", len(d.ListingURLs)),
		slog.Int("products", len(d.ProductURLs)),
	)
	return d, nil
}

func fingerprint(links []string) string {
	sum := sha256.Sum256([]byte(strings.Join(links, "\n")))
	return hex.EncodeToString(sum[:])
}
