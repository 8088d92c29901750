package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(t *testing.T, fetcher Fetcher) *Extractor {
	t.Helper()
	e, err := NewExtractor(fetcher, testConfig(categoryA), nil)
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e
}

func TestExtractAllPreservesOrderAndIsolatesFailures(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["http://shop.test/p/1.html"] = productPage("Ski One", "REF-1", "100,00 €", feature{"Couleur", []string{"Rouge"}})
	fetcher.pages["http://shop.test/p/2.html"] = productPage("", "REF-2", "200,00 €")
	fetcher.pages["http://shop.test/p/4.html"] = productPage("Ski Four", "", "", feature{"Niveau", []string{"Expert"}})
	urls := []string{
		"http://shop.test/p/1.html",
		"http://shop.test/p/2.html",
		"http://shop.test/p/3.html",
		"http://shop.test/p/4.html",
	}

	results, err := newTestExtractor(t, fetcher).ExtractAll(context.Background(), urls)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
	}

	require.NoError(t, results[0].Err)
	assert.Equal(t, "Ski One", results[0].Record.Title)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), results[0].Record.ScrapedAt)

	var missing *parser.MissingFieldError
	require.ErrorAs(t, results[1].Err, &missing)
	assert.Equal(t, models.FieldTitle, missing.Field)
	assert.Nil(t, results[1].Record)

	var notFound ErrNotFound
	require.ErrorAs(t, results[2].Err, &notFound)

	require.NoError(t, results[3].Err)
	assert.Nil(t, results[3].Record.Price)
	assert.Nil(t, results[3].Record.ProductID)
	values, ok := results[3].Record.Features.Get("Niveau")
	require.True(t, ok)
	assert.Equal(t, []string{"Expert"}, values)
}

func TestExtractAllFailFast(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["http://shop.test/p/1.html"] = productPage("", "REF-1", "")
	fetcher.pages["http://shop.test/p/2.html"] = productPage("Ski Two", "REF-2", "")

	e := newTestExtractor(t, fetcher)
	e.FailFast = true

	results, err := e.ExtractAll(context.Background(), []string{"http://shop.test/p/1.html", "http://shop.test/p/2.html"})
	require.Error(t, err)
	assert.Len(t, results, 1)
	assert.Zero(t, fetcher.count("http://shop.test/p/2.html"))
}

func TestExtractAllStopsOnCancellation(t *testing.T) {
	fetcher := newFakeFetcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := newTestExtractor(t, fetcher).ExtractAll(ctx, []string{"http://shop.test/p/1.html"})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, results)
}

func TestExtractMultiValuedFeatures(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["http://shop.test/p/1.html"] = productPage("Ski", "REF", "10 €",
		feature{"Color", []string{"Red", "Blue"}},
		feature{"Level", []string{"Beginner"}},
	)

	record, err := newTestExtractor(t, fetcher).Extract(context.Background(), "http://shop.test/p/1.html")
	require.NoError(t, err)
	assert.Equal(t, models.Features{
		{Name: "Color", Values: []string{"Red", "Blue"}},
		{Name: "Level", Values: []string{"Beginner"}},
	}, record.Features)
	require.NotNil(t, record.Brand)
	assert.Equal(t, "Rossignol", *record.Brand)
}
