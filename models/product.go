// Package models defines data structures for the scraper.
package models

import "time"

// Field names a scalar or composite attribute of a product page.
type Field string

const (
	FieldProductID Field = "product_id"
	FieldTitle     Field = "title"
	FieldPrice     Field = "price"
	FieldBrand     Field = "brand"
	FieldFeatures  Field = "features"
)

// Fields lists every extractable field in column order.
var Fields = []Field{FieldProductID, FieldTitle, FieldPrice, FieldBrand, FieldFeatures}

// Feature is one named entry of a product data sheet. A feature may carry
// several values, kept in document order.
type Feature struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Features is the ordered data sheet of a product. Names are unique.
type Features []Feature

// Get returns the values recorded for name.
func (f Features) Get(name string) ([]string, bool) {
	for _, feature := range f {
		if feature.Name == name {
			return feature.Values, true
		}
	}
	return nil, false
}

// ProductRecord is one extracted product page. Nil pointers mark fields that
// were absent from the page.
type ProductRecord struct {
	URL       string    `json:"url"`
	ProductID *string   `json:"product_id"`
	Title     string    `json:"title"`
	Price     *string   `json:"price"`
	Brand     *string   `json:"brand"`
	Features  Features  `json:"features"`
	Category  string    `json:"category"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// FailedURL records a product page that could not be turned into a record.
type FailedURL struct {
	Category string
	URL      string
	Reason   string
	Err      error
}

// CategoryResult summarises one category batch.
type CategoryResult struct {
	Name         string
	Label        string
	ListingPages int
	ProductURLs  int
	Extracted    int
	Failed       int
}

// ScraperResult holds the overall result of a scraping operation
type ScraperResult struct {
	RunID        string
	StartTime    time.Time
	EndTime      time.Time
	Categories   []CategoryResult
	TotalCount   int
	ErrorCount   int
	FailedURLs   []FailedURL
	ErrorsByType map[string]int
	RequestCount int
	// RequestErrorCount counts requests that failed at the transport or with
	// a non-2xx status.
	RequestErrorCount int
	PageCount         int
}
