// Package parser turns listing and product pages into product links and
// records.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"golang.org/x/net/html/charset"
)

// NewDocument decodes body to UTF-8 according to contentType (or the page's
// own meta declaration) and parses it.
func NewDocument(body []byte, contentType string) (*goquery.Document, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ValidateRecord ensures the extractor produced a usable row. A blank title
// is kept: only a missing title element fails extraction.
func ValidateRecord(r *models.ProductRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("record missing category for %s", r.URL)
	}
	return nil
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
