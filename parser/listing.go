package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/config"
)

// ListingLinks returns the product page links of a listing page in document
// order. Relative links are resolved against pageURL. Items without a link are
// skipped.
func ListingLinks(doc *goquery.Document, sel config.Selectors, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	var links []string
	doc.Find(sel.ListingItem).Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find(sel.ListingLink).First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		links = append(links, resolve(base, href))
	})
	return links
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
