package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/pipeline"
)

const sentinelPage = `<html><body><section id="products"><p class="alert">Aucun produit disponible pour le moment</p></section></body></html>`

// fakeFetcher serves canned bodies and records every requested URL.
type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]string), errs: make(map[string]error)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.calls = append(f.calls, rawURL)
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, &FetchError{URL: rawURL, StatusCode: http.StatusNotFound, Err: ErrNotFound{Err: errors.New("Not Found")}}
	}
	return &Page{URL: rawURL, StatusCode: http.StatusOK, ContentType: "text/html; charset=utf-8", Body: []byte(body)}, nil
}

func (f *fakeFetcher) count(rawURL string) int {
	n := 0
	for _, call := range f.calls {
		if call == rawURL {
			n++
		}
	}
	return n
}

func testConfig(categories ...config.Category) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Categories = categories
	return cfg
}

func listingPage(hrefs ...string) string {
	var builder strings.Builder
	builder.WriteString(`<html><body><section id="products">`)
	for i, href := range hrefs {
		fmt.Fprintf(&builder, `<article class="product-miniature js-product-miniature" data-id-product="%d">`, i+1)
		fmt.Fprintf(&builder, `<a href="%s" class="thumbnail product-thumbnail"><img src="/img/%d.jpg"></a>`, href, i+1)
		builder.WriteString(`</article>`)
	}
	builder.WriteString(`</section></body></html>`)
	return builder.String()
}

type feature struct {
	name   string
	values []string
}

func productPage(title, ref, price string, features ...feature) string {
	var builder strings.Builder
	builder.WriteString(`<html><body>`)
	if title != "" {
		fmt.Fprintf(&builder, `<h1 class="h1">%s</h1>`, title)
	}
	if price != "" {
		fmt.Fprintf(&builder, `<span class="current-price-value" content="%s">%s</span>`, price, price)
	}
	if ref != "" {
		fmt.Fprintf(&builder, `<div class="product-reference rb-tag-cate"><label class="label">Référence </label><span itemprop="sku">%s</span></div>`, ref)
	}
	builder.WriteString(`<img class="img img-thumbnail manufacturer-logo" src="/img/m/1.jpg" alt="Rossignol">`)
	builder.WriteString(`<dl class="data-sheet">`)
	for _, f := range features {
		fmt.Fprintf(&builder, `<dt class="name">%s</dt>`, f.name)
		for _, v := range f.values {
			fmt.Fprintf(&builder, `<dd class="value">%s</dd>`, v)
		}
	}
	builder.WriteString(`</dl></body></html>`)
	return builder.String()
}

type collectingWriter struct {
	mu     sync.Mutex
	tables []*pipeline.Table
}

func (cw *collectingWriter) Write(table *pipeline.Table) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.tables = append(cw.tables, table)
	return nil
}

func (cw *collectingWriter) Close() error {
	return nil
}

func (cw *collectingWriter) Validate() error {
	return nil
}

func (cw *collectingWriter) Table() *pipeline.Table {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if len(cw.tables) == 0 {
		return nil
	}
	return cw.tables[len(cw.tables)-1]
}
