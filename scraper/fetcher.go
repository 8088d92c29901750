package scraper

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/gocolly/colly/v2"
)

const (
	ctxStart  = "start"
	ctxPage   = "page"
	ctxStatus = "status"
)

// Page is a fetched response body.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves one URL. Implementations block until the response is
// complete and return non-2xx responses as errors.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// CollyFetcher issues one synchronous request at a time through a colly
// collector.
type CollyFetcher struct {
	collector *colly.Collector
	headers   http.Header
	metrics   *Metrics

	requestCount int64
	errorCount   int64
}

// NewCollyFetcher builds a fetcher restricted to the hosts of the configured
// categories.
func NewCollyFetcher(cfg *config.Config, metrics *Metrics) (*CollyFetcher, error) {
	hosts := cfg.Hosts()
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no category base url includes a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(hosts...),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	headers := make(http.Header, len(cfg.Headers)+1)
	for key, value := range cfg.Headers {
		headers.Set(key, value)
	}
	headers.Set("User-Agent", cfg.UserAgent)

	f := &CollyFetcher{
		collector: collector,
		headers:   headers,
		metrics:   metrics,
	}
	f.registerCallbacks()
	return f, nil
}

func (f *CollyFetcher) registerCallbacks() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxStart, time.Now())
		atomic.AddInt64(&f.requestCount, 1)
		f.metrics.IncRequest("started")
	})

	f.collector.OnResponse(func(r *colly.Response) {
		if start, ok := r.Ctx.GetAny(ctxStart).(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
		r.Ctx.Put(ctxPage, &Page{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: decodedContentType(r.Headers.Get("Content-Type")),
			Body:        r.Body,
		})
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		atomic.AddInt64(&f.errorCount, 1)
		if r == nil || r.Ctx == nil {
			return
		}
		r.Ctx.Put(ctxStatus, r.StatusCode)
	})
}

// Fetch requests rawURL with the configured headers.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cctx := colly.NewContext()
	err := f.collector.Request(http.MethodGet, rawURL, nil, cctx, f.headers.Clone())
	if err != nil {
		status, _ := cctx.GetAny(ctxStatus).(int)
		f.metrics.IncRequest("failed")
		return nil, &FetchError{URL: rawURL, StatusCode: status, Err: classifyError(err, status)}
	}

	page, ok := cctx.GetAny(ctxPage).(*Page)
	if !ok {
		f.metrics.IncRequest("failed")
		return nil, &FetchError{URL: rawURL, Err: errors.New("no response received")}
	}
	f.metrics.IncRequest("completed")
	return page, nil
}

// Requests returns the number of requests issued so far.
func (f *CollyFetcher) Requests() int {
	return int(atomic.LoadInt64(&f.requestCount))
}

// Errors returns the number of failed requests so far.
func (f *CollyFetcher) Errors() int {
	return int(atomic.LoadInt64(&f.errorCount))
}

// decodedContentType reports the content type of a body colly has already
// converted. Colly re-encodes bodies to UTF-8 whenever the header declares a
// charset, so the declared charset no longer applies.
func decodedContentType(contentType string) string {
	if !strings.Contains(strings.ToLower(contentType), "charset") {
		return contentType
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "text/html; charset=utf-8"
	}
	return mediaType + "; charset=utf-8"
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch {
		case statusCode == http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case statusCode == http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case statusCode == http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		case statusCode >= http.StatusInternalServerError:
			return ErrServer{Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return err
}
