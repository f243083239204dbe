// Package buildreport fetches documentation build reports and extracts the
// file -> preview URL table they publish.
package buildreport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// maxReportBytes caps how much of a report body is read.
const maxReportBytes = 16 << 20

var defaultReportClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

// Build reports sometimes render cells as <tdstyle="..."> with the space
// between tag name and attribute missing.
var missingStyleSpace = regexp.MustCompile(`(?i)<([a-z][a-z0-9]*?)style=`)

// RepairMarkup fixes known malformed-attribute patterns in report markup.
func RepairMarkup(markup string) string {
	return missingStyleSpace.ReplaceAllString(markup, "<$1 style=")
}

// reportPolicy keeps the structure the extractor needs and nothing else.
// Script and style contents are dropped by bluemonday.
func reportPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"table", "thead", "tbody", "tfoot", "tr", "td", "th", "caption",
		"p", "div", "span", "b", "strong", "i", "em", "br", "h1", "h2", "h3", "h4",
	)
	p.AllowAttrs("class").OnElements("table")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)
	return p
}

// Fetcher downloads a report and turns it into a sanitized document tree.
type Fetcher struct {
	client *http.Client
	policy *bluemonday.Policy
}

// NewFetcher creates a Fetcher. A nil client uses a shared default.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = defaultReportClient
	}
	return &Fetcher{client: client, policy: reportPolicy()}
}

// Fetch GETs the report at url, repairs and sanitizes its markup, and parses it.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create report request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "learnpreview")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch build report: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch build report: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBytes))
	if err != nil {
		return nil, fmt.Errorf("read build report: %w", err)
	}

	clean := f.policy.Sanitize(RepairMarkup(string(body)))

	doc, err := html.Parse(strings.NewReader(clean))
	if err != nil {
		return nil, fmt.Errorf("parse build report: %w", err)
	}

	return doc, nil
}
