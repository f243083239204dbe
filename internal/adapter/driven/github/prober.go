package github

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ContentProber = (*RawContentProber)(nil)

// defaultProbeClient is shared by probers created without an explicit client.
var defaultProbeClient = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

// RawContentProber checks for files on raw.githubusercontent.com with HEAD
// requests. Raw content is served without API rate limits or credentials.
type RawContentProber struct {
	client *http.Client
}

// NewRawContentProber creates a prober. A nil client uses a shared default.
func NewRawContentProber(client *http.Client) *RawContentProber {
	if client == nil {
		client = defaultProbeClient
	}
	return &RawContentProber{client: client}
}

// Probe sends a HEAD request and returns the response status code.
func (p *RawContentProber) Probe(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create probe request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", "learnpreview")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", url, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	return resp.StatusCode, nil
}
