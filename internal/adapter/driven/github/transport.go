package github

import (
	"net/http"

	"github.com/gregjones/httpcache"
)

// revalidateTransport asks the cache below it to revalidate every response
// with the server instead of serving it from the freshness window. GitHub
// marks API responses fresh for 60s, longer than a head commit may stay
// unnoticed; conditional requests answered with 304 do not count against the
// rate limit.
type revalidateTransport struct {
	next http.RoundTripper
}

func (t *revalidateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Cache-Control") != "" {
		return t.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("Cache-Control", "max-age=0")
	return t.next.RoundTrip(r)
}

// NewCachingTransport returns an ETag caching transport that always
// revalidates.
func NewCachingTransport() http.RoundTripper {
	return &revalidateTransport{next: httpcache.NewMemoryCacheTransport()}
}
