package driven

import "context"

// ContentProber issues existence checks against raw repository content.
type ContentProber interface {
	// Probe sends a HEAD request to url and returns the HTTP status code.
	// A non-nil error means no response was received.
	Probe(ctx context.Context, url string) (int, error)
}
