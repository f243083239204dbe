// Package browser opens preview URLs in the user's default browser.
package browser

import (
	"fmt"
	"io"
	"net/url"

	clibrowser "github.com/cli/browser"

	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.URLOpener = (*Opener)(nil)

// Opener implements driven.URLOpener with github.com/cli/browser. Only
// absolute http(s) URLs are opened.
type Opener struct {
	open func(string) error
}

// NewOpener returns an Opener whose helper process output goes to w.
// A nil w discards it.
func NewOpener(w io.Writer) *Opener {
	if w == nil {
		w = io.Discard
	}
	clibrowser.Stdout = w
	clibrowser.Stderr = w
	return &Opener{open: clibrowser.OpenURL}
}

// Open launches rawURL in a new browser tab.
func (o *Opener) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse preview url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open non-web url %q", rawURL)
	}

	if err := o.open(u.String()); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}
