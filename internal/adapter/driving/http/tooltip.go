package httphandler

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	mdRenderer       goldmark.Markdown
	tooltipSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(goldmark.WithExtensions(extension.Linkify))
	tooltipSanitizer = bluemonday.UGCPolicy()
}

// RenderTooltip converts a markdown gate reason to sanitized HTML.
// Returns empty string for empty input.
func RenderTooltip(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return tooltipSanitizer.Sanitize(src)
	}

	return tooltipSanitizer.Sanitize(buf.String())
}
