package buildreport

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReportSource = (*Source)(nil)

// Source implements driven.ReportSource by fetching a report and extracting
// its preview table. Relative preview hrefs are resolved against the report URL.
type Source struct {
	fetcher *Fetcher
	logger  zerolog.Logger
}

// NewSource creates a Source backed by fetcher.
func NewSource(fetcher *Fetcher, logger zerolog.Logger) *Source {
	return &Source{fetcher: fetcher, logger: logger}
}

// FetchPreviewLinks fetches reportURL and returns its file -> preview URL map.
// A report without a usable table yields driven.ErrNoPreviewLinks.
func (s *Source) FetchPreviewLinks(ctx context.Context, reportURL string) (model.PreviewLinks, error) {
	base, err := url.Parse(reportURL)
	if err != nil {
		return nil, fmt.Errorf("parse report URL: %w", err)
	}

	doc, err := s.fetcher.Fetch(ctx, reportURL)
	if err != nil {
		return nil, err
	}

	links, err := ExtractPreviewLinks(doc)
	if err != nil {
		s.logger.Debug().Str("report", reportURL).Msg("build report has no preview table")
		return nil, err
	}

	for file, href := range links {
		u, err := url.Parse(href)
		if err != nil {
			delete(links, file)
			continue
		}
		links[file] = base.ResolveReference(u).String()
	}

	if len(links) == 0 {
		return nil, driven.ErrNoPreviewLinks
	}

	s.logger.Debug().Str("report", reportURL).Int("links", len(links)).Msg("extracted preview links")

	return links, nil
}
