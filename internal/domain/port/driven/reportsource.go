package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
)

// ErrNoPreviewLinks is returned when a build report was fetched and parsed
// but contained no usable file/preview table. It is partial data, not a
// build failure.
var ErrNoPreviewLinks = errors.New("build report has no preview links")

// ReportSource fetches a build report and extracts its file -> preview URL map.
type ReportSource interface {
	FetchPreviewLinks(ctx context.Context, reportURL string) (model.PreviewLinks, error)
}
