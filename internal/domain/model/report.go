package model

import "time"

// PreviewLinks maps a repository file path to its published preview URL.
type PreviewLinks map[string]string

// BuildReport is a cached, commit-scoped extraction of a build report.
type BuildReport struct {
	CommitSHA string
	PRStatus  PRStatus
	Links     PreviewLinks
	FetchedAt time.Time
}

// Lookup returns the preview URL for file, if the report lists it.
func (r *BuildReport) Lookup(file string) (string, bool) {
	if r == nil {
		return "", false
	}
	u, ok := r.Links[file]
	return u, ok && u != ""
}
