package application

import (
	"net/url"
	"strings"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
)

// NavigationChange describes how the host page location moved.
type NavigationChange struct {
	Ref         model.RepoRef
	Valid       bool // The URL names a repository.
	URLChanged  bool
	RepoChanged bool
	PRChanged   bool
	FilesView   bool // The page lists a PR's changed files.
}

// Navigator detects in-page navigation by comparing successive locations.
// It is not safe for concurrent use; the session loop owns it.
type Navigator struct {
	lastURL string
	last    model.RepoRef
	valid   bool
}

// Observe records rawURL as the current location and reports what changed.
// Fragment-only changes (jumping between file anchors) are not navigation.
func (n *Navigator) Observe(rawURL string) NavigationChange {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL = rawURL[:i]
	}
	change := NavigationChange{URLChanged: rawURL != n.lastURL}

	ref, err := model.ParseRepoRef(rawURL)
	change.Valid = err == nil
	if change.Valid {
		change.Ref = ref
		change.FilesView = isFilesView(rawURL)
	}

	switch {
	case change.Valid && n.valid:
		change.RepoChanged = ref.RepoKey() != n.last.RepoKey()
		change.PRChanged = ref.PRKey() != n.last.PRKey()
	case change.Valid != n.valid:
		change.RepoChanged = true
		change.PRChanged = true
	}

	n.lastURL = rawURL
	n.last = ref
	n.valid = change.Valid
	return change
}

// Current returns the last observed repository reference.
func (n *Navigator) Current() (model.RepoRef, bool) {
	return n.last, n.valid
}

// isFilesView matches /owner/repo/pull/N/files and the newer /changes path.
func isFilesView(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 5 || parts[2] != "pull" {
		return false
	}
	return parts[4] == "files" || parts[4] == "changes"
}
