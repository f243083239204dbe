// Package model defines the domain types of the preview pipeline.
package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// RepoRef identifies a repository and, on pull request pages, the PR number.
// It is parsed from the host page location and is immutable per navigation.
type RepoRef struct {
	Owner    string
	Repo     string
	PRNumber int // Zero when the page is not a pull request.
}

// ParseRepoRef extracts a RepoRef from a GitHub page URL such as
// https://github.com/owner/repo/pull/42/files#diff-abc. Paths shorter than
// /owner/repo are rejected.
func ParseRepoRef(rawURL string) (RepoRef, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return RepoRef{}, fmt.Errorf("parsing page URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("invalid page URL %q: expected /owner/repo", rawURL)
	}

	ref := RepoRef{Owner: parts[0], Repo: parts[1]}
	if len(parts) >= 4 && parts[2] == "pull" {
		n, err := strconv.Atoi(parts[3])
		if err != nil || n <= 0 {
			return RepoRef{}, fmt.Errorf("invalid pull request number %q in %q", parts[3], rawURL)
		}
		ref.PRNumber = n
	}

	return ref, nil
}

// ParseRepoFullName splits an "owner/repo" string into a RepoRef.
func ParseRepoFullName(fullName string) (RepoRef, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return RepoRef{Owner: parts[0], Repo: parts[1]}, nil
}

// RepoKey returns the lower-cased "owner/repo" identity used by repository
// scoped caches.
func (r RepoRef) RepoKey() string {
	return strings.ToLower(r.Owner + "/" + r.Repo)
}

// PRKey returns the lower-cased "owner/repo#number" identity of the PR.
func (r RepoRef) PRKey() string {
	return fmt.Sprintf("%s#%d", r.RepoKey(), r.PRNumber)
}

// CommitKey returns the commit-scoped cache identity "owner/repo@sha".
func (r RepoRef) CommitKey(sha string) string {
	return r.RepoKey() + "@" + sha
}

// IsPullRequest reports whether the reference points at a pull request.
func (r RepoRef) IsPullRequest() bool {
	return r.PRNumber > 0
}

// String implements fmt.Stringer.
func (r RepoRef) String() string {
	if r.IsPullRequest() {
		return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.PRNumber)
	}
	return r.Owner + "/" + r.Repo
}
