// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
)

// Sentinel errors returned by GitHubClient implementations.
var (
	// ErrUnauthorized indicates the API rejected the credential (HTTP 401).
	ErrUnauthorized = errors.New("github credential rejected")

	// ErrNotFound indicates the requested resource does not exist or is not
	// visible to the credential (HTTP 404).
	ErrNotFound = errors.New("github resource not found")

	// ErrForbidden indicates the credential lacks a scope or SSO
	// authorization for the request (HTTP 403).
	ErrForbidden = errors.New("github credential lacks permission")
)

// GitHubClient defines the driven port for the GitHub REST lookups the
// preview pipeline needs. Implementations are expected to be rate limited and
// intermittently flaky; callers own the retry policy.
type GitHubClient interface {
	// FetchPullRequest returns the head commit SHA and the three-way
	// open/merged/closed status of a pull request.
	FetchPullRequest(ctx context.Context, owner, repo string, number int) (*model.PRInfo, error)
	// FetchCombinedStatus returns every status entry for the given ref in API order.
	FetchCombinedStatus(ctx context.Context, owner, repo, ref string) ([]model.CommitStatus, error)
}

// TokenVerifier checks a token against the API before it is stored.
type TokenVerifier interface {
	// VerifyToken returns the login the token authenticates as.
	VerifyToken(ctx context.Context, token string) (string, error)
}
