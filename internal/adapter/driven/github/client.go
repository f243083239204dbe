// Package github implements the GitHubClient and ContentProber ports using
// the go-github library and plain HTTP.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/rs/zerolog"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// ssoGuidance is logged when a token lacks SAML SSO authorization.
const ssoGuidance = "authorize the token for this organization at https://github.com/settings/tokens (Configure SSO)"

// Client implements the driven.GitHubClient port using the go-github library.
type Client struct {
	gh     *gh.Client
	logger zerolog.Logger
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching, always revalidated)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// An empty token yields an unauthenticated client.
func NewClient(token string, logger zerolog.Logger) *Client {
	rateLimitClient := github_ratelimit.NewClient(NewCachingTransport())
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{
		gh:     client,
		logger: logger,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, logger zerolog.Logger) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:     client,
		logger: logger,
	}, nil
}

// FetchPullRequest returns the head SHA and lifecycle status for a pull request.
func (c *Client) FetchPullRequest(ctx context.Context, owner, repo string, number int) (*model.PRInfo, error) {
	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, c.classifyError(fmt.Sprintf("fetching pull request %s/%s#%d", owner, repo, number), resp, err)
	}

	c.logRateLimit(resp, owner+"/"+repo+"/pulls")

	sha := pr.GetHead().GetSHA()
	if sha == "" {
		return nil, fmt.Errorf("pull request %s/%s#%d has no head commit", owner, repo, number)
	}

	return &model.PRInfo{
		CommitSHA: sha,
		Status:    mapPRStatus(pr),
	}, nil
}

// FetchCombinedStatus returns all status entries for the given ref. It handles
// pagination automatically and preserves API order.
func (c *Client) FetchCombinedStatus(ctx context.Context, owner, repo, ref string) ([]model.CommitStatus, error) {
	opts := &gh.ListOptions{PerPage: 100}
	var all []model.CommitStatus

	for {
		cs, resp, err := c.gh.Repositories.GetCombinedStatus(ctx, owner, repo, ref, opts)
		if err != nil {
			return nil, c.classifyError(fmt.Sprintf("fetching combined status for %s/%s@%s (page %d)", owner, repo, ref, opts.Page), resp, err)
		}

		c.logRateLimit(resp, owner+"/"+repo+"/status")

		for _, s := range cs.Statuses {
			all = append(all, mapCommitStatus(s))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if all == nil {
		all = []model.CommitStatus{}
	}

	return all, nil
}

// classifyError maps API failures onto the port's sentinel errors.
func (c *Client) classifyError(op string, resp *gh.Response, err error) error {
	var ghErr *gh.ErrorResponse
	errors.As(err, &ghErr)

	switch responseStatus(resp, err) {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, driven.ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, driven.ErrNotFound)
	case http.StatusForbidden:
		if ghErr != nil && strings.Contains(ghErr.Message, "SAML") {
			c.logger.Warn().Str("op", op).Str("hint", ssoGuidance).Msg("github token requires SAML SSO authorization")
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// responseStatus returns the HTTP status of a failed API call, or 0.
func responseStatus(resp *gh.Response, err error) int {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		status = ghErr.Response.StatusCode
	}
	return status
}

// logRateLimit logs the GitHub API rate limit status after each call.
func (c *Client) logRateLimit(resp *gh.Response, endpoint string) {
	if resp == nil {
		return
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("rate_remaining", resp.Rate.Remaining).
		Int("rate_limit", resp.Rate.Limit).
		Msg("github api call")

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		c.logger.Warn().
			Int("remaining", resp.Rate.Remaining).
			Dur("reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second)).
			Msg("github rate limit low")
	}
}

// mapPRStatus folds the API's open/closed state and merged flag into the
// three-way status.
func mapPRStatus(pr *gh.PullRequest) model.PRStatus {
	switch {
	case pr.GetState() == "open":
		return model.PRStatusOpen
	case pr.GetMerged() || !pr.GetMergedAt().IsZero():
		return model.PRStatusMerged
	default:
		return model.PRStatusClosed
	}
}

// mapCommitStatus converts a go-github RepoStatus to a domain CommitStatus.
func mapCommitStatus(s *gh.RepoStatus) model.CommitStatus {
	return model.CommitStatus{
		Context:   s.GetContext(),
		State:     s.GetState(),
		TargetURL: s.GetTargetURL(),
		UpdatedAt: s.GetUpdatedAt().Time,
	}
}
