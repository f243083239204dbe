package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*GitHubClientProvider)(nil)

// GitHubClientFactory builds a client for a token. An empty token must yield
// an unauthenticated client.
type GitHubClientFactory func(token string) driven.GitHubClient

// GitHubClientProvider enables runtime hot-swap of the GitHub client. It
// implements driven.GitHubClient by delegating to the current client, so
// resolvers keep one reference while credentials change underneath.
type GitHubClientProvider struct {
	mu      sync.RWMutex
	client  driven.GitHubClient
	factory GitHubClientFactory
}

// NewGitHubClientProvider creates a provider with a client for token.
func NewGitHubClientProvider(factory GitHubClientFactory, token string) *GitHubClientProvider {
	return &GitHubClientProvider{
		client:  factory(token),
		factory: factory,
	}
}

// Get returns the current GitHub client.
func (p *GitHubClientProvider) Get() driven.GitHubClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Replace swaps in client. The next call through the provider uses it.
func (p *GitHubClientProvider) Replace(client driven.GitHubClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

// Rebuild replaces the client with one built for token. It is registered as a
// CredentialService change listener.
func (p *GitHubClientProvider) Rebuild(token string) {
	p.Replace(p.factory(token))
}

// HasClient returns true if a non-nil client is currently held.
func (p *GitHubClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}

func (p *GitHubClientProvider) FetchPullRequest(ctx context.Context, owner, repo string, number int) (*model.PRInfo, error) {
	client := p.Get()
	if client == nil {
		return nil, fmt.Errorf("no github client configured: %w", driven.ErrUnauthorized)
	}
	return client.FetchPullRequest(ctx, owner, repo, number)
}

func (p *GitHubClientProvider) FetchCombinedStatus(ctx context.Context, owner, repo, ref string) ([]model.CommitStatus, error) {
	client := p.Get()
	if client == nil {
		return nil, fmt.Errorf("no github client configured: %w", driven.ErrUnauthorized)
	}
	return client.FetchCombinedStatus(ctx, owner, repo, ref)
}
