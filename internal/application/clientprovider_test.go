package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

func TestGitHubClientProvider_RebuildSwapsClient(t *testing.T) {
	first := &mockGitHubClient{}
	second := &mockGitHubClient{}
	second.On("FetchPullRequest", context.Background(), "o", "r", 1).
		Return(&model.PRInfo{CommitSHA: "s", Status: model.PRStatusOpen}, nil)

	clients := map[string]driven.GitHubClient{"": first, "ghp_new": second}
	provider := NewGitHubClientProvider(func(token string) driven.GitHubClient { return clients[token] }, "")

	assert.Same(t, first, provider.Get())

	provider.Rebuild("ghp_new")
	info, err := provider.FetchPullRequest(context.Background(), "o", "r", 1)

	require.NoError(t, err)
	assert.Equal(t, "s", info.CommitSHA)
	first.AssertNumberOfCalls(t, "FetchPullRequest", 0)
}

func TestGitHubClientProvider_NilClient(t *testing.T) {
	provider := NewGitHubClientProvider(func(string) driven.GitHubClient { return nil }, "")

	assert.False(t, provider.HasClient())
	_, err := provider.FetchCombinedStatus(context.Background(), "o", "r", "sha")
	assert.ErrorIs(t, err, driven.ErrUnauthorized)
}

func TestGitHubClientProvider_ConcurrentGetRebuildSafety(t *testing.T) {
	anon := &mockGitHubClient{}
	authed := &mockGitHubClient{}
	provider := NewGitHubClientProvider(func(token string) driven.GitHubClient {
		if token == "" {
			return anon
		}
		return authed
	}, "")

	const goroutines = 100
	var wg sync.WaitGroup
	wg.Add(goroutines * 2)

	for range goroutines {
		go func() {
			defer wg.Done()
			assert.NotNil(t, provider.Get())
		}()
		go func() {
			defer wg.Done()
			provider.Rebuild("ghp_token")
		}()
	}

	wg.Wait()

	assert.Same(t, authed, provider.Get())
}
