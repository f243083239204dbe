package application

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
)

// --- Mock implementations ---

type mockGitHubClient struct {
	mock.Mock
}

func (m *mockGitHubClient) FetchPullRequest(ctx context.Context, owner, repo string, number int) (*model.PRInfo, error) {
	args := m.Called(ctx, owner, repo, number)
	info, _ := args.Get(0).(*model.PRInfo)
	return info, args.Error(1)
}

func (m *mockGitHubClient) FetchCombinedStatus(ctx context.Context, owner, repo, ref string) ([]model.CommitStatus, error) {
	args := m.Called(ctx, owner, repo, ref)
	statuses, _ := args.Get(0).([]model.CommitStatus)
	return statuses, args.Error(1)
}

// fakeInvalidator counts credential purges.
type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeInvalidator) Invalidate(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

// memStore is an in-memory CredentialStore.
type memStore struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (s *memStore) Set(_ context.Context, service, plaintext string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.values[service] = plaintext
	return nil
}

func (s *memStore) Get(_ context.Context, service string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.values[service], nil
}

func (s *memStore) List(context.Context) ([]model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []model.Credential
	for k, v := range s.values {
		out = append(out, model.Credential{Service: k, Value: v})
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.values, service)
	return nil
}
