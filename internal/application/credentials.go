package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// GitHubService is the credential store key for the GitHub token.
const GitHubService = "github"

var (
	// ErrTokenFormat is returned by SetToken for a value that is not a
	// GitHub personal access token.
	ErrTokenFormat = errors.New("token should start with 'ghp_' or 'github_pat_'")

	// ErrTokenRejected is returned by SetToken when GitHub refuses the token.
	ErrTokenRejected = errors.New("github token rejected")
)

// tokenPrefixes are the personal access token formats GitHub issues.
var tokenPrefixes = []string{"ghp_", "github_pat_"}

// CredentialService owns the GitHub token. It persists the token through a
// CredentialStore when one is usable, keeps it in memory otherwise, and
// notifies subscribers when the token is added, replaced or removed.
type CredentialService struct {
	store    driven.CredentialStore
	verifier driven.TokenVerifier
	logger   zerolog.Logger

	mu        sync.RWMutex
	token     string
	subs      map[int]chan model.Event
	nextSub   int
	listeners []func(token string)
}

// NewCredentialService creates a service. bootstrap is used until Load finds
// a stored token.
func NewCredentialService(store driven.CredentialStore, bootstrap string, logger zerolog.Logger) *CredentialService {
	return &CredentialService{
		store:  store,
		token:  strings.TrimSpace(bootstrap),
		subs:   make(map[int]chan model.Event),
		logger: logger,
	}
}

// SetVerifier makes SetToken check tokens with GitHub before storing them.
func (s *CredentialService) SetVerifier(v driven.TokenVerifier) {
	s.verifier = v
}

// Load reads the stored token. A missing encryption key is not an error;
// the bootstrap token stays in effect.
func (s *CredentialService) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	stored, err := s.store.Get(ctx, GitHubService)
	if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		s.logger.Info().Msg("credential persistence disabled: no secret key")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load github token: %w", err)
	}
	if stored == "" {
		return nil
	}

	s.mu.Lock()
	s.token = stored
	s.mu.Unlock()
	return nil
}

// Token returns the current token, or "".
func (s *CredentialService) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// HasToken reports whether a token is available.
func (s *CredentialService) HasToken() bool {
	return s.Token() != ""
}

// Stored returns the persisted GitHub credential, or nil when none is stored
// or persistence is disabled.
func (s *CredentialService) Stored(ctx context.Context) (*model.Credential, error) {
	if s.store == nil {
		return nil, nil
	}

	creds, err := s.store.List(ctx)
	if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	for i := range creds {
		if creds[i].Service == GitHubService {
			return &creds[i], nil
		}
	}
	return nil, nil
}

// SetToken stores token and reports the resulting change. Setting the current
// value again is a no-op and returns false.
func (s *CredentialService) SetToken(ctx context.Context, token string) (model.EventKind, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false, errors.New("token must not be empty")
	}
	if err := s.verify(ctx, token); err != nil {
		return 0, false, err
	}

	if err := s.persist(ctx, token); err != nil {
		return 0, false, err
	}

	s.mu.Lock()
	prev := s.token
	s.token = token
	s.mu.Unlock()

	switch prev {
	case token:
		return 0, false, nil
	case "":
		s.notify(model.EventCredentialAdded, token)
		return model.EventCredentialAdded, true, nil
	default:
		s.notify(model.EventCredentialChanged, token)
		return model.EventCredentialChanged, true, nil
	}
}

// ClearToken removes the token. It reports whether a token was present.
func (s *CredentialService) ClearToken(ctx context.Context) (bool, error) {
	if s.store != nil {
		if err := s.store.Delete(ctx, GitHubService); err != nil && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			return false, fmt.Errorf("delete github token: %w", err)
		}
	}

	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	s.mu.Unlock()

	if had {
		s.notify(model.EventCredentialRemoved, "")
	}
	return had, nil
}

// Invalidate purges a token the API rejected so the user is prompted again.
func (s *CredentialService) Invalidate(ctx context.Context) {
	had, err := s.ClearToken(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to purge rejected github token")
		return
	}
	if had {
		s.logger.Warn().Msg("github token rejected; stored token cleared")
	}
}

// Subscribe returns a channel of credential events and a cancel func.
// Slow subscribers miss events rather than blocking writers.
func (s *CredentialService) Subscribe() (<-chan model.Event, func()) {
	ch := make(chan model.Event, 4)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// OnChange registers fn to run synchronously with the new token (empty on
// removal) before subscribers are notified.
func (s *CredentialService) OnChange(fn func(token string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// verify checks the token's format and, with a verifier, asks GitHub who
// it belongs to.
func (s *CredentialService) verify(ctx context.Context, token string) error {
	if !hasTokenPrefix(token) {
		return ErrTokenFormat
	}
	if s.verifier == nil {
		return nil
	}

	login, err := s.verifier.VerifyToken(ctx, token)
	switch {
	case errors.Is(err, driven.ErrUnauthorized):
		return fmt.Errorf("%w: invalid token, check that it was copied correctly", ErrTokenRejected)
	case errors.Is(err, driven.ErrForbidden):
		return fmt.Errorf("%w: token lacks required permissions, select the repo scope and authorize it for SSO", ErrTokenRejected)
	case err != nil:
		return fmt.Errorf("%w: validation failed: %w", ErrTokenRejected, err)
	}

	s.logger.Info().Str("login", login).Msg("github token verified")
	return nil
}

func hasTokenPrefix(token string) bool {
	for _, p := range tokenPrefixes {
		if strings.HasPrefix(token, p) {
			return true
		}
	}
	return false
}

func (s *CredentialService) persist(ctx context.Context, token string) error {
	if s.store == nil {
		return nil
	}
	err := s.store.Set(ctx, GitHubService, token)
	if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		s.logger.Warn().Msg("github token kept in memory only: no secret key configured")
		return nil
	}
	if err != nil {
		return fmt.Errorf("store github token: %w", err)
	}
	return nil
}

func (s *CredentialService) notify(kind model.EventKind, token string) {
	s.mu.RLock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(token)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- model.Event{Kind: kind}:
		default:
			s.logger.Warn().Str("event", kind.String()).Msg("credential subscriber full; event dropped")
		}
	}
}
