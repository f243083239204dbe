// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// ErrSessionStopped is returned by Session calls made after Run returned.
var ErrSessionStopped = errors.New("session stopped")

// opsClassifier is the subset of RepoClassifier a session needs.
type opsClassifier interface {
	IsOpsRepo(ctx context.Context, ref model.RepoRef) bool
	Cached(ref model.RepoRef) (verdict, ok bool)
	ClearAll()
}

// SessionSnapshot is a point-in-time view of a session.
type SessionSnapshot struct {
	ID      string
	URL     string
	Ref     model.RepoRef
	Active  bool // The page is an OPS pull request files view.
	State   model.ButtonState
	Buttons []model.ButtonView
}

// sessionRequest runs fn on the session loop and signals done.
type sessionRequest struct {
	fn   func(ctx context.Context)
	done chan struct{}
}

// Session is one host page's preview state. Navigation, DOM and credential
// events and the poll ticker are all handled on the goroutine running Run.
type Session struct {
	id         string
	classifier opsClassifier
	buttons    *ButtonManager
	interval   time.Duration
	logger     zerolog.Logger

	requests chan sessionRequest
	stopped  chan struct{}
	stopOnce sync.Once

	// Loop-owned.
	nav     Navigator
	doc     driven.Document
	pending bool // classification still owed for the current PR

	mu     sync.RWMutex
	url    string
	ref    model.RepoRef
	active bool
}

// SessionConfig groups a Session's collaborators.
type SessionConfig struct {
	Classifier opsClassifier
	Buttons    *ButtonManager
	Interval   time.Duration
	Logger     zerolog.Logger
}

// NewSession creates a session with a fresh ID.
func NewSession(cfg SessionConfig) *Session {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	id := uuid.NewString()
	return &Session{
		id:         id,
		classifier: cfg.Classifier,
		buttons:    cfg.Buttons,
		interval:   interval,
		logger:     cfg.Logger.With().Str("session", id).Logger(),
		requests:   make(chan sessionRequest),
		stopped:    make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Run processes events and re-checks the shared button state every poll
// interval. It returns when ctx is canceled or a teardown event arrives.
func (s *Session) Run(ctx context.Context, events <-chan model.Event) {
	defer s.stopOnce.Do(func() { close(s.stopped) })

	s.logger.Info().Dur("interval", s.interval).Msg("session started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("session stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if s.handleEvent(ctx, ev) {
				s.logger.Info().Msg("session torn down")
				return
			}
		case req := <-s.requests:
			req.fn(ctx)
			close(req.done)
		}
	}
}

// Navigate reports a location change and returns the resulting snapshot.
func (s *Session) Navigate(ctx context.Context, rawURL string) (SessionSnapshot, error) {
	if err := s.do(ctx, func(ctx context.Context) { s.navigate(ctx, rawURL) }); err != nil {
		return SessionSnapshot{}, err
	}
	return s.Snapshot(), nil
}

// ApplyDOM replaces the session's document and reconciles its buttons. It
// returns the rendered views, or nil when the page is not an OPS PR.
func (s *Session) ApplyDOM(ctx context.Context, doc driven.Document) ([]model.ButtonView, error) {
	var views []model.ButtonView
	err := s.do(ctx, func(ctx context.Context) {
		s.doc = doc
		views = s.reconcile(ctx)
	})
	return views, err
}

// Inspect runs fn on the session loop, so the document is not reconciled
// while fn reads it.
func (s *Session) Inspect(ctx context.Context, fn func(doc driven.Document)) error {
	return s.do(ctx, func(context.Context) { fn(s.doc) })
}

// Click activates a file's preview button.
func (s *Session) Click(ctx context.Context, file string) (model.ButtonView, error) {
	if !s.Snapshot().Active {
		return model.ButtonView{File: file, Gate: model.GateUnknown, Reason: model.GateUnknown.Message()}, ErrButtonDisabled
	}
	return s.buttons.Click(ctx, file)
}

// Snapshot returns the session's current state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	snap := SessionSnapshot{ID: s.id, URL: s.url, Ref: s.ref, Active: s.active}
	s.mu.RUnlock()

	snap.State = s.buttons.State()
	snap.Buttons = s.buttons.Views()
	return snap
}

func (s *Session) do(ctx context.Context, fn func(ctx context.Context)) error {
	req := sessionRequest{fn: fn, done: make(chan struct{})}

	select {
	case s.requests <- req:
	case <-s.stopped:
		return ErrSessionStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleEvent applies ev and reports whether the session must stop.
func (s *Session) handleEvent(ctx context.Context, ev model.Event) bool {
	s.logger.Debug().Str("event", ev.Kind.String()).Msg("session event")

	switch ev.Kind {
	case model.EventNavigation:
		s.navigate(ctx, ev.URL)
	case model.EventDOMChange:
		s.reconcile(ctx)
	case model.EventCredentialAdded, model.EventCredentialRemoved, model.EventCredentialChanged:
		s.buttons.Reset()
		if s.isActive() {
			s.buttons.CheckSharedState(ctx, true)
			s.reconcile(ctx)
		}
	case model.EventTeardown:
		s.buttons.Reset()
		s.doc = nil
		s.setActive(false)
		return true
	}
	return false
}

func (s *Session) tick(ctx context.Context) {
	if !s.isActive() {
		if s.pending {
			s.activate(ctx)
		}
		return
	}

	// The ticker already spaces polls by the interval.
	before := s.buttons.State()
	after := s.buttons.CheckSharedState(ctx, true)
	if after.LatestCommitSHA != before.LatestCommitSHA || after.Gate != before.Gate {
		s.reconcile(ctx)
	}
}

func (s *Session) navigate(ctx context.Context, rawURL string) {
	change := s.nav.Observe(rawURL)
	if !change.URLChanged {
		return
	}

	if change.RepoChanged {
		s.classifier.ClearAll()
	}
	if change.RepoChanged || change.PRChanged {
		s.buttons.Reset()
		s.doc = nil
	}

	s.mu.Lock()
	s.url = rawURL
	s.ref = change.Ref
	s.active = false
	s.mu.Unlock()
	s.pending = false

	if !change.Valid || !change.Ref.IsPullRequest() || !change.FilesView {
		return
	}

	s.buttons.SetRef(change.Ref)
	s.pending = true
	s.activate(ctx)
}

// activate classifies the current repository and, for OPS repos, starts
// tracking the PR's button state.
func (s *Session) activate(ctx context.Context) {
	s.mu.RLock()
	ref := s.ref
	s.mu.RUnlock()

	if !s.classifier.IsOpsRepo(ctx, ref) {
		if _, settled := s.classifier.Cached(ref); settled {
			s.pending = false
			s.logger.Info().Str("repo", ref.RepoKey()).Msg("not an ops repository")
		}
		return
	}

	s.pending = false
	s.setActive(true)
	s.buttons.CheckSharedState(ctx, true)
	s.reconcile(ctx)
}

func (s *Session) reconcile(ctx context.Context) []model.ButtonView {
	if s.doc == nil || !s.isActive() {
		return nil
	}
	return s.buttons.Reconcile(ctx, s.doc)
}

func (s *Session) isActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Session) setActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}
