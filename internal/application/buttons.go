package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// DefaultPollInterval is how long a shared button state stays fresh.
const DefaultPollInterval = 15 * time.Second

// ErrButtonDisabled is returned by Click for a gated button.
var ErrButtonDisabled = errors.New("preview button is disabled")

// tokenHolder reports whether a credential is available.
type tokenHolder interface {
	HasToken() bool
}

// reportResolver is the subset of PreviewService the button manager needs.
type reportResolver interface {
	Report(ctx context.Context, ref model.RepoRef, pr model.PRInfo, known *model.StatusCheck) *model.BuildReport
	ObserveHead(ref model.RepoRef, sha string)
}

// ButtonManager keeps the preview buttons of one PR view in sync with the
// PR's shared gating state.
type ButtonManager struct {
	prs       prInfoResolver
	checks    statusCheckLocator
	previews  reportResolver
	creds     tokenHolder
	opener    driven.URLOpener
	checkName string
	interval  time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	mu    sync.Mutex
	ref   model.RepoRef
	state model.ButtonState
	views map[string]model.ButtonView
	// gen increments whenever state is replaced; missGen records the
	// generation whose report could not be resolved.
	gen     uint64
	missGen uint64
}

// ButtonManagerConfig groups the ButtonManager's collaborators.
type ButtonManagerConfig struct {
	PRs       prInfoResolver
	Checks    statusCheckLocator
	Previews  reportResolver
	Creds     tokenHolder
	Opener    driven.URLOpener // nil disables opening on Click.
	CheckName string
	Interval  time.Duration
	Logger    zerolog.Logger
}

// NewButtonManager creates a ButtonManager in the UNKNOWN state.
func NewButtonManager(cfg ButtonManagerConfig) *ButtonManager {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &ButtonManager{
		prs:       cfg.PRs,
		checks:    cfg.Checks,
		previews:  cfg.Previews,
		creds:     cfg.Creds,
		opener:    cfg.Opener,
		checkName: cfg.CheckName,
		interval:  interval,
		now:       time.Now,
		logger:    cfg.Logger,
		state:     model.ButtonState{Gate: model.GateUnknown},
		views:     make(map[string]model.ButtonView),
		gen:       1,
	}
}

// SetRef points the manager at a PR. Switching PRs resets the shared state.
func (m *ButtonManager) SetRef(ref model.RepoRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ref.PRKey() != ref.PRKey() {
		m.resetLocked()
	}
	m.ref = ref
}

// Reset returns the shared state to UNKNOWN and forgets rendered views.
func (m *ButtonManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *ButtonManager) resetLocked() {
	m.state = model.ButtonState{Gate: model.GateUnknown}
	m.views = make(map[string]model.ButtonView)
	m.gen++
}

// State returns a copy of the shared state.
func (m *ButtonManager) State() model.ButtonState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Views returns the last rendered view of every file, sorted by file.
func (m *ButtonManager) Views() []model.ButtonView {
	m.mu.Lock()
	defer m.mu.Unlock()
	views := make([]model.ButtonView, 0, len(m.views))
	for _, v := range m.views {
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].File < views[j].File })
	return views
}

// CheckSharedState recomputes the PR-level gate. Unless force is set, a state
// checked within the poll interval is returned unchanged. Merged PRs reuse
// the last status check instead of polling it again.
func (m *ButtonManager) CheckSharedState(ctx context.Context, force bool) model.ButtonState {
	m.mu.Lock()
	ref := m.ref
	prev := m.state
	if !force && !prev.LastCheck.IsZero() && m.now().Sub(prev.LastCheck) < m.interval {
		m.mu.Unlock()
		return prev
	}
	if m.state.Gate == model.GateUnknown {
		m.state.Gate = model.GateChecking
	}
	m.mu.Unlock()

	if !ref.IsPullRequest() {
		return prev
	}

	next := m.evaluate(ctx, ref, prev)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ref.PRKey() != ref.PRKey() {
		m.logger.Debug().Str("pr", ref.PRKey()).Msg("discarding state for a PR no longer shown")
		return m.state
	}
	m.state = next
	m.gen++
	return next
}

func (m *ButtonManager) evaluate(ctx context.Context, ref model.RepoRef, prev model.ButtonState) model.ButtonState {
	next := prev
	next.LastCheck = m.now()
	log := m.logger.With().Str("pr", ref.String()).Logger()

	if !m.creds.HasToken() {
		next.Gate = model.EvaluateGate(model.GateInput{HasCredential: false})
		return next
	}

	pr := m.prs.PRInfo(ctx, ref.Owner, ref.Repo, ref.PRNumber)
	if pr == nil {
		// Unknown PR info leaves a known gate in place.
		if prev.Gate == model.GateUnknown || prev.Gate == model.GateChecking || prev.Gate == model.GateNeedsAuth {
			next.Gate = model.GateUnknown
		}
		return next
	}

	shaChanged := pr.CommitSHA != prev.LatestCommitSHA
	if shaChanged {
		m.previews.ObserveHead(ref, pr.CommitSHA)
		log.Debug().Str("sha", pr.CommitSHA).Msg("head commit changed")
	}
	next.LatestCommitSHA = pr.CommitSHA
	next.PRStatus = pr.Status

	var check *model.StatusCheck
	switch {
	case pr.Status == model.PRStatusClosed:
		// Gate is decided by status alone.
	case pr.Status == model.PRStatusMerged && prev.Check != nil && !shaChanged:
		check = prev.Check
	default:
		check = m.checks.SpecificStatusCheck(ctx, ref.Owner, ref.Repo, pr.CommitSHA, m.checkName)
	}

	next.Check = check
	next.LastBuildStatus = ""
	if check != nil {
		next.LastBuildStatus = check.State
	}
	next.Gate = model.EvaluateGate(model.GateInput{HasCredential: true, PR: pr, Check: check})

	if next.Gate != prev.Gate {
		log.Info().Str("gate", next.Gate.String()).Msg("button state changed")
	}
	return next
}

// ViewFor returns the rendered state for file under the current shared state.
func (m *ButtonManager) ViewFor(ctx context.Context, file string) model.ButtonView {
	state, report := m.currentReport(ctx)
	return fileView(file, state, report)
}

// currentReport returns the shared state and, when it is enabled, the build
// report of its head commit. A report that failed to resolve is not retried
// until the shared state is next replaced.
func (m *ButtonManager) currentReport(ctx context.Context) (model.ButtonState, *model.BuildReport) {
	m.mu.Lock()
	ref, state, gen := m.ref, m.state, m.gen
	missed := m.missGen == gen
	m.mu.Unlock()

	if !state.Gate.Enabled() || missed {
		return state, nil
	}

	report := m.previews.Report(ctx, ref, model.PRInfo{CommitSHA: state.LatestCommitSHA, Status: state.PRStatus}, state.Check)
	if report == nil {
		m.mu.Lock()
		if m.gen == gen {
			m.missGen = gen
		}
		m.mu.Unlock()
		m.logger.Debug().Str("pr", ref.String()).Str("sha", state.LatestCommitSHA).Msg("build report unavailable until next check")
	}
	return state, report
}

func fileView(file string, state model.ButtonState, report *model.BuildReport) model.ButtonView {
	view := model.ButtonView{File: file, Gate: state.Gate}
	if !state.Gate.Enabled() {
		view.Reason = state.Reason()
		return view
	}

	url, ok := report.Lookup(file)
	if !ok {
		view.Gate = model.GateNotPublished
		view.Reason = model.GateNotPublished.Message()
		return view
	}
	view.PreviewURL = url
	return view
}

// Reconcile makes every file menu in doc carry exactly one preview button
// reflecting the current state, and returns the views in document order.
// Buttons already present are updated in place.
func (m *ButtonManager) Reconcile(ctx context.Context, doc driven.Document) []model.ButtonView {
	var views []model.ButtonView
	state, report := m.currentReport(ctx)

	for _, menu := range doc.FileMenus() {
		file := model.FileNameFromLinkText(menu.LinkText())
		if file == "" {
			continue
		}

		view := fileView(file, state, report)

		btn := menu.PreviewButton()
		switch {
		case btn == nil:
			if _, ok := menu.InsertPreviewButton(view); !ok {
				m.logger.Debug().Str("file", file).Msg("file menu has no delete item; button not inserted")
				continue
			}
		case btn.View().File != file:
			// The host reused this row for another file.
			btn = btn.Replace()
			btn.Render(view)
		case btn.View() != view:
			btn.Render(view)
		}

		views = append(views, view)
	}

	m.mu.Lock()
	for _, v := range views {
		m.views[v.File] = v
	}
	m.mu.Unlock()

	return views
}

// Click activates file's button. An enabled button opens its preview URL
// and returns the view; a gated button does nothing and returns
// ErrButtonDisabled alongside the view carrying the reason.
func (m *ButtonManager) Click(ctx context.Context, file string) (model.ButtonView, error) {
	m.mu.Lock()
	view, ok := m.views[file]
	m.mu.Unlock()
	if !ok {
		view = m.ViewFor(ctx, file)
	}

	if !view.Enabled() {
		return view, ErrButtonDisabled
	}

	if m.opener != nil {
		if err := m.opener.Open(view.PreviewURL); err != nil {
			return view, fmt.Errorf("open preview for %s: %w", file, err)
		}
	}
	return view, nil
}
