package application

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// fakePRs returns a settable PRInfo and counts lookups.
type fakePRs struct {
	mu    sync.Mutex
	info  *model.PRInfo
	calls int
}

func (f *fakePRs) set(sha string, status model.PRStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info = &model.PRInfo{CommitSHA: sha, Status: status}
}

func (f *fakePRs) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info = nil
}

func (f *fakePRs) PRInfo(context.Context, string, string, int) *model.PRInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.info == nil {
		return nil
	}
	info := *f.info
	return &info
}

func (f *fakePRs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeChecks returns a settable status check and counts lookups.
type fakeChecks struct {
	mu    sync.Mutex
	check *model.StatusCheck
	calls int
	shas  []string
}

func (f *fakeChecks) set(state model.CheckState, detailsURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.check = &model.StatusCheck{Name: "OpenPublishing.Build", State: state, DetailsURL: detailsURL}
}

func (f *fakeChecks) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.check = nil
}

func (f *fakeChecks) SpecificStatusCheck(_ context.Context, _, _, sha, _ string) *model.StatusCheck {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.shas = append(f.shas, sha)
	if f.check == nil {
		return nil
	}
	c := *f.check
	return &c
}

func (f *fakeChecks) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeReports serves preview links per report URL. When gate is non-nil each
// fetch blocks until it is closed.
type fakeReports struct {
	links map[string]model.PreviewLinks
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

func (f *fakeReports) FetchPreviewLinks(ctx context.Context, reportURL string) (model.PreviewLinks, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	links, ok := f.links[reportURL]
	if !ok {
		return nil, driven.ErrNoPreviewLinks
	}
	return links, nil
}

// fakeTokens toggles credential presence.
type fakeTokens struct {
	has atomic.Bool
}

func (f *fakeTokens) HasToken() bool {
	return f.has.Load()
}

func withToken() *fakeTokens {
	t := &fakeTokens{}
	t.has.Store(true)
	return t
}

// fakeOpener records opened URLs.
type fakeOpener struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func (f *fakeOpener) Open(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.opened = append(f.opened, url)
	return nil
}

// fakeDoc is an in-memory Document.
type fakeDoc struct {
	menus []*fakeMenu
}

func (d *fakeDoc) FileMenus() []driven.FileMenu {
	out := make([]driven.FileMenu, 0, len(d.menus))
	for _, m := range d.menus {
		out = append(out, m)
	}
	return out
}

func newFakeDoc(linkTexts ...string) *fakeDoc {
	d := &fakeDoc{}
	for _, text := range linkTexts {
		d.menus = append(d.menus, &fakeMenu{text: text, hasDelete: true})
	}
	return d
}

type fakeMenu struct {
	text      string
	hasDelete bool
	button    *fakeButton
	inserts   int
}

func (m *fakeMenu) LinkText() string { return m.text }

func (m *fakeMenu) PreviewButton() driven.Button {
	if m.button == nil {
		return nil
	}
	return m.button
}

func (m *fakeMenu) InsertPreviewButton(view model.ButtonView) (driven.Button, bool) {
	if !m.hasDelete {
		return nil, false
	}
	m.inserts++
	m.button = &fakeButton{menu: m, view: view}
	return m.button, true
}

type fakeButton struct {
	menu     *fakeMenu
	view     model.ButtonView
	renders  int
	replaced bool
}

func (b *fakeButton) View() model.ButtonView { return b.view }

func (b *fakeButton) Render(view model.ButtonView) {
	b.renders++
	b.view = view
}

func (b *fakeButton) Replace() driven.Button {
	fresh := &fakeButton{menu: b.menu, view: b.view, replaced: true}
	b.menu.button = fresh
	return fresh
}
