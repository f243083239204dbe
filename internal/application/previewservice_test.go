package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
)

const reportURL = "https://build.example/report/1"

var testRef = model.RepoRef{Owner: "MicrosoftDocs", Repo: "azure-docs", PRNumber: 42}

func newTestPreviewService(t *testing.T, prs *fakePRs, checks *fakeChecks, reports *fakeReports, size int) *PreviewService {
	t.Helper()
	svc, err := NewPreviewService(prs, checks, reports, "OpenPublishing.Build", size, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func TestPreviewService_PreviewURL(t *testing.T) {
	prs := &fakePRs{}
	prs.set("sha1", model.PRStatusOpen)
	checks := &fakeChecks{}
	checks.set(model.CheckStateSuccess, reportURL)
	reports := &fakeReports{links: map[string]model.PreviewLinks{
		reportURL: {"articles/a.md": "https://review.learn/a"},
	}}
	svc := newTestPreviewService(t, prs, checks, reports, 0)
	ctx := context.Background()

	url, ok := svc.PreviewURL(ctx, testRef, "articles/a.md")
	require.True(t, ok)
	assert.Equal(t, "https://review.learn/a", url)

	_, ok = svc.PreviewURL(ctx, testRef, "articles/missing.md")
	assert.False(t, ok)

	assert.Equal(t, int32(1), reports.calls.Load(), "second lookup must hit the cache")
	assert.True(t, svc.Cached(testRef, "sha1"))
}

func TestPreviewService_PipelineFailuresCacheNothing(t *testing.T) {
	tests := []struct {
		name    string
		check   *model.StatusCheck
		reports *fakeReports
	}{
		{
			name:    "no check",
			reports: &fakeReports{},
		},
		{
			name:    "pending check",
			check:   &model.StatusCheck{State: model.CheckStatePending, DetailsURL: reportURL},
			reports: &fakeReports{},
		},
		{
			name:    "failed check",
			check:   &model.StatusCheck{State: model.CheckStateFailure, DetailsURL: reportURL},
			reports: &fakeReports{},
		},
		{
			name:    "no report url",
			check:   &model.StatusCheck{State: model.CheckStateSuccess},
			reports: &fakeReports{},
		},
		{
			name:    "report without table",
			check:   &model.StatusCheck{State: model.CheckStateSuccess, DetailsURL: reportURL},
			reports: &fakeReports{},
		},
		{
			name:    "report fetch error",
			check:   &model.StatusCheck{State: model.CheckStateSuccess, DetailsURL: reportURL},
			reports: &fakeReports{err: errors.New("connection reset")},
		},
		{
			name:    "empty link map",
			check:   &model.StatusCheck{State: model.CheckStateSuccess, DetailsURL: reportURL},
			reports: &fakeReports{links: map[string]model.PreviewLinks{reportURL: {}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prs := &fakePRs{}
			prs.set("sha1", model.PRStatusOpen)
			checks := &fakeChecks{check: tt.check}
			svc := newTestPreviewService(t, prs, checks, tt.reports, 0)

			_, ok := svc.PreviewURL(context.Background(), testRef, "a.md")

			assert.False(t, ok)
			assert.Equal(t, 0, svc.Len())
		})
	}
}

func TestPreviewService_UnknownPR(t *testing.T) {
	prs := &fakePRs{}
	checks := &fakeChecks{}
	svc := newTestPreviewService(t, prs, checks, &fakeReports{}, 0)

	_, ok := svc.PreviewURL(context.Background(), testRef, "a.md")

	assert.False(t, ok)
	assert.Equal(t, 0, checks.count())
}

func TestPreviewService_ConcurrentLookupsFetchOnce(t *testing.T) {
	prs := &fakePRs{}
	prs.set("sha1", model.PRStatusOpen)
	checks := &fakeChecks{}
	checks.set(model.CheckStateSuccess, reportURL)
	reports := &fakeReports{
		links: map[string]model.PreviewLinks{reportURL: {"a.md": "https://review.learn/a"}},
		gate:  make(chan struct{}),
	}
	svc := newTestPreviewService(t, prs, checks, reports, 0)
	pr := model.PRInfo{CommitSHA: "sha1", Status: model.PRStatusOpen}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*model.BuildReport, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = svc.Report(context.Background(), testRef, pr, nil)
		}()
	}

	require.Eventually(t, func() bool { return reports.calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(reports.gate)
	wg.Wait()

	assert.Equal(t, int32(1), reports.calls.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "sha1", r.CommitSHA)
	}
}

func TestPreviewService_KnownCheckSkipsLookup(t *testing.T) {
	checks := &fakeChecks{}
	reports := &fakeReports{links: map[string]model.PreviewLinks{reportURL: {"a.md": "u"}}}
	svc := newTestPreviewService(t, &fakePRs{}, checks, reports, 0)
	known := &model.StatusCheck{State: model.CheckStateSuccess, DetailsURL: reportURL}

	report := svc.Report(context.Background(), testRef, model.PRInfo{CommitSHA: "sha1", Status: model.PRStatusMerged}, known)

	require.NotNil(t, report)
	assert.Equal(t, model.PRStatusMerged, report.PRStatus)
	assert.Equal(t, 0, checks.count())
}

func TestPreviewService_LRUEvictsLeastRecentlyUsed(t *testing.T) {
	checks := &fakeChecks{}
	checks.set(model.CheckStateSuccess, reportURL)
	reports := &fakeReports{links: map[string]model.PreviewLinks{reportURL: {"a.md": "u"}}}
	svc := newTestPreviewService(t, &fakePRs{}, checks, reports, 2)
	ctx := context.Background()

	refs := make([]model.RepoRef, 3)
	for i := range refs {
		refs[i] = model.RepoRef{Owner: "o", Repo: fmt.Sprintf("r%d", i), PRNumber: 1}
	}
	report := func(ref model.RepoRef) {
		require.NotNil(t, svc.Report(ctx, ref, model.PRInfo{CommitSHA: "sha", Status: model.PRStatusOpen}, nil))
	}

	report(refs[0])
	report(refs[1])
	report(refs[0]) // touch r0 so r1 is least recently used
	report(refs[2])

	assert.Equal(t, 2, svc.Len())
	assert.True(t, svc.Cached(refs[0], "sha"))
	assert.False(t, svc.Cached(refs[1], "sha"))
	assert.True(t, svc.Cached(refs[2], "sha"))
	assert.Equal(t, int32(3), reports.calls.Load())
}

func TestPreviewService_HeadChangeEvictsPreviousCommit(t *testing.T) {
	checks := &fakeChecks{}
	checks.set(model.CheckStateSuccess, reportURL)
	reports := &fakeReports{links: map[string]model.PreviewLinks{reportURL: {"a.md": "u"}}}
	svc := newTestPreviewService(t, &fakePRs{}, checks, reports, 0)
	ctx := context.Background()

	require.NotNil(t, svc.Report(ctx, testRef, model.PRInfo{CommitSHA: "old", Status: model.PRStatusOpen}, nil))
	require.True(t, svc.Cached(testRef, "old"))

	svc.ObserveHead(testRef, "new")

	assert.False(t, svc.Cached(testRef, "old"))
	assert.Equal(t, 0, svc.Len())
}

func TestPreviewService_StaleResultDiscarded(t *testing.T) {
	checks := &fakeChecks{}
	checks.set(model.CheckStateSuccess, reportURL)
	reports := &fakeReports{
		links: map[string]model.PreviewLinks{reportURL: {"a.md": "u"}},
		gate:  make(chan struct{}),
	}
	svc := newTestPreviewService(t, &fakePRs{}, checks, reports, 0)

	done := make(chan *model.BuildReport)
	go func() {
		done <- svc.Report(context.Background(), testRef, model.PRInfo{CommitSHA: "old", Status: model.PRStatusOpen}, nil)
	}()

	require.Eventually(t, func() bool { return reports.calls.Load() == 1 }, time.Second, time.Millisecond)
	svc.ObserveHead(testRef, "new")
	close(reports.gate)

	assert.NotNil(t, <-done)
	assert.False(t, svc.Cached(testRef, "old"))
}

func TestPreviewService_Invalidate(t *testing.T) {
	checks := &fakeChecks{}
	checks.set(model.CheckStateSuccess, reportURL)
	reports := &fakeReports{links: map[string]model.PreviewLinks{reportURL: {"a.md": "u"}}}
	svc := newTestPreviewService(t, &fakePRs{}, checks, reports, 0)

	require.NotNil(t, svc.Report(context.Background(), testRef, model.PRInfo{CommitSHA: "sha", Status: model.PRStatusOpen}, nil))
	svc.Invalidate(testRef)

	assert.Equal(t, 0, svc.Len())
}

func TestPreviewService_CanceledCallerDoesNotFailJoinedCallers(t *testing.T) {
	reports := &fakeReports{
		links: map[string]model.PreviewLinks{reportURL: {"a.md": "https://review.learn/a"}},
		gate:  make(chan struct{}),
	}
	svc := newTestPreviewService(t, &fakePRs{}, &fakeChecks{}, reports, 0)
	pr := model.PRInfo{CommitSHA: "sha1", Status: model.PRStatusOpen}
	known := &model.StatusCheck{State: model.CheckStateSuccess, DetailsURL: reportURL}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan *model.BuildReport, 1)
	go func() { first <- svc.Report(firstCtx, testRef, pr, known) }()
	require.Eventually(t, func() bool { return reports.calls.Load() == 1 }, time.Second, time.Millisecond)

	cancelFirst()
	select {
	case r := <-first:
		assert.Nil(t, r)
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting")
	}

	second := make(chan *model.BuildReport, 1)
	go func() { second <- svc.Report(context.Background(), testRef, pr, known) }()
	close(reports.gate)

	r := <-second
	require.NotNil(t, r)
	assert.Equal(t, "sha1", r.CommitSHA)
	assert.Equal(t, int32(1), reports.calls.Load())
}
