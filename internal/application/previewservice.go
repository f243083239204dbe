package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// DefaultCacheSize bounds the number of cached build reports.
const DefaultCacheSize = 50

// prInfoResolver is the subset of PRResolver the cache needs.
type prInfoResolver interface {
	PRInfo(ctx context.Context, owner, repo string, number int) *model.PRInfo
}

// statusCheckLocator is the subset of StatusLocator the cache needs.
type statusCheckLocator interface {
	SpecificStatusCheck(ctx context.Context, owner, repo, sha, name string) *model.StatusCheck
}

// PreviewService resolves preview URLs for files in a pull request. Build
// reports are cached per commit in a bounded LRU, and at most one resolution
// pipeline runs per commit at a time.
type PreviewService struct {
	prs       prInfoResolver
	checks    statusCheckLocator
	reports   driven.ReportSource
	checkName string
	logger    zerolog.Logger
	now       func() time.Time

	cache *lru.Cache[string, *model.BuildReport]
	group singleflight.Group

	mu    sync.Mutex
	heads map[string]string // PR key -> last observed head SHA
}

// NewPreviewService creates a PreviewService holding up to size reports.
func NewPreviewService(
	prs prInfoResolver,
	checks statusCheckLocator,
	reports driven.ReportSource,
	checkName string,
	size int,
	logger zerolog.Logger,
) (*PreviewService, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *model.BuildReport](size)
	if err != nil {
		return nil, fmt.Errorf("create report cache: %w", err)
	}

	return &PreviewService{
		prs:       prs,
		checks:    checks,
		reports:   reports,
		checkName: checkName,
		logger:    logger,
		now:       time.Now,
		cache:     cache,
		heads:     make(map[string]string),
	}, nil
}

// PreviewURL returns the preview URL of file in the PR's current head commit.
// It returns false when the PR, its build or the file's entry is unavailable.
func (s *PreviewService) PreviewURL(ctx context.Context, ref model.RepoRef, file string) (string, bool) {
	pr := s.headCommit(ctx, ref)
	if pr == nil {
		return "", false
	}
	return s.Report(ctx, ref, *pr, nil).Lookup(file)
}

// Report returns the build report for pr's head commit, resolving it if it
// is not cached. A known successful check skips the status lookup. The
// result is nil when the pipeline fails.
func (s *PreviewService) Report(ctx context.Context, ref model.RepoRef, pr model.PRInfo, known *model.StatusCheck) *model.BuildReport {
	s.ObserveHead(ref, pr.CommitSHA)
	key := ref.CommitKey(pr.CommitSHA)

	if report, ok := s.cache.Get(key); ok {
		return report
	}

	v, err, shared := s.do(ctx, key, func(ctx context.Context) (any, error) {
		// A caller that finished between our miss and joining may have filled it.
		if report, ok := s.cache.Get(key); ok {
			return report, nil
		}
		report, err := s.resolve(ctx, ref, pr, known)
		if err != nil {
			return nil, err
		}
		s.store(ref, key, report)
		return report, nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("key", key).Bool("shared", shared).Msg("no build report")
		return nil
	}
	return v.(*model.BuildReport)
}

// ObserveHead records sha as ref's current head and evicts the report cached
// for the previous head.
func (s *PreviewService) ObserveHead(ref model.RepoRef, sha string) {
	if !ref.IsPullRequest() || sha == "" {
		return
	}

	s.mu.Lock()
	prev := s.heads[ref.PRKey()]
	s.heads[ref.PRKey()] = sha
	s.mu.Unlock()

	if prev != "" && prev != sha {
		s.cache.Remove(ref.CommitKey(prev))
		s.logger.Debug().Str("pr", ref.PRKey()).Str("old", prev).Str("new", sha).Msg("head moved; cached report evicted")
	}
}

// Invalidate drops the cached report for ref's last observed head.
func (s *PreviewService) Invalidate(ref model.RepoRef) {
	s.mu.Lock()
	sha := s.heads[ref.PRKey()]
	delete(s.heads, ref.PRKey())
	s.mu.Unlock()

	if sha != "" {
		s.cache.Remove(ref.CommitKey(sha))
	}
}

// Cached reports whether a report for sha is cached without touching its
// recency.
func (s *PreviewService) Cached(ref model.RepoRef, sha string) bool {
	return s.cache.Contains(ref.CommitKey(sha))
}

// Len returns the number of cached reports.
func (s *PreviewService) Len() int {
	return s.cache.Len()
}

func (s *PreviewService) headCommit(ctx context.Context, ref model.RepoRef) *model.PRInfo {
	if !ref.IsPullRequest() {
		return nil
	}
	v, _, _ := s.do(ctx, "pr:"+ref.PRKey(), func(ctx context.Context) (any, error) {
		return s.prs.PRInfo(ctx, ref.Owner, ref.Repo, ref.PRNumber), nil
	})
	pr, _ := v.(*model.PRInfo)
	return pr
}

// do runs fn once per key across concurrent callers. fn runs detached from
// the first caller's cancellation so joined callers are not failed by it; a
// canceled caller stops waiting and gets its context error.
func (s *PreviewService) do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error, bool) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err, res.Shared
	case <-ctx.Done():
		return nil, ctx.Err(), false
	}
}

var (
	errNoCheck        = errors.New("status check not found")
	errCheckNotPassed = errors.New("status check not successful")
	errNoReportURL    = errors.New("status check has no report URL")
)

func (s *PreviewService) resolve(ctx context.Context, ref model.RepoRef, pr model.PRInfo, known *model.StatusCheck) (*model.BuildReport, error) {
	check := known
	if check == nil {
		check = s.checks.SpecificStatusCheck(ctx, ref.Owner, ref.Repo, pr.CommitSHA, s.checkName)
	}

	switch {
	case check == nil:
		return nil, errNoCheck
	case !check.IsTerminalSuccess():
		return nil, fmt.Errorf("%w: %s", errCheckNotPassed, check.State)
	case check.DetailsURL == "":
		return nil, errNoReportURL
	}

	links, err := s.reports.FetchPreviewLinks(ctx, check.DetailsURL)
	if err != nil {
		if !errors.Is(err, driven.ErrNoPreviewLinks) {
			s.logger.Warn().Err(err).Str("report", check.DetailsURL).Msg("failed to fetch build report")
		}
		return nil, err
	}
	if len(links) == 0 {
		return nil, driven.ErrNoPreviewLinks
	}

	return &model.BuildReport{
		CommitSHA: pr.CommitSHA,
		PRStatus:  pr.Status,
		Links:     links,
		FetchedAt: s.now(),
	}, nil
}

// store caches report unless ref's head moved on while it was resolved.
func (s *PreviewService) store(ref model.RepoRef, key string, report *model.BuildReport) {
	if ref.IsPullRequest() {
		s.mu.Lock()
		head := s.heads[ref.PRKey()]
		s.mu.Unlock()
		if head != "" && head != report.CommitSHA {
			s.logger.Debug().Str("key", key).Str("head", head).Msg("discarding stale build report")
			return
		}
	}

	if evicted := s.cache.Add(key, report); evicted {
		s.logger.Debug().Str("key", key).Msg("report cache full; least recently used entry evicted")
	}
}
