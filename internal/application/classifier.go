package application

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// OpsConfig describes which repositories publish through the documentation
// build pipeline and how to detect the ones not listed statically.
type OpsConfig struct {
	Org        string   // Every repository of this owner is an OPS repo.
	KnownRepos []string // "owner/repo" entries outside Org.
	ConfigFile string
	RawBaseURL string
	Branch     string
}

// DefaultOpsConfig returns the production detection settings.
func DefaultOpsConfig() OpsConfig {
	return OpsConfig{
		Org:        "MicrosoftDocs",
		KnownRepos: []string{"dotnet/docs", "dotnet/docs-aspire", "dotnet/docs-desktop"},
		ConfigFile: ".openpublishing.publish.config.json",
		RawBaseURL: "https://raw.githubusercontent.com",
		Branch:     "main",
	}
}

// RepoClassifier decides whether a repository is an OPS repo. Confirmed
// verdicts are remembered for the life of the process; ambiguous probe
// outcomes are not.
type RepoClassifier struct {
	prober   driven.ContentProber
	cfg      OpsConfig
	known    map[string]struct{}
	verdicts *cache.Cache
	guard    sync.Mutex
	logger   zerolog.Logger
}

// NewRepoClassifier creates a classifier that probes through prober.
func NewRepoClassifier(prober driven.ContentProber, cfg OpsConfig, logger zerolog.Logger) *RepoClassifier {
	known := make(map[string]struct{}, len(cfg.KnownRepos))
	for _, r := range cfg.KnownRepos {
		known[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}

	return &RepoClassifier{
		prober:   prober,
		cfg:      cfg,
		known:    known,
		verdicts: cache.New(cache.NoExpiration, 0),
		logger:   logger,
	}
}

// IsOpsRepo reports whether ref's repository publishes documentation builds.
// While another classification is running it returns false without probing
// or caching; the next poll corrects the answer.
func (c *RepoClassifier) IsOpsRepo(ctx context.Context, ref model.RepoRef) bool {
	key := ref.RepoKey()

	if c.isStatic(ref) {
		c.verdicts.Set(key, true, cache.NoExpiration)
		return true
	}

	if v, ok := c.verdicts.Get(key); ok {
		return v.(bool)
	}

	if !c.guard.TryLock() {
		c.logger.Debug().Str("repo", key).Msg("classification already running")
		return false
	}
	defer c.guard.Unlock()

	probeURL := c.configURL(ref)
	status, err := c.prober.Probe(ctx, probeURL)
	if err != nil {
		c.logger.Warn().Err(err).Str("repo", key).Msg("ops config probe failed")
		return false
	}

	switch {
	case status >= 200 && status < 300:
		c.verdicts.Set(key, true, cache.NoExpiration)
		return true
	case status == http.StatusNotFound:
		c.verdicts.Set(key, false, cache.NoExpiration)
		return false
	default:
		c.logger.Warn().Str("repo", key).Int("status", status).Msg("ambiguous ops config probe")
		return false
	}
}

// Cached returns the remembered verdict for ref, if any.
func (c *RepoClassifier) Cached(ref model.RepoRef) (verdict, ok bool) {
	v, found := c.verdicts.Get(ref.RepoKey())
	if !found {
		return false, false
	}
	return v.(bool), true
}

// Clear forgets the verdict for ref's repository.
func (c *RepoClassifier) Clear(ref model.RepoRef) {
	c.verdicts.Delete(ref.RepoKey())
}

// ClearAll forgets every verdict.
func (c *RepoClassifier) ClearAll() {
	c.verdicts.Flush()
}

func (c *RepoClassifier) isStatic(ref model.RepoRef) bool {
	if c.cfg.Org != "" && strings.EqualFold(ref.Owner, c.cfg.Org) {
		return true
	}
	_, ok := c.known[ref.RepoKey()]
	return ok
}

func (c *RepoClassifier) configURL(ref model.RepoRef) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		strings.TrimRight(c.cfg.RawBaseURL, "/"),
		url.PathEscape(ref.Owner),
		url.PathEscape(ref.Repo),
		c.cfg.Branch,
		c.cfg.ConfigFile,
	)
}
