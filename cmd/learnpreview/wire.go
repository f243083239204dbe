package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ericfisherdev/learnpreview/internal/adapter/driven/buildreport"
	githubadapter "github.com/ericfisherdev/learnpreview/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/learnpreview/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/learnpreview/internal/application"
	"github.com/ericfisherdev/learnpreview/internal/config"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// services is the wired preview pipeline shared by the commands.
type services struct {
	db         *sqliteadapter.DB
	creds      *application.CredentialService
	provider   *application.GitHubClientProvider
	classifier *application.RepoClassifier
	prs        *application.PRResolver
	checks     *application.StatusLocator
	previews   *application.PreviewService
	cfg        *config.Config
	logger     zerolog.Logger
}

func newClassifier(cfg *config.Config, logger zerolog.Logger) *application.RepoClassifier {
	prober := githubadapter.NewRawContentProber(&http.Client{Timeout: 10 * time.Second})
	return application.NewRepoClassifier(prober, application.OpsConfig{
		Org:        cfg.Ops.Org,
		KnownRepos: cfg.Ops.KnownRepos,
		ConfigFile: cfg.Ops.ConfigFile,
		RawBaseURL: cfg.Ops.RawBaseURL,
		Branch:     cfg.Ops.Branch,
	}, logger.With().Str("component", "classifier").Logger())
}

// newServices opens the credential store and wires the resolvers. Callers
// must Close the result.
func newServices(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*services, error) {
	db, err := sqliteadapter.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	key, err := cfg.SecretKeyBytes()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store, err := sqliteadapter.NewCredentialRepo(db, key)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if key == nil {
		logger.Warn().Msg("secret_key not set; tokens are kept in memory only")
	}

	creds := application.NewCredentialService(store, cfg.GitHub.Token, logger.With().Str("component", "credentials").Logger())
	if err := creds.Load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	ghLogger := logger.With().Str("component", "github").Logger()
	provider := application.NewGitHubClientProvider(func(token string) driven.GitHubClient {
		return githubadapter.NewClient(token, ghLogger)
	}, creds.Token())
	creds.OnChange(provider.Rebuild)
	creds.SetVerifier(githubadapter.NewVerifier(ghLogger))

	retrier := application.Retrier{
		Policy: application.RetryPolicy{
			Attempts:     cfg.Retry.Attempts,
			InitialDelay: cfg.Retry.InitialDelay,
			Factor:       cfg.Retry.Factor,
		}.Clamped(),
		Logger: logger.With().Str("component", "retry").Logger(),
	}

	prs := application.NewPRResolver(provider, creds, retrier, logger.With().Str("component", "pr_resolver").Logger())
	checks := application.NewStatusLocator(provider, retrier, logger.With().Str("component", "status_locator").Logger())
	reports := buildreport.NewSource(buildreport.NewFetcher(nil), logger.With().Str("component", "build_report").Logger())

	previews, err := application.NewPreviewService(prs, checks, reports, cfg.CheckName, cfg.CacheSize,
		logger.With().Str("component", "preview_cache").Logger())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &services{
		db:         db,
		creds:      creds,
		provider:   provider,
		classifier: newClassifier(cfg, logger),
		prs:        prs,
		checks:     checks,
		previews:   previews,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

func (s *services) newButtonManager(opener driven.URLOpener) *application.ButtonManager {
	return application.NewButtonManager(application.ButtonManagerConfig{
		PRs:       s.prs,
		Checks:    s.checks,
		Previews:  s.previews,
		Creds:     s.creds,
		Opener:    opener,
		CheckName: s.cfg.CheckName,
		Interval:  s.cfg.PollInterval,
		Logger:    s.logger.With().Str("component", "buttons").Logger(),
	})
}

func (s *services) Close() error {
	return s.db.Close()
}
