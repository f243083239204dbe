package application

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// credentialInvalidator purges a credential the API rejected.
type credentialInvalidator interface {
	Invalidate(ctx context.Context)
}

// PRResolver looks up a pull request's head commit and status.
type PRResolver struct {
	gh      driven.GitHubClient
	creds   credentialInvalidator
	retrier Retrier
	logger  zerolog.Logger
}

// NewPRResolver creates a PRResolver. creds may be nil.
func NewPRResolver(gh driven.GitHubClient, creds credentialInvalidator, retrier Retrier, logger zerolog.Logger) *PRResolver {
	return &PRResolver{gh: gh, creds: creds, retrier: retrier, logger: logger}
}

// PRInfo returns the PR's head SHA and status, or nil when it cannot be
// determined. A rejected credential is purged as a side effect.
func (r *PRResolver) PRInfo(ctx context.Context, owner, repo string, number int) *model.PRInfo {
	info, err := Retry(ctx, r.retrier, isTransient, func(ctx context.Context) (*model.PRInfo, error) {
		return r.gh.FetchPullRequest(ctx, owner, repo, number)
	})
	if err == nil {
		return info
	}

	log := r.logger.With().Str("repo", owner+"/"+repo).Int("pr", number).Logger()

	switch {
	case errors.Is(err, driven.ErrUnauthorized):
		log.Warn().Err(err).Msg("github rejected the token")
		if r.creds != nil {
			r.creds.Invalidate(ctx)
		}
	case errors.Is(err, driven.ErrNotFound):
		log.Info().Msg("pull request not found")
	default:
		log.Error().Err(err).Msg("failed to resolve pull request")
	}
	return nil
}
