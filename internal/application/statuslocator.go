package application

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ericfisherdev/learnpreview/internal/domain/model"
	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// errNoMatchingCheck marks an attempt that found no status with the wanted
// name. It is retried like a transport error.
var errNoMatchingCheck = errors.New("no matching status check")

// StatusLocator finds a named status check on a commit.
type StatusLocator struct {
	gh      driven.GitHubClient
	retrier Retrier
	logger  zerolog.Logger
}

// NewStatusLocator creates a StatusLocator.
func NewStatusLocator(gh driven.GitHubClient, retrier Retrier, logger zerolog.Logger) *StatusLocator {
	return &StatusLocator{gh: gh, retrier: retrier, logger: logger}
}

// SpecificStatusCheck returns the status on sha whose context contains name
// (case-insensitive), retrying with backoff while none matches. It returns
// nil once the attempt budget is spent.
func (l *StatusLocator) SpecificStatusCheck(ctx context.Context, owner, repo, sha, name string) *model.StatusCheck {
	check, err := Retry(ctx, l.retrier, isTransient, func(ctx context.Context) (*model.StatusCheck, error) {
		statuses, err := l.gh.FetchCombinedStatus(ctx, owner, repo, sha)
		if err != nil {
			return nil, err
		}
		if c := matchStatusCheck(statuses, name); c != nil {
			return c, nil
		}
		return nil, errNoMatchingCheck
	})
	if err != nil {
		l.logger.Info().Err(err).
			Str("repo", owner+"/"+repo).
			Str("sha", sha).
			Str("check", name).
			Msg("status check not found")
		return nil
	}
	return check
}

// matchStatusCheck picks the most recently updated status whose context
// contains name. Equal timestamps keep API order.
func matchStatusCheck(statuses []model.CommitStatus, name string) *model.StatusCheck {
	needle := strings.ToLower(name)

	var best *model.CommitStatus
	for i := range statuses {
		s := &statuses[i]
		if !strings.Contains(strings.ToLower(s.Context), needle) {
			continue
		}
		if best == nil || s.UpdatedAt.After(best.UpdatedAt) {
			best = s
		}
	}

	if best == nil {
		return nil
	}
	return &model.StatusCheck{
		Name:       best.Context,
		State:      model.CheckState(strings.ToLower(best.State)),
		DetailsURL: best.TargetURL,
	}
}
