package application

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// Attempt budget bounds for status-check style retries.
const (
	MinRetryAttempts = 3
	MaxRetryAttempts = 5
)

// RetryPolicy parameterizes the exponential backoff used around flaky
// upstream lookups. Delays double (Factor) from InitialDelay with no jitter,
// so the total wait for n attempts is deterministic.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	Factor       float64
}

// DefaultRetryPolicy returns 3 attempts starting at 2s and doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: MinRetryAttempts, InitialDelay: 2 * time.Second, Factor: 2}
}

// Clamped returns the policy with Attempts forced into [MinRetryAttempts,
// MaxRetryAttempts] and non-positive delay or factor replaced by defaults.
func (p RetryPolicy) Clamped() RetryPolicy {
	def := DefaultRetryPolicy()
	p.Attempts = min(max(p.Attempts, MinRetryAttempts), MaxRetryAttempts)
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.Factor < 1 {
		p.Factor = def.Factor
	}
	return p
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.Multiplier = p.Factor
	b.RandomizationFactor = 0
	b.MaxInterval = 10 * time.Minute
	b.MaxElapsedTime = 0
	return b
}

// Retrier runs operations under a RetryPolicy. NewTimer may be set to swap the
// backoff timer (tests use it to observe waits without sleeping).
type Retrier struct {
	Policy   RetryPolicy
	NewTimer func() backoff.Timer
	Logger   zerolog.Logger
}

// Retry calls op until it succeeds, returns an error isRetryable rejects, the
// attempt budget is exhausted, or ctx is done. The last error is returned.
// A nil isRetryable retries every error.
func Retry[T any](ctx context.Context, r Retrier, isRetryable func(error) bool, op func(context.Context) (T, error)) (T, error) {
	var result T

	operation := func() error {
		v, err := op(ctx)
		if err != nil {
			if isRetryable != nil && !isRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}

	// A single attempt never waits.
	if r.Policy.Attempts <= 1 {
		if err := operation(); err != nil {
			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				return result, perm.Err
			}
			return result, err
		}
		return result, nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(r.Policy.backOff(), uint64(r.Policy.Attempts-1)),
		ctx,
	)

	notify := func(err error, wait time.Duration) {
		r.Logger.Debug().Err(err).Dur("wait", wait).Msg("retrying")
	}

	var timer backoff.Timer
	if r.NewTimer != nil {
		timer = r.NewTimer()
	}

	if err := backoff.RetryNotifyWithTimer(operation, b, notify, timer); err != nil {
		return result, err
	}
	return result, nil
}

// isTransient reports whether a GitHub lookup error is worth retrying.
// Authentication, not-found and cancellation are final.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, driven.ErrUnauthorized),
		errors.Is(err, driven.ErrNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}
