package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/learnpreview/internal/domain/port/driven"
)

// fakeTimer records every requested wait and fires immediately.
type fakeTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{c: make(chan time.Time, 1)}
}

func (f *fakeTimer) Start(d time.Duration) {
	f.waits = append(f.waits, d)
	f.c <- time.Time{}
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time { return f.c }

func (f *fakeTimer) total() time.Duration {
	var sum time.Duration
	for _, w := range f.waits {
		sum += w
	}
	return sum
}

func testRetrier(policy RetryPolicy, timer *fakeTimer) Retrier {
	return Retrier{
		Policy:   policy,
		NewTimer: func() backoff.Timer { return timer },
		Logger:   zerolog.Nop(),
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	timer := newFakeTimer()
	calls := 0

	got, err := Retry(context.Background(), testRetrier(DefaultRetryPolicy(), timer), nil,
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("flaky")
			}
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, timer.waits)
}

func TestRetry_ExhaustsBudget(t *testing.T) {
	tests := []struct {
		attempts int
		waits    []time.Duration
	}{
		{attempts: 3, waits: []time.Duration{2 * time.Second, 4 * time.Second}},
		{attempts: 5, waits: []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d attempts", tt.attempts), func(t *testing.T) {
			timer := newFakeTimer()
			policy := RetryPolicy{Attempts: tt.attempts, InitialDelay: 2 * time.Second, Factor: 2}
			calls := 0

			_, err := Retry(context.Background(), testRetrier(policy, timer), nil,
				func(context.Context) (int, error) {
					calls++
					return 0, fmt.Errorf("attempt %d", calls)
				})

			require.Error(t, err)
			assert.Equal(t, fmt.Sprintf("attempt %d", tt.attempts), err.Error())
			assert.Equal(t, tt.attempts, calls)
			assert.Equal(t, tt.waits, timer.waits)
		})
	}
}

func TestRetry_PermanentErrorStopsImmediately(t *testing.T) {
	timer := newFakeTimer()
	calls := 0

	_, err := Retry(context.Background(), testRetrier(DefaultRetryPolicy(), timer), isTransient,
		func(context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("fetch: %w", driven.ErrUnauthorized)
		})

	assert.ErrorIs(t, err, driven.ErrUnauthorized)
	assert.Equal(t, 1, calls)
	assert.Empty(t, timer.waits)
}

func TestRetry_SingleAttempt(t *testing.T) {
	timer := newFakeTimer()
	calls := 0

	_, err := Retry(context.Background(), testRetrier(RetryPolicy{Attempts: 1}, timer), isTransient,
		func(context.Context) (int, error) {
			calls++
			return 0, driven.ErrNotFound
		})

	assert.ErrorIs(t, err, driven.ErrNotFound)
	assert.Equal(t, 1, calls)
	assert.Empty(t, timer.waits)
}

func TestRetry_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Retry(ctx, testRetrier(DefaultRetryPolicy(), newFakeTimer()), nil,
		func(context.Context) (int, error) { return 0, errors.New("flaky") })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicy_Clamped(t *testing.T) {
	tests := []struct {
		name   string
		input  RetryPolicy
		expect RetryPolicy
	}{
		{name: "too few", input: RetryPolicy{Attempts: 1, InitialDelay: time.Second, Factor: 3}, expect: RetryPolicy{Attempts: 3, InitialDelay: time.Second, Factor: 3}},
		{name: "too many", input: RetryPolicy{Attempts: 9, InitialDelay: time.Second, Factor: 2}, expect: RetryPolicy{Attempts: 5, InitialDelay: time.Second, Factor: 2}},
		{name: "zero values", input: RetryPolicy{}, expect: DefaultRetryPolicy()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.input.Clamped())
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.False(t, isTransient(fmt.Errorf("x: %w", driven.ErrUnauthorized)))
	assert.False(t, isTransient(fmt.Errorf("x: %w", driven.ErrNotFound)))
	assert.False(t, isTransient(context.Canceled))
	assert.True(t, isTransient(errors.New("502 bad gateway")))
}
