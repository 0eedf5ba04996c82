package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hindsightdev/hindsight/internal/errors"
)

// fakeSleeper records requested delays without sleeping.
type fakeSleeper struct {
	delays []time.Duration
	err    error
}

func (s *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func throttle() error {
	return errors.New(errors.KindProviderThrottled, "rate limited")
}

func reject() error {
	return errors.New(errors.KindProviderRejected, "bad key")
}

func TestMachineTransitions(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Second}
	m := NewMachine(policy, fixedClock(start))

	require.Equal(t, StateAttempting, m.State())
	require.Equal(t, 1, m.Attempt())

	m.Observe(throttle())
	require.Equal(t, StateBackoff, m.State())
	assert.Equal(t, start.Add(time.Second), m.BackoffUntil())

	m.Resume()
	require.Equal(t, StateAttempting, m.State())
	require.Equal(t, 2, m.Attempt())

	m.Observe(throttle())
	require.Equal(t, StateBackoff, m.State())
	// second backoff doubles
	assert.Equal(t, start.Add(2*time.Second), m.BackoffUntil())

	m.Resume()
	m.Observe(nil)
	require.Equal(t, StateSucceeded, m.State())
	assert.Equal(t, 2, m.Retries())
}

func TestMachineFailsAfterMaxAttempts(t *testing.T) {
	m := NewMachine(Policy{MaxAttempts: 2, BaseDelay: time.Second}, nil)
	m.Observe(throttle())
	m.Resume()
	m.Observe(throttle())
	assert.Equal(t, StateFailed, m.State())
}

func TestMachineNonRetryableFailsImmediately(t *testing.T) {
	m := NewMachine(DefaultPolicy(), nil)
	m.Observe(reject())
	assert.Equal(t, StateFailed, m.State())
	assert.Equal(t, 1, m.Attempt())
}

func TestDoRetriesThrottlingThenSucceeds(t *testing.T) {
	// two throttles then success: statistics must report 2 retries
	sleeper := &fakeSleeper{}
	calls := 0
	attempts, err := Do(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Second}, sleeper, nil,
		func(context.Context) error {
			calls++
			if calls <= 2 {
				return throttle()
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, sleeper.delays, 2)
}

func TestDoExhaustionIsGenerationFailed(t *testing.T) {
	sleeper := &fakeSleeper{}
	attempts, err := Do(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, sleeper, nil,
		func(context.Context) error { return throttle() })
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, errors.KindGenerationFailed, errors.KindOf(err))
}

func TestDoNeverRetriesRejection(t *testing.T) {
	sleeper := &fakeSleeper{}
	calls := 0
	attempts, err := Do(context.Background(), DefaultPolicy(), sleeper, nil,
		func(context.Context) error {
			calls++
			return reject()
		})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, errors.KindProviderRejected, errors.KindOf(err))
	assert.Empty(t, sleeper.delays)
}

func TestDoCanceledCallDoesNotRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, DefaultPolicy(), &fakeSleeper{}, nil,
		func(context.Context) error {
			calls++
			cancel()
			return throttle()
		})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoCancellationDuringBackoff(t *testing.T) {
	sleeper := &fakeSleeper{err: context.Canceled}
	calls := 0
	_, err := Do(context.Background(), DefaultPolicy(), sleeper, nil,
		func(context.Context) error {
			calls++
			return throttle()
		})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPolicyDelayCaps(t *testing.T) {
	p := Policy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 4 * time.Second}
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 4*time.Second, p.Delay(4))
}

func TestClassifyStatus(t *testing.T) {
	err := classifyStatus(429, "openai", "slow down")
	assert.Equal(t, errors.KindProviderThrottled, errors.KindOf(err))

	err = classifyStatus(401, "openai", "invalid key sk-proj-abcdef1234567890")
	assert.Equal(t, errors.KindProviderRejected, errors.KindOf(err))
	assert.NotContains(t, err.Error(), "sk-proj-abcdef1234567890")
}
