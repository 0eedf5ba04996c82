package llm

import (
	"context"
	"time"

	"github.com/hindsightdev/hindsight/internal/errors"
)

// State is one node of the per-call retry state machine.
type State int

const (
	StateAttempting State = iota
	StateBackoff
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// Policy tunes retry behavior for one provider call.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy suits free-tier throttling: three attempts, one second
// base delay, doubling per attempt.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// Delay returns the backoff before the given attempt number retries.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Sleeper suspends the current call only; backoff must never block
// unrelated concurrent runs.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper sleeps on a real timer, honoring cancellation.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Machine is the explicit retry state machine for a single call:
// Attempting(n) -> Backoff(n, until) -> Attempting(n+1) -> ... ending in
// Succeeded or Failed. It holds no timers itself; a driver advances it.
type Machine struct {
	policy  Policy
	now     func() time.Time
	state   State
	attempt int
	until   time.Time
}

// NewMachine starts at Attempting(1). The clock is injectable so tests run
// with simulated time.
func NewMachine(policy Policy, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Machine{policy: policy, now: now, state: StateAttempting, attempt: 1}
}

func (m *Machine) State() State            { return m.state }
func (m *Machine) Attempt() int            { return m.attempt }
func (m *Machine) BackoffUntil() time.Time { return m.until }

// Retries is the number of attempts beyond the first.
func (m *Machine) Retries() int { return m.attempt - 1 }

// Observe records an attempt's outcome. Only throttling errors schedule a
// retry; everything else is terminal.
func (m *Machine) Observe(err error) {
	if m.state != StateAttempting {
		return
	}
	switch {
	case err == nil:
		m.state = StateSucceeded
	case errors.IsRetryable(err) && m.attempt < m.policy.MaxAttempts:
		m.until = m.now().Add(m.policy.Delay(m.attempt))
		m.state = StateBackoff
	default:
		m.state = StateFailed
	}
}

// Resume leaves Backoff for the next attempt. The driver calls this after
// the backoff deadline has passed.
func (m *Machine) Resume() {
	if m.state != StateBackoff {
		return
	}
	m.attempt++
	m.state = StateAttempting
}

// Do drives the machine over fn until a terminal state. A canceled context
// never retries: cancellation during an attempt or a backoff surfaces
// immediately. Returns the total attempt count alongside the final error.
func Do(ctx context.Context, policy Policy, sleeper Sleeper, now func() time.Time, fn func(context.Context) error) (int, error) {
	if now == nil {
		now = time.Now
	}
	m := NewMachine(policy, now)
	var lastErr error
	for {
		switch m.State() {
		case StateAttempting:
			lastErr = fn(ctx)
			if lastErr != nil && ctx.Err() != nil {
				return m.Attempt(), ctx.Err()
			}
			m.Observe(lastErr)
		case StateBackoff:
			if err := sleeper.Sleep(ctx, m.BackoffUntil().Sub(now())); err != nil {
				return m.Attempt(), err
			}
			m.Resume()
		case StateSucceeded:
			return m.Attempt(), nil
		case StateFailed:
			if errors.IsRetryable(lastErr) {
				// throttling persisted through every allowed attempt
				return m.Attempt(), errors.Wrap(lastErr, errors.KindGenerationFailed,
					"provider throttling persisted after retries")
			}
			return m.Attempt(), lastErr
		}
	}
}
