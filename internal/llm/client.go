// Package llm provides a provider-agnostic text-completion client with
// retry/backoff, request pacing, and per-run telemetry. The pipeline never
// branches on provider identity outside this package.
package llm

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/hindsightdev/hindsight/internal/config"
	"github.com/hindsightdev/hindsight/internal/errors"
	"github.com/hindsightdev/hindsight/internal/logging"
)

// Request is one completion call.
type Request struct {
	System    string
	Prompt    string
	JSON      bool // ask the provider for a JSON-only response
	MaxTokens int
}

// Completer is the uniform completion contract the pipeline consumes.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// backend is a single-provider adapter. Adapters classify their own errors
// (throttled vs rejected) and sanitize any provider error text.
type backend interface {
	Completer
	Name() string
}

// Stats counts provider activity for one client's lifetime.
type Stats struct {
	requests atomic.Int64
	retries  atomic.Int64
}

func (s *Stats) Requests() int64 { return s.requests.Load() }
func (s *Stats) Retries() int64  { return s.retries.Load() }

// Client wraps a backend with retry, pacing, and telemetry.
type Client struct {
	backend backend
	policy  Policy
	sleeper Sleeper
	limiter *rate.Limiter
	logger  *slog.Logger
	stats   Stats
}

// New selects and configures the backend named by cfg.
func New(ctx context.Context, cfg config.ProviderConfig) (*Client, error) {
	logger := logging.For("llm")

	var (
		b   backend
		err error
	)
	switch cfg.Name {
	case "openai":
		b = newOpenAIBackend(cfg)
	case "gemini":
		b, err = newGeminiBackend(ctx, cfg)
	case "compat":
		b, err = newCompatBackend(cfg)
	default:
		return nil, errors.ConfigErrorf("provider.name %q is not supported", cfg.Name)
	}
	if err != nil {
		return nil, err
	}

	policy := DefaultPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxAttempts = cfg.MaxRetries
	}
	if cfg.BaseBackoff > 0 {
		policy.BaseDelay = cfg.BaseBackoff
	}

	var limiter *rate.Limiter
	if cfg.RatePerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMin)/60.0), 1)
	}

	logger.Info("provider client initialized",
		"provider", b.Name(), "model", cfg.Model, "max_attempts", policy.MaxAttempts)

	return &Client{
		backend: b,
		policy:  policy,
		sleeper: TimerSleeper{},
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Complete runs one completion with pacing and retry. Throttling errors
// are retried with exponential backoff; rejection errors surface at once.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	c.stats.requests.Add(1)
	var out string
	attempts, err := Do(ctx, c.policy, c.sleeper, nil, func(ctx context.Context) error {
		text, callErr := c.backend.Complete(ctx, req)
		if callErr != nil {
			return callErr
		}
		out = text
		return nil
	})
	if attempts > 1 {
		c.stats.retries.Add(int64(attempts - 1))
	}
	if err != nil {
		c.logger.Warn("completion failed",
			"provider", c.backend.Name(), "attempts", attempts, "error", err)
		return "", err
	}
	c.logger.Debug("completion ok",
		"provider", c.backend.Name(), "attempts", attempts, "response_length", len(out))
	return out, nil
}

// Stats exposes the telemetry counters.
func (c *Client) Stats() *Stats { return &c.stats }

// classifyStatus maps an HTTP status to the error taxonomy. Only 429 is
// retryable.
func classifyStatus(status int, provider, body string) error {
	msg := errors.Sanitize(body)
	if status == 429 {
		return errors.Newf(errors.KindProviderThrottled, "%s throttled: %s", provider, msg)
	}
	return errors.Newf(errors.KindProviderRejected, "%s rejected request (status %d): %s", provider, status, msg)
}
