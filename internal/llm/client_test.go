package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hindsightdev/hindsight/internal/errors"
	"github.com/hindsightdev/hindsight/internal/logging"
)

// flakyBackend throttles a fixed number of times before succeeding.
type flakyBackend struct {
	failures int
	calls    int
}

func (b *flakyBackend) Name() string { return "flaky" }

func (b *flakyBackend) Complete(context.Context, Request) (string, error) {
	b.calls++
	if b.calls <= b.failures {
		return "", errors.New(errors.KindProviderThrottled, "throttled")
	}
	return "ok", nil
}

func newTestClient(b backend, maxAttempts int) *Client {
	return &Client{
		backend: b,
		policy:  Policy{MaxAttempts: maxAttempts, BaseDelay: time.Microsecond},
		sleeper: &fakeSleeper{},
		logger:  logging.For("llm"),
	}
}

func TestClientRetriesAndCountsTelemetry(t *testing.T) {
	b := &flakyBackend{failures: 2}
	c := newTestClient(b, 3)

	out, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int64(1), c.Stats().Requests())
	assert.Equal(t, int64(2), c.Stats().Retries())
}

func TestClientExhaustionSurfacesGenerationFailed(t *testing.T) {
	b := &flakyBackend{failures: 10}
	c := newTestClient(b, 3)

	_, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, errors.KindGenerationFailed, errors.KindOf(err))
	assert.Equal(t, 3, b.calls)
	assert.Equal(t, int64(2), c.Stats().Retries())
}

type rejectingBackend struct{ calls int }

func (b *rejectingBackend) Name() string { return "rejecting" }

func (b *rejectingBackend) Complete(context.Context, Request) (string, error) {
	b.calls++
	return "", errors.New(errors.KindProviderRejected, "bad credentials")
}

func TestClientDoesNotRetryRejection(t *testing.T) {
	b := &rejectingBackend{}
	c := newTestClient(b, 5)

	_, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, 1, b.calls)
	assert.Zero(t, c.Stats().Retries())
}
