package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	repo := t.TempDir()
	result := &ReviewResult{
		RunID:     "run-1",
		CreatedAt: time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC),
		Findings: []Finding{
			{ID: "abc", File: "a.go", Line: 3, Severity: SeverityBug, Message: "issue", Confidence: 95},
		},
	}
	require.NoError(t, SaveState(repo, result, "deadbeef"))

	state, err := LoadState(repo)
	require.NoError(t, err)
	assert.Equal(t, "run-1", state.RunID)
	assert.Equal(t, "deadbeef", state.Commit)
	require.Len(t, state.Findings, 1)
	assert.Equal(t, SeverityBug, state.Findings[0].Severity)
}

func TestLoadStateMissing(t *testing.T) {
	_, err := LoadState(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no review state")
}

func TestSaveStateOverwrites(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, SaveState(repo, &ReviewResult{RunID: "one"}, ""))
	require.NoError(t, SaveState(repo, &ReviewResult{RunID: "two"}, ""))

	state, err := LoadState(repo)
	require.NoError(t, err)
	assert.Equal(t, "two", state.RunID)
}
