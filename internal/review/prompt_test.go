package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFence(tt.in))
	}
}

func TestBuildGenerationPromptSections(t *testing.T) {
	prompt := BuildGenerationPrompt(PromptInput{
		Diff:       "+ added line",
		History:    "Change hotspots:\n- a.go\n",
		Structural: "a.go: entry point",
		SearchHits: "similar code in b.go",
		MultiFile:  true,
	})
	assert.Contains(t, prompt, "history signals")
	assert.Contains(t, prompt, "+ added line")
	assert.Contains(t, prompt, "a.go: entry point")
	assert.Contains(t, prompt, "similar code in b.go")
	assert.Contains(t, prompt, "spans multiple files")
	assert.Contains(t, prompt, `"findings"`)

	// omitted sections leave no headers behind
	bare := BuildGenerationPrompt(PromptInput{Diff: "+ x"})
	assert.NotContains(t, bare, "history signals")
	assert.NotContains(t, bare, "Structural summary")
	assert.NotContains(t, bare, "spans multiple files")
}

func TestBuildReflectionPromptIndexesFindings(t *testing.T) {
	findings := []Finding{
		{File: "a.go", Line: 1, Severity: SeverityBug, Message: "first"},
		{File: "b.go", Line: 2, Severity: SeverityInfo, Message: "second"},
	}
	prompt := BuildReflectionPrompt("+ diff", findings)
	assert.Contains(t, prompt, "0. [bug] a.go:1 first")
	assert.Contains(t, prompt, "1. [info] b.go:2 second")
	assert.Contains(t, prompt, `"evaluations"`)
}
