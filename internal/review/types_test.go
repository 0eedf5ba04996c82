package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityOrdering(t *testing.T) {
	assert.Equal(t, 0, SeverityBug.Rank())
	assert.Equal(t, 1, SeverityWarning.Rank())
	assert.Equal(t, 2, SeveritySuggestion.Rank())
	assert.Equal(t, 3, SeverityInfo.Rank())
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"bug", SeverityBug},
		{"ERROR", SeverityBug},
		{"critical", SeverityBug},
		{"warning", SeverityWarning},
		{"Warn", SeverityWarning},
		{"suggestion", SeveritySuggestion},
		{"style", SeveritySuggestion},
		{"info", SeverityInfo},
		{"nonsense", SeverityInfo},
		{"", SeverityInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSeverity(tt.in), tt.in)
	}
}

func TestMeetsThresholdMonotonic(t *testing.T) {
	// if rank R meets a threshold, any rank <= R meets it too
	for threshold := SeverityBug; threshold <= SeverityInfo; threshold++ {
		for sev := SeverityBug; sev <= SeverityInfo; sev++ {
			if sev.Meets(threshold) {
				for lower := SeverityBug; lower < sev; lower++ {
					assert.True(t, lower.Meets(threshold),
						"severity %s meets %s but %s does not", sev, threshold, lower)
				}
			}
		}
	}
}

func TestVerdicts(t *testing.T) {
	// fail threshold Warning with surviving [Bug, Suggestion]:
	// the Bug meets the threshold and blocks
	result := &ReviewResult{Findings: []Finding{
		{Severity: SeverityBug},
		{Severity: SeveritySuggestion},
	}}
	assert.True(t, MeetsThreshold(result, SeverityWarning))
	assert.True(t, HasBlockingFinding(result))

	result = &ReviewResult{Findings: []Finding{
		{Severity: SeveritySuggestion},
		{Severity: SeverityInfo},
	}}
	assert.False(t, MeetsThreshold(result, SeverityWarning))
	assert.False(t, HasBlockingFinding(result))

	assert.False(t, MeetsThreshold(&ReviewResult{}, SeverityInfo))
}

func TestStableID(t *testing.T) {
	a := StableID("auth.go", 10, "missing nil check")
	b := StableID("auth.go", 10, "missing nil check")
	c := StableID("auth.go", 11, "missing nil check")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}
