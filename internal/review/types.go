// Package review implements the review orchestration pipeline: finding
// generation, self-reflection filtering, deduplication, severity
// classification, and the run state machine that sequences them.
package review

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Severity ranks findings. Lower rank is more severe.
type Severity int

const (
	SeverityBug Severity = iota
	SeverityWarning
	SeveritySuggestion
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityBug:
		return "bug"
	case SeverityWarning:
		return "warning"
	case SeveritySuggestion:
		return "suggestion"
	default:
		return "info"
	}
}

// Rank exposes the numeric ordering (Bug=0, Warning=1, Suggestion=2, Info=3).
func (s Severity) Rank() int { return int(s) }

// Meets reports whether this severity is at least as severe as threshold.
func (s Severity) Meets(threshold Severity) bool { return s.Rank() <= threshold.Rank() }

// ParseSeverity maps provider output to a Severity. Unknown strings fall
// back to Info so a sloppy provider response never inflates severity.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bug", "error", "critical":
		return SeverityBug
	case "warning", "warn":
		return SeverityWarning
	case "suggestion", "refactor", "style":
		return SeveritySuggestion
	default:
		return SeverityInfo
	}
}

// MarshalText renders the severity name in JSON and YAML output.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText accepts any spelling ParseSeverity accepts.
func (s *Severity) UnmarshalText(text []byte) error {
	*s = ParseSeverity(string(text))
	return nil
}

// Finding is one review observation.
type Finding struct {
	ID              string   `json:"id"`
	File            string   `json:"file"`
	Line            int      `json:"line,omitempty"`
	Severity        Severity `json:"severity"`
	Message         string   `json:"message"`
	Suggestion      string   `json:"suggestion,omitempty"`
	Confidence      float64  `json:"confidence"` // 0-100
	Provenance      []string `json:"provenance"`
	ReflectionScore int      `json:"reflection_score,omitempty"` // 0 when unscored
}

// StableID derives the identifier used for feedback correlation and
// deduplication. Stable across runs for the same file, line, and message.
func StableID(file string, line int, message string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", file, line, message)))
	return hex.EncodeToString(sum[:])[:16]
}

// FilterReason explains why a finding was removed after generation.
type FilterReason string

const (
	ReasonReflectionScore FilterReason = "reflection_score_below_threshold"
	ReasonDuplicate       FilterReason = "duplicate"
	ReasonSuppressed      FilterReason = "pattern_suppressed_by_feedback"
	ReasonSeverityFilter  FilterReason = "severity_not_in_allowed_set"
	ReasonLowConfidence   FilterReason = "confidence_below_minimum"
	ReasonOverflow        FilterReason = "max_findings_exceeded"
)

// FilteredFinding records a removed finding with its reason, so callers
// can audit what the noise reduction discarded.
type FilteredFinding struct {
	Finding Finding      `json:"finding"`
	Reason  FilterReason `json:"reason"`
}

// Stats are the per-stage counters surfaced on every result.
type Stats struct {
	Generated       int  `json:"generated"`
	ReflectedOut    int  `json:"reflected_out"`
	Deduplicated    int  `json:"deduplicated"`
	Suppressed      int  `json:"suppressed"`
	Filtered        int  `json:"filtered"`
	Final           int  `json:"final"`
	Retries         int  `json:"retries"`
	HistoryDegraded bool `json:"history_degraded"`
}

// ReviewResult is the ordered, classified outcome of one run.
type ReviewResult struct {
	RunID     string            `json:"run_id"`
	CreatedAt time.Time         `json:"created_at"`
	Findings  []Finding         `json:"findings"`
	Filtered  []FilteredFinding `json:"filtered,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Stats     Stats             `json:"stats"`
}

// MeetsThreshold reports whether any surviving finding is at least as
// severe as the threshold. A Warning threshold admits Bug and Warning
// findings but not Suggestion or Info.
func MeetsThreshold(result *ReviewResult, threshold Severity) bool {
	for _, f := range result.Findings {
		if f.Severity.Meets(threshold) {
			return true
		}
	}
	return false
}

// HasBlockingFinding reports whether any surviving finding is Bug-level.
func HasBlockingFinding(result *ReviewResult) bool {
	return MeetsThreshold(result, SeverityBug)
}
