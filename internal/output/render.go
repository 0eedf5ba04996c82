// Package output renders a ReviewResult for terminals, markdown comment
// bodies, and machine consumers.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hindsightdev/hindsight/internal/review"
)

// FormatJSON renders the full result, statistics included.
func FormatJSON(result *review.ReviewResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatText renders a terminal-friendly report.
func FormatText(result *review.ReviewResult) string {
	var b strings.Builder
	if result.Summary != "" {
		b.WriteString(result.Summary)
		b.WriteString("\n\n")
	}
	if len(result.Findings) == 0 {
		b.WriteString("No findings.\n")
	}
	for _, f := range result.Findings {
		location := f.File
		if f.Line > 0 {
			location = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		fmt.Fprintf(&b, "[%s] %s\n  %s\n", strings.ToUpper(f.Severity.String()), location, f.Message)
		if f.Suggestion != "" {
			fmt.Fprintf(&b, "  suggestion: %s\n", f.Suggestion)
		}
	}
	s := result.Stats
	fmt.Fprintf(&b, "\n%d generated, %d reflected out, %d deduplicated, %d suppressed, %d final",
		s.Generated, s.ReflectedOut, s.Deduplicated, s.Suppressed, s.Final)
	if s.Retries > 0 {
		fmt.Fprintf(&b, " (%d provider retries)", s.Retries)
	}
	if s.HistoryDegraded {
		b.WriteString("\nwarning: repository history was unavailable; review ran without history context")
	}
	b.WriteString("\n")
	return b.String()
}

// FormatMarkdown renders a report suitable for a pull-request comment.
func FormatMarkdown(result *review.ReviewResult) string {
	var b strings.Builder
	b.WriteString("## Review findings\n\n")
	if result.Summary != "" {
		b.WriteString(result.Summary)
		b.WriteString("\n\n")
	}
	if len(result.Findings) == 0 {
		b.WriteString("No findings.\n")
		return b.String()
	}
	b.WriteString("| Severity | Location | Finding |\n|---|---|---|\n")
	for _, f := range result.Findings {
		location := f.File
		if f.Line > 0 {
			location = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		fmt.Fprintf(&b, "| %s | `%s` | %s |\n", f.Severity, location, escapePipes(f.Message))
	}
	s := result.Stats
	fmt.Fprintf(&b, "\n<sub>%d generated, %d filtered to %d final</sub>\n",
		s.Generated, s.Generated-s.Final, s.Final)
	return b.String()
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
