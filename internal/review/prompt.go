package review

import (
	"fmt"
	"strings"
)

const generationSystem = `You are an expert code reviewer. You find real defects: bugs, race conditions, security problems, broken error handling, and misleading APIs. You do not comment on style, formatting, or taste. You only report issues you are confident about. Respond with JSON only.`

const generationSchema = `Respond with a JSON object of this exact shape:
{"findings": [{"file": "path/to/file", "line": 42, "severity": "bug|warning|suggestion|info", "message": "what is wrong and why it matters", "suggestion": "optional concrete fix", "confidence": 95}]}
Use an empty findings array when the change is clean. Confidence is 0-100.`

// PromptInput carries everything the generation prompt can draw on. The
// structural and search blobs come from external collaborators and are
// passed through opaquely.
type PromptInput struct {
	Diff       string
	History    string // rendered history context, may be empty
	Structural string
	SearchHits string
	MultiFile  bool
}

// BuildGenerationPrompt assembles the finding-generation prompt.
func BuildGenerationPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString("Review the following change.\n\n")

	if in.History != "" {
		b.WriteString("Repository history signals:\n")
		b.WriteString(in.History)
		b.WriteString("\nWeight findings in hotspot or silo files more heavily; defects there are costlier.\n\n")
	}
	if in.Structural != "" {
		b.WriteString("Structural summary of the codebase:\n")
		b.WriteString(in.Structural)
		b.WriteString("\n\n")
	}
	if in.SearchHits != "" {
		b.WriteString("Related code found elsewhere in the repository:\n")
		b.WriteString(in.SearchHits)
		b.WriteString("\n\n")
	}
	if in.MultiFile {
		b.WriteString("The change spans multiple files. Check that the files agree with each other: renamed symbols, changed signatures, and moved responsibilities must be consistent across all of them.\n\n")
	}

	b.WriteString("Diff:\n```diff\n")
	b.WriteString(in.Diff)
	b.WriteString("\n```\n\n")
	b.WriteString(generationSchema)
	return b.String()
}

const reflectionSystem = `You are auditing a code review for noise. Score each finding for relevance and correctness against the diff. Be harsh on speculation and style nitpicks; be generous with genuine defects. Respond with JSON only.`

// BuildReflectionPrompt asks for a 1-10 score per finding, by index, with
// an optional revised severity. One batched call covers every finding.
func BuildReflectionPrompt(diff string, findings []Finding) string {
	var b strings.Builder
	b.WriteString("Original diff:\n```diff\n")
	b.WriteString(diff)
	b.WriteString("\n```\n\nFindings under audit:\n")
	for i, f := range findings {
		fmt.Fprintf(&b, "%d. [%s] %s:%d %s\n", i, f.Severity, f.File, f.Line, f.Message)
	}
	b.WriteString(`
Score every finding from 1 (noise, wrong, or irrelevant) to 10 (certainly a real, important issue). Optionally revise a finding's severity. Respond with a JSON object of this exact shape:
{"evaluations": [{"index": 0, "score": 8, "severity": "warning"}]}
Include one evaluation per finding, keyed by its index above.`)
	return b.String()
}

const summarySystem = `You summarize code review outcomes in two or three plain sentences for a pull request description. No lists, no headers.`

// BuildSummaryPrompt asks for the one-paragraph result summary.
func BuildSummaryPrompt(findings []Finding) string {
	var b strings.Builder
	b.WriteString("Summarize this review outcome in one short paragraph:\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", f.Severity, f.File, f.Message)
	}
	return b.String()
}

// stripCodeFence removes a surrounding markdown code fence, which several
// providers wrap around JSON despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
