package review

import (
	"context"
	"encoding/json"

	"github.com/hindsightdev/hindsight/internal/errors"
	"github.com/hindsightdev/hindsight/internal/llm"
)

const provenanceGeneration = "generation"

type rawFinding struct {
	File       string  `json:"file"`
	Line       int     `json:"line"`
	Severity   string  `json:"severity"`
	Message    string  `json:"message"`
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

type generationResponse struct {
	Findings []rawFinding `json:"findings"`
}

// Generate runs the finding-generation call and parses the response into
// findings with stable identifiers. An empty findings array is a valid,
// non-error outcome.
func Generate(ctx context.Context, client llm.Completer, in PromptInput) ([]Finding, error) {
	text, err := client.Complete(ctx, llm.Request{
		System: generationSystem,
		Prompt: BuildGenerationPrompt(in),
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}

	var resp generationResponse
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &resp); err != nil {
		return nil, errors.Wrap(err, errors.KindGenerationFailed, "unparseable generation response")
	}

	findings := make([]Finding, 0, len(resp.Findings))
	for _, raw := range resp.Findings {
		if raw.File == "" || raw.Message == "" {
			continue
		}
		confidence := raw.Confidence
		if confidence <= 0 || confidence > 100 {
			confidence = 50
		}
		findings = append(findings, Finding{
			ID:         StableID(raw.File, raw.Line, raw.Message),
			File:       raw.File,
			Line:       raw.Line,
			Severity:   ParseSeverity(raw.Severity),
			Message:    raw.Message,
			Suggestion: raw.Suggestion,
			Confidence: confidence,
			Provenance: []string{provenanceGeneration},
		})
	}
	return findings, nil
}
