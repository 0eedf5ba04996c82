package review

import (
	"context"
	"encoding/json"

	"github.com/hindsightdev/hindsight/internal/errors"
	"github.com/hindsightdev/hindsight/internal/llm"
)

const provenanceReflection = "reflection"

type reflectionEval struct {
	Index    int    `json:"index"`
	Score    int    `json:"score"`
	Severity string `json:"severity"`
}

type reflectionResponse struct {
	Evaluations []reflectionEval `json:"evaluations"`
}

// Reflect runs the single batched self-reflection call and prunes findings
// scoring below their threshold. thresholdFor returns the cutoff for one
// finding, letting feedback history raise it per message pattern.
//
// Fail-open policy: a finding the response does not score, or an entirely
// malformed response, keeps the affected findings. Only explicit low
// scores drop anything. A non-nil error with a non-empty kept set means
// the reflection was ambiguous and the caller should log, not abort.
func Reflect(ctx context.Context, client llm.Completer, diff string, findings []Finding, thresholdFor func(Finding) int) ([]Finding, []FilteredFinding, error) {
	if len(findings) == 0 {
		return findings, nil, nil
	}

	text, err := client.Complete(ctx, llm.Request{
		System: reflectionSystem,
		Prompt: BuildReflectionPrompt(diff, findings),
		JSON:   true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return findings, nil, errors.Wrap(err, errors.KindReflectionAmbiguous, "reflection call failed, keeping all findings")
	}

	var resp reflectionResponse
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &resp); err != nil {
		return findings, nil, errors.Wrap(err, errors.KindReflectionAmbiguous, "unparseable reflection response, keeping all findings")
	}

	evals := make(map[int]reflectionEval, len(resp.Evaluations))
	for _, e := range resp.Evaluations {
		if e.Index < 0 || e.Index >= len(findings) {
			continue
		}
		evals[e.Index] = e
	}

	var (
		kept    []Finding
		removed []FilteredFinding
	)
	for i, f := range findings {
		eval, scored := evals[i]
		if !scored || eval.Score < 1 || eval.Score > 10 {
			// fail open on anything we cannot confidently map to a score
			kept = append(kept, f)
			continue
		}
		f.ReflectionScore = eval.Score
		if eval.Score < thresholdFor(f) {
			removed = append(removed, FilteredFinding{Finding: f, Reason: ReasonReflectionScore})
			continue
		}
		if eval.Severity != "" {
			f.Severity = ParseSeverity(eval.Severity)
		}
		f.Provenance = append(f.Provenance, provenanceReflection)
		kept = append(kept, f)
	}
	return kept, removed, nil
}
