package review

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hindsightdev/hindsight/internal/analysis"
	"github.com/hindsightdev/hindsight/internal/config"
	"github.com/hindsightdev/hindsight/internal/history"
	"github.com/hindsightdev/hindsight/internal/llm"
	"github.com/hindsightdev/hindsight/internal/logging"
)

// Stage is one node of the run state machine. Stages execute in strict
// order; no stage is skipped or re-entered within a run.
type Stage int

const (
	StageGatherHistory Stage = iota
	StageBuildContext
	StageGenerate
	StageSelfReflect
	StageDedupSort
	StageApplyFeedbackBias
	StageFinalize
)

func (s Stage) String() string {
	switch s {
	case StageGatherHistory:
		return "gather_history"
	case StageBuildContext:
		return "build_context"
	case StageGenerate:
		return "generate"
	case StageSelfReflect:
		return "self_reflect"
	case StageDedupSort:
		return "dedup_sort"
	case StageApplyFeedbackBias:
		return "apply_feedback_bias"
	default:
		return "finalize"
	}
}

// Adviser lets feedback history influence a run: raising the reflection
// cutoff for noisy message patterns and suppressing the worst of them.
// Advisory, not silent: suppressions are counted in run statistics.
type Adviser interface {
	ThresholdFor(message string, base int) int
	ShouldSuppress(message string) bool
}

// Request is one review invocation.
type Request struct {
	Diff     string
	RepoPath string
	// Structural and SearchHits are opaque context blobs from external
	// collaborators, appended to the prompt without reinterpretation.
	Structural string
	SearchHits string
	// HistoryContext, when non-nil, skips history gathering and uses the
	// caller's precomputed snapshot.
	HistoryContext *analysis.HistoryContext
}

// Pipeline sequences one review run. Instances are safe for concurrent
// runs; each run keeps its own state.
type Pipeline struct {
	client      llm.Completer
	adviser     Adviser
	review      config.ReviewConfig
	historyOpts history.Options
	contextOpts analysis.ContextOptions
	logger      *slog.Logger
}

// NewPipeline wires a pipeline from configuration. adviser may be nil when
// no feedback history exists yet.
func NewPipeline(client llm.Completer, adviser Adviser, cfg *config.Config) *Pipeline {
	return &Pipeline{
		client:  client,
		adviser: adviser,
		review:  cfg.Review,
		historyOpts: history.Options{
			WindowDays:        cfg.History.WindowDays,
			MaxFilesPerCommit: cfg.History.MaxFilesPerCommit,
		},
		contextOpts: analysis.ContextOptions{
			MaxHotspots:  cfg.History.MaxHotspots,
			MaxPairs:     10,
			MaxSilos:     5,
			MinRatio:     cfg.History.MinCouplingRatio,
			MinCoChanges: cfg.History.MinCoChanges,
		},
		logger: logging.For("pipeline"),
	}
}

// retrySource is implemented by the production client so the run can
// report a retry delta in its statistics.
type retrySource interface {
	Stats() *llm.Stats
}

// Review executes the full state machine and always produces a
// ReviewResult unless generation fails or the run is canceled. Zero
// findings is a valid, non-error outcome.
func (p *Pipeline) Review(ctx context.Context, req Request) (*ReviewResult, error) {
	result := &ReviewResult{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	var retriesBefore int64
	if src, ok := p.client.(retrySource); ok {
		retriesBefore = src.Stats().Retries()
	}

	var (
		commits  []history.CommitRecord
		hc       *analysis.HistoryContext
		findings []Finding
	)

	for stage := StageGatherHistory; stage <= StageFinalize; stage++ {
		p.logger.Debug("entering stage", "run_id", result.RunID, "stage", stage.String())

		switch stage {
		case StageGatherHistory:
			if req.HistoryContext != nil {
				continue
			}
			var err error
			commits, err = p.gatherHistory(ctx, req.RepoPath)
			if err != nil {
				// history is an enrichment, not a hard dependency
				p.logger.Warn("proceeding without history context", "error", err)
				result.Stats.HistoryDegraded = true
				commits = nil
			}

		case StageBuildContext:
			if req.HistoryContext != nil {
				hc = req.HistoryContext
				continue
			}
			if len(commits) == 0 {
				continue
			}
			var err error
			hc, err = analysis.Analyze(ctx, req.RepoPath, commits, p.contextOpts)
			if err != nil {
				return nil, err
			}

		case StageGenerate:
			var err error
			findings, err = Generate(ctx, p.client, PromptInput{
				Diff:       req.Diff,
				History:    hc.Render(),
				Structural: req.Structural,
				SearchHits: req.SearchHits,
				MultiFile:  isMultiFile(req.Diff),
			})
			if err != nil {
				// no fabricated findings on generation failure
				return nil, err
			}
			result.Stats.Generated = len(findings)

		case StageSelfReflect:
			if !p.review.SelfReflection || len(findings) == 0 {
				continue
			}
			kept, removed, err := Reflect(ctx, p.client, req.Diff, findings, p.thresholdFor)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				p.logger.Warn("reflection ambiguous", "error", err)
			}
			findings = kept
			result.Stats.ReflectedOut = len(removed)
			result.Filtered = append(result.Filtered, removed...)

		case StageDedupSort:
			var dups []FilteredFinding
			findings, dups = Dedup(findings)
			result.Stats.Deduplicated = len(dups)
			result.Filtered = append(result.Filtered, dups...)
			SortBySeverity(findings)

		case StageApplyFeedbackBias:
			if p.adviser == nil {
				continue
			}
			var kept []Finding
			for _, f := range findings {
				if p.adviser.ShouldSuppress(f.Message) {
					result.Stats.Suppressed++
					result.Filtered = append(result.Filtered, FilteredFinding{Finding: f, Reason: ReasonSuppressed})
					continue
				}
				kept = append(kept, f)
			}
			findings = kept

		case StageFinalize:
			findings = p.applyCallerFilters(findings, result)
			result.Findings = findings
			result.Stats.Final = len(findings)
			if p.review.Summarize && len(findings) > 0 {
				p.summarize(ctx, result)
			}
		}
	}

	if src, ok := p.client.(retrySource); ok {
		result.Stats.Retries = int(src.Stats().Retries() - retriesBefore)
	}

	p.logger.Info("review complete",
		"run_id", result.RunID,
		"generated", result.Stats.Generated,
		"final", result.Stats.Final,
		"retries", result.Stats.Retries,
		"history_degraded", result.Stats.HistoryDegraded)
	return result, nil
}

// gatherHistory reads the commit log, retrying once on failure.
func (p *Pipeline) gatherHistory(ctx context.Context, repoPath string) ([]history.CommitRecord, error) {
	commits, err := history.ReadLog(ctx, repoPath, p.historyOpts)
	if err == nil {
		return commits, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	p.logger.Debug("history read failed, retrying once", "error", err)
	return history.ReadLog(ctx, repoPath, p.historyOpts)
}

func (p *Pipeline) thresholdFor(f Finding) int {
	base := p.review.ReflectionThreshold
	if p.adviser == nil {
		return base
	}
	return p.adviser.ThresholdFor(f.Message, base)
}

// applyCallerFilters enforces the allowed-severity set, the minimum
// confidence, and the max-findings cap, recording everything removed.
func (p *Pipeline) applyCallerFilters(findings []Finding, result *ReviewResult) []Finding {
	allowed := map[Severity]bool{}
	for _, s := range p.review.AllowedSeverities {
		allowed[ParseSeverity(s)] = true
	}

	var kept []Finding
	for _, f := range findings {
		if len(allowed) > 0 && !allowed[f.Severity] {
			result.Stats.Filtered++
			result.Filtered = append(result.Filtered, FilteredFinding{Finding: f, Reason: ReasonSeverityFilter})
			continue
		}
		if p.review.MinConfidence > 0 && f.Confidence < p.review.MinConfidence {
			result.Stats.Filtered++
			result.Filtered = append(result.Filtered, FilteredFinding{Finding: f, Reason: ReasonLowConfidence})
			continue
		}
		kept = append(kept, f)
	}

	if p.review.MaxFindings > 0 && len(kept) > p.review.MaxFindings {
		for _, f := range kept[p.review.MaxFindings:] {
			result.Stats.Filtered++
			result.Filtered = append(result.Filtered, FilteredFinding{Finding: f, Reason: ReasonOverflow})
		}
		kept = kept[:p.review.MaxFindings]
	}
	return kept
}

// summarize asks for the one-paragraph summary. Failure here never fails
// the run.
func (p *Pipeline) summarize(ctx context.Context, result *ReviewResult) {
	text, err := p.client.Complete(ctx, llm.Request{
		System: summarySystem,
		Prompt: BuildSummaryPrompt(result.Findings),
	})
	if err != nil {
		p.logger.Warn("summary generation failed", "error", err)
		return
	}
	result.Summary = strings.TrimSpace(text)
}

func isMultiFile(diff string) bool {
	return strings.Count(diff, "diff --git ") > 1
}
