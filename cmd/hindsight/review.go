package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hindsightdev/hindsight/internal/feedback"
	"github.com/hindsightdev/hindsight/internal/git"
	"github.com/hindsightdev/hindsight/internal/llm"
	"github.com/hindsightdev/hindsight/internal/output"
	"github.com/hindsightdev/hindsight/internal/review"
)

var (
	reviewRepo     string
	reviewRange    string
	reviewDiffFile string
	reviewFormat   string
	reviewFailOn   string
	reviewTimeout  time.Duration
	noReflection   bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review staged changes, a revision range, or a diff file",
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewRepo, "repo", ".", "repository path")
	reviewCmd.Flags().StringVar(&reviewRange, "range", "", "review a revision range, e.g. main..HEAD")
	reviewCmd.Flags().StringVar(&reviewDiffFile, "diff-file", "", "review a unified diff read from a file ('-' for stdin)")
	reviewCmd.Flags().StringVar(&reviewFormat, "format", "text", "output format: text, markdown, json")
	reviewCmd.Flags().StringVar(&reviewFailOn, "fail-on", "", "exit non-zero when a finding meets this severity (bug, warning, suggestion, info)")
	reviewCmd.Flags().DurationVar(&reviewTimeout, "timeout", 5*time.Minute, "overall run deadline")
	reviewCmd.Flags().BoolVar(&noReflection, "no-reflection", false, "skip the self-reflection pass")
}

func runReview(cmd *cobra.Command, args []string) error {
	if noReflection {
		cfg.Review.SelfReflection = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if reviewTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, reviewTimeout)
		defer cancel()
	}

	diff, err := loadDiff(cmd)
	if err != nil {
		return err
	}
	if strings.TrimSpace(diff) == "" {
		fmt.Println("Nothing to review.")
		return nil
	}

	client, err := llm.New(ctx, cfg.Provider)
	if err != nil {
		return err
	}

	// feedback history is an enhancement; a broken store never blocks a review
	var adviser review.Adviser
	if store, serr := feedback.Open(cfg.Feedback.Path); serr == nil {
		defer store.Close()
		if adapter, aerr := feedback.NewAdapter(store, feedback.DefaultAdapterConfig()); aerr == nil {
			adviser = adapter
		}
	}

	pipeline := review.NewPipeline(client, adviser, cfg)
	result, err := pipeline.Review(ctx, review.Request{
		Diff:     diff,
		RepoPath: reviewRepo,
	})
	if err != nil {
		return err
	}

	if serr := review.SaveState(reviewRepo, result, git.Head(ctx, reviewRepo)); serr != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save review state: %v\n", serr)
	}

	switch reviewFormat {
	case "json":
		text, jerr := output.FormatJSON(result)
		if jerr != nil {
			return jerr
		}
		fmt.Println(text)
	case "markdown":
		fmt.Print(output.FormatMarkdown(result))
	default:
		fmt.Print(output.FormatText(result))
	}

	if reviewFailOn != "" && review.MeetsThreshold(result, review.ParseSeverity(reviewFailOn)) {
		os.Exit(1)
	}
	return nil
}

func loadDiff(cmd *cobra.Command) (string, error) {
	switch {
	case reviewDiffFile == "-":
		data, err := os.ReadFile("/dev/stdin")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case reviewDiffFile != "":
		data, err := os.ReadFile(reviewDiffFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case reviewRange != "":
		from, to, ok := strings.Cut(reviewRange, "..")
		if !ok {
			return "", fmt.Errorf("invalid range %q, expected from..to", reviewRange)
		}
		return git.RangeDiff(cmd.Context(), reviewRepo, from, to)
	default:
		return git.StagedDiff(cmd.Context(), reviewRepo)
	}
}
