package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hindsightdev/hindsight/internal/feedback"
	"github.com/hindsightdev/hindsight/internal/review"
)

var feedbackRepo string

var feedbackCmd = &cobra.Command{
	Use:   "feedback <finding-index> <useful|noise|skip>",
	Short: "Rate a finding from the most recent review",
	Long: `Rates a finding from the most recent review by its position in the
output (starting at 0). Ratings accumulate per message pattern and raise
the noise bar for findings the review keeps getting wrong.`,
	Args: cobra.ExactArgs(2),
	RunE: runFeedback,
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackRepo, "repo", ".", "repository path")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("finding index must be a number, got %q", args[0])
	}
	rating := feedback.Rating(args[1])
	if !rating.Valid() {
		return fmt.Errorf("unknown rating %q (useful, noise, skip)", args[1])
	}

	state, err := review.LoadState(feedbackRepo)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(state.Findings) {
		return fmt.Errorf("finding index %d out of range: last review produced %d findings", index, len(state.Findings))
	}
	finding := state.Findings[index]

	store, err := feedback.Open(cfg.Feedback.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Record(feedback.Entry{
		FindingID: finding.ID,
		Pattern:   feedback.PatternKey(finding.Message),
		Rating:    rating,
	}); err != nil {
		return err
	}

	fmt.Printf("Recorded %s for finding %d (%s)\n", rating, index, finding.File)
	return nil
}
