package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hindsightdev/hindsight/internal/analysis"
	"github.com/hindsightdev/hindsight/internal/history"
)

var (
	historyRepo string
	historyJSON bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show hotspot, coupling, and ownership signals for a repository",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyRepo, "repo", ".", "repository path")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "emit JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	commits, err := history.ReadLog(ctx, historyRepo, history.Options{
		WindowDays:        cfg.History.WindowDays,
		MaxFilesPerCommit: cfg.History.MaxFilesPerCommit,
	})
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		fmt.Printf("No commits in the last %d days.\n", cfg.History.WindowDays)
		return nil
	}

	hc, err := analysis.Analyze(ctx, historyRepo, commits, analysis.ContextOptions{
		MaxHotspots:  cfg.History.MaxHotspots,
		MaxPairs:     10,
		MaxSilos:     10,
		MinRatio:     cfg.History.MinCouplingRatio,
		MinCoChanges: cfg.History.MinCoChanges,
	})
	if err != nil {
		return err
	}

	if historyJSON {
		return printJSON(hc)
	}
	if hc.Empty() {
		fmt.Println("No notable history signals.")
		return nil
	}
	fmt.Print(hc.Render())
	return nil
}
