package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hindsightdev/hindsight/internal/config"
	"github.com/hindsightdev/hindsight/internal/logging"
)

var (
	// Version information (set by build flags)
	Version = "dev"

	cfgFile string
	verbose bool
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "hindsight",
	Short:   "History-aware code review",
	Long:    `Hindsight reviews code changes with an LLM, weighting its findings by what the repository's commit history says about hotspots, coupled files, and knowledge silos.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load config, using defaults: %v\n", err)
			cfg = config.Default()
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := logging.Initialize(cfg.Logging); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize logging: %v\n", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .hindsight/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(historyCmd)
}
