package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harborcare/leadgen-cli/internal/pipeline"
)

var (
	runDryRun bool
	runYes    bool
)

var runPipelineCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: ingest, score, persist, prune, outreach",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("store", "score", "outreach"); err != nil {
			return err
		}

		coord, l, err := initCoordinator("")
		if err != nil {
			return err
		}
		defer l.Close()

		coord.Run(ctx, pipeline.RunOptions{
			DryRun:    runDryRun,
			Confirmed: runYes,
		})
		return nil
	},
}

func init() {
	runPipelineCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "prune and outreach report without acting")
	runPipelineCmd.Flags().BoolVar(&runYes, "yes", false, "skip the prune confirmation prompt")
	rootCmd.AddCommand(runPipelineCmd)
}
