package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborcare/leadgen-cli/internal/model"
	"github.com/harborcare/leadgen-cli/internal/pipeline"
)

var (
	pruneThreshold int
	pruneSource    string
	pruneDryRun    bool
	pruneYes       bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored leads scoring below a threshold",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		var src model.Source
		switch pruneSource {
		case "":
		case "reddit":
			src = model.SourceReddit
		case "craigslist":
			src = model.SourceCraigslist
		default:
			return eris.Errorf("unknown source %q (want reddit or craigslist)", pruneSource)
		}

		threshold := pruneThreshold
		if !cmd.Flags().Changed("threshold") {
			threshold = cfg.Pipeline.DeleteThreshold
		}

		coord, l, err := initCoordinator("")
		if err != nil {
			return err
		}
		defer l.Close()

		deleted, err := coord.Prune(ctx, pipeline.PruneOptions{
			Threshold: threshold,
			Source:    src,
			DryRun:    pruneDryRun,
			Confirmed: pruneYes,
		})
		if err != nil {
			return eris.Wrap(err, "prune")
		}

		zap.L().Info("prune complete", zap.Int("deleted", deleted))
		return nil
	},
}

func init() {
	pruneCmd.Flags().IntVar(&pruneThreshold, "threshold", 0, "delete leads scoring strictly below this (default from config)")
	pruneCmd.Flags().StringVar(&pruneSource, "source", "", "restrict to one lead source (reddit or craigslist)")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "report the count without deleting")
	pruneCmd.Flags().BoolVar(&pruneYes, "yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(pruneCmd)
}
