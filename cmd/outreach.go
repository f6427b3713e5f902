package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborcare/leadgen-cli/internal/pipeline"
)

var (
	outreachThreshold int
	outreachSleepSecs int
	outreachDryRun    bool
)

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Message high-scoring leads that have not been contacted",
	Long:  "Replies to every lead scoring at or above the threshold whose post URL is absent from the outreach log, pacing sends and backing off on Reddit rate limits.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("store", "outreach"); err != nil {
			return err
		}

		threshold := outreachThreshold
		if !cmd.Flags().Changed("threshold") {
			threshold = cfg.Pipeline.OutreachThreshold
		}
		sleepSecs := outreachSleepSecs
		if !cmd.Flags().Changed("sleep") {
			sleepSecs = cfg.Pipeline.OutreachSleepSecs
		}

		coord, l, err := initCoordinator("")
		if err != nil {
			return err
		}
		defer l.Close()

		sent, err := coord.Outreach(ctx, pipeline.OutreachOptions{
			Threshold: threshold,
			Sleep:     time.Duration(sleepSecs) * time.Second,
			DryRun:    outreachDryRun,
		})
		if err != nil {
			return eris.Wrap(err, "outreach")
		}

		zap.L().Info("outreach complete", zap.Int("sent", sent))
		return nil
	},
}

func init() {
	outreachCmd.Flags().IntVar(&outreachThreshold, "threshold", 0, "minimum score to contact (default from config)")
	outreachCmd.Flags().IntVar(&outreachSleepSecs, "sleep", 0, "seconds to pause between sends (default from config)")
	outreachCmd.Flags().BoolVar(&outreachDryRun, "dry-run", false, "compose messages without sending")
	rootCmd.AddCommand(outreachCmd)
}
