package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestSource string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Collect new posts, score them, and upload leads",
	Long:  "Fetches posts from the configured sources, drops anything already seen, scores each new lead with Claude, and uploads to Airtable.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("store", "score"); err != nil {
			return err
		}

		coord, l, err := initCoordinator(ingestSource)
		if err != nil {
			return err
		}
		defer l.Close()

		leads, err := coord.Ingest(ctx)
		if err != nil {
			return eris.Wrap(err, "ingest")
		}

		coord.ScoreLeads(ctx, leads)
		uploaded := coord.Persist(ctx, leads)

		zap.L().Info("ingest complete",
			zap.Int("new_leads", len(leads)),
			zap.Int("uploaded", uploaded),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "restrict to one source (reddit or craigslist)")
	rootCmd.AddCommand(ingestCmd)
}
