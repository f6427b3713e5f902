package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Remove duplicate store records sharing a Source URL",
	Long:  "Keeps the first record per Source URL, deletes the rest, and records every observed URL in the local ledger.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		coord, l, err := initCoordinator("")
		if err != nil {
			return err
		}
		defer l.Close()

		deleted, err := coord.DedupStore(ctx)
		if err != nil {
			return eris.Wrap(err, "dedup")
		}

		zap.L().Info("dedup complete", zap.Int("deleted", deleted))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dedupCmd)
}
