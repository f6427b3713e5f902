package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Re-run the confidence scorer over every stored lead",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("store", "score"); err != nil {
			return err
		}

		coord, l, err := initCoordinator("")
		if err != nil {
			return err
		}
		defer l.Close()

		updated, err := coord.Rescore(ctx)
		if err != nil {
			return eris.Wrap(err, "rescore")
		}

		zap.L().Info("rescore complete", zap.Int("updated", updated))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rescoreCmd)
}
