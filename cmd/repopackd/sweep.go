package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/repopackd/internal/artifact"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete stored artifacts older than the retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, logger, true)
		if err != nil {
			return err
		}
		defer a.close(ctx)
		logger = a.logger
		if a.store == nil {
			return errors.New("no artifact backend configured")
		}

		res, err := artifact.NewSweeper(a.store, cfg.Artifacts.Retention, cfg.Artifacts.SweepInterval, logger).SweepOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, deleted %d, failed %d\n", res.Scanned, res.Deleted, res.Failed)
		return nil
	},
}
