package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"collection-kpi/api"
	"collection-kpi/jobs"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report over HTTP, optionally snapshotting on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.cfg.SnapshotSchedule != "" {
				store, err := a.snapshotStore()
				if err != nil {
					return err
				}
				defer store.Close()

				loc := jobs.LoadLocation(a.cfg.TimeZone, a.logger)
				job := jobs.NewSnapshotJob(ds, store, a.reportOptions(time.Time{}), loc, a.logger)
				c, err := jobs.StartScheduler(a.cfg.SnapshotSchedule, job, a.logger)
				if err != nil {
					return err
				}
				defer c.Stop()
			}

			srv := api.NewServer(ds, api.Options{
				OverdueThreshold:  decimal.NewFromFloat(a.cfg.OverdueThreshold),
				OverdueGraceDays:  a.cfg.OverdueGraceDays,
				TrendMonths:       a.cfg.TrendMonths,
				MismatchTolerance: decimal.NewFromFloat(a.cfg.MismatchTolerance),
			}, a.logger)
			return srv.ListenAndServe(ctx, a.cfg.HTTPAddr)
		},
	}

	cmd.Flags().StringVar(&a.cfg.HTTPAddr, "addr", a.cfg.HTTPAddr, "listen address")
	cmd.Flags().StringVar(&a.cfg.SnapshotSchedule, "schedule", a.cfg.SnapshotSchedule, "cron schedule for PostgreSQL snapshots")
	return cmd
}
