package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"collection-kpi/services"
)

func newRunsCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored report snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.snapshotStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.FetchRuns(limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-36s  %-10s  %6s  %-16s  %-16s  %s\n", "RUN", "AS OF", "UNITS", "DEMAND", "COLLECTED", "OVERDUE")
			for _, r := range runs {
				fmt.Fprintf(w, "%-36s  %-10s  %6d  %-16s  %-16s  %s\n",
					r.ID, r.AsOf.Format("2006-01-02"), r.Units,
					services.FormatCrore(r.DemandGenerated),
					services.FormatCrore(r.NetPayment),
					services.FormatCrore(r.AmountOverdue))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	return cmd
}
