package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"collection-kpi/storage"
)

func newExportItemsCommand(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export-items",
		Short: "Write the cleaned line items as canonical CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := storage.WriteItems(w, ds); err != nil {
				return err
			}
			if out != "" && out != "-" {
				a.logger.Info("[items] %d rows written to %s", len(ds.Items), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
