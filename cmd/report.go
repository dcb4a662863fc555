package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"collection-kpi/services"
	"collection-kpi/storage"
)

func newReportCommand(a *app) *cobra.Command {
	var (
		format   string
		snapshot bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute the KPI report and print or export it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}
			asOf, err := a.asOf()
			if err != nil {
				return err
			}

			insights := services.NewInsightService(a.logger)
			report, err := insights.Generate(ds, a.reportOptions(asOf))
			if err != nil {
				return err
			}
			validator := services.NewValidator(a.logger)
			checks := validator.Run(ds, a.validationOptions(asOf))

			exporter, err := a.exporter(format)
			if err != nil {
				return err
			}
			if exporter == nil {
				insights.Print(cmd.OutOrStdout(), report)
				validator.PrintChecks(cmd.OutOrStdout(), checks)
			} else {
				path, err := exporter.Export(report, checks)
				if err != nil {
					return err
				}
				a.logger.Info("[report] %s export written to %s", format, path)
			}

			if snapshot {
				store, err := a.snapshotStore()
				if err != nil {
					return err
				}
				defer store.Close()
				id, err := store.SaveRun(report)
				if err != nil {
					return err
				}
				a.logger.Info("[report] Snapshot stored as run %s", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "text, csv, xlsx or pdf")
	cmd.Flags().StringVarP(&a.cfg.OutputDir, "out", "o", a.cfg.OutputDir, "output directory for exports")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "store the report in PostgreSQL")
	return cmd
}

// exporter returns nil for console output.
func (a *app) exporter(format string) (storage.ReportExporter, error) {
	switch format {
	case "", "text":
		return nil, nil
	case "csv":
		return storage.NewCSVWriter(a.cfg.OutputDir)
	case "xlsx":
		return storage.NewXLSXWriter(filepath.Join(a.cfg.OutputDir, "collection_kpi.xlsx"))
	case "pdf":
		return storage.NewPDFWriter(filepath.Join(a.cfg.OutputDir, "collection_kpi.pdf"), a.cfg.ChromeBin, a.cfg.MaxRetries, a.logger)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
