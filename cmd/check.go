package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"collection-kpi/models"
	"collection-kpi/services"
	"collection-kpi/storage"
)

func newCheckCommand(a *app) *cobra.Command {
	var (
		only       string
		writeCSV   bool
		failOnFlag bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the data-quality checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}
			asOf, err := a.asOf()
			if err != nil {
				return err
			}

			validator := services.NewValidator(a.logger)
			opts := a.validationOptions(asOf)

			var cr *models.CheckReport
			if only != "" {
				res, err := validator.RunCheck(ds, only, opts)
				if err != nil {
					return err
				}
				cr = &models.CheckReport{Source: ds.Source, AsOf: asOf, Results: []*models.CheckResult{res}}
				if res.Message != "" {
					cr.Messages = append(cr.Messages, res.Message)
				}
			} else {
				cr = validator.Run(ds, opts)
			}
			validator.PrintChecks(cmd.OutOrStdout(), cr)

			if writeCSV {
				w, err := storage.NewCSVWriter(a.cfg.OutputDir)
				if err != nil {
					return err
				}
				paths, err := w.WriteTables(services.CheckTables(cr))
				if err != nil {
					return err
				}
				a.logger.Info("[check] %d check tables written to %s", len(paths), a.cfg.OutputDir)
			}

			if failOnFlag && cr.Flagged() > 0 {
				return fmt.Errorf("%d rows flagged", cr.Flagged())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&only, "only", "", "run a single check by code")
	cmd.Flags().BoolVar(&writeCSV, "csv", false, "write flagged rows of each check to the output directory")
	cmd.Flags().StringVarP(&a.cfg.OutputDir, "out", "o", a.cfg.OutputDir, "output directory")
	cmd.Flags().BoolVar(&failOnFlag, "fail-on-flag", false, "exit non-zero when any row is flagged")
	return cmd
}
