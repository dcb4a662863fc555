package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"collection-kpi/config"
	"collection-kpi/models"
	"collection-kpi/services"
	"collection-kpi/storage"
	"collection-kpi/utils"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
}

// NewRootCommand builds the CLI. Environment variables (and .env) supply
// defaults; flags override them.
func NewRootCommand() *cobra.Command {
	a := &app{cfg: config.Load()}

	root := &cobra.Command{
		Use:           "collection-kpi",
		Short:         "Collection KPIs and data checks for real-estate booking sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = utils.NewLoggerTo(cmd.OutOrStdout(), cmd.ErrOrStderr(), utils.ParseLevel(a.cfg.LogLevel))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfg.DataFile, "file", "f", a.cfg.DataFile, "collection sheet (.csv, .xlsx, .xls)")
	flags.StringVar(&a.cfg.ColumnMapFile, "columns", a.cfg.ColumnMapFile, "YAML column map layered over the built-in header candidates")
	flags.StringVar(&a.cfg.AsOf, "as-of", a.cfg.AsOf, "as-of date, yyyy-mm-dd (default today)")
	flags.Float64Var(&a.cfg.OverdueThreshold, "threshold", a.cfg.OverdueThreshold, "overdue threshold in rupees")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "debug, info, warn or error")

	root.AddCommand(
		newReportCommand(a),
		newCheckCommand(a),
		newServeCommand(a),
		newExportItemsCommand(a),
		newRunsCommand(a),
	)
	return root
}

// Execute runs the CLI against os.Args.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadDataset reads the input sheet, resolves its columns and cleans it.
func (a *app) loadDataset() (*models.Dataset, error) {
	if a.cfg.DataFile == "" {
		return nil, fmt.Errorf("no input file: pass --file or set DATA_FILE")
	}

	raw, err := storage.ReadTable(a.cfg.DataFile)
	if err != nil {
		return nil, err
	}
	a.logger.Info("[load] %s: %d rows, %d columns", raw.Source, len(raw.Rows), len(raw.Headers))

	colCfg, err := config.LoadColumnConfig(a.cfg.ColumnMapFile)
	if err != nil {
		return nil, err
	}
	cols, _ := services.NewResolver(colCfg, a.logger).ResolveAll(raw.Headers)

	return services.NewCleaner(a.logger).Clean(raw, cols), nil
}

func (a *app) asOf() (time.Time, error) {
	if a.cfg.AsOf == "" {
		return services.DateOnly(time.Now()), nil
	}
	if t, err := time.Parse("2006-01-02", a.cfg.AsOf); err == nil {
		return t, nil
	}
	if t := services.ParseDate(a.cfg.AsOf); t != nil {
		return *t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --as-of %q", a.cfg.AsOf)
}

func (a *app) reportOptions(asOf time.Time) services.ReportOptions {
	return services.ReportOptions{
		AsOf:             asOf,
		OverdueThreshold: decimal.NewFromFloat(a.cfg.OverdueThreshold),
		OverdueGraceDays: a.cfg.OverdueGraceDays,
		TrendMonths:      a.cfg.TrendMonths,
	}
}

func (a *app) validationOptions(asOf time.Time) services.ValidationOptions {
	return services.ValidationOptions{
		AsOf:              asOf,
		MismatchTolerance: decimal.NewFromFloat(a.cfg.MismatchTolerance),
	}
}

func (a *app) snapshotStore() (storage.SnapshotStore, error) {
	return storage.NewPostgresWriter(a.cfg.DSN(), &utils.RetryConfig{
		MaxAttempts: a.cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      a.logger,
	}, a.logger)
}
