package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hpi-affordability/config"
	"hpi-affordability/fetcher"
	"hpi-affordability/models"
	"hpi-affordability/pipeline"
	"hpi-affordability/services"
	"hpi-affordability/storage"
	"hpi-affordability/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "hpi",
		Short: "UK house price and salary affordability pipeline",
		Long: `hpi downloads the UK House Price Index and regional earnings data,
joins them into a price-to-salary affordability table and replaces the
destination table named by DATABASE_URL and TABLE_NAME.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(), newRegionsCommand(), newRegionCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var (
		useFallback bool
		year        int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, reconcile and commit a new affordability snapshot",
		Example: `  hpi run
  hpi run --fallback
  hpi run --year 2024`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("fallback") {
				cfg.UseFallbackData = useFallback
			}
			if cmd.Flags().Changed("year") {
				cfg.OperatingYear = year
			}
			return runPipeline(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&useFallback, "fallback", false, "use the embedded datasets instead of fetching (overrides USE_FALLBACK_DATA)")
	cmd.Flags().IntVar(&year, "year", 0, "operating year stamped on salary rows (overrides OPERATING_YEAR)")
	return cmd
}

func runPipeline(ctx context.Context, cfg *config.Config) error {
	logger := utils.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("=== UK HPI affordability pipeline starting ===")
	logger.Info("Config: table %q | operating year %d | fallback %t | fetch timeout %v",
		cfg.TableName, cfg.OperatingYear, cfg.UseFallbackData, cfg.FetchTimeout)

	if err := cfg.Validate(); err != nil {
		logger.Error("Cannot start: %v", err)
		return err
	}

	store, err := storage.NewSQLStore(ctx, cfg.DatabaseURL, cfg.PostgresSSLMode, cfg.DBConnectRetries, logger)
	if err != nil {
		logger.Error("Failed to connect to the database: %v", err)
		return err
	}
	defer store.Close()

	fetch := fetcher.New(fetcher.Config{
		Timeout:      cfg.FetchTimeout,
		MaxRedirects: cfg.MaxRedirects,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}, logger)

	p := pipeline.New(pipeline.Options{
		Table:           cfg.TableName,
		OperatingYear:   cfg.OperatingYear,
		UseFallbackData: cfg.UseFallbackData,
		PriceSource:     fetcher.Source{Label: "price", URL: cfg.PriceURL},
		SalarySource:    fetcher.Source{Label: "salary", URL: cfg.SalaryURL},
	}, fetch, store, logger)

	if cfg.CSVOutputDir != "" {
		csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputDir)
		if err != nil {
			logger.Error("Failed to create CSV writer: %v", err)
		} else {
			p.WithSnapshot(csvWriter)
		}
	}

	report, err := p.Run(ctx)
	if err != nil {
		return err
	}
	if report.CommitErr != nil {
		logger.Error("Commit failed, previous table left in place: %v", report.CommitErr)
		return report.CommitErr
	}

	rows := report.Rows
	if report.Committed {
		dbRows, err := readTable(ctx, store, cfg.TableName)
		if err != nil {
			logger.Error("Failed to read back %q for insights: %v", cfg.TableName, err)
		} else {
			rows = dbRows
		}
	}

	insights := services.NewInsightService(logger)
	insights.Print(insights.Generate(rows))
	return nil
}

func readTable(ctx context.Context, store storage.TableStore, table string) ([]models.AffordabilityRow, error) {
	regions, err := store.Regions(ctx, table)
	if err != nil {
		return nil, err
	}
	var rows []models.AffordabilityRow
	for _, region := range regions {
		rr, err := store.RegionRows(ctx, table, region)
		if err != nil {
			return nil, err
		}
		rows = append(rows, rr...)
	}
	return rows, nil
}

func newRegionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the regions in the committed table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(store storage.TableStore, table string) error {
				regions, err := store.Regions(cmd.Context(), table)
				if err != nil {
					return err
				}
				for _, r := range regions {
					fmt.Fprintln(cmd.OutOrStdout(), r)
				}
				return nil
			})
		},
	}
}

func newRegionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "region <name>",
		Short:   "Print a region's rows ordered by date",
		Example: `  hpi region "City of London"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store storage.TableStore, table string) error {
				rows, err := store.RegionRows(cmd.Context(), table, args[0])
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					return fmt.Errorf("region %q not found", args[0])
				}
				printRows(cmd, rows)
				return nil
			})
		},
	}
}

func withStore(ctx context.Context, fn func(storage.TableStore, string) error) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := utils.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	store, err := storage.NewSQLStore(ctx, cfg.DatabaseURL, cfg.PostgresSSLMode, cfg.DBConnectRetries, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store, cfg.TableName)
}

func printRows(cmd *cobra.Command, rows []models.AffordabilityRow) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s  %12s  %8s  %10s  %6s\n", "date", "price", "index", "salary", "ratio")
	for _, r := range rows {
		fmt.Fprintf(out, "%-10s  %12.0f  %8.2f  %10s  %6s\n",
			r.DateString(), r.AveragePrice, r.Index, optional(r.AverageAnnualSalary, "%.0f"), optional(r.AffordabilityRatio, "%.2f"))
	}
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
