package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/config"
	"github.com/rustyeddy/tradebook/importer"
	"github.com/rustyeddy/tradebook/internal/logging"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/report"
)

// rootOptions carries the persistent flags and the config they resolve to.
type rootOptions struct {
	configPath string
	dbPath     string
	verbose    bool

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	ro := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tradebook",
		Short: "A trading journal with FIFO trade matching and realized P&L",
		Long: `Tradebook imports broker execution, position and account exports into a
SQLite journal and reports on them.

It provides tools for:
  - Importing IBKR style CSV exports with duplicate detection
  - FIFO realized P&L per execution
  - Grouping fills into flat-to-flat closed trades
  - Dashboard metrics, a P&L calendar and Org-mode journal pages
  - Day and trade notes`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&ro.configPath, "config", "", "path to config file (optional)")
	cmd.PersistentFlags().StringVar(&ro.dbPath, "db", "", "SQLite journal database (overrides config)")
	cmd.PersistentFlags().BoolVarP(&ro.verbose, "verbose", "v", false, "debug logging")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return ro.load()
	}

	cmd.AddCommand(
		newImportCmd(ro),
		newExecutionsCmd(ro),
		newTradesCmd(ro),
		newJournalCmd(ro),
		newDashboardCmd(ro),
		newCalendarCmd(ro),
		newNoteCmd(ro),
		newPositionsCmd(ro),
		newAccountsCmd(ro),
		newBatchesCmd(ro),
		newConfigCmd(ro),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (ro *rootOptions) load() error {
	if ro.configPath != "" {
		cfg, err := config.LoadFromFile(ro.configPath)
		if err != nil {
			return err
		}
		ro.cfg = cfg
	} else {
		// a missing .env is fine
		_ = godotenv.Load()
		ro.cfg = config.Default()
		ro.cfg.ApplyEnv()
	}

	if ro.dbPath != "" {
		ro.cfg.Journal.DBPath = ro.dbPath
	}
	if ro.verbose {
		ro.cfg.Log.Level = "debug"
	}
	if err := ro.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logging.Setup(ro.cfg.Log, os.Stderr)
	return nil
}

func (ro *rootOptions) openJournal() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(ro.cfg.Journal.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func (ro *rootOptions) service(j *journal.SQLite) *report.Service {
	return report.NewService(j, report.Options{
		HistogramBins: ro.cfg.Report.HistogramBins,
		WeekStartsOn:  ro.cfg.WeekStart(),
		Location:      ro.cfg.ReportLocation(),
	})
}

func (ro *rootOptions) importOptions() importer.Options {
	return importer.Options{
		DefaultAccount:  ro.cfg.Import.DefaultAccount,
		DefaultCurrency: ro.cfg.Import.DefaultCurrency,
		Location:        ro.cfg.ImportLocation(),
		ExcludeFX:       ro.cfg.Import.ExcludeFX,
	}
}
