package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/pnl"
	"github.com/rustyeddy/tradebook/report"
)

func newExecutionsCmd(ro *rootOptions) *cobra.Command {
	var (
		f       report.Filter
		side    string
		csvPath string
	)

	cmd := &cobra.Command{
		Use:     "executions",
		Aliases: []string{"fills"},
		Short:   "List executions with their realized P&L",
		Long: `List stored executions, newest first, with FIFO realized P&L.

Examples:
  tradebook executions --from 2026-02-01 --to 2026-02-28
  tradebook executions --symbol SPY --side sell`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if side != "" {
				f.Side = pnl.Side(strings.ToUpper(side))
				if f.Side != pnl.Buy && f.Side != pnl.Sell {
					return fmt.Errorf("bad --side %q", side)
				}
			}

			j, err := ro.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			rows, err := ro.service(j).Trades(cmd.Context(), f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if csvPath != "" {
				return writeExecutionCSV(csvPath, rows)
			}

			var realized, costs float64
			table := newTable(out, "Time", "Account", "Symbol", "Side", "Qty", "Price", "Comm", "Realized", "ID")
			for _, r := range rows {
				realized += r.RealizedPnl
				costs += r.CommissionTotal
				table.Append(
					stamp(r.ExecutedAt),
					r.AccountID,
					r.Symbol,
					string(r.Side),
					qty(r.Quantity),
					price(r.Price),
					money(r.CommissionTotal),
					money(r.RealizedPnl),
					r.ID,
				)
			}
			table.Render()
			fmt.Fprintf(out, "%d executions  realized %s  commissions %s\n", len(rows), money(realized), money(costs))
			return nil
		},
	}

	cmd.Flags().StringVar(&f.From, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.To, "to", "", "last day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.Symbol, "symbol", "", "symbol")
	cmd.Flags().StringVar(&side, "side", "", "buy or sell")
	cmd.Flags().StringVar(&f.Strategy, "strategy", "", "strategy tag")
	cmd.Flags().StringVar(&f.AccountID, "account", "", "account code")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write per-execution P&L to this CSV file instead")
	return cmd
}

func writeExecutionCSV(path string, rows []report.ExecutionRow) error {
	execs := make([]journal.ExecutionRecord, len(rows))
	pnls := make([]pnl.ExecutionPnl, len(rows))
	for i, r := range rows {
		execs[i] = r.ExecutionRecord
		pnls[i] = r.Pnl
	}

	f, err := createFile(path)
	if err != nil {
		return err
	}
	if err := journal.WriteExecutionPnlCSV(f, execs, pnls); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
