package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/pnl"
	"github.com/rustyeddy/tradebook/report"
)

func newTradesCmd(ro *rootOptions) *cobra.Command {
	var (
		f         report.ClosedTradeFilter
		direction string
		save      bool
		csvPath   string
		org       bool
		title     string
	)

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List closed trades (flat-to-flat cycles)",
		Long: `Group executions into closed trades. A trade opens when the position
leaves flat and closes when it returns to flat. Held positions from the
latest earlier position import seed each symbol.

Examples:
  tradebook trades --from 2026-02-16 --to 2026-02-20
  tradebook trades --symbol TSLA --org > tsla.org
  tradebook trades --save --csv closed.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if direction != "" {
				f.Direction = pnl.Direction(strings.ToUpper(direction))
				if f.Direction != pnl.Long && f.Direction != pnl.Short {
					return fmt.Errorf("bad --direction %q", direction)
				}
			}

			j, err := ro.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			ctx := cmd.Context()
			svc := ro.service(j)
			groups, notes, err := svc.ClosedTradeGroups(ctx, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var sinks []journal.Journal
			if save {
				sinks = append(sinks, j)
			}
			if csvPath != "" {
				cj, err := journal.NewCSV(csvPath)
				if err != nil {
					return fmt.Errorf("open csv: %w", err)
				}
				defer cj.Close()
				sinks = append(sinks, cj)
			}
			for _, s := range sinks {
				if err := s.RecordClosedTrades(ctx, groups); err != nil {
					return err
				}
			}

			if org {
				dayNotes, err := j.DayNotesBetween(ctx, orDay(f.From, "0000-01-01"), orDay(f.To, "9999-12-31"))
				if err != nil {
					return err
				}
				r := &journal.PeriodReport{
					Title:      title,
					From:       orDay(f.From, firstTradeDate(groups)),
					To:         orDay(f.To, lastTradeDate(groups)),
					Created:    time.Now(),
					Metrics:    groupMetrics(groups),
					Trades:     groups,
					TradeNotes: notes,
					DayNotes:   dayNotes,
				}
				return r.WriteOrg(out)
			}

			var net float64
			table := newTable(out, "Closed", "Account", "Symbol", "Side", "Qty", "Entry", "Exit", "Gross", "Comm", "Net", "Fills", "Note")
			for _, g := range groups {
				net += g.RealizedPnl
				table.Append(
					stamp(g.CloseTime),
					g.AccountID,
					g.Symbol,
					string(g.Side),
					qty(g.TotalQuantity),
					price(g.AvgEntryPrice),
					price(g.AvgExitPrice),
					money(g.GrossRealizedPnl),
					money(g.TotalCommission),
					money(g.RealizedPnl),
					fmt.Sprint(len(g.Executions)),
					firstLine(notes[g.TradeID]),
				)
			}
			table.Render()
			fmt.Fprintf(out, "%d trades  net %s\n", len(groups), money(net))
			if save {
				fmt.Fprintf(out, "saved %d trades\n", len(groups))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.From, "from", "", "first trade date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.To, "to", "", "last trade date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.Symbol, "symbol", "", "symbol")
	cmd.Flags().StringVar(&f.AccountID, "account", "", "account code")
	cmd.Flags().StringVar(&direction, "direction", "", "long or short")
	cmd.Flags().BoolVar(&save, "save", false, "record the trades in the journal")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write the trades to this CSV file")
	cmd.Flags().BoolVar(&org, "org", false, "print an Org-mode journal page instead of a table")
	cmd.Flags().StringVar(&title, "title", "", "heading for --org output")
	return cmd
}

// groupMetrics treats each closed trade as one row of a P&L series.
func groupMetrics(groups []pnl.ClosedTradeGroup) pnl.Metrics {
	rows := make([]pnl.ExecutionPnl, len(groups))
	var cumulative, costs float64
	// groups come newest first
	for i := range groups {
		g := groups[len(groups)-1-i]
		cumulative += g.RealizedPnl
		costs += g.TotalCommission
		rows[i] = pnl.ExecutionPnl{
			ExecutionID:      g.TradeID,
			RealizedPnl:      g.RealizedPnl,
			GrossRealizedPnl: g.GrossRealizedPnl,
			CumulativePnl:    cumulative,
			MatchedQuantity:  g.TotalQuantity,
		}
	}
	return pnl.BuildMetrics(rows, costs)
}

func firstTradeDate(groups []pnl.ClosedTradeGroup) string {
	if len(groups) == 0 {
		return ""
	}
	return groups[len(groups)-1].TradeDate
}

func lastTradeDate(groups []pnl.ClosedTradeGroup) string {
	if len(groups) == 0 {
		return ""
	}
	return groups[0].TradeDate
}

func orDay(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// firstLine shortens a note to its first line, at most 40 runes.
func firstLine(s string) string {
	s, _, _ = strings.Cut(s, "\n")
	if r := []rune(s); len(r) > 40 {
		return string(r[:37]) + "..."
	}
	return s
}

func createFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
