package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/pnl"
)

func newJournalCmd(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Read recorded closed trades as Org-mode entries",
		Long: `Query closed trades recorded with "tradebook trades --save".

Subcommands:
  trade  - Show one recorded trade by id
  today  - List trades closed today
  day    - List trades closed on a specific day

Days are taken in the report timezone.

Examples:
  tradebook journal trade <trade-id>
  tradebook journal today
  tradebook journal day 2026-02-18`,
	}

	trade := &cobra.Command{
		Use:   "trade <trade-id>",
		Short: "Show a recorded trade with its note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := ro.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			ctx := cmd.Context()
			g, err := j.GetClosedTrade(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get trade: %w", err)
			}
			inst, err := j.GetInstrument(ctx, g.InstrumentID)
			if err != nil {
				return fmt.Errorf("get instrument: %w", err)
			}
			notes, err := j.ClosedTradeNotes(ctx, []string{g.TradeID})
			if err != nil {
				return fmt.Errorf("trade note: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, instrumentHeading(inst))
			fmt.Fprintln(out, journal.FormatClosedTradeOrg(g, notes[g.TradeID]))
			return nil
		},
	}

	today := &cobra.Command{
		Use:   "today",
		Short: "List trades closed today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := ro.cfg.ReportLocation()
			return printJournalDay(cmd, ro, time.Now().In(loc).Format(journal.DateLayout))
		},
	}

	day := &cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "List trades closed on a specific day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJournalDay(cmd, ro, args[0])
		},
	}

	cmd.AddCommand(trade, today, day)
	return cmd
}

func printJournalDay(cmd *cobra.Command, ro *rootOptions, date string) error {
	start, end, err := dayBounds(ro.cfg.ReportLocation(), date)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := ro.openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := cmd.Context()
	groups, err := j.ListClosedTradesBetween(ctx, start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(groups) == 0 {
		fmt.Fprintf(out, "no recorded trades closed on %s\n", date)
		return nil
	}

	notes, err := j.ClosedTradeNotes(ctx, tradeIDs(groups))
	if err != nil {
		return fmt.Errorf("trade notes: %w", err)
	}
	fmt.Fprintln(out, journal.FormatClosedTradesOrg(groups, notes))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation(journal.DateLayout, day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}

func tradeIDs(groups []pnl.ClosedTradeGroup) []string {
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.TradeID
	}
	return ids
}

func instrumentHeading(in journal.Instrument) string {
	fields := []string{in.Symbol}
	for _, f := range []string{in.Exchange, in.AssetType, in.Currency} {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return "* " + strings.Join(fields, " ")
}
