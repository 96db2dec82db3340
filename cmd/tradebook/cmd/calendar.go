package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var errBadYear = errors.New("year must be a four digit number")

func newCalendarCmd(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar [year]",
		Short: "Daily realized and mark-to-market P&L for a year",
		Long: `Print every day of the year with realized P&L, the change in unrealized
P&L from position imports, and day notes, followed by monthly totals.
The year defaults to the current one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year := time.Now().In(ro.cfg.ReportLocation()).Year()
			if len(args) == 1 {
				y, err := strconv.Atoi(args[0])
				if err != nil || y < 1000 || y > 9999 {
					return errBadYear
				}
				year = y
			}

			j, err := ro.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			cal, err := ro.service(j).Calendar(cmd.Context(), year)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			days := newTable(out, "Date", "Realized", "MTM", "Total", "Notes")
			for _, d := range cal.Days {
				var notes []string
				for _, n := range d.Notes {
					notes = append(notes, n.AccountID+": "+firstLine(n.Body))
				}
				days.Append(d.Date, money(d.Realized), money(d.MTM), money(d.Total), strings.Join(notes, "; "))
			}
			days.Render()

			var total float64
			months := newTable(out, "Month", "Realized", "MTM", "Total")
			for _, m := range cal.Months {
				total += m.Total
				months.Append(m.Month, money(m.Realized), money(m.MTM), money(m.Total))
			}
			months.Render()
			fmt.Fprintf(out, "%d total %s\n", cal.Year, money(total))
			return nil
		},
	}
	return cmd
}
