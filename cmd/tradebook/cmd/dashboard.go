package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDashboardCmd(ro *rootOptions) *cobra.Command {
	var charts bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show summary cards and daily P&L",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := ro.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			d, err := ro.service(j).Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			c := d.Cards
			m := c.Metrics

			cards := newTable(out, "Metric", "Value")
			cards.Append("Executions", fmt.Sprint(c.TotalExecutions))
			cards.Append("Realized today", money(c.RealizedDay))
			cards.Append("Realized this week", money(c.RealizedWeek))
			cards.Append("Realized this month", money(c.RealizedMonth))
			cards.Append("Realized total", money(m.Realized))
			cards.Append("Latest equity", optMoney(c.LatestEquity))
			cards.Append("Closing fills", fmt.Sprintf("%d (%d won, %d lost)", m.Trades, m.Wins, m.Losses))
			cards.Append("Win rate", fmt.Sprintf("%.2f%%", m.WinRate))
			cards.Append("Profit factor", ratio(m.ProfitFactor))
			cards.Append("Avg win / loss", money(m.AvgWin)+" / "+money(m.AvgLoss))
			cards.Append("Expectancy", money(m.Expectancy))
			cards.Append("Max drawdown", money(m.MaxDrawdown))
			cards.Append("Largest gain / loss", money(c.LargestGain)+" / "+money(c.LargestLoss))
			cards.Append("Avg hold win / loss", hold(c.AvgWinHold)+" / "+hold(c.AvgLossHold))
			cards.Append("Avg daily volume", qty(c.AvgDailyVolume))
			cards.Append("Commissions", money(m.Commissions))
			cards.Render()

			if !charts {
				return nil
			}

			gross := make(map[string]float64, len(d.Charts.GrossDailyPnl))
			for _, v := range d.Charts.GrossDailyPnl {
				gross[v.Date] = v.Value
			}
			cumulative := make(map[string]float64, len(d.Charts.GrossCumulativePnl))
			for _, v := range d.Charts.GrossCumulativePnl {
				cumulative[v.Date] = v.Value
			}
			counts := make(map[string]int, len(d.Charts.DailyTradeCounts))
			for _, v := range d.Charts.DailyTradeCounts {
				counts[v.Date] = v.Count
			}

			daily := newTable(out, "Date", "Fills", "Net", "Gross", "Gross cumulative")
			for _, v := range d.Charts.DailyPnl {
				daily.Append(v.Date, fmt.Sprint(counts[v.Date]), money(v.Value), money(gross[v.Date]), money(cumulative[v.Date]))
			}
			daily.Render()

			hist := newTable(out, "Realized range", "Count")
			for _, b := range d.Charts.Histogram {
				hist.Append(b.Range, fmt.Sprint(b.Count))
			}
			hist.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&charts, "charts", true, "also print the daily and histogram tables")
	return cmd
}
