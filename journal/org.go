package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradebook/pnl"
)

// FormatClosedTradeOrg renders a closed trade as an Org-mode entry for a
// trading journal. Facts go in the PROPERTIES drawer, the notes and the
// member fills go in the body.
func FormatClosedTradeOrg(g pnl.ClosedTradeGroup, note string) string {
	heading := fmt.Sprintf("** Trade: %s %s %s", g.Symbol, g.Side, g.TradeDate)
	open := g.OpenTime.UTC().Format(time.RFC3339)
	close := g.CloseTime.UTC().Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", g.TradeID))
	b.WriteString(fmt.Sprintf(":ACCOUNT: %s\n", g.AccountID))
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", g.Symbol))
	b.WriteString(fmt.Sprintf(":SIDE: %s\n", g.Side))
	b.WriteString(fmt.Sprintf(":QUANTITY: %s\n", qty(g.TotalQuantity)))
	if g.OpeningQuantity != 0 {
		b.WriteString(fmt.Sprintf(":OPENING_QUANTITY: %s\n", qty(g.OpeningQuantity)))
	}
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.4f\n", g.AvgEntryPrice))
	b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.4f\n", g.AvgExitPrice))
	b.WriteString(fmt.Sprintf(":OPEN_TIME: %s\n", open))
	b.WriteString(fmt.Sprintf(":CLOSE_TIME: %s\n", close))
	b.WriteString(fmt.Sprintf(":GROSS_PL: %.2f\n", g.GrossRealizedPnl))
	b.WriteString(fmt.Sprintf(":COMMISSION: %.2f\n", g.TotalCommission))
	b.WriteString(fmt.Sprintf(":REALIZED_PL: %.2f\n", g.RealizedPnl))
	b.WriteString(":END:\n")
	b.WriteString("\n")

	b.WriteString("*** Executions\n")
	b.WriteString("| Time | Side | Qty | Price | Commission |\n")
	b.WriteString("|------+------+-----+-------+------------|\n")
	for _, m := range g.Executions {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f | %.2f |\n",
			m.ExecutedAt.UTC().Format("2006-01-02 15:04:05"), m.Side, qty(m.Quantity), m.Price, m.Commission+m.Fees))
	}
	b.WriteString("\n")

	b.WriteString("*** Review\n")
	if note = strings.TrimSpace(note); note != "" {
		b.WriteString(note)
		b.WriteString("\n")
	} else {
		b.WriteString("- \n")
	}

	return b.String()
}

// FormatClosedTradesOrg renders multiple trades separated by blank lines.
// notes is keyed by trade id and may be nil.
func FormatClosedTradesOrg(groups []pnl.ClosedTradeGroup, notes map[string]string) string {
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatClosedTradeOrg(g, notes[g.TradeID]))
	}
	return b.String()
}

// qty prints whole share counts without decimals.
func qty(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
