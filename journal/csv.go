package journal

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/tradebook/pnl"
)

var closedTradeHeader = []string{
	"trade_id", "account_id", "symbol", "side", "open_time", "close_time", "trade_date",
	"quantity", "avg_entry_price", "avg_exit_price", "gross_pnl", "commission", "net_pnl",
	"opening_quantity", "executions",
}

var executionPnlHeader = []string{
	"execution_id", "account_id", "symbol", "executed_at", "side", "quantity", "price",
	"commission", "fees", "matched_quantity", "gross_pnl", "net_pnl", "cumulative_pnl", "avg_hold_ms",
}

// CSVJournal writes closed trades to a CSV file.
type CSVJournal struct {
	trades *csv.Writer
	tf     *os.File
}

func NewCSV(tradesPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}

	tw := csv.NewWriter(tf)
	if err := tw.Write(closedTradeHeader); err != nil {
		_ = tf.Close()
		return nil, err
	}
	tw.Flush()
	if err := tw.Error(); err != nil {
		_ = tf.Close()
		return nil, err
	}

	return &CSVJournal{trades: tw, tf: tf}, nil
}

func (j *CSVJournal) RecordClosedTrades(_ context.Context, groups []pnl.ClosedTradeGroup) error {
	for _, g := range groups {
		if err := j.trades.Write(closedTradeRow(g)); err != nil {
			return err
		}
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		_ = j.tf.Close()
		return err
	}
	return j.tf.Close()
}

func closedTradeRow(g pnl.ClosedTradeGroup) []string {
	return []string{
		g.TradeID,
		g.AccountID,
		g.Symbol,
		string(g.Side),
		g.OpenTime.UTC().Format(time.RFC3339),
		g.CloseTime.UTC().Format(time.RFC3339),
		g.TradeDate,
		f(g.TotalQuantity),
		f(g.AvgEntryPrice),
		f(g.AvgExitPrice),
		f(g.GrossRealizedPnl),
		f(g.TotalCommission),
		f(g.RealizedPnl),
		f(g.OpeningQuantity),
		strconv.Itoa(len(g.Executions)),
	}
}

// WriteExecutionPnlCSV writes one row per execution joined with its
// matcher output. Executions without a row get zero P&L columns.
func WriteExecutionPnlCSV(w io.Writer, execs []ExecutionRecord, rows []pnl.ExecutionPnl) error {
	byID := make(map[string]pnl.ExecutionPnl, len(rows))
	for _, r := range rows {
		byID[r.ExecutionID] = r
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(executionPnlHeader); err != nil {
		return err
	}
	for _, e := range execs {
		r := byID[e.ID]
		if err := cw.Write([]string{
			e.ID,
			e.AccountID,
			e.Symbol,
			e.ExecutedAt.UTC().Format(time.RFC3339),
			string(e.Side),
			f(e.Quantity),
			f(e.Price),
			f(e.Commission),
			f(e.Fees),
			f(r.MatchedQuantity),
			f(r.GrossRealizedPnl),
			f(r.RealizedPnl),
			f(r.CumulativePnl),
			strconv.FormatFloat(r.AvgHoldTimeMs, 'f', 0, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
