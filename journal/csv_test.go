package journal

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebook/pnl"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVJournalHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	records := readCSV(t, path)
	require.Len(t, records, 1)
	assert.Equal(t, closedTradeHeader, records[0])
}

func TestCSVJournalRecordClosedTrades(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)

	var _ Journal = j

	g := sampleGroup("T1", t0)
	g.OpeningQuantity = 5
	require.NoError(t, j.RecordClosedTrades(context.Background(), []pnl.ClosedTradeGroup{g}))
	require.NoError(t, j.Close())

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, []string{
		"T1", "U1", "SPY", "LONG",
		"2026-02-20T13:30:00Z", "2026-02-20T14:30:00Z", "2026-02-20",
		"10.000000", "500.000000", "502.000000", "20.000000", "2.000000", "18.000000",
		"5.000000", "2",
	}, records[1])
}

func TestCSVJournalBadPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSV(filepath.Join(t.TempDir(), "missing", "trades.csv"))
	assert.Error(t, err)
}

func TestWriteExecutionPnlCSV(t *testing.T) {
	t.Parallel()

	execs := []ExecutionRecord{
		{Execution: pnl.Execution{ID: "e1", AccountID: "U1", Symbol: "SPY", ExecutedAt: t0, Side: pnl.Buy, Quantity: 10, Price: 500, Commission: 1}},
		{Execution: pnl.Execution{ID: "e2", AccountID: "U1", Symbol: "SPY", ExecutedAt: t0.Add(time.Hour), Side: pnl.Sell, Quantity: 10, Price: 502, Commission: 1}},
	}
	rows := []pnl.ExecutionPnl{
		{ExecutionID: "e2", MatchedQuantity: 10, GrossRealizedPnl: 20, RealizedPnl: 19, CumulativePnl: 18, AvgHoldTimeMs: 3600000},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteExecutionPnlCSV(&buf, execs, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, executionPnlHeader, records[0])

	// e1 opened a lot and has no matcher output
	assert.Equal(t, "0.000000", records[1][9])
	assert.Equal(t, "0", records[1][13])

	assert.Equal(t, []string{
		"e2", "U1", "SPY", "2026-02-20T15:30:00Z", "SELL", "10.000000", "502.000000",
		"1.000000", "0.000000", "10.000000", "20.000000", "19.000000", "18.000000", "3600000",
	}, records[2])
}
