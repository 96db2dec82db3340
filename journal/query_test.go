package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebook/importer"
	"github.com/rustyeddy/tradebook/pnl"
)

func seedExecutions(t *testing.T, j *SQLite) {
	t.Helper()

	tsla := execRow("TSLA", 30, pnl.Sell, 5, 200)
	tsla.Strategy = "fade"
	_, err := storeExecutions(context.Background(), j, "seed.csv", []importer.ExecutionImport{
		execRow("SPY", 0, pnl.Buy, 10, 500),
		execRow("SPY", 60, pnl.Sell, 10, 502),
		tsla,
	})
	require.NoError(t, err)
}

func TestListExecutionsFilters(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	seedExecutions(t, j)

	tests := []struct {
		name    string
		filter  ExecutionFilter
		symbols []string
	}{
		{"all", ExecutionFilter{}, []string{"SPY", "TSLA", "SPY"}},
		{"symbol", ExecutionFilter{Symbol: "SPY"}, []string{"SPY", "SPY"}},
		{"side", ExecutionFilter{Side: pnl.Sell}, []string{"TSLA", "SPY"}},
		{"strategy", ExecutionFilter{Strategy: "fade"}, []string{"TSLA"}},
		{"account", ExecutionFilter{AccountID: "U9"}, nil},
		{"from inclusive", ExecutionFilter{From: t0.Add(30 * time.Minute)}, []string{"TSLA", "SPY"}},
		{"to exclusive", ExecutionFilter{To: t0.Add(60 * time.Minute)}, []string{"SPY", "TSLA"}},
		{"window", ExecutionFilter{From: t0.Add(time.Minute), To: t0.Add(61 * time.Minute)}, []string{"TSLA", "SPY"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			execs, err := j.ListExecutions(context.Background(), tt.filter)
			require.NoError(t, err)

			var got []string
			for _, e := range execs {
				got = append(got, e.Symbol)
			}
			assert.Equal(t, tt.symbols, got)
		})
	}
}

func TestGetExecution(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	seedExecutions(t, j)
	ctx := context.Background()

	execs, err := j.ListExecutions(ctx, ExecutionFilter{Strategy: "fade"})
	require.NoError(t, err)
	require.Len(t, execs, 1)

	got, err := j.GetExecution(ctx, execs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, execs[0], got)
	assert.Equal(t, pnl.Sell, got.Side)
	assert.Equal(t, 5.0, got.Quantity)
	assert.Equal(t, importer.AssetStock, got.AssetType)
	assert.NotEmpty(t, got.BatchID)

	_, err = j.GetExecution(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestPositionBefore(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	for i, day := range []int{16, 17, 19} {
		d := time.Date(2026, 2, day, 0, 0, 0, 0, time.UTC)
		_, err := storePositions(ctx, j, "p.csv", []importer.PositionImport{{
			Account: "U1", Symbol: "TSLA", AssetType: importer.AssetStock,
			ReportDate: d, Quantity: float64(100 * (i + 1)), AvgCost: 90, Currency: "USD",
		}}, d)
		require.NoError(t, err)
	}

	positions, err := j.ListPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	inst := positions[0].InstrumentID

	tests := []struct {
		before string
		date   string
		qty    float64
	}{
		{"2026-02-20", "2026-02-19", 300},
		{"2026-02-19", "2026-02-17", 200},
		{"2026-02-17", "2026-02-16", 100},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.before, func(t *testing.T) {
			snap, err := j.LatestPositionBefore(ctx, "U1", inst, tt.before)
			require.NoError(t, err)
			assert.Equal(t, tt.date, snap.Date)
			assert.Equal(t, tt.qty, snap.Quantity)
			assert.Equal(t, "TSLA", snap.Symbol)
		})
	}

	_, err = j.LatestPositionBefore(ctx, "U1", inst, "2026-02-16")
	assert.ErrorIs(t, err, ErrNotFound)
}
