package pnl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 20, 14, 30, 0, 0, time.UTC)

// fill builds an execution in account a1. offset is minutes after t0.
func fill(id, instrument string, offset int, side Side, qty, price, commission float64) Execution {
	return Execution{
		ID:           id,
		AccountID:    "a1",
		InstrumentID: instrument,
		Symbol:       instrument,
		ExecutedAt:   t0.Add(time.Duration(offset) * time.Minute),
		Side:         side,
		Quantity:     qty,
		Price:        price,
		Commission:   commission,
	}
}

func TestComputeExecutionPnlLongRoundTrip(t *testing.T) {
	t.Parallel()

	rows := ComputeExecutionPnl([]Execution{
		fill("1", "SPY", 0, Buy, 100, 100, 1),
		fill("2", "SPY", 60, Sell, 100, 105, 1),
	})

	require.Len(t, rows, 2)
	assert.Equal(t, -1.0, rows[0].RealizedPnl)
	assert.Equal(t, 0.0, rows[0].MatchedQuantity)
	assert.Equal(t, 499.0, rows[1].RealizedPnl)
	assert.Equal(t, 500.0, rows[1].GrossRealizedPnl)
	assert.Equal(t, 100.0, rows[1].MatchedQuantity)
	assert.Equal(t, 498.0, rows[1].CumulativePnl)
	assert.InDelta(t, float64(time.Hour.Milliseconds()), rows[1].AvgHoldTimeMs, 1e-9)
}

func TestComputeExecutionPnlShortPartials(t *testing.T) {
	t.Parallel()

	rows := ComputeExecutionPnl([]Execution{
		fill("1", "TSLA", 0, Sell, 50, 200, 1),
		fill("2", "TSLA", 120, Buy, 20, 190, 1),
		fill("3", "TSLA", 180, Buy, 30, 210, 1),
	})

	require.Len(t, rows, 3)
	assert.Equal(t, 199.0, rows[1].RealizedPnl)
	assert.Equal(t, -301.0, rows[2].RealizedPnl)
	assert.Equal(t, 30.0, rows[2].MatchedQuantity)
}

func TestComputeExecutionPnlSumMatchesRoundTrip(t *testing.T) {
	t.Parallel()

	execs := []Execution{
		fill("1", "NVDA", 0, Buy, 10, 100, 1),
		fill("2", "NVDA", 1, Buy, 20, 101, 1),
		fill("3", "NVDA", 2, Sell, 15, 105, 1),
		fill("4", "NVDA", 3, Sell, 15, 102, 1),
	}

	var sum float64
	for _, row := range ComputeExecutionPnl(execs) {
		sum += row.RealizedPnl
	}

	entry := 10*100.0 + 20*101.0
	exit := 15*105.0 + 15*102.0
	assert.InDelta(t, exit-entry-TotalCommissions(execs), sum, 1e-9)
}

func TestComputeExecutionPnlConsumesOldestLotFirst(t *testing.T) {
	t.Parallel()

	rows := ComputeExecutionPnl([]Execution{
		fill("1", "AAPL", 0, Buy, 10, 100, 0),
		fill("2", "AAPL", 1, Buy, 10, 110, 0),
		fill("3", "AAPL", 2, Buy, 10, 120, 0),
		fill("4", "AAPL", 3, Sell, 5, 130, 0),
		fill("5", "AAPL", 4, Sell, 10, 130, 0),
	})

	assert.Equal(t, 150.0, rows[3].GrossRealizedPnl)
	// five left from the first lot at 100, then five from the lot at 110
	assert.Equal(t, 250.0, rows[4].GrossRealizedPnl)
}

func TestComputeExecutionPnlReversal(t *testing.T) {
	t.Parallel()

	rows := ComputeExecutionPnl([]Execution{
		fill("1", "MSFT", 0, Buy, 100, 50, 0),
		fill("2", "MSFT", 1, Sell, 150, 55, 0),
		fill("3", "MSFT", 2, Buy, 50, 53, 0),
	})

	assert.Equal(t, 100.0, rows[1].MatchedQuantity)
	assert.Equal(t, 500.0, rows[1].GrossRealizedPnl)

	// the remaining 50 became a short at 55
	assert.Equal(t, 50.0, rows[2].MatchedQuantity)
	assert.Equal(t, 100.0, rows[2].GrossRealizedPnl)
}

func TestComputeExecutionPnlOrdering(t *testing.T) {
	t.Parallel()

	a := fill("b", "SPY", 0, Buy, 1, 10, 0)
	b := fill("a", "SPY", 0, Buy, 1, 10, 0)
	c := fill("c", "QQQ", 5, Sell, 1, 20, 0)
	d := fill("d", "SPY", 10, Sell, 2, 15, 0)
	e := fill("e", "QQQ", 20, Buy, 1, 18, 0)

	rows := ComputeExecutionPnl([]Execution{e, d, c, a, b})

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ExecutionID
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)

	// cumulative runs across both instruments in time order
	assert.Equal(t, 0.0, rows[2].CumulativePnl)
	assert.Equal(t, 10.0, rows[3].CumulativePnl)
	assert.Equal(t, 12.0, rows[4].CumulativePnl)
}

func TestComputeExecutionPnlHoldTime(t *testing.T) {
	t.Parallel()

	rows := ComputeExecutionPnl([]Execution{
		fill("1", "SPY", 0, Buy, 10, 100, 0),
		fill("2", "SPY", 60, Buy, 10, 100, 0),
		fill("3", "SPY", 120, Sell, 20, 100, 0),
	})

	want := float64((90 * time.Minute).Milliseconds())
	assert.InDelta(t, want, rows[2].AvgHoldTimeMs, 1e-6)
	assert.Equal(t, 0.0, rows[0].AvgHoldTimeMs)
}

func TestComputeExecutionPnlFractionalFlat(t *testing.T) {
	t.Parallel()

	rows := ComputeExecutionPnl([]Execution{
		fill("1", "BTC", 0, Buy, 0.1, 100, 0),
		fill("2", "BTC", 1, Buy, 0.2, 100, 0),
		fill("3", "BTC", 2, Sell, 0.3, 110, 0),
		fill("4", "BTC", 3, Sell, 1, 120, 0),
	})

	assert.InDelta(t, 0.3, rows[2].MatchedQuantity, 1e-12)
	assert.InDelta(t, 3.0, rows[2].GrossRealizedPnl, 1e-9)
	// nothing left behind to match against
	assert.Equal(t, 0.0, rows[3].MatchedQuantity)
}

func TestComputeExecutionPnlSeparatesAccounts(t *testing.T) {
	t.Parallel()

	buy := fill("1", "SPY", 0, Buy, 10, 100, 0)
	sell := fill("2", "SPY", 1, Sell, 10, 110, 0)
	sell.AccountID = "a2"

	rows := ComputeExecutionPnl([]Execution{buy, sell})
	assert.Equal(t, 0.0, rows[1].MatchedQuantity)
}

func TestComputeExecutionPnlDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []Execution{
		fill("2", "SPY", 10, Sell, 10, 110, 0),
		fill("1", "SPY", 0, Buy, 10, 100, 0),
	}
	ComputeExecutionPnl(in)
	assert.Equal(t, "2", in[0].ID)
}

func TestTotalCommissions(t *testing.T) {
	t.Parallel()

	a := fill("1", "SPY", 0, Buy, 10, 100, 1.25)
	a.Fees = 0.5
	b := fill("2", "SPY", 1, Sell, 10, 100, 1)

	assert.InDelta(t, 2.75, TotalCommissions([]Execution{a, b}), 1e-12)
	assert.Equal(t, 0.0, TotalCommissions(nil))
}
