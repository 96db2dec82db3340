package pnl

import (
	"errors"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosedTradesSingleLongCycle(t *testing.T) {
	t.Parallel()

	groups, err := ComputeClosedTradeGroups([]Execution{
		fill("1", "SPY", 0, Buy, 100, 100, 1),
		fill("2", "SPY", 60, Sell, 100, 105, 1),
	}, nil)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, Long, g.Side)
	assert.Equal(t, "a1", g.AccountID)
	assert.Equal(t, "SPY", g.Symbol)
	assert.Equal(t, 100.0, g.TotalQuantity)
	assert.Equal(t, 100.0, g.AvgEntryPrice)
	assert.Equal(t, 105.0, g.AvgExitPrice)
	assert.Equal(t, 500.0, g.GrossRealizedPnl)
	assert.Equal(t, 2.0, g.TotalCommission)
	assert.Equal(t, 498.0, g.RealizedPnl)
	assert.Equal(t, 0.0, g.OpeningQuantity)
	assert.Equal(t, 0.0, g.ClosingQuantity)
	assert.True(t, g.OpenTime.Equal(t0))
	assert.True(t, g.CloseTime.Equal(t0.Add(time.Hour)))
	assert.Equal(t, "2026-02-20", g.TradeDate)
	assert.Equal(t, g.TradeID, g.GroupKey)
	require.Len(t, g.Executions, 2)
	assert.Equal(t, Buy, g.Executions[0].Side)
	assert.Equal(t, Sell, g.Executions[1].Side)
	assert.Equal(t, 1.0, g.Executions[1].Fraction)
}

func TestClosedTradesScaleInAndOut(t *testing.T) {
	t.Parallel()

	groups, err := ComputeClosedTradeGroups([]Execution{
		fill("1", "NVDA", 0, Buy, 50, 10, 0),
		fill("2", "NVDA", 1, Buy, 50, 12, 0),
		fill("3", "NVDA", 2, Sell, 30, 15, 0),
		fill("4", "NVDA", 3, Sell, 70, 14, 0),
	}, nil)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.InDelta(t, 330.0, g.GrossRealizedPnl, 1e-9)
	assert.InDelta(t, 11.0, g.AvgEntryPrice, 1e-9)
	assert.InDelta(t, 14.3, g.AvgExitPrice, 1e-9)
	assert.Equal(t, 100.0, g.TotalQuantity)
	assert.Len(t, g.Executions, 4)
}

func TestClosedTradesReversalSplitsExecution(t *testing.T) {
	t.Parallel()

	groups, err := ComputeClosedTradeGroups([]Execution{
		fill("1", "MSFT", 0, Buy, 100, 50, 1),
		fill("2", "MSFT", 10, Sell, 150, 55, 1.5),
		fill("3", "MSFT", 20, Buy, 50, 53, 0.5),
	}, nil)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// most recent close first
	short, long := groups[0], groups[1]

	assert.Equal(t, Long, long.Side)
	assert.Equal(t, 500.0, long.GrossRealizedPnl)
	assert.InDelta(t, 2.0, long.TotalCommission, 1e-9)
	require.Len(t, long.Executions, 2)
	assert.Equal(t, "2", long.Executions[1].ID)
	assert.Equal(t, 100.0, long.Executions[1].Quantity)
	assert.InDelta(t, 2.0/3.0, long.Executions[1].Fraction, 1e-12)
	assert.InDelta(t, 1.0, long.Executions[1].Commission, 1e-12)

	assert.Equal(t, Short, short.Side)
	assert.Equal(t, 0.0, short.OpeningQuantity)
	assert.Equal(t, 50.0, short.TotalQuantity)
	assert.Equal(t, 55.0, short.AvgEntryPrice)
	assert.Equal(t, 53.0, short.AvgExitPrice)
	assert.InDelta(t, 100.0, short.GrossRealizedPnl, 1e-9)
	assert.InDelta(t, 1.0, short.TotalCommission, 1e-9)
	assert.InDelta(t, 99.0, short.RealizedPnl, 1e-9)
	require.Len(t, short.Executions, 2)
	assert.Equal(t, Sell, short.Executions[0].Side)
	assert.Equal(t, 50.0, short.Executions[0].Quantity)
	assert.True(t, short.OpenTime.Equal(long.CloseTime))
}

func TestClosedTradesOpeningPosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opening OpeningPosition
		exec    Execution
		side    Direction
		entry   float64
		gross   float64
	}{
		{
			name:    "long inventory sold",
			opening: OpeningPosition{Quantity: 100, AvgCost: 90},
			exec:    fill("1", "TSLA", 0, Sell, 100, 100, 1),
			side:    Long,
			entry:   90,
			gross:   1000,
		},
		{
			name:    "short inventory covered",
			opening: OpeningPosition{Quantity: -50, AvgCost: 20},
			exec:    fill("1", "TSLA", 0, Buy, 50, 18, 1),
			side:    Short,
			entry:   20,
			gross:   100,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opening := map[string]OpeningPosition{ScopeKey("a1", "TSLA"): tt.opening}
			groups, err := ComputeClosedTradeGroups([]Execution{tt.exec}, opening)
			require.NoError(t, err)
			require.Len(t, groups, 1)

			g := groups[0]
			assert.Equal(t, tt.side, g.Side)
			assert.Equal(t, tt.opening.Quantity, g.OpeningQuantity)
			assert.Equal(t, tt.entry, g.AvgEntryPrice)
			assert.InDelta(t, tt.gross, g.GrossRealizedPnl, 1e-9)
			assert.InDelta(t, tt.gross-1, g.RealizedPnl, 1e-9)
			require.Len(t, g.Executions, 1)
		})
	}
}

func TestClosedTradesOpenPositionNotEmitted(t *testing.T) {
	t.Parallel()

	groups, err := ComputeClosedTradeGroups([]Execution{
		fill("1", "SPY", 0, Buy, 100, 100, 0),
		fill("2", "SPY", 1, Sell, 40, 101, 0),
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestClosedTradesOrderingAndIDs(t *testing.T) {
	t.Parallel()

	execs := []Execution{
		fill("1", "SPY", 0, Buy, 1, 10, 0),
		fill("2", "SPY", 5, Sell, 1, 11, 0),
		fill("3", "QQQ", 1, Sell, 1, 20, 0),
		fill("4", "QQQ", 5, Buy, 1, 19, 0),
		fill("5", "SPY", 7, Buy, 1, 10, 0),
		fill("6", "SPY", 9, Sell, 1, 12, 0),
	}

	groups, err := ComputeClosedTradeGroups(execs, nil)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, "6", groups[0].Executions[1].ID)
	// QQQ and SPY share the close instant; trade id breaks the tie
	assert.Equal(t, "QQQ", groups[1].Symbol)
	assert.Equal(t, "SPY", groups[2].Symbol)

	openMs := t0.Add(7 * time.Minute).UnixMilli()
	closeMs := t0.Add(9 * time.Minute).UnixMilli()
	assert.Equal(t, "a1:SPY:"+itoa(openMs)+":"+itoa(closeMs)+":2:5:6", groups[0].TradeID)
}

func TestClosedTradesIdempotent(t *testing.T) {
	t.Parallel()

	execs := randomExecutions(rand.New(rand.NewSource(7)), 200)
	opening := map[string]OpeningPosition{
		ScopeKey("a1", "AAA"): {Quantity: 30, AvgCost: 100},
		ScopeKey("a1", "BBB"): {Quantity: -20, AvgCost: 50},
	}

	first, err := ComputeClosedTradeGroups(execs, opening)
	require.NoError(t, err)
	second, err := ComputeClosedTradeGroups(execs, opening)
	require.NoError(t, err)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestClosedTradesAlwaysFlat(t *testing.T) {
	t.Parallel()

	for seed := int64(1); seed <= 20; seed++ {
		execs := randomExecutions(rand.New(rand.NewSource(seed)), 150)
		opening := map[string]OpeningPosition{ScopeKey("a1", "AAA"): {Quantity: 7, AvgCost: 101}}

		groups, err := ComputeClosedTradeGroups(execs, opening)
		require.NoError(t, err)

		for _, g := range groups {
			net := g.OpeningQuantity
			var closed float64
			for _, m := range g.Executions {
				net += m.SignedQuantity()
				assert.Greater(t, m.Fraction, 0.0)
				assert.LessOrEqual(t, m.Fraction, 1.0+1e-12)
			}
			for _, m := range g.Executions {
				if (g.Side == Long && m.Side == Sell) || (g.Side == Short && m.Side == Buy) {
					closed += m.Quantity
				}
			}
			assert.InDelta(t, 0.0, net, 1e-6, "seed %d trade %s", seed, g.TradeID)
			assert.InDelta(t, g.TotalQuantity, closed, 1e-6)
		}
	}
}

func TestClosedTradesGrossMatchesMatcher(t *testing.T) {
	t.Parallel()

	// with no opening inventory every closed unit is matched by both passes
	execs := randomExecutions(rand.New(rand.NewSource(42)), 120)
	groups, err := ComputeClosedTradeGroups(execs, nil)
	require.NoError(t, err)

	rows := ComputeExecutionPnl(execs)

	var groupGross, rowGross float64
	for _, g := range groups {
		groupGross += g.GrossRealizedPnl
	}
	for _, row := range rows {
		rowGross += row.GrossRealizedPnl
	}

	// the matcher also realizes on the trailing open cycle, which groups omit
	open := openCycleGross(t, execs)
	assert.InDelta(t, rowGross, groupGross+open, 1e-6)
}

func TestEmitRefusesUnbalancedCycle(t *testing.T) {
	t.Parallel()

	g := &scopeGrouper{scope: "a1:SPY"}
	g.current = newWorkingTrade(fill("1", "SPY", 0, Buy, 10, 1, 0), 10, 0)
	g.current.exitQty = 10
	g.current.executions = []CycleExecution{{ID: "1", Side: Buy, Quantity: 10}}

	err := g.emit(t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnbalancedCycle))

	var ue *UnbalancedCycleError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "a1:SPY", ue.Scope)
	assert.InDelta(t, 10.0, ue.Residue, 1e-12)
	assert.Contains(t, err.Error(), "a1:SPY")
	assert.Empty(t, g.groups)
}

func TestEmitRefusesLeftoverLots(t *testing.T) {
	t.Parallel()

	g := &scopeGrouper{scope: "a1:SPY"}
	g.current = newWorkingTrade(fill("1", "SPY", 0, Buy, 10, 1, 0), 10, 0)
	g.current.executions = []CycleExecution{
		{ID: "1", Side: Buy, Quantity: 10},
		{ID: "2", Side: Sell, Quantity: 10},
	}
	g.ledger.Push(Lot{Qty: 3, Price: 1})

	err := g.emit(t0)
	assert.ErrorIs(t, err, ErrUnbalancedCycle)
}

// randomExecutions produces integer-sized fills over two instruments.
func randomExecutions(r *rand.Rand, n int) []Execution {
	instruments := []string{"AAA", "BBB"}
	out := make([]Execution, 0, n)
	for i := 0; i < n; i++ {
		side := Buy
		if r.Intn(2) == 0 {
			side = Sell
		}
		e := fill(
			"x"+itoa(int64(1000+i)),
			instruments[r.Intn(len(instruments))],
			r.Intn(n),
			side,
			float64(1+r.Intn(20)),
			50+float64(r.Intn(100))/4,
			float64(r.Intn(3))/2,
		)
		out = append(out, e)
	}
	return out
}

// openCycleGross is the gross realized inside each scope's trailing cycle
// that never returned to flat.
func openCycleGross(t *testing.T, execs []Execution) float64 {
	t.Helper()

	var total float64
	byScope := map[string][]Execution{}
	for _, e := range sortedExecutions(execs) {
		byScope[e.Key()] = append(byScope[e.Key()], e)
	}
	for k, rows := range byScope {
		g := &scopeGrouper{scope: k}
		for _, e := range rows {
			require.NoError(t, g.apply(e))
		}
		if g.current != nil {
			total += g.current.grossPnl
		}
	}
	return total
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
