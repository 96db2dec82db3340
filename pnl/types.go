// Package pnl matches executions against open inventory and derives
// realized P&L, closed trade cycles and summary metrics.
//
// Everything here is pure and synchronous: callers hand over a complete
// batch of executions for the scopes they care about and get values back.
package pnl

import "time"

// Epsilon is the tolerance used for every "is this flat" comparison.
const Epsilon = 1e-8

// balanceTolerance bounds the signed quantity residue of an emitted cycle.
const balanceTolerance = 1e-6

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Direction of a closed trade cycle.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Execution is one broker fill. Quantity is always positive, the side
// carries the direction.
type Execution struct {
	ID           string
	AccountID    string
	InstrumentID string
	Symbol       string
	ExecutedAt   time.Time
	Side         Side
	Quantity     float64
	Price        float64
	Commission   float64
	Fees         float64
}

// SignedQuantity returns +Quantity for buys and -Quantity for sells.
func (e Execution) SignedQuantity() float64 {
	if e.Side == Sell {
		return -e.Quantity
	}
	return e.Quantity
}

// Costs is commission plus fees.
func (e Execution) Costs() float64 {
	return e.Commission + e.Fees
}

// Key identifies the matching scope of the execution.
func (e Execution) Key() string {
	return ScopeKey(e.AccountID, e.InstrumentID)
}

// ScopeKey builds the accountID:instrumentID key used for opening positions.
func ScopeKey(accountID, instrumentID string) string {
	return accountID + ":" + instrumentID
}

// OpeningPosition is inventory held before the first execution in scope,
// with unknown lot history.
type OpeningPosition struct {
	Quantity float64
	AvgCost  float64
}

// ExecutionPnl is the matcher output for a single execution.
type ExecutionPnl struct {
	ExecutionID      string
	RealizedPnl      float64
	GrossRealizedPnl float64
	CumulativePnl    float64
	MatchedQuantity  float64
	AvgHoldTimeMs    float64
}

// CycleExecution is the slice of an execution attributed to one cycle.
type CycleExecution struct {
	ID         string
	ExecutedAt time.Time
	Side       Side
	Quantity   float64
	Fraction   float64
	Price      float64
	Commission float64
	Fees       float64
}

// SignedQuantity of the slice.
func (c CycleExecution) SignedQuantity() float64 {
	if c.Side == Sell {
		return -c.Quantity
	}
	return c.Quantity
}

// ClosedTradeGroup is one flat-to-flat cycle for an account and instrument.
type ClosedTradeGroup struct {
	TradeID          string
	GroupKey         string
	AccountID        string
	InstrumentID     string
	Symbol           string
	Side             Direction
	OpenTime         time.Time
	CloseTime        time.Time
	TradeDate        string
	TotalQuantity    float64
	AvgEntryPrice    float64
	AvgExitPrice     float64
	GrossRealizedPnl float64
	RealizedPnl      float64
	TotalCommission  float64
	OpeningQuantity  float64
	ClosingQuantity  float64
	Executions       []CycleExecution
}

func sideOf(signed float64) Side {
	if signed > 0 {
		return Buy
	}
	return Sell
}

func signOf(v float64) int {
	switch {
	case v > Epsilon:
		return 1
	case v < -Epsilon:
		return -1
	}
	return 0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
