package pnl

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrUnbalancedCycle is returned when a completed cycle does not net to a
// flat position. It signals a bookkeeping bug, not bad input.
var ErrUnbalancedCycle = errors.New("closed trade cycle is not flat")

// UnbalancedCycleError carries the details of a cycle that failed the
// flat check.
type UnbalancedCycleError struct {
	Scope    string
	OpenTime time.Time
	Residue  float64
}

func (e *UnbalancedCycleError) Error() string {
	return fmt.Sprintf("%s: scope %s opened %s: residue %g",
		ErrUnbalancedCycle, e.Scope, e.OpenTime.UTC().Format(time.RFC3339), e.Residue)
}

func (e *UnbalancedCycleError) Unwrap() error {
	return ErrUnbalancedCycle
}

// ComputeClosedTradeGroups splits the executions of every account and
// instrument into flat-to-flat cycles. Opening positions are looked up by
// ScopeKey and seed the ledger as a single lot. Groups come back most
// recent close first.
func ComputeClosedTradeGroups(executions []Execution, opening map[string]OpeningPosition) ([]ClosedTradeGroup, error) {
	byScope := make(map[string][]Execution)
	var keys []string
	for _, exec := range sortedExecutions(executions) {
		k := exec.Key()
		if _, ok := byScope[k]; !ok {
			keys = append(keys, k)
		}
		byScope[k] = append(byScope[k], exec)
	}
	sort.Strings(keys)

	var out []ClosedTradeGroup
	for _, k := range keys {
		groups, err := groupScope(k, byScope[k], opening[k])
		if err != nil {
			return nil, err
		}
		out = append(out, groups...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CloseTime.Equal(out[j].CloseTime) {
			return out[i].CloseTime.After(out[j].CloseTime)
		}
		return out[i].TradeID < out[j].TradeID
	})
	return out, nil
}

type workingTrade struct {
	accountID    string
	instrumentID string
	symbol       string
	side         Direction
	openTime     time.Time
	openingQty   float64

	entryQty   float64
	entryValue float64
	exitQty    float64
	exitValue  float64
	grossPnl   float64
	commission float64

	executions []CycleExecution
}

// scopeGrouper holds the working state for one account and instrument.
type scopeGrouper struct {
	scope    string
	ledger   Ledger
	position float64
	current  *workingTrade
	closed   int
	groups   []ClosedTradeGroup
}

func groupScope(scope string, rows []Execution, opening OpeningPosition) ([]ClosedTradeGroup, error) {
	g := &scopeGrouper{scope: scope}

	if signOf(opening.Quantity) != 0 && len(rows) > 0 {
		first := rows[0]
		g.ledger.Push(Lot{Qty: opening.Quantity, Price: opening.AvgCost, OpenedAt: first.ExecutedAt})
		g.position = opening.Quantity
		g.current = newWorkingTrade(first, opening.Quantity, opening.Quantity)
		g.current.entryQty = abs(opening.Quantity)
		g.current.entryValue = abs(opening.Quantity) * opening.AvgCost
	}

	for _, exec := range rows {
		if err := g.apply(exec); err != nil {
			return nil, err
		}
	}
	return g.groups, nil
}

func newWorkingTrade(exec Execution, direction, openingQty float64) *workingTrade {
	side := Long
	if direction < 0 {
		side = Short
	}
	return &workingTrade{
		accountID:    exec.AccountID,
		instrumentID: exec.InstrumentID,
		symbol:       exec.Symbol,
		side:         side,
		openTime:     exec.ExecutedAt,
		openingQty:   openingQty,
	}
}

// apply walks one execution through the cycle state. The same-direction
// part extends the position; the opposing part closes FIFO lots. When a
// fill reverses the position the old cycle is closed and emitted before
// the remainder opens a new one.
func (g *scopeGrouper) apply(exec Execution) error {
	remaining := exec.SignedQuantity()

	for abs(remaining) > Epsilon {
		if g.current == nil {
			g.current = newWorkingTrade(exec, remaining, g.position)
		}

		if signOf(g.position) == 0 || signOf(remaining) == signOf(g.position) {
			g.open(exec, remaining)
			remaining = 0
			continue
		}

		closeQty := min(abs(remaining), abs(g.position))
		closeSigned := float64(signOf(remaining)) * closeQty
		g.close(exec, closeSigned)
		remaining -= closeSigned

		if signOf(g.position) == 0 && g.current.exitQty > Epsilon {
			if err := g.emit(exec.ExecutedAt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *scopeGrouper) open(exec Execution, signed float64) {
	qty := abs(signed)
	fraction := fractionOf(qty, exec.Quantity)

	g.ledger.Push(Lot{Qty: signed, Price: exec.Price, OpenedAt: exec.ExecutedAt})
	g.position += signed

	c := g.current
	c.entryQty += qty
	c.entryValue += qty * exec.Price
	c.commission += exec.Costs() * fraction
	c.executions = append(c.executions, cycleSlice(exec, signed, fraction))
}

func (g *scopeGrouper) close(exec Execution, signed float64) {
	qty := abs(signed)
	fraction := fractionOf(qty, exec.Quantity)

	var gross float64
	for toMatch := qty; toMatch > Epsilon; {
		lot, ok := g.ledger.Front()
		if !ok || signOf(lot.Qty) == signOf(signed) {
			break
		}
		m := min(toMatch, abs(lot.Qty))
		if lot.Qty > 0 {
			gross += m * (exec.Price - lot.Price)
		} else {
			gross += m * (lot.Price - exec.Price)
		}
		g.ledger.ConsumeFront(m)
		toMatch -= m
	}
	g.position += signed

	c := g.current
	c.exitQty += qty
	c.exitValue += qty * exec.Price
	c.grossPnl += gross
	c.commission += exec.Costs() * fraction
	c.executions = append(c.executions, cycleSlice(exec, signed, fraction))
}

// emit closes the current cycle. A cycle whose members (plus inherited
// inventory) do not net to zero, or that leaves lots behind, is refused.
func (g *scopeGrouper) emit(closeTime time.Time) error {
	c := g.current

	residue := c.openingQty
	for _, m := range c.executions {
		residue += m.SignedQuantity()
	}
	if abs(residue) <= balanceTolerance {
		residue = g.ledger.Net()
	}
	if abs(residue) > balanceTolerance {
		err := &UnbalancedCycleError{Scope: g.scope, OpenTime: c.openTime, Residue: residue}
		slog.Error("refusing to emit unbalanced trade cycle",
			"scope", g.scope,
			"open_time", c.openTime,
			"residue", residue,
		)
		return err
	}

	g.closed++
	id := stableTradeID(c, closeTime, g.closed)

	group := ClosedTradeGroup{
		TradeID:          id,
		GroupKey:         id,
		AccountID:        c.accountID,
		InstrumentID:     c.instrumentID,
		Symbol:           c.symbol,
		Side:             c.side,
		OpenTime:         c.openTime,
		CloseTime:        closeTime,
		TradeDate:        closeTime.UTC().Format("2006-01-02"),
		TotalQuantity:    c.exitQty,
		GrossRealizedPnl: c.grossPnl,
		RealizedPnl:      c.grossPnl - c.commission,
		TotalCommission:  c.commission,
		OpeningQuantity:  c.openingQty,
		Executions:       c.executions,
	}
	if c.entryQty > Epsilon {
		group.AvgEntryPrice = c.entryValue / c.entryQty
	}
	if c.exitQty > Epsilon {
		group.AvgExitPrice = c.exitValue / c.exitQty
	}
	g.groups = append(g.groups, group)

	g.current = nil
	g.position = 0
	g.ledger = Ledger{}
	return nil
}

func cycleSlice(exec Execution, signed, fraction float64) CycleExecution {
	return CycleExecution{
		ID:         exec.ID,
		ExecutedAt: exec.ExecutedAt,
		Side:       sideOf(signed),
		Quantity:   abs(signed),
		Fraction:   fraction,
		Price:      exec.Price,
		Commission: exec.Commission * fraction,
		Fees:       exec.Fees * fraction,
	}
}

func fractionOf(qty, total float64) float64 {
	if total <= Epsilon {
		return 0
	}
	return qty / total
}

func stableTradeID(c *workingTrade, closeTime time.Time, ordinal int) string {
	first, last := "none", "none"
	if n := len(c.executions); n > 0 {
		first = c.executions[0].ID
		last = c.executions[n-1].ID
	}
	return strings.Join([]string{
		c.accountID,
		c.instrumentID,
		strconv.FormatInt(c.openTime.UnixMilli(), 10),
		strconv.FormatInt(closeTime.UnixMilli(), 10),
		strconv.Itoa(ordinal),
		first,
		last,
	}, ":")
}
