package pnl

import (
	"sort"
	"time"
)

// ComputeExecutionPnl matches every execution FIFO against the open lots of
// its account and instrument and returns one row per execution, ordered by
// (ExecutedAt, ID). CumulativePnl runs along that order across all scopes.
func ComputeExecutionPnl(executions []Execution) []ExecutionPnl {
	sorted := sortedExecutions(executions)
	ledgers := make(map[string]*Ledger)
	rows := make([]ExecutionPnl, 0, len(sorted))

	var cumulative float64
	for _, exec := range sorted {
		ledger, ok := ledgers[exec.Key()]
		if !ok {
			ledger = &Ledger{}
			ledgers[exec.Key()] = ledger
		}

		row := matchExecution(ledger, exec)
		cumulative += row.RealizedPnl
		row.CumulativePnl = cumulative
		rows = append(rows, row)
	}
	return rows
}

// matchExecution closes opposing lots from the head of the ledger and pushes
// whatever is left of the execution as a new lot. A fill larger than the
// open position therefore closes it and opens the other side in one step.
func matchExecution(ledger *Ledger, exec Execution) ExecutionPnl {
	delta := exec.SignedQuantity()

	var gross, matched, holdWeighted float64
	for abs(delta) > Epsilon {
		lot, ok := ledger.Front()
		if !ok || signOf(lot.Qty) == signOf(delta) {
			break
		}

		qty := min(abs(delta), abs(lot.Qty))
		if lot.Qty > 0 {
			gross += qty * (exec.Price - lot.Price)
		} else {
			gross += qty * (lot.Price - exec.Price)
		}

		matched += qty
		holdWeighted += float64(holdMillis(lot.OpenedAt, exec.ExecutedAt)) * qty
		ledger.ConsumeFront(qty)

		if delta > 0 {
			delta -= qty
		} else {
			delta += qty
		}
	}

	if abs(delta) > Epsilon {
		ledger.Push(Lot{Qty: delta, Price: exec.Price, OpenedAt: exec.ExecutedAt})
	}

	row := ExecutionPnl{
		ExecutionID:      exec.ID,
		GrossRealizedPnl: gross,
		RealizedPnl:      gross - exec.Costs(),
		MatchedQuantity:  matched,
	}
	if matched > 0 {
		row.AvgHoldTimeMs = holdWeighted / matched
	}
	return row
}

func holdMillis(opened, closed time.Time) int64 {
	ms := closed.Sub(opened).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

// sortedExecutions returns a copy ordered by executed time, ties broken by ID.
func sortedExecutions(executions []Execution) []Execution {
	out := make([]Execution, len(executions))
	copy(out, executions)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ExecutedAt.Equal(out[j].ExecutedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ExecutedAt.Before(out[j].ExecutedAt)
	})
	return out
}

// TotalCommissions sums commission and fees across all executions,
// whether or not they closed anything.
func TotalCommissions(executions []Execution) float64 {
	var total float64
	for _, exec := range executions {
		total += exec.Costs()
	}
	return total
}
