package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/pnl"
)

// ExecutionRow is a stored execution with its matcher result.
type ExecutionRow struct {
	journal.ExecutionRecord
	RealizedPnl     float64
	CommissionTotal float64
	Pnl             pnl.ExecutionPnl
}

// Trades lists executions matching f, newest first. P&L is matched over
// the full history of the account so a date or side filter does not cut
// lots off from the fills that opened them.
func (s *Service) Trades(ctx context.Context, f Filter) ([]ExecutionRow, error) {
	from, to, err := s.window(f)
	if err != nil {
		return nil, fmt.Errorf("trades: %w", err)
	}

	history, err := s.store.ListExecutions(ctx, journal.ExecutionFilter{AccountID: f.AccountID, Symbol: f.Symbol})
	if err != nil {
		return nil, fmt.Errorf("trades: %w", err)
	}
	byID := byExecutionID(pnl.ComputeExecutionPnl(toPnl(history)))

	matching, err := s.store.ListExecutions(ctx, journal.ExecutionFilter{
		AccountID: f.AccountID,
		Symbol:    f.Symbol,
		Side:      f.Side,
		Strategy:  f.Strategy,
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, fmt.Errorf("trades: %w", err)
	}

	out := make([]ExecutionRow, 0, len(matching))
	for i := len(matching) - 1; i >= 0; i-- {
		r := matching[i]
		row := byID[r.ID]
		out = append(out, ExecutionRow{
			ExecutionRecord: r,
			RealizedPnl:     row.RealizedPnl,
			CommissionTotal: r.Costs(),
			Pnl:             row,
		})
	}
	return out, nil
}

// ClosedTradeFilter narrows ClosedTrades. From and To bound the trade
// date, both inclusive.
type ClosedTradeFilter struct {
	AccountID string
	Symbol    string
	Direction pnl.Direction
	From      string
	To        string
}

type ClosedTradeRow struct {
	pnl.ClosedTradeGroup
	DayNote   string
	TradeNote string
}

// ClosedTrades groups the executions of every matching scope into
// flat-to-flat cycles. Each scope is seeded with the newest position
// snapshot dated before the UTC day of its first execution.
func (s *Service) ClosedTrades(ctx context.Context, f ClosedTradeFilter) ([]ClosedTradeRow, error) {
	records, err := s.store.ListExecutions(ctx, journal.ExecutionFilter{AccountID: f.AccountID, Symbol: f.Symbol})
	if err != nil {
		return nil, fmt.Errorf("closed trades: %w", err)
	}

	opening, err := s.openingPositions(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("closed trades: %w", err)
	}

	groups, err := pnl.ComputeClosedTradeGroups(toPnl(records), opening)
	if err != nil {
		return nil, fmt.Errorf("closed trades: %w", err)
	}

	var kept []pnl.ClosedTradeGroup
	for _, g := range groups {
		if f.From != "" && g.TradeDate < f.From {
			continue
		}
		if f.To != "" && g.TradeDate > f.To {
			continue
		}
		if f.Direction != "" && g.Side != f.Direction {
			continue
		}
		kept = append(kept, g)
	}
	if len(kept) == 0 {
		return []ClosedTradeRow{}, nil
	}

	ids := make([]string, len(kept))
	minDate, maxDate := kept[0].TradeDate, kept[0].TradeDate
	for i, g := range kept {
		ids[i] = g.TradeID
		minDate = min(minDate, g.TradeDate)
		maxDate = max(maxDate, g.TradeDate)
	}

	tradeNotes, err := s.store.ClosedTradeNotes(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("closed trades: %w", err)
	}
	dayNotes, err := s.store.DayNotesBetween(ctx, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("closed trades: %w", err)
	}
	byDay := make(map[string]string, len(dayNotes))
	for _, n := range dayNotes {
		byDay[n.AccountID+":"+n.Date] = n.Body
	}

	out := make([]ClosedTradeRow, len(kept))
	for i, g := range kept {
		out[i] = ClosedTradeRow{
			ClosedTradeGroup: g,
			DayNote:          byDay[g.AccountID+":"+g.TradeDate],
			TradeNote:        tradeNotes[g.TradeID],
		}
	}

	slog.Debug("closed trades", "executions", len(records), "groups", len(groups), "kept", len(out))
	return out, nil
}

// ClosedTradeGroups returns the bare groups of ClosedTrades.
func (s *Service) ClosedTradeGroups(ctx context.Context, f ClosedTradeFilter) ([]pnl.ClosedTradeGroup, map[string]string, error) {
	rows, err := s.ClosedTrades(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	groups := make([]pnl.ClosedTradeGroup, len(rows))
	notes := make(map[string]string)
	for i, r := range rows {
		groups[i] = r.ClosedTradeGroup
		if r.TradeNote != "" {
			notes[r.TradeID] = r.TradeNote
		}
	}
	return groups, notes, nil
}

func (s *Service) openingPositions(ctx context.Context, records []journal.ExecutionRecord) (map[string]pnl.OpeningPosition, error) {
	// records are ordered by time, so the first one seen per scope is
	// its earliest
	first := make(map[string]journal.ExecutionRecord)
	var keys []string
	for _, r := range records {
		k := r.Key()
		if _, ok := first[k]; !ok {
			first[k] = r
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	opening := make(map[string]pnl.OpeningPosition)
	for _, k := range keys {
		r := first[k]
		cutoff := r.ExecutedAt.UTC().Format(journal.DateLayout)
		snap, err := s.store.LatestPositionBefore(ctx, r.AccountID, r.InstrumentID, cutoff)
		if errors.Is(err, journal.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		opening[k] = pnl.OpeningPosition{Quantity: snap.Quantity, AvgCost: snap.AvgCost}
	}
	return opening, nil
}

// TradeDetail is one execution with the other fills of its account and
// instrument.
type TradeDetail struct {
	Execution journal.ExecutionRecord
	Related   []journal.ExecutionRecord
	// Pnl is nil only if the execution vanished between queries.
	Pnl *pnl.ExecutionPnl
}

func (s *Service) TradeDetail(ctx context.Context, executionID string) (TradeDetail, error) {
	exec, err := s.store.GetExecution(ctx, executionID)
	if err != nil {
		return TradeDetail{}, fmt.Errorf("trade detail: %w", err)
	}

	related, err := s.store.ListExecutions(ctx, journal.ExecutionFilter{
		AccountID:    exec.AccountID,
		InstrumentID: exec.InstrumentID,
	})
	if err != nil {
		return TradeDetail{}, fmt.Errorf("trade detail: %w", err)
	}

	d := TradeDetail{Execution: exec, Related: related}
	for _, row := range pnl.ComputeExecutionPnl(toPnl(related)) {
		if row.ExecutionID == executionID {
			row := row
			d.Pnl = &row
			break
		}
	}
	return d, nil
}
