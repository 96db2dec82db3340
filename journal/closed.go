package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/tradebook/pnl"
)

// RecordClosedTrades upserts groups by trade id. Trade ids are stable, so
// recording the same groups twice leaves the table unchanged.
func (j *SQLite) RecordClosedTrades(ctx context.Context, groups []pnl.ClosedTradeGroup) error {
	err := j.inTx(ctx, func(tx *sql.Tx) error {
		for _, g := range groups {
			if err := upsertClosedTrade(ctx, tx, g); err != nil {
				return fmt.Errorf("trade %s: %w", g.TradeID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record closed trades: %w", err)
	}
	slog.Debug("recorded closed trades", "count", len(groups))
	return nil
}

func upsertClosedTrade(ctx context.Context, tx *sql.Tx, g pnl.ClosedTradeGroup) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO closed_trades
		(trade_id, account_id, instrument_id, symbol, side, open_time, close_time, trade_date,
		 total_quantity, avg_entry_price, avg_exit_price, gross_realized_pnl, realized_pnl,
		 total_commission, opening_quantity, closing_quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trade_id) DO UPDATE SET
			symbol = excluded.symbol,
			total_quantity = excluded.total_quantity,
			avg_entry_price = excluded.avg_entry_price,
			avg_exit_price = excluded.avg_exit_price,
			gross_realized_pnl = excluded.gross_realized_pnl,
			realized_pnl = excluded.realized_pnl,
			total_commission = excluded.total_commission,
			opening_quantity = excluded.opening_quantity,
			closing_quantity = excluded.closing_quantity`,
		g.TradeID, g.AccountID, g.InstrumentID, g.Symbol, string(g.Side),
		g.OpenTime.UTC(), g.CloseTime.UTC(), g.TradeDate,
		g.TotalQuantity, g.AvgEntryPrice, g.AvgExitPrice, g.GrossRealizedPnl, g.RealizedPnl,
		g.TotalCommission, g.OpeningQuantity, g.ClosingQuantity,
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM closed_trade_executions WHERE trade_id = ?`, g.TradeID); err != nil {
		return err
	}
	for seq, m := range g.Executions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO closed_trade_executions
			(trade_id, seq, execution_id, executed_at, side, quantity, fraction, price, commission, fees)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.TradeID, seq, m.ID, m.ExecutedAt.UTC(), string(m.Side),
			m.Quantity, m.Fraction, m.Price, m.Commission, m.Fees,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

const closedTradeColumns = `
	trade_id, account_id, instrument_id, symbol, side, open_time, close_time, trade_date,
	total_quantity, avg_entry_price, avg_exit_price, gross_realized_pnl, realized_pnl,
	total_commission, opening_quantity, closing_quantity`

func scanClosedTrade(s scanner) (pnl.ClosedTradeGroup, error) {
	var g pnl.ClosedTradeGroup
	var side string
	err := s.Scan(
		&g.TradeID,
		&g.AccountID,
		&g.InstrumentID,
		&g.Symbol,
		&side,
		&g.OpenTime,
		&g.CloseTime,
		&g.TradeDate,
		&g.TotalQuantity,
		&g.AvgEntryPrice,
		&g.AvgExitPrice,
		&g.GrossRealizedPnl,
		&g.RealizedPnl,
		&g.TotalCommission,
		&g.OpeningQuantity,
		&g.ClosingQuantity,
	)
	g.GroupKey = g.TradeID
	g.Side = pnl.Direction(side)
	g.OpenTime = g.OpenTime.UTC()
	g.CloseTime = g.CloseTime.UTC()
	return g, err
}

// GetClosedTrade returns a recorded trade with its member executions.
func (j *SQLite) GetClosedTrade(ctx context.Context, tradeID string) (pnl.ClosedTradeGroup, error) {
	row := j.db.QueryRowContext(ctx, `SELECT`+closedTradeColumns+`
		FROM closed_trades
		WHERE trade_id = ?`, tradeID)

	g, err := scanClosedTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pnl.ClosedTradeGroup{}, fmt.Errorf("trade %q %w", tradeID, ErrNotFound)
		}
		return pnl.ClosedTradeGroup{}, err
	}

	if err := j.loadMembers(ctx, []*pnl.ClosedTradeGroup{&g}); err != nil {
		return pnl.ClosedTradeGroup{}, err
	}
	return g, nil
}

// ListClosedTradesBetween returns trades whose close_time is within
// [start, end), oldest close first.
func (j *SQLite) ListClosedTradesBetween(ctx context.Context, start, end time.Time) ([]pnl.ClosedTradeGroup, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT`+closedTradeColumns+`
		FROM closed_trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC, trade_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pnl.ClosedTradeGroup
	for rows.Next() {
		g, err := scanClosedTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	ptrs := make([]*pnl.ClosedTradeGroup, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := j.loadMembers(ctx, ptrs); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) loadMembers(ctx context.Context, groups []*pnl.ClosedTradeGroup) error {
	for _, g := range groups {
		rows, err := j.db.QueryContext(ctx, `
			SELECT execution_id, executed_at, side, quantity, fraction, price, commission, fees
			FROM closed_trade_executions
			WHERE trade_id = ?
			ORDER BY seq ASC`, g.TradeID)
		if err != nil {
			return err
		}

		for rows.Next() {
			var m pnl.CycleExecution
			var side string
			if err := rows.Scan(&m.ID, &m.ExecutedAt, &side, &m.Quantity, &m.Fraction,
				&m.Price, &m.Commission, &m.Fees); err != nil {
				rows.Close()
				return err
			}
			m.Side = pnl.Side(side)
			m.ExecutedAt = m.ExecutedAt.UTC()
			g.Executions = append(g.Executions, m)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
