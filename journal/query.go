package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/tradebook/pnl"
)

const executionColumns = `
	e.id, e.account_id, e.instrument_id, i.symbol, e.executed_at, e.side,
	e.quantity, e.price, e.commission, e.fees,
	i.exchange, i.asset_type, e.currency, e.order_id, e.strategy, e.batch_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(s scanner) (ExecutionRecord, error) {
	var rec ExecutionRecord
	var side string
	err := s.Scan(
		&rec.ID,
		&rec.AccountID,
		&rec.InstrumentID,
		&rec.Symbol,
		&rec.ExecutedAt,
		&side,
		&rec.Quantity,
		&rec.Price,
		&rec.Commission,
		&rec.Fees,
		&rec.Exchange,
		&rec.AssetType,
		&rec.Currency,
		&rec.OrderID,
		&rec.Strategy,
		&rec.BatchID,
	)
	rec.Side = pnl.Side(side)
	rec.ExecutedAt = rec.ExecutedAt.UTC()
	return rec, err
}

// GetExecution returns a single execution by id.
func (j *SQLite) GetExecution(ctx context.Context, executionID string) (ExecutionRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT`+executionColumns+`
		FROM executions e
		JOIN instruments i ON i.id = e.instrument_id
		WHERE e.id = ?`, executionID)

	rec, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ExecutionRecord{}, fmt.Errorf("execution %q %w", executionID, ErrNotFound)
		}
		return ExecutionRecord{}, err
	}
	return rec, nil
}

// ListExecutions returns executions matching f ordered by (executed_at, id),
// the order the matcher consumes them in.
func (j *SQLite) ListExecutions(ctx context.Context, f ExecutionFilter) ([]ExecutionRecord, error) {
	var where []string
	var args []any

	add := func(cond string, v any) {
		where = append(where, cond)
		args = append(args, v)
	}
	if f.AccountID != "" {
		add("e.account_id = ?", f.AccountID)
	}
	if f.InstrumentID != "" {
		add("e.instrument_id = ?", f.InstrumentID)
	}
	if f.Symbol != "" {
		add("i.symbol = ?", f.Symbol)
	}
	if f.Side != "" {
		add("e.side = ?", string(f.Side))
	}
	if f.Strategy != "" {
		add("e.strategy = ?", f.Strategy)
	}
	if !f.From.IsZero() {
		add("e.executed_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		add("e.executed_at < ?", f.To.UTC())
	}

	query := `SELECT` + executionColumns + `
		FROM executions e
		JOIN instruments i ON i.id = e.instrument_id`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY e.executed_at ASC, e.id ASC"

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestPositionBefore returns the newest snapshot of the holding dated
// strictly before the given YYYY-MM-DD date.
func (j *SQLite) LatestPositionBefore(ctx context.Context, accountID, instrumentID, before string) (PositionSnapshot, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT s.account_id, s.instrument_id, i.symbol, s.snapshot_date,
		       s.quantity, s.avg_cost, s.unrealized_pnl, s.currency
		FROM position_snapshots s
		JOIN instruments i ON i.id = s.instrument_id
		WHERE s.account_id = ? AND s.instrument_id = ? AND s.snapshot_date < ?
		ORDER BY s.snapshot_date DESC
		LIMIT 1`, accountID, instrumentID, before)

	snap, err := scanPositionSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PositionSnapshot{}, fmt.Errorf("position %s before %s %w", pnl.ScopeKey(accountID, instrumentID), before, ErrNotFound)
		}
		return PositionSnapshot{}, err
	}
	return snap, nil
}

// ListPositionSnapshots returns snapshots dated within [from, to], both
// inclusive, ordered by date.
func (j *SQLite) ListPositionSnapshots(ctx context.Context, from, to string) ([]PositionSnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT s.account_id, s.instrument_id, i.symbol, s.snapshot_date,
		       s.quantity, s.avg_cost, s.unrealized_pnl, s.currency
		FROM position_snapshots s
		JOIN instruments i ON i.id = s.instrument_id
		WHERE s.snapshot_date >= ? AND s.snapshot_date <= ?
		ORDER BY s.snapshot_date ASC, s.account_id ASC, s.instrument_id ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PositionSnapshot
	for rows.Next() {
		snap, err := scanPositionSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func scanPositionSnapshot(s scanner) (PositionSnapshot, error) {
	var p PositionSnapshot
	err := s.Scan(&p.AccountID, &p.InstrumentID, &p.Symbol, &p.Date,
		&p.Quantity, &p.AvgCost, &p.UnrealizedPnl, &p.Currency)
	return p, err
}

// ListPositions returns current holdings, most recently updated first.
func (j *SQLite) ListPositions(ctx context.Context) ([]Position, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT p.account_id, p.instrument_id, i.symbol, i.asset_type,
		       p.quantity, p.avg_cost, p.unrealized_pnl, p.currency, p.updated_at
		FROM positions p
		JOIN instruments i ON i.id = p.instrument_id
		ORDER BY p.updated_at DESC, p.account_id ASC, i.symbol ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.AccountID, &p.InstrumentID, &p.Symbol, &p.AssetType,
			&p.Quantity, &p.AvgCost, &p.UnrealizedPnl, &p.Currency, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListAccountSnapshots returns every account snapshot ordered by date.
func (j *SQLite) ListAccountSnapshots(ctx context.Context) ([]AccountSnapshot, error) {
	return j.queryAccountSnapshots(ctx, `
		SELECT account_id, snapshot_date, equity, realized_pnl, unrealized_pnl, currency
		FROM account_snapshots
		ORDER BY snapshot_date ASC, account_id ASC`)
}

// LatestAccountSnapshots returns the newest snapshot of each account.
func (j *SQLite) LatestAccountSnapshots(ctx context.Context) ([]AccountSnapshot, error) {
	return j.queryAccountSnapshots(ctx, `
		SELECT s.account_id, s.snapshot_date, s.equity, s.realized_pnl, s.unrealized_pnl, s.currency
		FROM account_snapshots s
		JOIN (
			SELECT account_id, MAX(snapshot_date) AS latest
			FROM account_snapshots
			GROUP BY account_id
		) m ON m.account_id = s.account_id AND m.latest = s.snapshot_date
		ORDER BY s.account_id ASC`)
}

func (j *SQLite) queryAccountSnapshots(ctx context.Context, query string) ([]AccountSnapshot, error) {
	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AccountSnapshot
	for rows.Next() {
		var s AccountSnapshot
		if err := rows.Scan(&s.AccountID, &s.Date, &s.Equity, &s.RealizedPnl, &s.UnrealizedPnl, &s.Currency); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListImportBatches returns the most recent batches first. limit <= 0
// returns all of them.
func (j *SQLite) ListImportBatches(ctx context.Context, limit int) ([]ImportBatch, error) {
	query := `
		SELECT id, kind, filename, account_id, rows_seen, rows_imported, rows_skipped, notes, imported_at
		FROM import_batches
		ORDER BY imported_at DESC, id ASC`
	var args []any
	if limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ImportBatch
	for rows.Next() {
		var b ImportBatch
		if err := rows.Scan(&b.ID, &b.Kind, &b.Filename, &b.AccountID,
			&b.RowsSeen, &b.RowsImported, &b.RowsSkipped, &b.Notes, &b.ImportedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
