package journal

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rustyeddy/tradebook/importer"
	"github.com/rustyeddy/tradebook/pkg/id"
)

// Import stores a parsed file. Rows the parser rejected count as seen and
// skipped on the batch. asOf dates position rows that carry no report date.
func (j *SQLite) Import(ctx context.Context, filename string, parsed importer.ParsedImport, asOf time.Time) (ImportBatch, error) {
	invalid := len(parsed.Skipped)
	switch parsed.Kind {
	case importer.KindExecutions:
		return j.importExecutions(ctx, filename, parsed.Executions, invalid)
	case importer.KindPositions:
		return j.importPositions(ctx, filename, parsed.Positions, asOf, invalid)
	case importer.KindSnapshots:
		return j.importSnapshots(ctx, filename, parsed.Snapshots, invalid)
	}
	return ImportBatch{}, fmt.Errorf("import %s: unsupported kind %q", filename, parsed.Kind)
}

// DedupeKey identifies a fill independent of the file it came from.
func DedupeKey(e importer.ExecutionImport) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		e.Account,
		e.ExecutedAt.UTC().Format(time.RFC3339Nano),
		e.Symbol,
		string(e.Side),
		strconv.FormatFloat(e.Quantity, 'f', -1, 64),
		strconv.FormatFloat(e.Price, 'f', -1, 64),
		e.OrderID,
	}, "|")))
	return hex.EncodeToString(sum[:])
}

func (j *SQLite) newBatch(kind importer.Kind, filename string, invalid int) *ImportBatch {
	return &ImportBatch{
		ID:          uuid.NewString(),
		Kind:        string(kind),
		Filename:    filename,
		RowsSeen:    invalid,
		RowsSkipped: invalid,
		ImportedAt:  j.now().UTC(),
	}
}

func insertBatch(ctx context.Context, tx *sql.Tx, b *ImportBatch) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO import_batches
		(id, kind, filename, account_id, rows_seen, rows_imported, rows_skipped, notes, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Kind, b.Filename, b.AccountID, b.RowsSeen, b.RowsImported, b.RowsSkipped, b.Notes, b.ImportedAt,
	)
	return err
}

func (j *SQLite) importExecutions(ctx context.Context, filename string, rows []importer.ExecutionImport, invalid int) (ImportBatch, error) {
	b := j.newBatch(importer.KindExecutions, filename, invalid)
	var duplicates int

	err := j.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			b.RowsSeen++
			if err := ensureAccount(ctx, tx, r.Account, r.Currency, b.ImportedAt); err != nil {
				return err
			}
			b.AccountID = r.Account

			instID, err := ensureInstrument(ctx, tx, r.Symbol, r.Exchange, r.AssetType, r.Currency)
			if err != nil {
				return err
			}

			execID, err := id.NewAt(r.ExecutedAt)
			if err != nil {
				return fmt.Errorf("execution %s: %w", r.Symbol, err)
			}

			res, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO executions
				(id, dedupe_key, account_id, instrument_id, batch_id, executed_at, side,
				 quantity, price, commission, fees, currency, order_id, strategy)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				execID, DedupeKey(r), r.Account, instID, b.ID, r.ExecutedAt.UTC(), string(r.Side),
				r.Quantity, r.Price, r.Commission, r.Fees, r.Currency, r.OrderID, r.Strategy,
			)
			if err != nil {
				return fmt.Errorf("insert execution %s %s: %w", r.Symbol, r.ExecutedAt.Format(time.RFC3339), err)
			}

			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				duplicates++
				b.RowsSkipped++
				continue
			}
			b.RowsImported++
		}

		if duplicates > 0 {
			b.Notes = fmt.Sprintf("%d duplicate rows skipped", duplicates)
		}
		return insertBatch(ctx, tx, b)
	})
	if err != nil {
		return ImportBatch{}, fmt.Errorf("import executions: %w", err)
	}

	slog.Info("imported executions",
		"file", filename,
		"batch", b.ID,
		"imported", b.RowsImported,
		"skipped", b.RowsSkipped,
	)
	return *b, nil
}

func (j *SQLite) importPositions(ctx context.Context, filename string, rows []importer.PositionImport, asOf time.Time, invalid int) (ImportBatch, error) {
	b := j.newBatch(importer.KindPositions, filename, invalid)

	err := j.inTx(ctx, func(tx *sql.Tx) error {
		seen := make(map[string][]string) // account -> held instruments
		var accounts []string

		for _, r := range rows {
			b.RowsSeen++
			if err := ensureAccount(ctx, tx, r.Account, r.Currency, b.ImportedAt); err != nil {
				return err
			}
			if _, ok := seen[r.Account]; !ok {
				seen[r.Account] = nil
				accounts = append(accounts, r.Account)
			}
			b.AccountID = r.Account

			instID, err := ensureInstrument(ctx, tx, r.Symbol, r.Exchange, r.AssetType, r.Currency)
			if err != nil {
				return err
			}

			if r.Quantity == 0 {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM positions WHERE account_id = ? AND instrument_id = ?`,
					r.Account, instID,
				); err != nil {
					return err
				}
			} else {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO positions
					(account_id, instrument_id, quantity, avg_cost, unrealized_pnl, currency, updated_at)
					VALUES (?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT(account_id, instrument_id) DO UPDATE SET
						quantity = excluded.quantity,
						avg_cost = excluded.avg_cost,
						unrealized_pnl = excluded.unrealized_pnl,
						currency = excluded.currency,
						updated_at = excluded.updated_at`,
					r.Account, instID, r.Quantity, r.AvgCost, r.UnrealizedPnl, r.Currency, b.ImportedAt,
				); err != nil {
					return fmt.Errorf("upsert position %s: %w", r.Symbol, err)
				}
				seen[r.Account] = append(seen[r.Account], instID)
			}

			date := r.ReportDate
			if date.IsZero() {
				date = asOf
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO position_snapshots
				(account_id, instrument_id, snapshot_date, quantity, avg_cost, unrealized_pnl, currency)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(account_id, instrument_id, snapshot_date) DO UPDATE SET
					quantity = excluded.quantity,
					avg_cost = excluded.avg_cost,
					unrealized_pnl = excluded.unrealized_pnl,
					currency = excluded.currency`,
				r.Account, instID, date.UTC().Format(DateLayout), r.Quantity, r.AvgCost, r.UnrealizedPnl, r.Currency,
			); err != nil {
				return fmt.Errorf("upsert position snapshot %s: %w", r.Symbol, err)
			}
			b.RowsImported++
		}

		// positions not listed in the file are closed
		for _, acct := range accounts {
			query := `DELETE FROM positions WHERE account_id = ?`
			args := []any{acct}
			if held := seen[acct]; len(held) > 0 {
				query += ` AND instrument_id NOT IN (` + placeholders(len(held)) + `)`
				for _, h := range held {
					args = append(args, h)
				}
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("prune positions %s: %w", acct, err)
			}
		}

		return insertBatch(ctx, tx, b)
	})
	if err != nil {
		return ImportBatch{}, fmt.Errorf("import positions: %w", err)
	}

	slog.Info("imported positions", "file", filename, "batch", b.ID, "rows", b.RowsImported)
	return *b, nil
}

func (j *SQLite) importSnapshots(ctx context.Context, filename string, rows []importer.SnapshotImport, invalid int) (ImportBatch, error) {
	b := j.newBatch(importer.KindSnapshots, filename, invalid)

	err := j.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			b.RowsSeen++
			if err := ensureAccount(ctx, tx, r.Account, r.Currency, b.ImportedAt); err != nil {
				return err
			}
			b.AccountID = r.Account

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO account_snapshots
				(account_id, snapshot_date, equity, realized_pnl, unrealized_pnl, currency)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(account_id, snapshot_date) DO UPDATE SET
					equity = excluded.equity,
					realized_pnl = excluded.realized_pnl,
					unrealized_pnl = excluded.unrealized_pnl,
					currency = excluded.currency`,
				r.Account, r.Date.UTC().Format(DateLayout), r.Equity, r.RealizedPnl, r.UnrealizedPnl, r.Currency,
			); err != nil {
				return fmt.Errorf("upsert snapshot %s: %w", r.Date.Format(DateLayout), err)
			}
			b.RowsImported++
		}
		return insertBatch(ctx, tx, b)
	})
	if err != nil {
		return ImportBatch{}, fmt.Errorf("import snapshots: %w", err)
	}

	slog.Info("imported account snapshots", "file", filename, "batch", b.ID, "rows", b.RowsImported)
	return *b, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
