package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/tradebook/pkg/id"
)

// SQLite is the journal store.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (creating if needed) the database at path and applies the
// schema. ":memory:" works for tests.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer; SQLite serializes anyway and this avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	slog.Debug("journal opened", "path", path)
	return &SQLite{db: db, now: time.Now}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// inTx runs fn in a transaction, rolling back on error.
func (j *SQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ensureAccount creates the account on first sight. The first row's currency
// becomes its base currency; later rows never change it.
func ensureAccount(ctx context.Context, tx *sql.Tx, code, currency string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, name, base_currency, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		code, code, currency, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("account %s: %w", code, err)
	}
	return nil
}

// ensureInstrument returns the id of the instrument keyed by symbol and
// asset type, creating it on first sight.
func ensureInstrument(ctx context.Context, tx *sql.Tx, symbol, exchange, assetType, currency string) (string, error) {
	var instID string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM instruments WHERE symbol = ? AND asset_type = ?`,
		symbol, assetType,
	).Scan(&instID)
	switch {
	case err == nil:
		return instID, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("instrument %s: %w", symbol, err)
	}

	instID = id.New()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO instruments (id, symbol, exchange, asset_type, currency)
		VALUES (?, ?, ?, ?, ?)`,
		instID, symbol, exchange, assetType, currency,
	)
	if err != nil {
		return "", fmt.Errorf("instrument %s: %w", symbol, err)
	}
	return instID, nil
}

// ListAccounts returns every account by creation time.
func (j *SQLite) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, name, base_currency, created_at
		FROM accounts
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.BaseCurrency, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetInstrument looks up an instrument by id.
func (j *SQLite) GetInstrument(ctx context.Context, instrumentID string) (Instrument, error) {
	var in Instrument
	err := j.db.QueryRowContext(ctx, `
		SELECT id, symbol, exchange, asset_type, currency
		FROM instruments
		WHERE id = ?`, instrumentID,
	).Scan(&in.ID, &in.Symbol, &in.Exchange, &in.AssetType, &in.Currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Instrument{}, fmt.Errorf("instrument %q %w", instrumentID, ErrNotFound)
		}
		return Instrument{}, err
	}
	return in, nil
}
