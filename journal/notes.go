package journal

import (
	"context"
	"fmt"
	"strings"
)

// SetDayNote stores the note for an account and day. A blank body deletes
// the note.
func (j *SQLite) SetDayNote(ctx context.Context, accountID, date, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		_, err := j.db.ExecContext(ctx,
			`DELETE FROM day_notes WHERE account_id = ? AND note_date = ?`, accountID, date)
		return err
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO day_notes (account_id, note_date, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, note_date) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`,
		accountID, date, body, j.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set day note %s %s: %w", accountID, date, err)
	}
	return nil
}

// DayNotesBetween returns notes dated within [from, to], both inclusive.
func (j *SQLite) DayNotesBetween(ctx context.Context, from, to string) ([]DayNote, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT account_id, note_date, body, updated_at
		FROM day_notes
		WHERE note_date >= ? AND note_date <= ?
		ORDER BY note_date ASC, account_id ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayNote
	for rows.Next() {
		var n DayNote
		if err := rows.Scan(&n.AccountID, &n.Date, &n.Body, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// SetClosedTradeNote stores the note for a closed trade. A blank body
// deletes it.
func (j *SQLite) SetClosedTradeNote(ctx context.Context, tradeID, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		_, err := j.db.ExecContext(ctx, `DELETE FROM closed_trade_notes WHERE trade_id = ?`, tradeID)
		return err
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO closed_trade_notes (trade_id, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(trade_id) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`,
		tradeID, body, j.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set trade note %s: %w", tradeID, err)
	}
	return nil
}

// ClosedTradeNotes returns the notes of the given trades keyed by trade id.
// Trades without a note are absent from the map.
func (j *SQLite) ClosedTradeNotes(ctx context.Context, tradeIDs []string) (map[string]string, error) {
	out := make(map[string]string)
	if len(tradeIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(tradeIDs))
	for i, id := range tradeIDs {
		args[i] = id
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, body
		FROM closed_trade_notes
		WHERE trade_id IN (`+placeholders(len(tradeIDs))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		out[id] = body
	}
	return out, rows.Err()
}
