// Package journal persists imported executions, positions and account
// snapshots, plus the closed trades and notes derived from them.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/tradebook/pnl"
)

// ErrNotFound is returned (wrapped) by single-row lookups.
var ErrNotFound = errors.New("not found")

// DateLayout is the storage format of day-level columns.
const DateLayout = "2006-01-02"

type Account struct {
	ID           string
	Name         string
	BaseCurrency string
	CreatedAt    time.Time
}

type Instrument struct {
	ID        string
	Symbol    string
	Exchange  string
	AssetType string
	Currency  string
}

// ExecutionRecord is a stored fill with its instrument details.
type ExecutionRecord struct {
	pnl.Execution
	Exchange  string
	AssetType string
	Currency  string
	OrderID   string
	Strategy  string
	BatchID   string
}

// ExecutionFilter narrows ListExecutions. Empty fields match everything;
// the time range is [From, To).
type ExecutionFilter struct {
	AccountID    string
	InstrumentID string
	Symbol       string
	Side         pnl.Side
	Strategy     string
	From         time.Time
	To           time.Time
}

// PositionSnapshot is a day-level record of one holding.
type PositionSnapshot struct {
	AccountID     string
	InstrumentID  string
	Symbol        string
	Date          string
	Quantity      float64
	AvgCost       float64
	UnrealizedPnl *float64
	Currency      string
}

// Position is the current holding as of the last positions import.
type Position struct {
	AccountID     string
	InstrumentID  string
	Symbol        string
	AssetType     string
	Quantity      float64
	AvgCost       float64
	UnrealizedPnl *float64
	Currency      string
	UpdatedAt     time.Time
}

// AccountSnapshot is a day-level account summary.
type AccountSnapshot struct {
	AccountID     string
	Date          string
	Equity        *float64
	RealizedPnl   *float64
	UnrealizedPnl *float64
	Currency      string
}

type ImportBatch struct {
	ID           string
	Kind         string
	Filename     string
	AccountID    string
	RowsSeen     int
	RowsImported int
	RowsSkipped  int
	Notes        string
	ImportedAt   time.Time
}

type DayNote struct {
	AccountID string
	Date      string
	Body      string
	UpdatedAt time.Time
}

// Journal records closed trades. Both the SQLite store and the CSV
// exporter satisfy it.
type Journal interface {
	RecordClosedTrades(ctx context.Context, groups []pnl.ClosedTradeGroup) error
	Close() error
}
