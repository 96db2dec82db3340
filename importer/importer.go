// Package importer reads broker CSV exports (IBKR activity and Flex style)
// into typed execution, position and account snapshot rows.
package importer

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradebook/pnl"
)

// Kind is the detected content of an import file.
type Kind string

const (
	KindExecutions Kind = "executions"
	KindPositions  Kind = "positions"
	KindSnapshots  Kind = "snapshots"
	KindUnknown    Kind = "unknown"
)

// ParseKind accepts the names used on the command line.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindExecutions, KindPositions, KindSnapshots:
		return Kind(s), nil
	}
	return KindUnknown, fmt.Errorf("unknown import kind %q", s)
}

// Asset types stored with each instrument.
const (
	AssetStock  = "STOCK"
	AssetOption = "OPTION"
	AssetFuture = "FUTURE"
	AssetForex  = "FOREX"
	AssetCrypto = "CRYPTO"
	AssetETF    = "ETF"
	AssetOther  = "OTHER"
)

// Mapping maps a logical field name (symbol, price, ...) to the CSV header
// that carries it. A missing or empty entry means the field is unmapped.
type Mapping map[string]string

// Options control defaults applied while parsing.
type Options struct {
	DefaultAccount  string
	DefaultCurrency string
	// Location is used for timestamps without an explicit offset.
	Location  *time.Location
	ExcludeFX bool
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		DefaultAccount:  "DEFAULT",
		DefaultCurrency: "USD",
		Location:        time.UTC,
		ExcludeFX:       true,
	}
}

func (o Options) withDefaults() Options {
	if o.DefaultAccount == "" {
		o.DefaultAccount = "DEFAULT"
	}
	if o.DefaultCurrency == "" {
		o.DefaultCurrency = "USD"
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

type ExecutionImport struct {
	Account    string
	ExecutedAt time.Time
	Symbol     string
	Exchange   string
	AssetType  string
	Side       pnl.Side
	Quantity   float64
	Price      float64
	Commission float64
	Fees       float64
	Currency   string
	OrderID    string
	Strategy   string
}

type PositionImport struct {
	Account   string
	Symbol    string
	Exchange  string
	AssetType string
	// ReportDate is zero when the file does not carry one.
	ReportDate    time.Time
	Quantity      float64
	AvgCost       float64
	UnrealizedPnl *float64
	Currency      string
}

type SnapshotImport struct {
	Account       string
	Date          time.Time
	Equity        *float64
	RealizedPnl   *float64
	UnrealizedPnl *float64
	Currency      string
}

// RowError describes a data row that was not imported. Row is 1-based and
// does not count the header line.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ParsedImport is the result of Parse. Only the slice matching Kind is
// populated.
type ParsedImport struct {
	Kind       Kind
	Executions []ExecutionImport
	Positions  []PositionImport
	Snapshots  []SnapshotImport
	Skipped    []RowError
	// Filtered counts forex rows dropped by Options.ExcludeFX.
	Filtered int
}

// Rows is the number of accepted rows.
func (p ParsedImport) Rows() int {
	return len(p.Executions) + len(p.Positions) + len(p.Snapshots)
}

// FilePreview is what a caller needs to confirm or correct a mapping before
// running a full Parse.
type FilePreview struct {
	Filename string
	Kind     Kind
	Headers  []string
	Mapping  Mapping
	Rows     []map[string]string
	Errors   []string
}
