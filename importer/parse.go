package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/rustyeddy/tradebook/pnl"
)

// previewRows is how many data rows Preview returns.
const previewRows = 5

type table struct {
	headers []string
	rows    []map[string]string
}

// readTable loads a CSV with a header row. Blank lines are dropped and
// every cell is trimmed.
func readTable(r io.Reader) (table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return table{}, fmt.Errorf("read csv: %w", err)
	}

	var t table
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		if t.headers == nil {
			t.headers = make([]string, len(rec))
			for i, h := range rec {
				t.headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
			}
			continue
		}
		row := make(map[string]string, len(t.headers))
		for i, h := range t.headers {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Preview detects the kind and column mapping of a file and returns its
// first rows. Missing required mappings are reported in Errors rather than
// as an error.
func Preview(filename string, r io.Reader) (FilePreview, error) {
	t, err := readTable(r)
	if err != nil {
		return FilePreview{}, err
	}

	p := FilePreview{
		Filename: filename,
		Kind:     InferKind(t.headers),
		Headers:  t.headers,
		Mapping:  Mapping{},
		Rows:     t.rows[:min(previewRows, len(t.rows))],
	}
	if p.Kind == KindUnknown {
		p.Errors = []string{"could not detect file type; pass --kind and retry"}
		return p, nil
	}

	p.Mapping = DetectMapping(p.Kind, t.headers)
	for _, field := range MissingFields(p.Kind, p.Mapping) {
		p.Errors = append(p.Errors, "missing required mapping for "+field)
	}
	return p, nil
}

// Parse reads every row of r as kind. Detected mappings are overlaid with
// override. Rows that fail validation are collected in Skipped.
func Parse(kind Kind, r io.Reader, override Mapping, opts Options) (ParsedImport, error) {
	if kind == KindUnknown || aliasesFor(kind) == nil {
		return ParsedImport{}, fmt.Errorf("cannot parse %q file", kind)
	}
	opts = opts.withDefaults()

	t, err := readTable(r)
	if err != nil {
		return ParsedImport{}, err
	}

	m := merge(DetectMapping(kind, t.headers), override)
	if missing := MissingFields(kind, m); len(missing) > 0 {
		return ParsedImport{}, fmt.Errorf("missing required mapping for %s", strings.Join(missing, ", "))
	}

	out := ParsedImport{Kind: kind}
	for i, row := range t.rows {
		n := i + 1
		var rowErr error
		switch kind {
		case KindExecutions:
			var e ExecutionImport
			var fx bool
			e, fx, rowErr = parseExecution(row, m, opts)
			if fx {
				out.Filtered++
				continue
			}
			if rowErr == nil {
				out.Executions = append(out.Executions, e)
			}
		case KindPositions:
			var p PositionImport
			p, rowErr = parsePosition(row, m, opts)
			if rowErr == nil {
				out.Positions = append(out.Positions, p)
			}
		case KindSnapshots:
			var s SnapshotImport
			s, rowErr = parseSnapshot(row, m, opts)
			if rowErr == nil {
				out.Snapshots = append(out.Snapshots, s)
			}
		}
		if rowErr != nil {
			out.Skipped = append(out.Skipped, RowError{Row: n, Reason: rowErr.Error()})
		}
	}

	slog.Debug("parsed import",
		"kind", kind,
		"rows", len(t.rows),
		"accepted", out.Rows(),
		"skipped", len(out.Skipped),
		"fx_filtered", out.Filtered,
	)
	return out, nil
}

func field(row map[string]string, m Mapping, name string) string {
	h := m[name]
	if h == "" {
		return ""
	}
	return strings.TrimSpace(row[h])
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// parseExecution returns fx=true for currency conversion rows dropped by
// opts.ExcludeFX.
func parseExecution(row map[string]string, m Mapping, opts Options) (ExecutionImport, bool, error) {
	symbol := field(row, m, "symbol")
	exchange := field(row, m, "exchange")
	if opts.ExcludeFX && isForexRow(symbol, exchange) {
		return ExecutionImport{}, true, nil
	}

	e := ExecutionImport{
		Account:   orDefault(field(row, m, "account"), opts.DefaultAccount),
		Symbol:    symbol,
		Exchange:  exchange,
		AssetType: normalizeAssetType(field(row, m, "assetType")),
		Currency:  orDefault(field(row, m, "currency"), opts.DefaultCurrency),
		OrderID:   field(row, m, "orderId"),
		Strategy:  field(row, m, "strategy"),
	}
	if e.Symbol == "" {
		return e, false, errors.New("symbol is empty")
	}

	at, err := parseDate(field(row, m, "executedAt"), opts.Location)
	if err != nil {
		return e, false, fmt.Errorf("executed at: %w", err)
	}
	if at.Before(epoch) {
		return e, false, fmt.Errorf("executed at %s is before 1970", at.Format(time.RFC3339))
	}
	e.ExecutedAt = at

	qty, err := parseNumber(field(row, m, "quantity"))
	if err != nil {
		return e, false, fmt.Errorf("quantity: %w", err)
	}

	side, ok := parseSide(field(row, m, "side"))
	if !ok {
		switch {
		case qty < 0:
			side = pnl.Sell
		case qty > 0:
			side = pnl.Buy
		default:
			return e, false, errors.New("side is missing and quantity is zero")
		}
	}
	e.Side = side
	e.Quantity = math.Abs(qty)
	if e.Quantity <= 0 {
		return e, false, errors.New("quantity must be positive")
	}

	price, err := parseNumber(field(row, m, "price"))
	if err != nil {
		return e, false, fmt.Errorf("price: %w", err)
	}
	if price < 0 {
		return e, false, errors.New("price is negative")
	}
	e.Price = price

	// brokers report costs as negative cash flows
	if v := optionalNumber(field(row, m, "commission")); v != nil {
		e.Commission = math.Abs(*v)
	}
	if v := optionalNumber(field(row, m, "fees")); v != nil {
		e.Fees = math.Abs(*v)
	}
	return e, false, nil
}

func parsePosition(row map[string]string, m Mapping, opts Options) (PositionImport, error) {
	p := PositionImport{
		Account:       orDefault(field(row, m, "account"), opts.DefaultAccount),
		Symbol:        field(row, m, "symbol"),
		Exchange:      field(row, m, "exchange"),
		AssetType:     normalizeAssetType(field(row, m, "assetType")),
		UnrealizedPnl: optionalNumber(field(row, m, "unrealizedPnl")),
		Currency:      orDefault(field(row, m, "currency"), opts.DefaultCurrency),
	}
	if p.Symbol == "" {
		return p, errors.New("symbol is empty")
	}

	if raw := field(row, m, "reportDate"); raw != "" {
		// day-level fields are calendar dates, not instants
		d, err := parseDate(raw, time.UTC)
		if err != nil {
			return p, fmt.Errorf("report date: %w", err)
		}
		p.ReportDate = d
	}

	qty, err := parseNumber(field(row, m, "quantity"))
	if err != nil {
		return p, fmt.Errorf("quantity: %w", err)
	}
	p.Quantity = qty

	cost, err := parseNumber(field(row, m, "avgCost"))
	if err != nil {
		return p, fmt.Errorf("avg cost: %w", err)
	}
	if cost < 0 {
		return p, errors.New("avg cost is negative")
	}
	p.AvgCost = cost
	return p, nil
}

func parseSnapshot(row map[string]string, m Mapping, opts Options) (SnapshotImport, error) {
	s := SnapshotImport{
		Account:       orDefault(field(row, m, "account"), opts.DefaultAccount),
		Equity:        optionalNumber(field(row, m, "equity")),
		RealizedPnl:   optionalNumber(field(row, m, "realizedPnl")),
		UnrealizedPnl: optionalNumber(field(row, m, "unrealizedPnl")),
		Currency:      orDefault(field(row, m, "currency"), opts.DefaultCurrency),
	}

	d, err := parseDate(field(row, m, "date"), time.UTC)
	if err != nil {
		return s, fmt.Errorf("date: %w", err)
	}
	s.Date = d
	return s, nil
}
