package importer

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradebook/pnl"
)

var errEmpty = errors.New("empty")

// parseNumber accepts broker formatting such as "1,234.50", "$3" and the
// accounting form "(12.5)".
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(",", "", "$", "").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmpty
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if neg {
		d = d.Neg()
	}
	return d.InexactFloat64(), nil
}

// optionalNumber returns nil for blank or unparseable input.
func optionalNumber(raw string) *float64 {
	v, err := parseNumber(raw)
	if err != nil {
		return nil
	}
	return &v
}

// Offset-carrying layouts are parsed as is; the rest use the import location.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05Z0700",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02, 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
		"1/2/2006",
		"20060102;150405",
		"20060102;1504",
		"20060102 150405",
		"20060102",
	}
)

// epoch is the earliest fill time the journal can key.
var epoch = time.Unix(0, 0).UTC()

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, errEmpty
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognized date " + s)
}

func parseSide(raw string) (pnl.Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY", "BOT", "B":
		return pnl.Buy, true
	case "SELL", "SLD", "S":
		return pnl.Sell, true
	}
	return "", false
}

// normalizeAssetType maps broker security type codes onto the stored set.
// Blank means STOCK.
func normalizeAssetType(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "STOCK", "STK":
		return AssetStock
	case "OPTION", "OPT", "FOP":
		return AssetOption
	case "FUTURE", "FUT":
		return AssetFuture
	case "FOREX", "CASH", "FX":
		return AssetForex
	case "CRYPTO":
		return AssetCrypto
	case "ETF":
		return AssetETF
	}
	return AssetOther
}

var fxPair = regexp.MustCompile(`^[A-Z]{3}\.[A-Z]{3}$`)

var excludedFXPairs = map[string]bool{
	"AUD.USD": true,
	"USD.HKD": true,
	"USD.SGD": true,
}

// IsExcludedFXPair reports whether symbol names a currency pair such as
// EUR.USD. Currency conversions are not trades.
func IsExcludedFXPair(symbol string) bool {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return false
	}
	return excludedFXPairs[s] || fxPair.MatchString(s)
}

func isForexRow(symbol, exchange string) bool {
	return strings.EqualFold(strings.TrimSpace(exchange), "IDEALFX") || IsExcludedFXPair(symbol)
}
