package importer

import (
	"sort"
	"strings"
)

var executionAliases = map[string][]string{
	"account":    {"account", "accountid", "ibkraccount", "acct", "clientaccountid"},
	"executedAt": {"datetime", "date/time", "date", "tradetime", "time"},
	"symbol":     {"symbol", "underlyingsymbol", "ticker"},
	"exchange":   {"exchange", "listingexchange"},
	"assetType":  {"assettype", "sectype", "securitytype", "assetclass"},
	"side":       {"side", "buy/sell", "action"},
	"quantity":   {"quantity", "qty", "shares", "filled"},
	"price":      {"price", "tradeprice", "avgprice"},
	"commission": {"commission", "comm", "ibcommission"},
	"fees":       {"fees", "fee", "taxes"},
	"currency":   {"currency", "curr"},
	"orderId":    {"orderid", "tradeid", "execid", "iborderid", "brokerageorderid"},
	"strategy":   {"strategy", "setup", "system"},
}

var positionAliases = map[string][]string{
	"account":       {"account", "accountid", "ibkraccount", "acct", "clientaccountid"},
	"symbol":        {"symbol", "underlyingsymbol", "ticker"},
	"exchange":      {"exchange", "listingexchange"},
	"assetType":     {"assettype", "sectype", "securitytype", "assetclass"},
	"reportDate":    {"reportdate", "date"},
	"quantity":      {"quantity", "qty", "position", "positionqty"},
	"avgCost":       {"avgcost", "averagecost", "costbasis", "averageprice", "costbasisprice", "openprice"},
	"unrealizedPnl": {"unrealizedpnl", "upl", "unrealizedpl", "fifopnlunrealized"},
	"currency":      {"currency", "curr"},
}

var snapshotAliases = map[string][]string{
	"account":       {"account", "accountid", "ibkraccount", "acct"},
	"date":          {"date", "day"},
	"equity":        {"equity", "netliquidation", "netliq", "accountvalue"},
	"realizedPnl":   {"realizedpnl", "realizedpl", "rpl"},
	"unrealizedPnl": {"unrealizedpnl", "unrealizedpl", "upl"},
	"currency":      {"currency", "curr"},
}

var requiredFields = map[Kind][]string{
	KindExecutions: {"executedAt", "symbol", "side", "quantity", "price"},
	KindPositions:  {"symbol", "quantity", "avgCost"},
	KindSnapshots:  {"date"},
}

func aliasesFor(kind Kind) map[string][]string {
	switch kind {
	case KindExecutions:
		return executionAliases
	case KindPositions:
		return positionAliases
	case KindSnapshots:
		return snapshotAliases
	}
	return nil
}

// normalizeHeader lower-cases and drops underscores, dashes and whitespace
// so "Buy_Sell", "buy sell" and "BUYSELL" compare equal.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, h)
}

// InferKind guesses the file kind from its header row. Execution markers win
// over position markers, which win over snapshot markers.
func InferKind(headers []string) Kind {
	var trade, position, snapshot bool
	for _, h := range headers {
		switch normalizeHeader(h) {
		case "buy/sell", "action", "price", "quantity":
			trade = true
		case "avgcost", "position", "unrealizedpnl":
			position = true
		case "netliquidation", "equity", "realizedpnl":
			snapshot = true
		}
	}

	switch {
	case trade:
		return KindExecutions
	case position:
		return KindPositions
	case snapshot:
		return KindSnapshots
	}
	return KindUnknown
}

// DetectMapping assigns each field of kind a header from the file. Aliases
// are tried in order, so an "Exchange" column wins over "ListingExchange"
// wherever the two appear.
func DetectMapping(kind Kind, headers []string) Mapping {
	normalized := make(map[string]string, len(headers))
	for _, h := range headers {
		n := normalizeHeader(h)
		if _, ok := normalized[n]; !ok {
			normalized[n] = h
		}
	}

	aliases := aliasesFor(kind)
	m := make(Mapping, len(aliases))
	for field, candidates := range aliases {
		for _, c := range candidates {
			if h, ok := normalized[c]; ok {
				m[field] = h
				break
			}
		}
	}
	return m
}

// MissingFields lists the required fields of kind that m leaves unmapped.
func MissingFields(kind Kind, m Mapping) []string {
	var missing []string
	for _, field := range requiredFields[kind] {
		if m[field] == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// Fields returns the logical field names known for kind, sorted.
func Fields(kind Kind) []string {
	aliases := aliasesFor(kind)
	out := make([]string, 0, len(aliases))
	for field := range aliases {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

func merge(base, override Mapping) Mapping {
	out := make(Mapping, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
