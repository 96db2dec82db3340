package pnl

import (
	"fmt"
	"math"
)

// DefaultHistogramBins is used when BucketHistogram is asked for no bins.
const DefaultHistogramBins = 10

// Metrics summarizes a P&L series. Only rows that closed something count
// as trades.
type Metrics struct {
	Realized     float64
	Trades       int
	Wins         int
	Losses       int
	WinRate      float64 // percent
	ProfitFactor float64 // +Inf with wins and no losses
	AvgWin       float64
	AvgLoss      float64 // zero or negative
	Expectancy   float64
	MaxDrawdown  float64
	Commissions  float64
}

// BuildMetrics reduces per-execution rows, in cumulative order, into
// summary statistics. totalCommissions is reported as given.
func BuildMetrics(rows []ExecutionPnl, totalCommissions float64) Metrics {
	m := Metrics{Commissions: totalCommissions}

	var grossProfit, grossLoss float64
	for _, row := range rows {
		m.Realized += row.RealizedPnl
		if row.MatchedQuantity <= 0 {
			continue
		}

		m.Trades++
		switch {
		case row.RealizedPnl > 0:
			m.Wins++
			grossProfit += row.RealizedPnl
		case row.RealizedPnl < 0:
			m.Losses++
			grossLoss += -row.RealizedPnl
		}
	}

	if m.Trades > 0 {
		m.WinRate = float64(m.Wins) / float64(m.Trades) * 100
	}
	if m.Wins > 0 {
		m.AvgWin = grossProfit / float64(m.Wins)
	}
	if m.Losses > 0 {
		m.AvgLoss = -grossLoss / float64(m.Losses)
	}

	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	}

	if m.Trades > 0 {
		n := float64(m.Trades)
		m.Expectancy = float64(m.Wins)/n*m.AvgWin + float64(m.Losses)/n*m.AvgLoss
	}

	m.MaxDrawdown = MaxDrawdown(rows)
	return m
}

// MaxDrawdown is the largest drop of CumulativePnl from a running peak
// that starts at zero.
func MaxDrawdown(rows []ExecutionPnl) float64 {
	var peak, dd float64
	for _, row := range rows {
		peak = math.Max(peak, row.CumulativePnl)
		dd = math.Max(dd, peak-row.CumulativePnl)
	}
	return dd
}

// HistogramBucket is one equal-width bin.
type HistogramBucket struct {
	Range string
	Start float64
	End   float64
	Count int
}

// BucketHistogram spreads values over bins equal-width buckets between the
// minimum and maximum. When every value is equal the buckets span a total
// width of one.
func BucketHistogram(values []float64, bins int) []HistogramBucket {
	if len(values) == 0 {
		return []HistogramBucket{}
	}
	if bins <= 0 {
		bins = DefaultHistogramBins
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	width := span / float64(bins)

	buckets := make([]HistogramBucket, bins)
	for i := range buckets {
		start := lo + float64(i)*width
		end := lo + float64(i+1)*width
		buckets[i] = HistogramBucket{
			Range: fmt.Sprintf("%.0f..%.0f", start, end),
			Start: start,
			End:   end,
		}
	}

	for _, v := range values {
		idx := int(math.Floor((v - lo) / width))
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		buckets[idx].Count++
	}
	return buckets
}
