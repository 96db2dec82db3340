package report

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/pnl"
)

type Cards struct {
	TotalExecutions int
	LargestGain     float64
	LargestLoss     float64
	AvgWinHold      time.Duration
	AvgLossHold     time.Duration
	AvgDailyVolume  float64
	RealizedDay     float64
	RealizedWeek    float64
	RealizedMonth   float64
	// LatestEquity sums the newest snapshot of every account. Nil when no
	// account snapshot reports equity.
	LatestEquity *float64
	Metrics      pnl.Metrics
}

type DailyValue struct {
	Date  string
	Value float64
}

type DailyCount struct {
	Date  string
	Count int
}

type EquityPoint struct {
	At     time.Time
	Equity float64
}

type Charts struct {
	DailyPnl           []DailyValue
	GrossDailyPnl      []DailyValue
	GrossCumulativePnl []DailyValue
	DailyTradeCounts   []DailyCount
	EquityCurve        []EquityPoint
	Histogram          []pnl.HistogramBucket
}

type Dashboard struct {
	Cards  Cards
	Charts Charts
}

// Dashboard summarizes every stored execution.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	records, err := s.store.ListExecutions(ctx, journal.ExecutionFilter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}
	snaps, err := s.store.LatestAccountSnapshots(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}

	execs := toPnl(records)
	rows := pnl.ComputeExecutionPnl(execs)
	byID := byExecutionID(rows)

	var d Dashboard
	d.Cards = s.cards(records, rows, byID)
	d.Cards.Metrics = pnl.BuildMetrics(rows, pnl.TotalCommissions(execs))
	d.Cards.LatestEquity = latestEquity(snaps)
	d.Charts = s.charts(records, rows, byID)

	slog.Debug("dashboard built", "executions", len(records), "trades", d.Cards.Metrics.Trades)
	return d, nil
}

func (s *Service) cards(records []journal.ExecutionRecord, rows []pnl.ExecutionPnl, byID map[string]pnl.ExecutionPnl) Cards {
	c := Cards{TotalExecutions: len(records)}

	now := s.now().In(s.loc)
	dayStart := startOfDay(now)
	weekStart := s.startOfWeek(now)
	monthStart := startOfMonth(now)

	for _, r := range records {
		realized := byID[r.ID].RealizedPnl
		if !r.ExecutedAt.Before(dayStart) {
			c.RealizedDay += realized
		}
		if !r.ExecutedAt.Before(weekStart) {
			c.RealizedWeek += realized
		}
		if !r.ExecutedAt.Before(monthStart) {
			c.RealizedMonth += realized
		}
	}

	var closed int
	var winHold, lossHold float64
	var wins, losses int
	c.LargestGain = math.Inf(-1)
	c.LargestLoss = math.Inf(1)
	for _, row := range rows {
		if row.MatchedQuantity <= 0 {
			continue
		}
		closed++
		c.LargestGain = math.Max(c.LargestGain, row.RealizedPnl)
		c.LargestLoss = math.Min(c.LargestLoss, row.RealizedPnl)
		switch {
		case row.RealizedPnl > 0:
			wins++
			winHold += row.AvgHoldTimeMs
		case row.RealizedPnl < 0:
			losses++
			lossHold += row.AvgHoldTimeMs
		}
	}
	if closed == 0 {
		c.LargestGain, c.LargestLoss = 0, 0
	}
	if wins > 0 {
		c.AvgWinHold = time.Duration(winHold/float64(wins)) * time.Millisecond
	}
	if losses > 0 {
		c.AvgLossHold = time.Duration(lossHold/float64(losses)) * time.Millisecond
	}

	volume := make(map[string]float64)
	for _, r := range records {
		volume[s.day(r.ExecutedAt)] += math.Abs(r.Quantity)
	}
	if len(volume) > 0 {
		var total float64
		for _, v := range volume {
			total += v
		}
		c.AvgDailyVolume = total / float64(len(volume))
	}
	return c
}

func (s *Service) charts(records []journal.ExecutionRecord, rows []pnl.ExecutionPnl, byID map[string]pnl.ExecutionPnl) Charts {
	daily := make(map[string]float64)
	gross := make(map[string]float64)
	counts := make(map[string]int)
	at := make(map[string]time.Time, len(records))

	for _, r := range records {
		key := s.day(r.ExecutedAt)
		row := byID[r.ID]
		daily[key] += row.RealizedPnl
		if row.MatchedQuantity > 0 {
			gross[key] += row.GrossRealizedPnl
		}
		counts[key]++
		at[r.ID] = r.ExecutedAt
	}

	c := Charts{
		DailyPnl:         dailyValues(daily),
		GrossDailyPnl:    dailyValues(gross),
		DailyTradeCounts: make([]DailyCount, 0, len(counts)),
	}

	var running float64
	for _, v := range c.GrossDailyPnl {
		running += v.Value
		c.GrossCumulativePnl = append(c.GrossCumulativePnl, DailyValue{Date: v.Date, Value: running})
	}

	for _, day := range sortedKeys(counts) {
		c.DailyTradeCounts = append(c.DailyTradeCounts, DailyCount{Date: day, Count: counts[day]})
	}

	var returns []float64
	for _, row := range rows {
		c.EquityCurve = append(c.EquityCurve, EquityPoint{At: at[row.ExecutionID], Equity: row.CumulativePnl})
		if row.MatchedQuantity > 0 {
			returns = append(returns, row.RealizedPnl)
		}
	}
	c.Histogram = pnl.BucketHistogram(returns, s.bins)
	return c
}

func latestEquity(snaps []journal.AccountSnapshot) *float64 {
	var total float64
	var found bool
	for _, s := range snaps {
		if s.Equity == nil {
			continue
		}
		total += *s.Equity
		found = true
	}
	if !found {
		return nil
	}
	return &total
}

func dailyValues(m map[string]float64) []DailyValue {
	out := make([]DailyValue, 0, len(m))
	for _, day := range sortedKeys(m) {
		out = append(out, DailyValue{Date: day, Value: m[day]})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
