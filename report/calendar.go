package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/pnl"
)

// CalendarDay carries realized P&L and mark-to-market movement for a day.
// MTM is the change in unrealized P&L of open positions since each one's
// previous snapshot.
type CalendarDay struct {
	Date     string
	Realized float64
	MTM      float64
	Total    float64
	Notes    []journal.DayNote
}

type MonthTotal struct {
	Month    string
	Realized float64
	MTM      float64
	Total    float64
}

type Calendar struct {
	Year   int
	Days   []CalendarDay
	Months []MonthTotal
}

// Calendar builds the per-day view of a year. Only days with realized P&L,
// a position snapshot or a note appear.
func (s *Service) Calendar(ctx context.Context, year int) (Calendar, error) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	yearEnd := yearStart.AddDate(1, 0, 0)
	first := yearStart.Format(journal.DateLayout)
	last := yearEnd.AddDate(0, 0, -1).Format(journal.DateLayout)

	records, err := s.store.ListExecutions(ctx, journal.ExecutionFilter{To: yearEnd})
	if err != nil {
		return Calendar{}, fmt.Errorf("calendar %d: %w", year, err)
	}
	// the day before the year seeds the first MTM delta
	snaps, err := s.store.ListPositionSnapshots(ctx, yearStart.AddDate(0, 0, -1).Format(journal.DateLayout), last)
	if err != nil {
		return Calendar{}, fmt.Errorf("calendar %d: %w", year, err)
	}
	notes, err := s.store.DayNotesBetween(ctx, first, last)
	if err != nil {
		return Calendar{}, fmt.Errorf("calendar %d: %w", year, err)
	}

	days := make(map[string]*CalendarDay)
	get := func(date string) *CalendarDay {
		d, ok := days[date]
		if !ok {
			d = &CalendarDay{Date: date}
			days[date] = d
		}
		return d
	}

	at := make(map[string]time.Time, len(records))
	for _, r := range records {
		at[r.ID] = r.ExecutedAt
	}
	for _, row := range pnl.ComputeExecutionPnl(toPnl(records)) {
		t := at[row.ExecutionID]
		if t.Before(yearStart) {
			continue
		}
		get(s.day(t)).Realized += row.RealizedPnl
	}

	prev := make(map[string]float64)
	for _, snap := range snaps {
		key := pnl.ScopeKey(snap.AccountID, snap.InstrumentID)
		current := 0.0
		if snap.UnrealizedPnl != nil {
			current = *snap.UnrealizedPnl
		}
		if snap.Date >= first {
			get(snap.Date).MTM += current - prev[key]
		}
		prev[key] = current
	}

	for _, n := range notes {
		d := get(n.Date)
		d.Notes = append(d.Notes, n)
	}

	cal := Calendar{Year: year}
	months := make(map[string]*MonthTotal)
	var order []string
	for _, date := range sortedKeys(days) {
		d := days[date]
		d.Total = d.Realized + d.MTM
		cal.Days = append(cal.Days, *d)

		month := date[:7]
		m, ok := months[month]
		if !ok {
			m = &MonthTotal{Month: month}
			months[month] = m
			order = append(order, month)
		}
		m.Realized += d.Realized
		m.MTM += d.MTM
		m.Total += d.Total
	}
	for _, month := range order {
		cal.Months = append(cal.Months, *months[month])
	}
	return cal, nil
}
