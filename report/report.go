// Package report turns stored executions, snapshots and notes into the
// views the CLI prints: the dashboard, execution and closed trade lists,
// the yearly calendar and single execution detail.
package report

import (
	"context"
	"time"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/pnl"
)

// Store is the read side of the journal. *journal.SQLite implements it.
type Store interface {
	ListExecutions(ctx context.Context, f journal.ExecutionFilter) ([]journal.ExecutionRecord, error)
	GetExecution(ctx context.Context, executionID string) (journal.ExecutionRecord, error)
	LatestPositionBefore(ctx context.Context, accountID, instrumentID, before string) (journal.PositionSnapshot, error)
	ListPositionSnapshots(ctx context.Context, from, to string) ([]journal.PositionSnapshot, error)
	LatestAccountSnapshots(ctx context.Context) ([]journal.AccountSnapshot, error)
	DayNotesBetween(ctx context.Context, from, to string) ([]journal.DayNote, error)
	ClosedTradeNotes(ctx context.Context, tradeIDs []string) (map[string]string, error)
}

type Options struct {
	HistogramBins int
	WeekStartsOn  time.Weekday
	// Location decides which calendar day an execution falls on.
	Location *time.Location
}

func DefaultOptions() Options {
	return Options{
		HistogramBins: 12,
		WeekStartsOn:  time.Monday,
		Location:      time.UTC,
	}
}

type Service struct {
	store     Store
	bins      int
	weekStart time.Weekday
	loc       *time.Location
	now       func() time.Time
}

func NewService(store Store, opts Options) *Service {
	if opts.HistogramBins <= 0 {
		opts.HistogramBins = DefaultOptions().HistogramBins
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		store:     store,
		bins:      opts.HistogramBins,
		weekStart: opts.WeekStartsOn,
		loc:       opts.Location,
		now:       time.Now,
	}
}

// Filter narrows execution and closed trade listings. From and To are
// YYYY-MM-DD days, both inclusive.
type Filter struct {
	AccountID string
	Symbol    string
	Side      pnl.Side
	Strategy  string
	From      string
	To        string
}

// window converts the day range to the [from, to) instants used by the
// journal.
func (s *Service) window(f Filter) (from, to time.Time, err error) {
	if f.From != "" {
		if from, err = time.ParseInLocation(journal.DateLayout, f.From, s.loc); err != nil {
			return from, to, err
		}
	}
	if f.To != "" {
		if to, err = time.ParseInLocation(journal.DateLayout, f.To, s.loc); err != nil {
			return from, to, err
		}
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}

func (s *Service) day(t time.Time) string {
	return t.In(s.loc).Format(journal.DateLayout)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *Service) startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	back := (int(day.Weekday()) - int(s.weekStart) + 7) % 7
	return day.AddDate(0, 0, -back)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func toPnl(records []journal.ExecutionRecord) []pnl.Execution {
	out := make([]pnl.Execution, len(records))
	for i, r := range records {
		out[i] = r.Execution
	}
	return out
}

func byExecutionID(rows []pnl.ExecutionPnl) map[string]pnl.ExecutionPnl {
	out := make(map[string]pnl.ExecutionPnl, len(rows))
	for _, r := range rows {
		out[r.ExecutionID] = r
	}
	return out
}
