package journal

import (
	"fmt"
	"io"
	"math"
	"text/template"
	"time"

	"github.com/rustyeddy/tradebook/pnl"
)

// PeriodReport is a journal page covering the closed trades of a date
// range.
type PeriodReport struct {
	Title   string
	From    string
	To      string
	Created time.Time

	Metrics pnl.Metrics
	Trades  []pnl.ClosedTradeGroup

	// TradeNotes is keyed by trade id.
	TradeNotes map[string]string
	DayNotes   []DayNote
}

var periodOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"pf": func(x float64) string {
		if math.IsInf(x, 1) {
			return "inf"
		}
		return fmt.Sprintf("%.2f", x)
	},
	"trade": FormatClosedTradeOrg,
	"note": func(notes map[string]string, tradeID string) string {
		return notes[tradeID]
	},
}

var periodOrg = template.Must(template.New("period").Funcs(periodOrgFuncs).Parse(PeriodOrgTemplate))

// WriteOrg renders the report as an Org-mode document.
func (r *PeriodReport) WriteOrg(w io.Writer) error {
	return periodOrg.Execute(w, r)
}

const PeriodOrgTemplate = `* JOURNAL: {{if .Title}}{{.Title}}{{else}}{{.From}} .. {{.To}}{{end}}
:PROPERTIES:
:FROM:        {{.From}}
:TO:          {{.To}}
:TRADES:      {{.Metrics.Trades}}
:WINS:        {{.Metrics.Wins}}
:LOSSES:      {{.Metrics.Losses}}
:WIN_RATE:    {{printf "%.2f" .Metrics.WinRate}}
:PROFIT_FAC:  {{pf .Metrics.ProfitFactor}}
:NET_PL:      {{printf "%.2f" .Metrics.Realized}}
:MAX_DD:      {{printf "%.2f" .Metrics.MaxDrawdown}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:          *{{printf "%.2f" .Metrics.Realized}}*
- Commissions:      *{{printf "%.2f" .Metrics.Commissions}}*
- Win Rate:         *{{printf "%.2f" .Metrics.WinRate}}%*
- Profit Factor:    *{{pf .Metrics.ProfitFactor}}*
- Avg Win / Loss:   *{{printf "%.2f" .Metrics.AvgWin}}* / *{{printf "%.2f" .Metrics.AvgLoss}}*
- Expectancy:       *{{printf "%.2f" .Metrics.Expectancy}}*
- Max Drawdown:     *{{printf "%.2f" .Metrics.MaxDrawdown}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Metrics.Wins}} |
| Losses  | {{.Metrics.Losses}} |
| Total   | {{.Metrics.Trades}} |

{{- if .DayNotes }}

** Day Notes
{{- range .DayNotes }}
- {{.Date}} {{.AccountID}}: {{.Body}}
{{- end }}
{{- end }}
{{- $notes := .TradeNotes }}
{{- range .Trades }}

{{ trade . (note $notes .TradeID) }}
{{- end }}
`
