package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header ...any) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(header...)
	return table
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func price(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func qty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func ratio(v float64) string {
	if math.IsInf(v, 1) {
		return "INF"
	}
	return fmt.Sprintf("%.2f", v)
}

func optMoney(v *float64) string {
	if v == nil {
		return "-"
	}
	return money(*v)
}

func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func hold(d time.Duration) string {
	return d.Round(time.Second).String()
}
