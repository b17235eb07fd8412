package export

import (
	"sort"
	"time"

	"github.com/balkashynov/hourly/internal/models"
)

// Data is everything a renderer needs.
type Data struct {
	Title      string
	Begin      time.Time
	End        time.Time
	Columns    []Column
	Timesheets []models.Timesheet
	Summary    Summary
	ShowRates  bool
	// DurationFormat controls how summary durations are printed.
	DurationFormat string
}

// Headers returns the column headers.
func (d Data) Headers() []string {
	out := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		out[i] = col.Header
	}
	return out
}

// Rows returns the raw column values per record.
func (d Data) Rows() [][]interface{} {
	rows := make([][]interface{}, 0, len(d.Timesheets))
	for _, t := range d.Timesheets {
		row := make([]interface{}, len(d.Columns))
		for i, col := range d.Columns {
			row[i] = col.Value(t)
		}
		rows = append(rows, row)
	}
	return rows
}

// TextRows returns Rows formatted as text.
func (d Data) TextRows() [][]string {
	raw := d.Rows()
	out := make([][]string, len(raw))
	for i, row := range raw {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = FormatValue(v)
		}
	}
	return out
}

// FormatDuration prints a summary duration in the export's format.
func (d Data) FormatDuration(seconds int) string {
	return FormatValue(ColumnConverter{DurationFormat: d.DurationFormat}.duration(seconds))
}

// Totals sums one currency.
type Totals struct {
	Currency     string  `json:"currency"`
	Count        int     `json:"count"`
	Duration     int     `json:"duration"`
	Rate         float64 `json:"rate"`
	InternalRate float64 `json:"internal_rate"`
}

// Summary holds the totals of an export; rates are only comparable per currency.
type Summary struct {
	Count      int      `json:"count"`
	Duration   int      `json:"duration"`
	ByCurrency []Totals `json:"currencies"`
}

// Summarize totals the records per customer currency.
func Summarize(list []models.Timesheet) Summary {
	var s Summary
	byCurrency := map[string]*Totals{}
	for _, t := range list {
		s.Count++
		s.Duration += t.Duration

		currency := t.Project.Customer.Currency
		totals, ok := byCurrency[currency]
		if !ok {
			totals = &Totals{Currency: currency}
			byCurrency[currency] = totals
		}
		totals.Count++
		totals.Duration += t.Duration
		totals.Rate += t.Rate
		totals.InternalRate += t.InternalRate
	}
	for _, totals := range byCurrency {
		s.ByCurrency = append(s.ByCurrency, *totals)
	}
	sort.Slice(s.ByCurrency, func(i, j int) bool { return s.ByCurrency[i].Currency < s.ByCurrency[j].Currency })
	return s
}
