// Package export renders timesheet records into downloadable files.
package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/parser"
)

// Duration formats
const (
	DurationDecimal = "decimal"
	DurationClock   = "hh:mm"
)

// Column is one exported field of a record.
type Column struct {
	Name   string
	Header string
	// Rate columns are only exported to users allowed to see rates.
	Rate  bool
	Value func(t models.Timesheet) interface{}
}

// ColumnConverter decides which columns an export contains and how values look.
type ColumnConverter struct {
	DurationFormat string
	ShowRates      bool
	// MetaNames adds one "meta.<name>" column per visible timesheet meta field.
	MetaNames []string
	// Only restricts the export to the named columns, in that order.
	Only []string
}

// Columns returns the ordered column definitions.
func (c ColumnConverter) Columns() []Column {
	all := c.builtin()
	for _, name := range c.MetaNames {
		name := name
		all = append(all, Column{
			Name:   "meta." + name,
			Header: name,
			Value: func(t models.Timesheet) interface{} {
				v, _ := models.MetaValue(t.Meta, name)
				return v
			},
		})
	}

	var out []Column
	if len(c.Only) > 0 {
		byName := make(map[string]Column, len(all))
		for _, col := range all {
			byName[col.Name] = col
		}
		for _, name := range c.Only {
			if col, ok := byName[strings.TrimSpace(name)]; ok {
				out = append(out, col)
			}
		}
	} else {
		out = all
	}

	if c.ShowRates {
		return out
	}
	var visible []Column
	for _, col := range out {
		if !col.Rate {
			visible = append(visible, col)
		}
	}
	return visible
}

func (c ColumnConverter) builtin() []Column {
	return []Column{
		{Name: "date", Header: "Date", Value: func(t models.Timesheet) interface{} {
			return local(t, t.Begin).Format("2006-01-02")
		}},
		{Name: "begin", Header: "From", Value: func(t models.Timesheet) interface{} {
			return local(t, t.Begin).Format("15:04")
		}},
		{Name: "end", Header: "To", Value: func(t models.Timesheet) interface{} {
			if t.End == nil {
				return ""
			}
			return local(t, *t.End).Format("15:04")
		}},
		{Name: "duration", Header: "Duration", Value: func(t models.Timesheet) interface{} {
			return c.duration(t.Duration)
		}},
		{Name: "user", Header: "User", Value: func(t models.Timesheet) interface{} { return t.User.DisplayName() }},
		{Name: "username", Header: "Username", Value: func(t models.Timesheet) interface{} { return t.User.Username }},
		{Name: "customer", Header: "Customer", Value: func(t models.Timesheet) interface{} { return t.Project.Customer.Name }},
		{Name: "project", Header: "Project", Value: func(t models.Timesheet) interface{} { return t.Project.Name }},
		{Name: "activity", Header: "Activity", Value: func(t models.Timesheet) interface{} { return t.Activity.Name }},
		{Name: "description", Header: "Description", Value: func(t models.Timesheet) interface{} { return t.Description }},
		{Name: "billable", Header: "Billable", Value: func(t models.Timesheet) interface{} { return t.Billable }},
		{Name: "exported", Header: "Exported", Value: func(t models.Timesheet) interface{} { return t.Exported }},
		{Name: "tags", Header: "Tags", Value: func(t models.Timesheet) interface{} { return strings.Join(t.TagNames(), ",") }},
		{Name: "hourly_rate", Header: "Hourly price", Rate: true, Value: func(t models.Timesheet) interface{} { return optional(t.HourlyRate) }},
		{Name: "fixed_rate", Header: "Fixed price", Rate: true, Value: func(t models.Timesheet) interface{} { return optional(t.FixedRate) }},
		{Name: "rate", Header: "Total price", Rate: true, Value: func(t models.Timesheet) interface{} { return t.Rate }},
		{Name: "internal_rate", Header: "Internal price", Rate: true, Value: func(t models.Timesheet) interface{} { return t.InternalRate }},
		{Name: "currency", Header: "Currency", Value: func(t models.Timesheet) interface{} { return t.Project.Customer.Currency }},
		{Name: "category", Header: "Type", Value: func(t models.Timesheet) interface{} { return t.Category }},
		{Name: "customer_number", Header: "Customer number", Value: func(t models.Timesheet) interface{} { return t.Project.Customer.Number }},
		{Name: "project_number", Header: "Project number", Value: func(t models.Timesheet) interface{} { return t.Project.Number }},
		{Name: "activity_number", Header: "Activity number", Value: func(t models.Timesheet) interface{} { return t.Activity.Number }},
		{Name: "order_number", Header: "Order number", Value: func(t models.Timesheet) interface{} { return t.Project.OrderNumber }},
		{Name: "vat_id", Header: "VAT-ID", Value: func(t models.Timesheet) interface{} { return t.Project.Customer.VatID }},
	}
}

// duration renders seconds as decimal hours (a float) or as h:mm text.
func (c ColumnConverter) duration(seconds int) interface{} {
	if c.DurationFormat == DurationClock {
		return parser.FormatClock(seconds)
	}
	return math.Round(float64(seconds)/36) / 100
}

// FormatValue turns a column value into text.
func FormatValue(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		if value {
			return "yes"
		}
		return "no"
	case float64:
		return strconv.FormatFloat(value, 'f', 2, 64)
	case int:
		return strconv.Itoa(value)
	case time.Time:
		return value.Format("2006-01-02 15:04")
	default:
		return fmt.Sprint(value)
	}
}

func local(t models.Timesheet, at time.Time) time.Time {
	return at.In(t.User.Location())
}

func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
