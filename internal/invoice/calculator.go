// Package invoice turns billable timesheet records into numbered invoices and renders them.
package invoice

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/balkashynov/hourly/internal/models"
)

// Calculator ids
const (
	CalculatorDefault  = "default"
	CalculatorShort    = "short"
	CalculatorUser     = "user"
	CalculatorActivity = "activity"
	CalculatorProject  = "project"
	CalculatorDate     = "date"
	CalculatorWeekly   = "weekly"
	CalculatorPrice    = "price"
)

// Calculator groups records into invoice items.
type Calculator interface {
	ID() string
	Items(list []models.Timesheet) []models.InvoiceItem
}

// groupCalculator merges all hourly records sharing a key into one item.
// Fixed rate records are never merged, each becomes an item of amount 1.
type groupCalculator struct {
	id    string
	key   func(t models.Timesheet) string
	label func(t models.Timesheet) string
}

func (c groupCalculator) ID() string { return c.id }

func (c groupCalculator) Items(list []models.Timesheet) []models.InvoiceItem {
	sorted := sortedByBegin(list)

	// slots keep the order of first appearance; a fixed record takes its own slot
	type slot struct {
		key   string
		fixed *models.Timesheet
	}
	var order []slot
	groups := map[string][]models.Timesheet{}
	for i, t := range sorted {
		if t.FixedRate != nil {
			order = append(order, slot{fixed: &sorted[i]})
			continue
		}
		k := c.key(t)
		if _, ok := groups[k]; !ok {
			order = append(order, slot{key: k})
		}
		groups[k] = append(groups[k], t)
	}

	items := make([]models.InvoiceItem, 0, len(order))
	for _, s := range order {
		if s.fixed != nil {
			item := merge([]models.Timesheet{*s.fixed})
			item.Description = s.fixed.Description
			if item.Description == "" {
				item.Description = c.label(*s.fixed)
			}
			items = append(items, item)
			continue
		}
		group := groups[s.key]
		item := merge(group)
		item.Description = c.label(group[0])
		items = append(items, item)
	}
	return items
}

// defaultCalculator bills every record as its own item.
type defaultCalculator struct{}

func (defaultCalculator) ID() string { return CalculatorDefault }

func (defaultCalculator) Items(list []models.Timesheet) []models.InvoiceItem {
	sorted := sortedByBegin(list)
	items := make([]models.InvoiceItem, 0, len(sorted))
	for _, t := range sorted {
		item := merge([]models.Timesheet{t})
		item.Description = t.Description
		if item.Description == "" {
			item.Description = t.Activity.Name
		}
		items = append(items, item)
	}
	return items
}

// Calculators returns all built in calculators by id.
func Calculators() map[string]Calculator {
	all := []Calculator{
		defaultCalculator{},
		groupCalculator{
			id:  CalculatorShort,
			key: func(models.Timesheet) string { return "" },
			label: func(t models.Timesheet) string {
				return t.Project.Customer.Name
			},
		},
		groupCalculator{
			id:    CalculatorUser,
			key:   func(t models.Timesheet) string { return fmt.Sprint(t.UserID) },
			label: func(t models.Timesheet) string { return t.User.DisplayName() },
		},
		groupCalculator{
			id:    CalculatorActivity,
			key:   func(t models.Timesheet) string { return fmt.Sprint(t.ActivityID) },
			label: func(t models.Timesheet) string { return t.Activity.Name },
		},
		groupCalculator{
			id:    CalculatorProject,
			key:   func(t models.Timesheet) string { return fmt.Sprint(t.ProjectID) },
			label: func(t models.Timesheet) string { return t.Project.Name },
		},
		groupCalculator{
			id:    CalculatorDate,
			key:   func(t models.Timesheet) string { return localBegin(t).Format("2006-01-02") },
			label: func(t models.Timesheet) string { return localBegin(t).Format("2006-01-02") },
		},
		groupCalculator{
			id: CalculatorWeekly,
			key: func(t models.Timesheet) string {
				year, week := localBegin(t).ISOWeek()
				return fmt.Sprintf("%d-%02d", year, week)
			},
			label: func(t models.Timesheet) string {
				year, week := localBegin(t).ISOWeek()
				return fmt.Sprintf("Week %d/%d", week, year)
			},
		},
		groupCalculator{
			id:    CalculatorPrice,
			key:   func(t models.Timesheet) string { return priceKey(t) },
			label: func(t models.Timesheet) string { return priceKey(t) },
		},
	}
	out := make(map[string]Calculator, len(all))
	for _, c := range all {
		out[c.ID()] = c
	}
	return out
}

// CalculatorIDs lists the built in ids sorted.
func CalculatorIDs() []string {
	var ids []string
	for id := range Calculators() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func priceKey(t models.Timesheet) string {
	if t.FixedRate != nil {
		return "fixed " + formatAmount(*t.FixedRate)
	}
	if t.HourlyRate != nil {
		return "hourly " + formatAmount(*t.HourlyRate)
	}
	return "hourly " + formatAmount(hourlyOf(t.Rate, t.Duration))
}

// merge sums a group. Fixed rate groups count records; hourly groups count hours.
func merge(group []models.Timesheet) models.InvoiceItem {
	first := group[0]
	item := models.InvoiceItem{
		Begin:    first.Begin,
		Customer: first.Project.Customer.Name,
		Project:  first.Project.Name,
		Activity: first.Activity.Name,
		User:     first.User.DisplayName(),
		Category: first.Category,
		Fixed:    true,
	}

	var fixedRate *float64
	for _, t := range group {
		item.Rate += t.Rate
		item.InternalRate += t.InternalRate
		item.Duration += t.Duration
		if t.End != nil && t.End.After(item.End) {
			item.End = *t.End
		}
		if t.FixedRate == nil || (fixedRate != nil && *fixedRate != *t.FixedRate) {
			item.Fixed = false
		} else {
			fixedRate = t.FixedRate
		}
		if item.Customer != t.Project.Customer.Name {
			item.Customer = ""
		}
		if item.Project != t.Project.Name {
			item.Project = ""
		}
		if item.Activity != t.Activity.Name {
			item.Activity = ""
		}
		if item.User != t.User.DisplayName() {
			item.User = ""
		}
		if item.Category != t.Category {
			item.Category = ""
		}
	}

	item.Rate = round(item.Rate, 4)
	item.InternalRate = round(item.InternalRate, 4)
	if item.Fixed {
		item.Amount = float64(len(group))
		item.HourlyRate = *fixedRate
		return item
	}
	item.Amount = round(float64(item.Duration)/3600, 2)
	item.HourlyRate = hourlyOf(item.Rate, item.Duration)
	if rate := sameHourlyRate(group); rate != nil {
		item.HourlyRate = *rate
	}
	return item
}

func sameHourlyRate(group []models.Timesheet) *float64 {
	var rate *float64
	for _, t := range group {
		if t.HourlyRate == nil || (rate != nil && *rate != *t.HourlyRate) {
			return nil
		}
		rate = t.HourlyRate
	}
	return rate
}

func hourlyOf(rate float64, seconds int) float64 {
	if seconds <= 0 {
		return 0
	}
	return round(rate/(float64(seconds)/3600), 2)
}

func sortedByBegin(list []models.Timesheet) []models.Timesheet {
	sorted := append([]models.Timesheet{}, list...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Begin.Before(sorted[j].Begin) })
	return sorted
}

func localBegin(t models.Timesheet) time.Time {
	return t.Begin.In(t.User.Location())
}

func round(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

func formatAmount(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
