package invoice

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
)

// DefaultNumberFormat yields numbers like 2026/007.
const DefaultNumberFormat = "{Y}/{cy,3}"

// maxNumberAttempts bounds the search for an unused number.
const maxNumberAttempts = 100

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z]+)(?:,(\d+))?\}`)

// Counter is the part of the store the number generator reads.
type Counter interface {
	CountInvoices(ctx context.Context, c db.InvoiceCounter) (int, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
}

// NumberGenerator renders invoice numbers from a format with placeholders:
//
//	{Y} {y} {M} {m} {D} {d} {date}   creation date parts, {date} is YYMMDD
//	{c} {cy} {cm} {cd}               invoices overall / this year / month / day, plus one
//	{cc} {ccy} {ccm} {ccd}           the same counters for the customer
//	{cname} {cnumber}                customer name and number
//
// Any placeholder accepts ",N" to left pad with zeros, e.g. {cy,3}.
type NumberGenerator struct {
	format  string
	counter Counter
}

func NewNumberGenerator(format string, counter Counter) *NumberGenerator {
	if strings.TrimSpace(format) == "" {
		format = DefaultNumberFormat
	}
	return &NumberGenerator{format: format, counter: counter}
}

// Generate returns the first unused number for an invoice created at for customer.
func (g *NumberGenerator) Generate(ctx context.Context, customer models.Customer, at time.Time) (string, error) {
	for offset := 0; offset < maxNumberAttempts; offset++ {
		number, counted, err := g.render(ctx, customer, at, offset)
		if err != nil {
			return "", err
		}
		exists, err := g.counter.InvoiceNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
		if !counted {
			return "", fmt.Errorf("invoice number %s already used: %w", number, db.ErrConflict)
		}
	}
	return "", fmt.Errorf("no unused invoice number for format %q: %w", g.format, db.ErrConflict)
}

// render replaces all placeholders; counted reports whether a counter was used.
func (g *NumberGenerator) render(ctx context.Context, customer models.Customer, at time.Time, offset int) (string, bool, error) {
	var (
		firstErr error
		counted  bool
	)
	out := placeholderPattern.ReplaceAllStringFunc(g.format, func(match string) string {
		if firstErr != nil {
			return match
		}
		parts := placeholderPattern.FindStringSubmatch(match)
		name := parts[1]
		pad := 0
		if parts[2] != "" {
			pad, _ = strconv.Atoi(parts[2])
		}

		value, isCounter, known, err := g.value(ctx, name, customer, at)
		if err != nil {
			firstErr = err
			return match
		}
		if !known {
			return match
		}
		if isCounter {
			counted = true
			n, _ := strconv.Atoi(value)
			value = strconv.Itoa(n + offset)
		}
		if len(value) < pad {
			value = strings.Repeat("0", pad-len(value)) + value
		}
		return value
	})
	if firstErr != nil {
		return "", false, firstErr
	}
	return out, counted, nil
}

func (g *NumberGenerator) value(ctx context.Context, name string, customer models.Customer, at time.Time) (value string, isCounter, known bool, err error) {
	switch name {
	case "Y":
		return at.Format("2006"), false, true, nil
	case "y":
		return at.Format("06"), false, true, nil
	case "M":
		return at.Format("01"), false, true, nil
	case "m":
		return strconv.Itoa(int(at.Month())), false, true, nil
	case "D":
		return at.Format("02"), false, true, nil
	case "d":
		return strconv.Itoa(at.Day()), false, true, nil
	case "date":
		return at.Format("060102"), false, true, nil
	case "cname":
		return customer.Name, false, true, nil
	case "cnumber":
		return customer.Number, false, true, nil
	}

	scope, ok := counterScopes[name]
	if !ok {
		return "", false, false, nil
	}
	c := db.InvoiceCounter{}
	if scope.customer {
		id := customer.ID
		c.CustomerID = &id
	}
	if scope.period != "" {
		from, to := periodOf(at, scope.period)
		c.From, c.To = &from, &to
	}
	n, err := g.counter.CountInvoices(ctx, c)
	if err != nil {
		return "", true, true, err
	}
	return strconv.Itoa(n + 1), true, true, nil
}

type counterScope struct {
	customer bool
	period   string // "", year, month or day
}

var counterScopes = map[string]counterScope{
	"c":   {},
	"cy":  {period: "year"},
	"cm":  {period: "month"},
	"cd":  {period: "day"},
	"cc":  {customer: true},
	"ccy": {customer: true, period: "year"},
	"ccm": {customer: true, period: "month"},
	"ccd": {customer: true, period: "day"},
}

func periodOf(at time.Time, period string) (time.Time, time.Time) {
	loc := at.Location()
	switch period {
	case "year":
		from := time.Date(at.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(1, 0, 0)
	case "month":
		from := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(0, 1, 0)
	default:
		from := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, loc)
		return from, from.AddDate(0, 0, 1)
	}
}
