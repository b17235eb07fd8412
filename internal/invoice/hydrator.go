package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/balkashynov/hourly/internal/models"
)

// View is the flattened invoice handed to renderers.
type View struct {
	Values map[string]string
	Items  []ItemView
	// Invoice and Template are kept for renderers that need typed values.
	Invoice  models.Invoice
	Template models.InvoiceTemplate
}

// ItemView is one formatted invoice line.
type ItemView struct {
	Description string
	Amount      string
	HourlyRate  string
	Rate        string
	Begin       string
	End         string
	Project     string
	Activity    string
	User        string
	Fixed       bool
}

// Value returns a hydrated value or an empty string.
func (v View) Value(key string) string {
	return v.Values[key]
}

// Hydrate flattens invoice, customer and template into named values.
func Hydrate(invoice models.Invoice, template models.InvoiceTemplate) View {
	currency := invoice.Currency
	c := invoice.Customer
	values := map[string]string{
		"invoice.number":       invoice.InvoiceNumber,
		"invoice.date":         invoice.CreatedAt.Format("2006-01-02"),
		"invoice.due_date":     invoice.DueDate().Format("2006-01-02"),
		"invoice.due_days":     fmt.Sprint(invoice.DueDays),
		"invoice.status":       invoice.Status,
		"invoice.currency":     currency,
		"invoice.vat":          formatAmount(invoice.Vat),
		"invoice.subtotal":     Money(invoice.Subtotal, currency),
		"invoice.tax":          Money(invoice.Tax, currency),
		"invoice.total":        Money(invoice.Total, currency),
		"invoice.subtotal_raw": fmt.Sprintf("%.2f", invoice.Subtotal),
		"invoice.tax_raw":      fmt.Sprintf("%.2f", invoice.Tax),
		"invoice.total_raw":    fmt.Sprintf("%.2f", invoice.Total),
		"invoice.comment":      invoice.Comment,
		"invoice.period_begin": formatDate(invoice.PeriodBegin),
		"invoice.period_end":   formatDate(invoice.PeriodEnd),

		"customer.id":       fmt.Sprint(c.ID),
		"customer.name":     c.Name,
		"customer.number":   c.Number,
		"customer.company":  c.Company,
		"customer.contact":  c.Contact,
		"customer.address":  c.Address,
		"customer.country":  c.Country,
		"customer.vat_id":   c.VatID,
		"customer.email":    c.Email,
		"customer.phone":    c.Phone,
		"customer.homepage": c.Homepage,

		"template.name":            template.Name,
		"template.title":           template.Title,
		"template.company":         template.Company,
		"template.address":         template.Address,
		"template.vat_id":          template.VatID,
		"template.contact":         template.Contact,
		"template.payment_terms":   template.PaymentTerms,
		"template.payment_details": template.PaymentDetails,

		"user.name":  invoice.User.DisplayName(),
		"user.email": invoice.User.Email,
		"user.title": invoice.User.Title,
	}
	for _, meta := range c.Meta {
		if meta.Visible {
			values["customer.meta."+meta.Name] = meta.Value
		}
	}

	items := make([]ItemView, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		amount := formatAmount(item.Amount)
		if !item.Fixed {
			amount = fmt.Sprintf("%.2f", item.Amount)
		}
		items = append(items, ItemView{
			Description: item.Description,
			Amount:      amount,
			HourlyRate:  Money(item.HourlyRate, currency),
			Rate:        Money(item.Rate, currency),
			Begin:       formatTime(item.Begin),
			End:         formatTime(item.End),
			Project:     item.Project,
			Activity:    item.Activity,
			User:        item.User,
			Fixed:       item.Fixed,
		})
	}
	return View{Values: values, Items: items, Invoice: invoice, Template: template}
}

// Money formats an amount with two decimals and the currency code.
func Money(amount float64, currency string) string {
	return strings.TrimSpace(fmt.Sprintf("%.2f %s", amount, currency))
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
