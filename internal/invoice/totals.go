package invoice

import "github.com/balkashynov/hourly/internal/models"

// Totals are rounded to cents.
type Totals struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// CalculateTotals sums item rates and applies the VAT percentage.
func CalculateTotals(items []models.InvoiceItem, vat float64) Totals {
	var sum float64
	for _, item := range items {
		sum += item.Rate
	}
	subtotal := round(sum, 2)
	tax := round(subtotal*vat/100, 2)
	return Totals{Subtotal: subtotal, Tax: tax, Total: round(subtotal+tax, 2)}
}
