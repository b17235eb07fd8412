package invoice

import "github.com/balkashynov/hourly/internal/models"

var transitions = map[string][]string{
	models.InvoiceStatusNew:     {models.InvoiceStatusPending, models.InvoiceStatusPaid, models.InvoiceStatusCanceled},
	models.InvoiceStatusPending: {models.InvoiceStatusPaid, models.InvoiceStatusCanceled, models.InvoiceStatusNew},
	// a paid invoice can only be reopened, a canceled one only revived as new
	models.InvoiceStatusPaid:     {models.InvoiceStatusPending},
	models.InvoiceStatusCanceled: {models.InvoiceStatusNew},
}

// CanTransition reports whether an invoice may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidStatus reports a known status.
func ValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}
