package models

import (
	"time"
)

// Invoice states
const (
	InvoiceStatusNew      = "new"
	InvoiceStatusPending  = "pending"
	InvoiceStatusPaid     = "paid"
	InvoiceStatusCanceled = "canceled"
)

// Invoice is a persisted, numbered invoice with its calculated items.
type Invoice struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceNumber string     `gorm:"uniqueIndex;not null;size:50" json:"invoice_number"`
	CustomerID    uint       `gorm:"not null;index" json:"customer_id"`
	UserID        uint       `gorm:"not null" json:"user_id"`
	TemplateID    uint       `gorm:"not null" json:"template_id"`
	Status        string     `gorm:"size:20;not null" json:"status"`
	DueDays       int        `json:"due_days"`
	PaymentDate   *time.Time `json:"payment_date"`
	PeriodBegin   *time.Time `json:"period_begin"`
	PeriodEnd     *time.Time `json:"period_end"`
	Subtotal      float64    `json:"subtotal"`
	Tax           float64    `json:"tax"`
	Total         float64    `json:"total"`
	Vat           float64    `json:"vat"`
	Currency      string     `gorm:"size:3" json:"currency"`
	Comment       string     `json:"comment"`
	Filename      string     `gorm:"size:150" json:"filename"`

	Customer   Customer        `json:"customer"`
	User       User            `json:"-"`
	Template   InvoiceTemplate `json:"-"`
	Items      []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE;" json:"items"`
	Timesheets []Timesheet     `gorm:"many2many:invoice_timesheets;" json:"-"`
}

// DueDate is the creation day plus the due days.
func (i Invoice) DueDate() time.Time {
	return i.CreatedAt.AddDate(0, 0, i.DueDays)
}

// IsOverdue reports whether an unpaid invoice passed its due date.
func (i Invoice) IsOverdue(now time.Time) bool {
	if i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCanceled {
		return false
	}
	return now.After(i.DueDate())
}

// InvoiceItem is one calculated line of an invoice.
type InvoiceItem struct {
	ID        uint `gorm:"primarykey" json:"-"`
	InvoiceID uint `gorm:"not null;index" json:"-"`

	Description  string    `json:"description"`
	Amount       float64   `json:"amount"` // hours, or quantity for fixed rates
	Rate         float64   `json:"rate"`
	HourlyRate   float64   `json:"hourly_rate"`
	InternalRate float64   `json:"internal_rate"`
	Fixed        bool      `json:"fixed"`
	Duration     int       `json:"duration"`
	Begin        time.Time `json:"begin"`
	End          time.Time `json:"end"`
	Customer     string    `json:"customer"`
	Project      string    `json:"project"`
	Activity     string    `json:"activity"`
	User         string    `json:"user"`
	Category     string    `json:"category"`
}

// InvoiceTemplate holds the issuer side of an invoice and how it is calculated.
type InvoiceTemplate struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name           string  `gorm:"uniqueIndex;not null;size:60" json:"name"`
	Title          string  `gorm:"not null;size:255" json:"title"`
	Company        string  `gorm:"not null;size:255" json:"company"`
	VatID          string  `gorm:"size:50" json:"vat_id"`
	Address        string  `json:"address"`
	Contact        string  `json:"contact"`
	PaymentTerms   string  `json:"payment_terms"`
	PaymentDetails string  `json:"payment_details"`
	DueDays        int     `json:"due_days"`
	Vat            float64 `json:"vat"`
	Calculator     string  `gorm:"size:20;not null" json:"calculator"`
	NumberFormat   string  `gorm:"size:50" json:"number_format"`
	Renderer       string  `gorm:"size:20;not null" json:"renderer"`
	Language       string  `gorm:"size:6" json:"language"`
}
