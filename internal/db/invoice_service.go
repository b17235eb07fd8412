package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/balkashynov/hourly/internal/events"
	"github.com/balkashynov/hourly/internal/models"
)

// InvoiceQuery filters the invoice list.
type InvoiceQuery struct {
	BaseQuery
	CustomerIDs []uint
	Status      []string
	Begin       *time.Time
	End         *time.Time
}

var invoiceOrder = map[string]string{
	"id":       "invoices.id",
	"number":   "invoices.invoice_number",
	"date":     "invoices.created_at",
	"total":    "invoices.total",
	"status":   "invoices.status",
	"customer": "customers.name",
}

// SaveInvoice persists a calculated invoice with its items and links the records.
// The records are marked as exported when markExported is set.
func (s *Store) SaveInvoice(ctx context.Context, invoice *models.Invoice, timesheetIDs []uint, markExported bool) error {
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusNew
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Invoice{}).Where("invoice_number = ?", invoice.InvoiceNumber).Count(&exists).Error; err != nil {
			return fmt.Errorf("failed to check invoice number: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("invoice number %s already used: %w", invoice.InvoiceNumber, ErrConflict)
		}
		if err := tx.Omit("Customer", "User", "Template", "Timesheets").Create(invoice).Error; err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		if len(timesheetIDs) == 0 {
			return nil
		}
		for _, id := range timesheetIDs {
			err := tx.Exec("INSERT INTO invoice_timesheets (invoice_id, timesheet_id) VALUES (?, ?)", invoice.ID, id).Error
			if err != nil {
				return fmt.Errorf("failed to link record #%d: %w", id, err)
			}
		}
		if markExported {
			if err := tx.Model(&models.Timesheet{}).Where("id IN ?", timesheetIDs).Update("exported", true).Error; err != nil {
				return fmt.Errorf("failed to mark records as exported: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.dispatch(ctx, events.InvoiceCreated, invoice.UserID, invoice.ID, map[string]interface{}{
		"number":   invoice.InvoiceNumber,
		"customer": invoice.CustomerID,
		"total":    invoice.Total,
		"currency": invoice.Currency,
	})
	return nil
}

// GetInvoice loads an invoice with customer, template, items and records.
func (s *Store) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.DB(ctx).
		Preload("Customer").
		Preload("Customer.Teams").
		Preload("User").
		Preload("Template").
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("invoice_items.id ASC") }).
		Preload("Timesheets").
		First(&invoice, id).Error
	if err != nil {
		return nil, notFound(err, "invoice", id)
	}
	return &invoice, nil
}

// ListInvoices returns one page of invoices.
func (s *Store) ListInvoices(ctx context.Context, q InvoiceQuery) (Paginated[models.Invoice], error) {
	q.BaseQuery = q.BaseQuery.normalized()
	tx := s.DB(ctx).Model(&models.Invoice{}).Joins("JOIN customers ON customers.id = invoices.customer_id")
	if len(q.CustomerIDs) > 0 {
		tx = tx.Where("invoices.customer_id IN ?", q.CustomerIDs)
	}
	if len(q.Status) > 0 {
		tx = tx.Where("invoices.status IN ?", q.Status)
	}
	if q.Begin != nil {
		tx = tx.Where("invoices.created_at >= ?", *q.Begin)
	}
	if q.End != nil {
		tx = tx.Where("invoices.created_at <= ?", *q.End)
	}
	tx = applyTerm(tx, q.Term, "invoices.invoice_number", "invoices.comment", "customers.name")
	tx = restrictToViewer(tx, q.Viewer, "invoices.customer_id", "customer_teams", "customer_id")
	return paginate[models.Invoice](tx, q.BaseQuery, invoiceOrder, "invoices.created_at DESC", "Customer")
}

// UpdateInvoiceStatus stores a new status. The transition itself is checked by the caller.
func (s *Store) UpdateInvoiceStatus(ctx context.Context, id uint, status string, paymentDate *time.Time, actorID uint) (*models.Invoice, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := invoice.Status
	err = s.DB(ctx).Model(&models.Invoice{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "payment_date": paymentDate}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice #%d: %w", id, err)
	}
	invoice.Status = status
	invoice.PaymentDate = paymentDate
	s.dispatch(ctx, events.InvoiceStatusChanged, actorID, id, map[string]string{"from": previous, "to": status})
	return invoice, nil
}

// InvoiceCounter limits CountInvoices.
type InvoiceCounter struct {
	CustomerID *uint
	From       *time.Time
	To         *time.Time
}

// CountInvoices counts invoices created in the range, optionally for one customer.
func (s *Store) CountInvoices(ctx context.Context, c InvoiceCounter) (int, error) {
	tx := s.DB(ctx).Model(&models.Invoice{})
	if c.CustomerID != nil {
		tx = tx.Where("customer_id = ?", *c.CustomerID)
	}
	if c.From != nil {
		tx = tx.Where("created_at >= ?", *c.From)
	}
	if c.To != nil {
		tx = tx.Where("created_at < ?", *c.To)
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return int(count), nil
}

// InvoiceNumberExists is used to skip numbers already taken.
func (s *Store) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := s.DB(ctx).Model(&models.Invoice{}).Where("invoice_number = ?", number).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check invoice number: %w", err)
	}
	return count > 0, nil
}

// SaveInvoiceTemplate creates or updates a template.
func (s *Store) SaveInvoiceTemplate(ctx context.Context, template *models.InvoiceTemplate) error {
	var v violations
	template.Name = strings.TrimSpace(template.Name)
	if template.Name == "" || len(template.Name) > 60 {
		v.add("name", "must be between 1 and 60 characters")
	}
	if strings.TrimSpace(template.Title) == "" {
		v.add("title", "must not be empty")
	}
	if strings.TrimSpace(template.Company) == "" {
		v.add("company", "must not be empty")
	}
	if template.Vat < 0 || template.Vat > 100 {
		v.add("vat", "must be between 0 and 100")
	}
	if template.DueDays < 0 {
		v.add("due_days", "must not be negative")
	}
	if err := v.err(); err != nil {
		return err
	}
	if err := s.DB(ctx).Save(template).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("template %q already exists: %w", template.Name, ErrConflict)
		}
		return fmt.Errorf("failed to save invoice template: %w", err)
	}
	return nil
}

// GetInvoiceTemplate loads a template.
func (s *Store) GetInvoiceTemplate(ctx context.Context, id uint) (*models.InvoiceTemplate, error) {
	var template models.InvoiceTemplate
	if err := s.DB(ctx).First(&template, id).Error; err != nil {
		return nil, notFound(err, "invoice template", id)
	}
	return &template, nil
}

// ListInvoiceTemplates returns all templates by name.
func (s *Store) ListInvoiceTemplates(ctx context.Context) ([]models.InvoiceTemplate, error) {
	var list []models.InvoiceTemplate
	if err := s.DB(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list invoice templates: %w", err)
	}
	return list, nil
}
