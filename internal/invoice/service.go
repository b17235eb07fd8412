package invoice

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/balkashynov/hourly/internal/config"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
)

// Store is the persistence the invoice service needs.
type Store interface {
	Counter
	FindTimesheets(ctx context.Context, q db.TimesheetQuery) ([]models.Timesheet, error)
	GetCustomer(ctx context.Context, id uint) (*models.Customer, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetInvoiceTemplate(ctx context.Context, id uint) (*models.InvoiceTemplate, error)
	GetInvoice(ctx context.Context, id uint) (*models.Invoice, error)
	SaveInvoice(ctx context.Context, invoice *models.Invoice, timesheetIDs []uint, markExported bool) error
	UpdateInvoiceStatus(ctx context.Context, id uint, status string, paymentDate *time.Time, actorID uint) (*models.Invoice, error)
	SaveInvoiceTemplate(ctx context.Context, template *models.InvoiceTemplate) error
}

// CreateRequest selects the records of one customer to invoice.
type CreateRequest struct {
	CustomerID uint
	TemplateID uint
	UserID     uint
	// Query narrows the records further; customer, billable and state are always enforced.
	Query        db.TimesheetQuery
	Begin        *time.Time
	End          *time.Time
	MarkExported bool
	// IncludeExported also bills records already exported.
	IncludeExported bool
	Comment         string
}

// Service calculates, numbers, stores and renders invoices.
type Service struct {
	store        Store
	calculators  map[string]Calculator
	renderers    Renderers
	numberFormat string
	dueDays      int
	currency     string
	now          func() time.Time
}

// NewService wires the service with the built in calculators and renderers.
func NewService(store Store, cfg config.Config) *Service {
	return &Service{
		store:        store,
		calculators:  Calculators(),
		renderers:    DefaultRenderers(),
		numberFormat: cfg.Invoice.NumberFormat,
		dueDays:      cfg.Invoice.DueDays,
		currency:     cfg.Currency,
		now:          time.Now,
	}
}

// Renderers exposes the registered renderers.
func (s *Service) Renderers() Renderers {
	return s.renderers
}

// Preview calculates an invoice without numbering or storing it.
func (s *Service) Preview(ctx context.Context, req CreateRequest) (*models.Invoice, []models.Timesheet, error) {
	customer, err := s.store.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	tmpl, err := s.store.GetInvoiceTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, nil, err
	}
	calculator, ok := s.calculators[tmpl.Calculator]
	if !ok {
		calculator = s.calculators[CalculatorDefault]
	}

	q := req.Query
	q.CustomerIDs = []uint{req.CustomerID}
	q.State = db.StateStopped
	q.Billable = db.FilterYes
	if !req.IncludeExported {
		q.Exported = db.FilterNo
	}
	if req.Begin != nil {
		q.Begin = req.Begin
	}
	if req.End != nil {
		q.End = req.End
	}
	list, err := s.store.FindTimesheets(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	if len(list) == 0 {
		return nil, nil, db.NewValidationError("timesheets", "no billable records found for customer %q", customer.Name)
	}

	items := calculator.Items(list)
	vat := tmpl.Vat
	totals := CalculateTotals(items, vat)

	currency := customer.Currency
	if currency == "" {
		currency = s.currency
	}
	dueDays := tmpl.DueDays
	if dueDays == 0 {
		dueDays = s.dueDays
	}

	invoice := &models.Invoice{
		CreatedAt:   s.now(),
		CustomerID:  customer.ID,
		Customer:    *customer,
		UserID:      req.UserID,
		TemplateID:  tmpl.ID,
		Template:    *tmpl,
		Status:      models.InvoiceStatusNew,
		DueDays:     dueDays,
		PeriodBegin: q.Begin,
		PeriodEnd:   q.End,
		Subtotal:    totals.Subtotal,
		Tax:         totals.Tax,
		Total:       totals.Total,
		Vat:         vat,
		Currency:    currency,
		Comment:     req.Comment,
		Items:       items,
	}
	first, last := recordSpan(list)
	if invoice.PeriodBegin == nil {
		invoice.PeriodBegin = &first
	}
	if invoice.PeriodEnd == nil {
		invoice.PeriodEnd = &last
	}
	return invoice, list, nil
}

// recordSpan returns the earliest begin and the latest end of the records.
func recordSpan(list []models.Timesheet) (time.Time, time.Time) {
	first, last := list[0].Begin, list[0].Begin
	for _, t := range list {
		if t.Begin.Before(first) {
			first = t.Begin
		}
		end := t.Begin
		if t.End != nil {
			end = *t.End
		}
		if end.After(last) {
			last = end
		}
	}
	return first, last
}

// Create calculates, numbers and stores an invoice.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Invoice, error) {
	invoice, list, err := s.Preview(ctx, req)
	if err != nil {
		return nil, err
	}

	format := invoice.Template.NumberFormat
	if format == "" {
		format = s.numberFormat
	}
	number, err := NewNumberGenerator(format, s.store).Generate(ctx, invoice.Customer, invoice.CreatedAt)
	if err != nil {
		return nil, err
	}
	invoice.InvoiceNumber = number

	renderer, err := s.renderers.Get(invoice.Template.Renderer)
	if err != nil {
		renderer = HTMLRenderer{}
	}
	invoice.Filename = Filename(number, renderer.Extension())

	ids := make([]uint, len(list))
	for i, t := range list {
		ids[i] = t.ID
	}
	if err := s.store.SaveInvoice(ctx, invoice, ids, req.MarkExported); err != nil {
		return nil, err
	}
	return s.store.GetInvoice(ctx, invoice.ID)
}

// ChangeStatus moves an invoice to a new status. Paying without a date uses now.
func (s *Service) ChangeStatus(ctx context.Context, id uint, status string, paymentDate *time.Time, actorID uint) (*models.Invoice, error) {
	if !ValidStatus(status) {
		return nil, db.NewValidationError("status", "unknown status %q", status)
	}
	invoice, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == status {
		return invoice, nil
	}
	if !CanTransition(invoice.Status, status) {
		return nil, db.NewValidationError("status", "cannot change status from %s to %s", invoice.Status, status)
	}
	if status == models.InvoiceStatusPaid {
		if paymentDate == nil {
			now := s.now()
			paymentDate = &now
		}
	} else {
		paymentDate = nil
	}
	return s.store.UpdateInvoiceStatus(ctx, id, status, paymentDate, actorID)
}

// Rendered is a rendered invoice file.
type Rendered struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Render renders a stored invoice. An empty format uses the template's renderer.
func (s *Service) Render(ctx context.Context, invoice *models.Invoice, format string) (*Rendered, error) {
	if format == "" {
		format = invoice.Template.Renderer
	}
	renderer, err := s.renderers.Get(format)
	if err != nil {
		return nil, err
	}
	if invoice.User.ID == 0 && invoice.UserID != 0 {
		if user, err := s.store.GetUser(ctx, invoice.UserID); err == nil {
			invoice.User = *user
		}
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, Hydrate(*invoice, invoice.Template)); err != nil {
		return nil, err
	}
	return &Rendered{
		Filename:    Filename(invoice.InvoiceNumber, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}

// ValidateTemplate checks the calculator and renderer ids of a template.
func (s *Service) ValidateTemplate(tmpl models.InvoiceTemplate) error {
	if tmpl.Calculator != "" {
		if _, ok := s.calculators[tmpl.Calculator]; !ok {
			return db.NewValidationError("calculator", "unknown calculator %q", tmpl.Calculator)
		}
	}
	if tmpl.Renderer != "" {
		if _, err := s.renderers.Get(tmpl.Renderer); err != nil {
			return db.NewValidationError("renderer", "unknown renderer %q", tmpl.Renderer)
		}
	}
	return nil
}

// SaveTemplate defaults and validates a template before storing it.
func (s *Service) SaveTemplate(ctx context.Context, tmpl *models.InvoiceTemplate) error {
	if tmpl.Calculator == "" {
		tmpl.Calculator = CalculatorDefault
	}
	if tmpl.Renderer == "" {
		tmpl.Renderer = "html"
	}
	if tmpl.DueDays == 0 {
		tmpl.DueDays = s.dueDays
	}
	if err := s.ValidateTemplate(*tmpl); err != nil {
		return err
	}
	if err := s.store.SaveInvoiceTemplate(ctx, tmpl); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}
