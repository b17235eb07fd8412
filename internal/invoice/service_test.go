package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/balkashynov/hourly/internal/config"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
)

type setup struct {
	store    *db.Store
	service  *Service
	user     *models.User
	customer *models.Customer
	template *models.InvoiceTemplate
	records  []*models.Timesheet
}

func newSetup(t *testing.T) *setup {
	t.Helper()
	ctx := context.Background()
	cfg := config.Default()

	store, err := db.Open(config.Database{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "invoice.db")},
		db.OptionsFromConfig(cfg, nil, nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	user, err := store.CreateUser(ctx, db.CreateUserRequest{
		Username: "susan", Email: "susan@example.com", Password: "secret-password", HourlyRate: 80,
	})
	require.NoError(t, err)

	customer := &models.Customer{Name: "Acme", Visible: true, Billable: true, Currency: "EUR", Address: "Main St 1"}
	require.NoError(t, store.CreateCustomer(ctx, customer))
	project := &models.Project{CustomerID: customer.ID, Name: "Website", Visible: true, Billable: true, GlobalActivities: true}
	require.NoError(t, store.CreateProject(ctx, project))
	activity := &models.Activity{Name: "Development", Visible: true, Billable: true}
	require.NoError(t, store.CreateActivity(ctx, activity))

	service := NewService(store, cfg)
	service.now = func() time.Time { return monday.Add(30 * 24 * time.Hour) }

	tmpl := &models.InvoiceTemplate{Name: "Default", Title: "Invoice", Company: "Hourly Ltd", Vat: 19, Calculator: CalculatorActivity}
	require.NoError(t, service.SaveTemplate(ctx, tmpl))

	s := &setup{store: store, service: service, user: user, customer: customer, template: tmpl}
	for i, seconds := range []int{3600, 1800} {
		billable := true
		ts, err := store.CreateTimesheet(ctx, db.CreateTimesheetRequest{
			UserID: user.ID, ProjectID: project.ID, ActivityID: activity.ID,
			Begin: monday.Add(time.Duration(i) * 24 * time.Hour), Duration: seconds, Billable: &billable,
		})
		require.NoError(t, err)
		s.records = append(s.records, ts)
	}
	notBillable := false
	_, err = store.CreateTimesheet(ctx, db.CreateTimesheetRequest{
		UserID: user.ID, ProjectID: project.ID, ActivityID: activity.ID,
		Begin: monday.Add(3 * 24 * time.Hour), Duration: 3600, Billable: &notBillable,
	})
	require.NoError(t, err)
	return s
}

func (s *setup) request() CreateRequest {
	return CreateRequest{CustomerID: s.customer.ID, TemplateID: s.template.ID, UserID: s.user.ID, MarkExported: true}
}

func TestCreateInvoice(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()

	invoice, err := s.service.Create(ctx, s.request())
	require.NoError(t, err)

	assert.Equal(t, "2026/001", invoice.InvoiceNumber)
	assert.Equal(t, "2026-001.html", invoice.Filename)
	assert.Equal(t, models.InvoiceStatusNew, invoice.Status)
	assert.Equal(t, 30, invoice.DueDays)
	assert.Equal(t, "EUR", invoice.Currency)
	require.Len(t, invoice.Items, 1)
	assert.Equal(t, 1.5, invoice.Items[0].Amount)
	assert.Equal(t, 120.0, invoice.Subtotal)
	assert.Equal(t, 22.8, invoice.Tax)
	assert.Equal(t, 142.8, invoice.Total)
	assert.Len(t, invoice.Timesheets, 2)

	for _, r := range s.records {
		reloaded, err := s.store.GetTimesheet(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.Exported)
	}

	// exported records are not billed twice
	_, err = s.service.Create(ctx, s.request())
	assert.ErrorIs(t, err, db.ErrValidation)

	req := s.request()
	req.IncludeExported = true
	second, err := s.service.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "2026/002", second.InvoiceNumber)
}

func TestPreviewPeriodCoversLastRecordEnd(t *testing.T) {
	s := newSetup(t)

	invoice, _, err := s.service.Preview(context.Background(), s.request())
	require.NoError(t, err)

	require.NotNil(t, invoice.PeriodBegin)
	require.NotNil(t, invoice.PeriodEnd)
	assert.WithinDuration(t, monday, *invoice.PeriodBegin, 0)
	assert.WithinDuration(t, monday.Add(24*time.Hour+30*time.Minute), *invoice.PeriodEnd, 0)
}

func TestChangeStatus(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	invoice, err := s.service.Create(ctx, s.request())
	require.NoError(t, err)

	paid, err := s.service.ChangeStatus(ctx, invoice.ID, models.InvoiceStatusPaid, nil, s.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentDate)

	_, err = s.service.ChangeStatus(ctx, invoice.ID, models.InvoiceStatusCanceled, nil, s.user.ID)
	assert.ErrorIs(t, err, db.ErrValidation)

	_, err = s.service.ChangeStatus(ctx, invoice.ID, "archived", nil, s.user.ID)
	assert.ErrorIs(t, err, db.ErrValidation)

	_, err = s.service.ChangeStatus(ctx, 999, models.InvoiceStatusPending, nil, s.user.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestRenderStoredInvoice(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	invoice, err := s.service.Create(ctx, s.request())
	require.NoError(t, err)

	html, err := s.service.Render(ctx, invoice, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-001.html", html.Filename)
	assert.Contains(t, string(html.Body), "142.80 EUR")
	assert.Contains(t, string(html.Body), "Hourly Ltd")

	js, err := s.service.Render(ctx, invoice, "json")
	require.NoError(t, err)
	var doc struct {
		Values map[string]string `json:"values"`
		Items  []ItemView        `json:"items"`
	}
	require.NoError(t, json.Unmarshal(js.Body, &doc))
	assert.Equal(t, "2026/001", doc.Values["invoice.number"])
	assert.Equal(t, "susan", doc.Values["user.name"])
	assert.Equal(t, "Acme", doc.Values["customer.name"])
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "1.50", doc.Items[0].Amount)

	pdf, err := s.service.Render(ctx, invoice, "pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF-")))

	xlsx, err := s.service.Render(ctx, invoice, "xlsx")
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(xlsx.Body))
	require.NoError(t, err)
	defer f.Close()
	value, err := f.GetCellValue(invoiceSheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "2026/001", value)

	_, err = s.service.Render(ctx, invoice, "docx")
	assert.ErrorIs(t, err, ErrUnknownRenderer)
}

func TestSaveTemplateValidatesCalculator(t *testing.T) {
	s := newSetup(t)
	err := s.service.SaveTemplate(context.Background(), &models.InvoiceTemplate{
		Name: "Broken", Title: "Invoice", Company: "Hourly Ltd", Calculator: "hourly",
	})
	assert.ErrorIs(t, err, db.ErrValidation)
}

func TestHydrateDueDateAndMeta(t *testing.T) {
	created := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	view := Hydrate(models.Invoice{
		InvoiceNumber: "X-1",
		CreatedAt:     created,
		DueDays:       14,
		Total:         10,
		Currency:      "USD",
		Customer: models.Customer{Name: "Acme", Meta: []models.MetaField{
			{Name: "po", Value: "PO-1", Visible: true},
			{Name: "secret", Value: "s", Visible: false},
		}},
	}, models.InvoiceTemplate{PaymentTerms: "14 days"})

	assert.Equal(t, "2026-03-15", view.Value("invoice.due_date"))
	assert.Equal(t, "10.00 USD", view.Value("invoice.total"))
	assert.Equal(t, "PO-1", view.Value("customer.meta.po"))
	assert.Empty(t, view.Value("customer.meta.secret"))
	assert.Equal(t, "14 days", view.Value("template.payment_terms"))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "2026-007.pdf", Filename("2026/007", "pdf"))
	assert.Equal(t, "invoice.html", Filename("///", "html"))
}
