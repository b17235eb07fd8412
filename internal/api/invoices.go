package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/invoice"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
)

func (h *Handler) listInvoices(c echo.Context) error {
	user := actor(c)
	if err := h.Voter.Matrix().Require(user, permissions.ViewInvoice); err != nil {
		return apierr.From(err)
	}
	base, err := baseQuery(c)
	if err != nil {
		return err
	}
	q := db.InvoiceQuery{BaseQuery: base}
	if q.CustomerIDs, err = idList(c, "customer"); err != nil {
		return err
	}
	for _, raw := range c.QueryParams()["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				q.Status = append(q.Status, s)
			}
		}
	}
	loc := user.Location()
	if q.Begin, err = timeQuery(c, "begin", loc); err != nil {
		return err
	}
	if q.End, err = timeQuery(c, "end", loc); err != nil {
		return err
	}
	page, err := h.Store.ListInvoices(c.Request().Context(), q)
	if err != nil {
		return apierr.From(err)
	}
	return paginated(c, page, nil)
}

func (h *Handler) loadInvoice(c echo.Context, attribute string) (*models.Invoice, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	inv, err := h.Store.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return nil, apierr.From(err)
	}
	if !h.Voter.Invoice(actor(c), attribute, *inv) {
		return nil, apierr.Forbidden()
	}
	return inv, nil
}

func (h *Handler) getInvoice(c echo.Context) error {
	inv, err := h.loadInvoice(c, permissions.AttrView)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

type invoiceForm struct {
	Customer        uint   `json:"customer"`
	Template        uint   `json:"template"`
	Begin           string `json:"begin"`
	End             string `json:"end"`
	Projects        []uint `json:"projects"`
	Activities      []uint `json:"activities"`
	Users           []uint `json:"users"`
	Tags            string `json:"tags"`
	MarkAsExported  bool   `json:"mark_as_exported"`
	IncludeExported bool   `json:"include_exported"`
	Comment         string `json:"comment"`
}

func (h *Handler) createInvoice(c echo.Context) error {
	user := actor(c)
	if err := h.Voter.Matrix().Require(user, permissions.CreateInvoice); err != nil {
		return apierr.From(err)
	}
	var form invoiceForm
	if err := bind(c, &form); err != nil {
		return err
	}
	ctx := c.Request().Context()
	customer, err := h.Store.GetCustomer(ctx, form.Customer)
	if err != nil {
		return apierr.From(err)
	}
	if !h.Voter.Customer(user, permissions.AttrAccess, *customer) {
		return apierr.Forbidden()
	}

	req := invoice.CreateRequest{
		CustomerID:      customer.ID,
		TemplateID:      form.Template,
		UserID:          user.ID,
		MarkExported:    form.MarkAsExported,
		IncludeExported: form.IncludeExported,
		Comment:         form.Comment,
		Query: db.TimesheetQuery{
			ProjectIDs:  form.Projects,
			ActivityIDs: form.Activities,
			UserIDs:     form.Users,
		},
	}
	for _, tag := range strings.Split(form.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			req.Query.Tags = append(req.Query.Tags, tag)
		}
	}
	loc := user.Location()
	if form.Begin != "" {
		begin, err := parseTime(form.Begin, loc)
		if err != nil {
			return apierr.From(db.NewValidationError("begin", "must be a date like 2006-01-02"))
		}
		req.Begin = &begin
	}
	if form.End != "" {
		end, err := parseTime(form.End, loc)
		if err != nil {
			return apierr.From(db.NewValidationError("end", "must be a date like 2006-01-02"))
		}
		// a plain date includes the whole day
		if len(form.End) == len("2006-01-02") {
			end = end.Add(24*time.Hour - time.Second)
		}
		req.End = &end
	}

	inv, err := h.Invoices.Create(ctx, req)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

type invoiceStatusForm struct {
	Status      string `json:"status"`
	PaymentDate string `json:"payment_date"`
}

func (h *Handler) changeInvoiceStatus(c echo.Context) error {
	user := actor(c)
	inv, err := h.loadInvoice(c, permissions.AttrEdit)
	if err != nil {
		return err
	}
	var form invoiceStatusForm
	if err := bind(c, &form); err != nil {
		return err
	}
	var paid *time.Time
	if form.PaymentDate != "" {
		t, err := parseTime(form.PaymentDate, user.Location())
		if err != nil {
			return apierr.From(db.NewValidationError("payment_date", "must be a date like 2006-01-02"))
		}
		paid = &t
	}
	updated, err := h.Invoices.ChangeStatus(c.Request().Context(), inv.ID, form.Status, paid, user.ID)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) downloadInvoice(c echo.Context) error {
	inv, err := h.loadInvoice(c, permissions.AttrView)
	if err != nil {
		return err
	}
	rendered, err := h.Invoices.Render(c.Request().Context(), inv, c.QueryParam("format"))
	if err != nil {
		return apierr.From(err)
	}
	return attachment(c, rendered.Filename, rendered.ContentType, rendered.Body)
}

func (h *Handler) listInvoiceTemplates(c echo.Context) error {
	if err := h.Voter.Matrix().Require(actor(c), permissions.ViewInvoice); err != nil {
		return apierr.From(err)
	}
	list, err := h.Store.ListInvoiceTemplates(c.Request().Context())
	if err != nil {
		return apierr.From(err)
	}
	if list == nil {
		list = []models.InvoiceTemplate{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) createInvoiceTemplate(c echo.Context) error {
	if err := h.Voter.Matrix().Require(actor(c), permissions.ManageInvoiceTemplate); err != nil {
		return apierr.From(err)
	}
	var tmpl models.InvoiceTemplate
	if err := bind(c, &tmpl); err != nil {
		return err
	}
	tmpl.ID = 0
	if err := h.Invoices.SaveTemplate(c.Request().Context(), &tmpl); err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, tmpl)
}
