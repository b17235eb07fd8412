package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
)

type customerForm struct {
	Name       *string  `json:"name"`
	Number     *string  `json:"number"`
	Company    *string  `json:"company"`
	Contact    *string  `json:"contact"`
	Address    *string  `json:"address"`
	Country    *string  `json:"country"`
	Currency   *string  `json:"currency"`
	VatID      *string  `json:"vat_id"`
	Email      *string  `json:"email"`
	Phone      *string  `json:"phone"`
	Homepage   *string  `json:"homepage"`
	Timezone   *string  `json:"timezone"`
	Comment    *string  `json:"comment"`
	Visible    *bool    `json:"visible"`
	Billable   *bool    `json:"billable"`
	Budget     *float64 `json:"budget"`
	TimeBudget *int     `json:"time_budget"`
	BudgetType *string  `json:"budget_type"`
}

func (f customerForm) apply(c *models.Customer) {
	setString(&c.Name, f.Name)
	setString(&c.Number, f.Number)
	setString(&c.Company, f.Company)
	setString(&c.Contact, f.Contact)
	setString(&c.Address, f.Address)
	setString(&c.Country, f.Country)
	setString(&c.Currency, f.Currency)
	setString(&c.VatID, f.VatID)
	setString(&c.Email, f.Email)
	setString(&c.Phone, f.Phone)
	setString(&c.Homepage, f.Homepage)
	setString(&c.Timezone, f.Timezone)
	setString(&c.Comment, f.Comment)
	setBool(&c.Visible, f.Visible)
	setBool(&c.Billable, f.Billable)
	setFloat(&c.Budget, f.Budget)
	setInt(&c.TimeBudget, f.TimeBudget)
	setString(&c.BudgetType, f.BudgetType)
}

func (h *Handler) listCustomers(c echo.Context) error {
	base, err := baseQuery(c)
	if err != nil {
		return err
	}
	page, err := h.Store.ListCustomers(c.Request().Context(), db.CustomerQuery{BaseQuery: base})
	if err != nil {
		return apierr.From(err)
	}
	return paginated(c, page, nil)
}

func (h *Handler) loadCustomer(c echo.Context, attribute string) (*models.Customer, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	customer, err := h.Store.GetCustomer(c.Request().Context(), id)
	if err != nil {
		return nil, apierr.From(err)
	}
	if !h.Voter.Customer(actor(c), attribute, *customer) {
		return nil, apierr.Forbidden()
	}
	return customer, nil
}

func (h *Handler) getCustomer(c echo.Context) error {
	customer, err := h.loadCustomer(c, permissions.AttrView)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customer)
}

func (h *Handler) createCustomer(c echo.Context) error {
	if err := h.Voter.Matrix().Require(actor(c), permissions.CreateCustomer); err != nil {
		return apierr.From(err)
	}
	var form customerForm
	if err := bind(c, &form); err != nil {
		return err
	}
	customer := &models.Customer{Visible: true, Billable: true, Currency: h.Config.Currency}
	form.apply(customer)
	if err := h.Store.CreateCustomer(c.Request().Context(), customer); err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, customer)
}

func (h *Handler) updateCustomer(c echo.Context) error {
	customer, err := h.loadCustomer(c, permissions.AttrEdit)
	if err != nil {
		return err
	}
	var form customerForm
	if err := bind(c, &form); err != nil {
		return err
	}
	form.apply(customer)
	if err := h.Store.UpdateCustomer(c.Request().Context(), customer); err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, customer)
}

func (h *Handler) deleteCustomer(c echo.Context) error {
	customer, err := h.loadCustomer(c, permissions.AttrDelete)
	if err != nil {
		return err
	}
	if err := h.Store.DeleteCustomer(c.Request().Context(), customer.ID); err != nil {
		return apierr.From(err)
	}
	h.Log.WithUser(actor(c).ID).Audit("customer deleted", "customer_id", customer.ID)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) customerBudget(c echo.Context) error {
	customer, err := h.loadCustomer(c, permissions.AttrBudget)
	if err != nil {
		return err
	}
	stat, err := h.Statistics.CustomerBudget(c.Request().Context(), *customer)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, budgetView(stat))
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
