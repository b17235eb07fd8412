package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
	"github.com/balkashynov/hourly/internal/statistics"
)

// authorizeOwner loads the customer, project or activity behind :id and votes on it.
func (h *Handler) authorizeOwner(c echo.Context, kind, attribute string) (uint, error) {
	switch kind {
	case models.OwnerCustomer:
		customer, err := h.loadCustomer(c, attribute)
		if err != nil {
			return 0, err
		}
		return customer.ID, nil
	case models.OwnerProject:
		project, err := h.loadProject(c, attribute)
		if err != nil {
			return 0, err
		}
		return project.ID, nil
	case models.OwnerActivity:
		activity, err := h.loadActivity(c, attribute)
		if err != nil {
			return 0, err
		}
		return activity.ID, nil
	}
	return 0, apierr.NotFound()
}

func (h *Handler) listRates(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ownerID, err := h.authorizeOwner(c, kind, permissions.AttrEdit)
		if err != nil {
			return err
		}
		list, err := h.Store.ListRates(c.Request().Context(), kind, ownerID)
		if err != nil {
			return apierr.From(err)
		}
		if list == nil {
			list = []models.Rate{}
		}
		return c.JSON(http.StatusOK, list)
	}
}

type rateForm struct {
	UserID       *uint    `json:"user_id"`
	Rate         float64  `json:"rate"`
	InternalRate *float64 `json:"internal_rate"`
	Fixed        bool     `json:"is_fixed"`
}

func (h *Handler) addRate(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ownerID, err := h.authorizeOwner(c, kind, permissions.AttrEdit)
		if err != nil {
			return err
		}
		var form rateForm
		if err := bind(c, &form); err != nil {
			return err
		}
		rate := &models.Rate{
			Kind:         kind,
			OwnerID:      ownerID,
			UserID:       form.UserID,
			Rate:         form.Rate,
			InternalRate: form.InternalRate,
			Fixed:        form.Fixed,
		}
		if err := h.Store.AddRate(c.Request().Context(), rate); err != nil {
			return apierr.From(err)
		}
		return c.JSON(http.StatusCreated, rate)
	}
}

func (h *Handler) deleteRate(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ownerID, err := h.authorizeOwner(c, kind, permissions.AttrEdit)
		if err != nil {
			return err
		}
		rateID, err := idParam(c, "rateId")
		if err != nil {
			return err
		}
		if err := h.Store.DeleteRate(c.Request().Context(), kind, ownerID, rateID); err != nil {
			return apierr.From(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type metaForm struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Visible *bool  `json:"visible"`
}

func (f metaForm) visible() bool {
	return f.Visible == nil || *f.Visible
}

func (h *Handler) setMeta(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ownerID, err := h.authorizeOwner(c, kind, permissions.AttrEdit)
		if err != nil {
			return err
		}
		var form metaForm
		if err := bind(c, &form); err != nil {
			return err
		}
		field, err := h.Store.SetMeta(c.Request().Context(), kind, ownerID, form.Name, form.Value, form.visible())
		if err != nil {
			return apierr.From(err)
		}
		return c.JSON(http.StatusOK, field)
	}
}

type budgetResponse struct {
	*statistics.BudgetStatistic
	BudgetPercent       float64 `json:"budget_percent"`
	BudgetRemaining     float64 `json:"budget_remaining"`
	TimeBudgetPercent   float64 `json:"time_budget_percent"`
	TimeBudgetRemaining int64   `json:"time_budget_remaining"`
}

func budgetView(stat *statistics.BudgetStatistic) budgetResponse {
	return budgetResponse{
		BudgetStatistic:     stat,
		BudgetPercent:       stat.BudgetPercent(),
		BudgetRemaining:     stat.BudgetRemaining(),
		TimeBudgetPercent:   stat.TimeBudgetPercent(),
		TimeBudgetRemaining: stat.TimeBudgetRemaining(),
	}
}
