package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
)

type activityForm struct {
	ProjectID  *uint    `json:"project_id"`
	Name       *string  `json:"name"`
	Number     *string  `json:"number"`
	Comment    *string  `json:"comment"`
	Visible    *bool    `json:"visible"`
	Billable   *bool    `json:"billable"`
	Budget     *float64 `json:"budget"`
	TimeBudget *int     `json:"time_budget"`
	BudgetType *string  `json:"budget_type"`
}

func (f activityForm) apply(a *models.Activity) {
	if f.ProjectID != nil {
		if *f.ProjectID == 0 {
			a.ProjectID = nil
		} else {
			id := *f.ProjectID
			a.ProjectID = &id
		}
		a.Project = nil
	}
	setString(&a.Name, f.Name)
	setString(&a.Number, f.Number)
	setString(&a.Comment, f.Comment)
	setBool(&a.Visible, f.Visible)
	setBool(&a.Billable, f.Billable)
	setFloat(&a.Budget, f.Budget)
	setInt(&a.TimeBudget, f.TimeBudget)
	setString(&a.BudgetType, f.BudgetType)
}

func (h *Handler) listActivities(c echo.Context) error {
	base, err := baseQuery(c)
	if err != nil {
		return err
	}
	projects, err := idList(c, "project")
	if err != nil {
		return err
	}
	q := db.ActivityQuery{BaseQuery: base, ProjectIDs: projects}
	if boolQuery(c, "globals") {
		if len(projects) > 0 {
			q.GlobalsToo = true
		} else {
			q.Globals = true
		}
	}
	page, err := h.Store.ListActivities(c.Request().Context(), q)
	if err != nil {
		return apierr.From(err)
	}
	return paginated(c, page, nil)
}

func (h *Handler) loadActivity(c echo.Context, attribute string) (*models.Activity, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	activity, err := h.Store.GetActivity(c.Request().Context(), id)
	if err != nil {
		return nil, apierr.From(err)
	}
	if !h.Voter.Activity(actor(c), attribute, *activity) {
		return nil, apierr.Forbidden()
	}
	return activity, nil
}

func (h *Handler) getActivity(c echo.Context) error {
	activity, err := h.loadActivity(c, permissions.AttrView)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, activity)
}

func (h *Handler) createActivity(c echo.Context) error {
	if err := h.Voter.Matrix().Require(actor(c), permissions.CreateActivity); err != nil {
		return apierr.From(err)
	}
	var form activityForm
	if err := bind(c, &form); err != nil {
		return err
	}
	activity := &models.Activity{Visible: true, Billable: true}
	form.apply(activity)
	if err := h.Store.CreateActivity(c.Request().Context(), activity); err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, activity)
}

func (h *Handler) updateActivity(c echo.Context) error {
	activity, err := h.loadActivity(c, permissions.AttrEdit)
	if err != nil {
		return err
	}
	var form activityForm
	if err := bind(c, &form); err != nil {
		return err
	}
	form.apply(activity)
	if err := h.Store.UpdateActivity(c.Request().Context(), activity); err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, activity)
}

func (h *Handler) deleteActivity(c echo.Context) error {
	activity, err := h.loadActivity(c, permissions.AttrDelete)
	if err != nil {
		return err
	}
	if err := h.Store.DeleteActivity(c.Request().Context(), activity.ID); err != nil {
		return apierr.From(err)
	}
	h.Log.WithUser(actor(c).ID).Audit("activity deleted", "activity_id", activity.ID)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) activityBudget(c echo.Context) error {
	activity, err := h.loadActivity(c, permissions.AttrBudget)
	if err != nil {
		return err
	}
	stat, err := h.Statistics.ActivityBudget(c.Request().Context(), *activity)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, budgetView(stat))
}
