package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
)

type projectForm struct {
	CustomerID       *uint      `json:"customer_id"`
	Name             *string    `json:"name"`
	Number           *string    `json:"number"`
	OrderNumber      *string    `json:"order_number"`
	OrderDate        *time.Time `json:"order_date"`
	Start            *time.Time `json:"start"`
	End              *time.Time `json:"end"`
	Comment          *string    `json:"comment"`
	Visible          *bool      `json:"visible"`
	Billable         *bool      `json:"billable"`
	GlobalActivities *bool      `json:"global_activities"`
	Budget           *float64   `json:"budget"`
	TimeBudget       *int       `json:"time_budget"`
	BudgetType       *string    `json:"budget_type"`
}

func (f projectForm) apply(p *models.Project) {
	if f.CustomerID != nil && *f.CustomerID != p.CustomerID {
		p.CustomerID = *f.CustomerID
		p.Customer = models.Customer{}
	}
	setString(&p.Name, f.Name)
	setString(&p.Number, f.Number)
	setString(&p.OrderNumber, f.OrderNumber)
	if f.OrderDate != nil {
		p.OrderDate = f.OrderDate
	}
	if f.Start != nil {
		p.Start = f.Start
	}
	if f.End != nil {
		p.End = f.End
	}
	setString(&p.Comment, f.Comment)
	setBool(&p.Visible, f.Visible)
	setBool(&p.Billable, f.Billable)
	setBool(&p.GlobalActivities, f.GlobalActivities)
	setFloat(&p.Budget, f.Budget)
	setInt(&p.TimeBudget, f.TimeBudget)
	setString(&p.BudgetType, f.BudgetType)
}

func (h *Handler) listProjects(c echo.Context) error {
	base, err := baseQuery(c)
	if err != nil {
		return err
	}
	customers, err := idList(c, "customer")
	if err != nil {
		return err
	}
	page, err := h.Store.ListProjects(c.Request().Context(), db.ProjectQuery{BaseQuery: base, CustomerIDs: customers})
	if err != nil {
		return apierr.From(err)
	}
	return paginated(c, page, nil)
}

func (h *Handler) loadProject(c echo.Context, attribute string) (*models.Project, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	project, err := h.Store.GetProject(c.Request().Context(), id)
	if err != nil {
		return nil, apierr.From(err)
	}
	if !h.Voter.Project(actor(c), attribute, *project) {
		return nil, apierr.Forbidden()
	}
	return project, nil
}

func (h *Handler) getProject(c echo.Context) error {
	project, err := h.loadProject(c, permissions.AttrView)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

func (h *Handler) createProject(c echo.Context) error {
	if err := h.Voter.Matrix().Require(actor(c), permissions.CreateProject); err != nil {
		return apierr.From(err)
	}
	var form projectForm
	if err := bind(c, &form); err != nil {
		return err
	}
	project := &models.Project{Visible: true, Billable: true, GlobalActivities: true}
	form.apply(project)
	if err := h.Store.CreateProject(c.Request().Context(), project); err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusCreated, project)
}

func (h *Handler) updateProject(c echo.Context) error {
	project, err := h.loadProject(c, permissions.AttrEdit)
	if err != nil {
		return err
	}
	var form projectForm
	if err := bind(c, &form); err != nil {
		return err
	}
	form.apply(project)
	if err := h.Store.UpdateProject(c.Request().Context(), project); err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, project)
}

func (h *Handler) deleteProject(c echo.Context) error {
	project, err := h.loadProject(c, permissions.AttrDelete)
	if err != nil {
		return err
	}
	if err := h.Store.DeleteProject(c.Request().Context(), project.ID); err != nil {
		return apierr.From(err)
	}
	h.Log.WithUser(actor(c).ID).Audit("project deleted", "project_id", project.ID)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) projectBudget(c echo.Context) error {
	project, err := h.loadProject(c, permissions.AttrBudget)
	if err != nil {
		return err
	}
	stat, err := h.Statistics.ProjectBudget(c.Request().Context(), *project)
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, budgetView(stat))
}
