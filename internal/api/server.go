// Package api exposes the REST/JSON interface.
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/balkashynov/hourly/internal/api/apierr"
	"github.com/balkashynov/hourly/internal/auth"
	"github.com/balkashynov/hourly/internal/config"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/export"
	"github.com/balkashynov/hourly/internal/invoice"
	"github.com/balkashynov/hourly/internal/logger"
	"github.com/balkashynov/hourly/internal/metrics"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
	"github.com/balkashynov/hourly/internal/statistics"
)

// Deps are the collaborators of the handlers.
type Deps struct {
	Store      *db.Store
	Config     config.Config
	Log        *logger.Logger
	Tokens     *auth.Tokens
	Voter      *permissions.Voter
	Exporter   *export.Exporter
	Invoices   *invoice.Service
	Statistics *statistics.Service
	Version    string
}

// Handler serves all /api routes.
type Handler struct {
	Deps
}

var publicPaths = map[string]bool{
	"/api/ping":       true,
	"/api/version":    true,
	"/api/auth/token": true,
	"/metrics":        true,
}

// New builds the echo instance with middleware and routes.
func New(deps Deps) *echo.Echo {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	h := &Handler{Deps: deps}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierr.Handler(deps.Log)
	e.Use(RequestID(), AccessLog(deps.Log), Metrics())
	e.Use(auth.Middleware(deps.Tokens, deps.Store.GetUser, func(c echo.Context) bool {
		return publicPaths[c.Path()] || !strings.HasPrefix(c.Request().URL.Path, "/api/")
	}))

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	h.register(e.Group("/api"))
	return e
}

func (h *Handler) register(g *echo.Group) {
	g.GET("/ping", h.ping)
	g.GET("/version", h.version)
	g.POST("/auth/token", h.token)
	g.GET("/config/timesheet", h.timesheetConfig)

	g.GET("/customers", h.listCustomers)
	g.POST("/customers", h.createCustomer)
	g.GET("/customers/:id", h.getCustomer)
	g.PATCH("/customers/:id", h.updateCustomer)
	g.DELETE("/customers/:id", h.deleteCustomer)
	g.GET("/customers/:id/rates", h.listRates(models.OwnerCustomer))
	g.POST("/customers/:id/rates", h.addRate(models.OwnerCustomer))
	g.DELETE("/customers/:id/rates/:rateId", h.deleteRate(models.OwnerCustomer))
	g.PATCH("/customers/:id/meta", h.setMeta(models.OwnerCustomer))
	g.GET("/customers/:id/budget", h.customerBudget)

	g.GET("/projects", h.listProjects)
	g.POST("/projects", h.createProject)
	g.GET("/projects/:id", h.getProject)
	g.PATCH("/projects/:id", h.updateProject)
	g.DELETE("/projects/:id", h.deleteProject)
	g.GET("/projects/:id/rates", h.listRates(models.OwnerProject))
	g.POST("/projects/:id/rates", h.addRate(models.OwnerProject))
	g.DELETE("/projects/:id/rates/:rateId", h.deleteRate(models.OwnerProject))
	g.PATCH("/projects/:id/meta", h.setMeta(models.OwnerProject))
	g.GET("/projects/:id/budget", h.projectBudget)

	g.GET("/activities", h.listActivities)
	g.POST("/activities", h.createActivity)
	g.GET("/activities/:id", h.getActivity)
	g.PATCH("/activities/:id", h.updateActivity)
	g.DELETE("/activities/:id", h.deleteActivity)
	g.GET("/activities/:id/rates", h.listRates(models.OwnerActivity))
	g.POST("/activities/:id/rates", h.addRate(models.OwnerActivity))
	g.DELETE("/activities/:id/rates/:rateId", h.deleteRate(models.OwnerActivity))
	g.PATCH("/activities/:id/meta", h.setMeta(models.OwnerActivity))
	g.GET("/activities/:id/budget", h.activityBudget)

	g.GET("/timesheets", h.listTimesheets)
	g.POST("/timesheets", h.createTimesheet)
	g.GET("/timesheets/active", h.activeTimesheets)
	g.GET("/timesheets/recent", h.recentTimesheets)
	g.GET("/timesheets/:id", h.getTimesheet)
	g.PATCH("/timesheets/:id", h.updateTimesheet)
	g.DELETE("/timesheets/:id", h.deleteTimesheet)
	g.PATCH("/timesheets/:id/stop", h.stopTimesheet)
	g.PATCH("/timesheets/:id/restart", h.restartTimesheet)
	g.PATCH("/timesheets/:id/duplicate", h.duplicateTimesheet)
	g.PATCH("/timesheets/:id/export", h.toggleExported)
	g.PATCH("/timesheets/:id/meta", h.setTimesheetMeta)

	g.GET("/teams", h.listTeams)
	g.POST("/teams", h.createTeam)
	g.GET("/teams/:id", h.getTeam)
	g.PATCH("/teams/:id", h.updateTeam)
	g.DELETE("/teams/:id", h.deleteTeam)
	g.POST("/teams/:id/members/:userId", h.addTeamMember)
	g.DELETE("/teams/:id/members/:userId", h.removeTeamMember)
	g.POST("/teams/:id/customers/:entityId", h.assign(db.AssignCustomer, true))
	g.DELETE("/teams/:id/customers/:entityId", h.assign(db.AssignCustomer, false))
	g.POST("/teams/:id/projects/:entityId", h.assign(db.AssignProject, true))
	g.DELETE("/teams/:id/projects/:entityId", h.assign(db.AssignProject, false))
	g.POST("/teams/:id/activities/:entityId", h.assign(db.AssignActivity, true))
	g.DELETE("/teams/:id/activities/:entityId", h.assign(db.AssignActivity, false))

	g.GET("/users", h.listUsers)
	g.POST("/users", h.createUser)
	g.GET("/users/me", h.me)
	g.GET("/users/:id", h.getUser)
	g.PATCH("/users/:id", h.updateUser)
	g.GET("/users/:id/working-time", h.workingTime)

	g.GET("/tags", h.listTags)
	g.POST("/tags", h.createTag)
	g.DELETE("/tags/:id", h.deleteTag)

	g.GET("/invoices", h.listInvoices)
	g.POST("/invoices", h.createInvoice)
	g.GET("/invoices/:id", h.getInvoice)
	g.PATCH("/invoices/:id/status", h.changeInvoiceStatus)
	g.GET("/invoices/:id/download", h.downloadInvoice)
	g.GET("/invoice-templates", h.listInvoiceTemplates)
	g.POST("/invoice-templates", h.createInvoiceTemplate)

	g.GET("/export", h.export)
}

// NewHTTPServer wraps the handler with the configured timeouts.
func NewHTTPServer(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
