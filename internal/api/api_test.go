package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/hourly/internal/auth"
	"github.com/balkashynov/hourly/internal/config"
	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/events"
	"github.com/balkashynov/hourly/internal/export"
	"github.com/balkashynov/hourly/internal/invoice"
	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/permissions"
	"github.com/balkashynov/hourly/internal/statistics"
)

type testAPI struct {
	e          *echo.Echo
	store      *db.Store
	admin      *models.User
	user       *models.User
	adminToken string
	userToken  string
	customer   *models.Customer
	project    *models.Project
	activity   *models.Activity
}

// restrictedUser may track and export its own time but never sees rates.
var restrictedUser = []string{
	permissions.ViewOwnTimesheet, permissions.StartOwnTimesheet, permissions.EditOwnTimesheet,
	permissions.DeleteOwnTimesheet, permissions.ExportOwnTimesheet, permissions.ViewOwnProfile,
	permissions.ViewTag, permissions.CreateTag,
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	cfg := config.Default()
	cfg.Auth.Secret = "test-secret"
	cfg.Permissions.Roles = map[string][]string{models.RoleUser: restrictedUser}

	dispatcher := events.NewDispatcher(nil)
	store, err := db.Open(config.Database{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "api.db")},
		db.OptionsFromConfig(cfg, dispatcher, nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tokens := auth.NewTokens(cfg.Auth)
	e := New(Deps{
		Store:      store,
		Config:     cfg,
		Tokens:     tokens,
		Voter:      permissions.NewVoter(permissions.DefaultMatrix(cfg.Permissions.Roles)),
		Exporter:   export.NewExporter(store, nil, dispatcher, cfg.Export.DurationFormat),
		Invoices:   invoice.NewService(store, cfg),
		Statistics: statistics.NewService(store),
		Version:    "1.2.3",
	})

	api := &testAPI{e: e, store: store}
	api.admin, err = store.CreateUser(ctx, db.CreateUserRequest{
		Username: "admin", Email: "admin@example.com", Password: "admin-password",
		Roles: []string{models.RoleSuperAdmin}, HourlyRate: 100,
	})
	require.NoError(t, err)
	api.user, err = store.CreateUser(ctx, db.CreateUserRequest{
		Username: "susan", Email: "susan@example.com", Password: "susan-password", HourlyRate: 80,
	})
	require.NoError(t, err)
	api.adminToken, _, err = tokens.Issue(*api.admin)
	require.NoError(t, err)
	api.userToken, _, err = tokens.Issue(*api.user)
	require.NoError(t, err)

	api.customer = &models.Customer{Name: "Acme", Visible: true, Billable: true, Currency: "EUR"}
	require.NoError(t, store.CreateCustomer(ctx, api.customer))
	api.project = &models.Project{CustomerID: api.customer.ID, Name: "Website", Visible: true, Billable: true, GlobalActivities: true}
	require.NoError(t, store.CreateProject(ctx, api.project))
	api.activity = &models.Activity{Name: "Development", Visible: true, Billable: true}
	require.NoError(t, store.CreateActivity(ctx, api.activity))
	return api
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestPublicRoutesAndAuthentication(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = api.do(http.MethodGet, "/api/version", "", nil)
	assert.Contains(t, rec.Body.String(), "1.2.3")

	rec = api.do(http.MethodGet, "/api/customers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/api/customers", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/auth/token", "", map[string]string{"username": "susan", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/auth/token", "", map[string]string{"username": "susan", "password": "susan-password"})
	require.Equal(t, http.StatusOK, rec.Code)
	var token tokenResponse
	decode(t, rec, &token)

	rec = api.do(http.MethodGet, "/api/users/me", token.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me userResponse
	decode(t, rec, &me)
	assert.Equal(t, "susan", me.Username)
	assert.Equal(t, []string{models.RoleUser}, me.Roles)
}

func TestCustomerLifecycle(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/customers", api.userToken, map[string]string{"name": "Globex"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/api/customers", api.adminToken, map[string]string{"name": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"name"`)

	rec = api.do(http.MethodPost, "/api/customers", api.adminToken, map[string]string{"name": "Globex", "currency": "USD"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Customer
	decode(t, rec, &created)
	assert.Equal(t, "USD", created.Currency)
	assert.True(t, created.Visible)

	rec = api.do(http.MethodGet, "/api/customers?size=1&orderBy=name", api.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(HeaderPerPage))
	assert.Equal(t, "2", rec.Header().Get(HeaderTotalCount))
	assert.Equal(t, "2", rec.Header().Get(HeaderTotalPages))
	var page []models.Customer
	decode(t, rec, &page)
	require.Len(t, page, 1)
	assert.Equal(t, "Acme", page[0].Name)

	path := fmt.Sprintf("/api/customers/%d", created.ID)
	rec = api.do(http.MethodPatch, path, api.adminToken, map[string]interface{}{"comment": "key account", "budget": 5000})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Customer
	decode(t, rec, &updated)
	assert.Equal(t, "key account", updated.Comment)
	assert.Equal(t, "Globex", updated.Name)

	rec = api.do(http.MethodPatch, path+"/meta", api.adminToken, map[string]string{"name": "po", "value": "PO-7"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, path+"/rates", api.adminToken, map[string]interface{}{"rate": 120})
	require.Equal(t, http.StatusCreated, rec.Code)
	var rate models.Rate
	decode(t, rec, &rate)
	rec = api.do(http.MethodGet, path+"/rates", api.adminToken, nil)
	assert.Contains(t, rec.Body.String(), `"rate":120`)
	rec = api.do(http.MethodDelete, fmt.Sprintf("%s/rates/%d", path, rate.ID), api.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, path+"/budget", api.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"budget":5000`)

	rec = api.do(http.MethodDelete, fmt.Sprintf("/api/customers/%d", api.customer.ID), api.adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodDelete, path, api.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, path, api.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/api/customers/abc", api.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func (a *testAPI) createRecord(t *testing.T, token string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	body["project"] = a.project.ID
	body["activity"] = a.activity.ID
	rec := a.do(http.MethodPost, "/api/timesheets", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]interface{}
	decode(t, rec, &out)
	return out
}

func TestTimesheetRatesFollowPermissions(t *testing.T) {
	api := newTestAPI(t)

	record := api.createRecord(t, api.userToken, map[string]interface{}{
		"begin": "2026-01-05T09:00:00", "duration": 5400, "description": "planning", "tags": "meeting, client",
	})
	assert.NotContains(t, record, "rate")
	assert.NotContains(t, record, "hourly_rate")
	assert.Equal(t, "planning", record["description"])
	assert.EqualValues(t, 5400, record["duration"])
	owner, ok := record["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "susan", owner["username"])
	assert.NotContains(t, owner, "hourly_rate")
	assert.NotContains(t, owner, "internal_rate")

	path := fmt.Sprintf("/api/timesheets/%v", record["id"])
	rec := api.do(http.MethodGet, path, api.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var asAdmin map[string]interface{}
	decode(t, rec, &asAdmin)
	assert.EqualValues(t, 120, asAdmin["rate"])
	assert.EqualValues(t, 80, asAdmin["hourly_rate"])

	rec = api.do(http.MethodPatch, path, api.userToken, map[string]interface{}{"hourly_rate": 500})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPatch, path, api.userToken, map[string]interface{}{"description": "review"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"description":"review"`)

	other := api.createRecord(t, api.adminToken, map[string]interface{}{"begin": "2026-01-05T12:00:00", "duration": 600})
	rec = api.do(http.MethodGet, fmt.Sprintf("/api/timesheets/%v", other["id"]), api.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, "/api/timesheets", api.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(HeaderTotalCount))

	rec = api.do(http.MethodGet, "/api/timesheets?user=all", api.adminToken, nil)
	assert.Equal(t, "2", rec.Header().Get(HeaderTotalCount))

	rec = api.do(http.MethodGet, fmt.Sprintf("/api/timesheets?user=%d", api.admin.ID), api.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodDelete, path, api.userToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTimesheetStartStopAndValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/timesheets", api.userToken, map[string]interface{}{
		"project": api.project.ID, "activity": api.activity.ID,
		"begin": "2026-01-05T10:00:00", "end": "2026-01-05T09:00:00",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"end"`)

	running := api.createRecord(t, api.userToken, map[string]interface{}{"description": "coding"})
	assert.Nil(t, running["end"])

	rec = api.do(http.MethodGet, "/api/timesheets/active", api.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var active []map[string]interface{}
	decode(t, rec, &active)
	require.Len(t, active, 1)

	path := fmt.Sprintf("/api/timesheets/%v", running["id"])
	rec = api.do(http.MethodPatch, path+"/stop", api.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stopped map[string]interface{}
	decode(t, rec, &stopped)
	assert.NotNil(t, stopped["end"])

	rec = api.do(http.MethodPatch, path+"/stop", api.userToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPatch, path+"/restart", api.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"description":"coding"`)

	rec = api.do(http.MethodPatch, path+"/export", api.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(http.MethodPatch, path+"/export", api.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"exported":true`)

	rec = api.do(http.MethodGet, "/api/timesheets/recent", api.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTeamDeletionRequiresAdmin(t *testing.T) {
	api := newTestAPI(t)
	team, err := api.store.CreateTeam(context.Background(), "Developers", "#aabbcc", api.user.ID)
	require.NoError(t, err)
	path := fmt.Sprintf("/api/teams/%d", team.ID)

	rec := api.do(http.MethodDelete, path, api.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, fmt.Sprintf("%s/projects/%d", path, api.project.ID), api.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Website"`)

	rec = api.do(http.MethodPost, fmt.Sprintf("%s/members/%d", path, api.admin.ID), api.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodDelete, fmt.Sprintf("%s/members/%d", path, api.user.ID), api.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, path, api.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, path, api.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportDownload(t *testing.T) {
	api := newTestAPI(t)
	api.createRecord(t, api.userToken, map[string]interface{}{
		"begin": "2026-01-05T09:00:00", "duration": 3600, "description": "exported work",
	})

	rec := api.do(http.MethodGet, "/api/export?format=csv&begin=2026-01-01&end=2026-01-31", api.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="hourly-export-20260101-20260131.csv"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Contains(t, rec.Body.String(), "exported work")
	assert.NotContains(t, rec.Body.String(), "Total price")

	rec = api.do(http.MethodGet, "/api/export?format=csv&markAsExported=1", api.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, "/api/export?format=ods", api.userToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvoiceFlow(t *testing.T) {
	api := newTestAPI(t)
	api.createRecord(t, api.adminToken, map[string]interface{}{"begin": "2026-01-05T09:00:00", "duration": 7200})

	rec := api.do(http.MethodPost, "/api/invoice-templates", api.userToken, map[string]interface{}{"name": "Default"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/api/invoice-templates", api.adminToken, map[string]interface{}{
		"name": "Default", "title": "Invoice", "company": "Hourly Ltd", "vat": 20,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tmpl models.InvoiceTemplate
	decode(t, rec, &tmpl)
	assert.Equal(t, invoice.CalculatorDefault, tmpl.Calculator)

	rec = api.do(http.MethodPost, "/api/invoices", api.adminToken, map[string]interface{}{
		"customer": api.customer.ID, "template": tmpl.ID, "mark_as_exported": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv models.Invoice
	decode(t, rec, &inv)
	assert.Equal(t, 200.0, inv.Subtotal)
	assert.Equal(t, 240.0, inv.Total)
	assert.Equal(t, models.InvoiceStatusNew, inv.Status)

	path := fmt.Sprintf("/api/invoices/%d", inv.ID)
	rec = api.do(http.MethodPatch, path+"/status", api.adminToken, map[string]string{"status": models.InvoiceStatusPaid})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodPatch, path+"/status", api.adminToken, map[string]string{"status": models.InvoiceStatusCanceled})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, path+"/download?format=pdf", api.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = api.do(http.MethodGet, "/api/invoices", api.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(http.MethodGet, "/api/invoices?status=paid", api.adminToken, nil)
	assert.Equal(t, "1", rec.Header().Get(HeaderTotalCount))
}

func TestWorkingTimeAndConfig(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, fmt.Sprintf("/api/users/%d/working-time?year=2026&month=2", api.user.ID), api.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var month statistics.WorkingMonth
	decode(t, rec, &month)
	assert.Len(t, month.Days, 28)

	rec = api.do(http.MethodGet, fmt.Sprintf("/api/users/%d/working-time", api.admin.ID), api.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, "/api/config/timesheet", api.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active_entries_hard_limit":1`)
}
