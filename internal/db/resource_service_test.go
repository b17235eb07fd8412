package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/hourly/internal/models"
)

func TestCustomerValidationAndConflictOnDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.store.CreateCustomer(ctx, &models.Customer{Name: " ", Country: "DEU", BudgetType: "week"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 3)

	err = f.store.DeleteCustomer(ctx, f.customer.ID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.store.CreateTimesheet(ctx, CreateTimesheetRequest{
		UserID: f.user.ID, ProjectID: f.project.ID, ActivityID: f.activity.ID, Begin: testNow, Duration: 60,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, f.store.DeleteProject(ctx, f.project.ID), ErrConflict)
	assert.ErrorIs(t, f.store.DeleteActivity(ctx, f.activity.ID), ErrConflict)

	assert.ErrorIs(t, f.store.DeleteCustomer(ctx, 4242), ErrNotFound)
}

func TestDeleteProjectRemovesProjectActivities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	project := &models.Project{CustomerID: f.customer.ID, Name: "Empty", Visible: true}
	require.NoError(t, f.store.CreateProject(ctx, project))
	activity := &models.Activity{ProjectID: &project.ID, Name: "Only here", Visible: true}
	require.NoError(t, f.store.CreateActivity(ctx, activity))

	require.NoError(t, f.store.DeleteProject(ctx, project.ID))
	_, err := f.store.GetActivity(ctx, activity.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCustomersVisibilityAndTerm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.CreateCustomer(ctx, &models.Customer{Name: "Hidden Corp", Visible: false}))
	require.NoError(t, f.store.CreateCustomer(ctx, &models.Customer{Name: "Beta GmbH", Visible: true}))

	visible, err := f.store.ListCustomers(ctx, CustomerQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), visible.Total)
	assert.Equal(t, "Acme", visible.Items[0].Name)

	all, err := f.store.ListCustomers(ctx, CustomerQuery{BaseQuery: BaseQuery{Visibility: VisibilityBoth}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)

	term, err := f.store.ListCustomers(ctx, CustomerQuery{BaseQuery: BaseQuery{Term: "gmbh"}})
	require.NoError(t, err)
	require.Len(t, term.Items, 1)
	assert.Equal(t, "Beta GmbH", term.Items[0].Name)
}

func TestTeamRestrictedListsAndMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lead, err := f.store.CreateUser(ctx, CreateUserRequest{
		Username: "lead", Email: "lead@example.com", Password: "secret-password", Roles: []string{models.RoleTeamlead},
	})
	require.NoError(t, err)

	team, err := f.store.CreateTeam(ctx, "Backend", "#112233", lead.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{lead.ID}, team.Teamleads())

	_, err = f.store.AssignToTeam(ctx, team.ID, AssignCustomer, f.customer.ID)
	require.NoError(t, err)

	outsider, err := f.store.GetUser(ctx, f.user.ID)
	require.NoError(t, err)
	list, err := f.store.ListCustomers(ctx, CustomerQuery{BaseQuery: BaseQuery{Viewer: outsider}})
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	projects, err := f.store.ListProjects(ctx, ProjectQuery{BaseQuery: BaseQuery{Viewer: outsider}})
	require.NoError(t, err)
	assert.Empty(t, projects.Items)

	team, err = f.store.AddTeamMember(ctx, team.ID, f.user.ID, false)
	require.NoError(t, err)
	assert.True(t, team.HasMember(f.user.ID))

	member, err := f.store.GetUser(ctx, f.user.ID)
	require.NoError(t, err)
	list, err = f.store.ListCustomers(ctx, CustomerQuery{BaseQuery: BaseQuery{Viewer: member}})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)

	_, err = f.store.RemoveTeamMember(ctx, team.ID, lead.ID)
	assert.ErrorIs(t, err, ErrValidation)

	teams, err := f.store.ListTeams(ctx, TeamQuery{BaseQuery: BaseQuery{Viewer: member}})
	require.NoError(t, err)
	assert.Len(t, teams.Items, 1)

	require.NoError(t, f.store.DeleteTeam(ctx, team.ID))
	list, err = f.store.ListCustomers(ctx, CustomerQuery{BaseQuery: BaseQuery{Viewer: outsider}})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestUserAuthenticationAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.CreateUser(ctx, CreateUserRequest{Username: "susan", Email: "other@example.com", Password: "secret-password"})
	assert.ErrorIs(t, err, ErrConflict)

	user, err := f.store.Authenticate(ctx, "susan", "secret-password")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, user.ID)

	_, err = f.store.Authenticate(ctx, "susan", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.store.Authenticate(ctx, "nobody", "secret-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	disabled := false
	_, err = f.store.UpdateUser(ctx, user.ID, UpdateUserRequest{Enabled: &disabled, WorkingTime: []int{28800, 28800, 28800, 28800, 28800, 0, 0}})
	require.NoError(t, err)
	_, err = f.store.Authenticate(ctx, "susan", "secret-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	reloaded, err := f.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 28800, reloaded.ExpectedSeconds(time.Monday))
	assert.Equal(t, 0, reloaded.ExpectedSeconds(time.Sunday))

	_, err = f.store.UpdateUser(ctx, user.ID, UpdateUserRequest{WorkingTime: []int{1}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTagsAndMeta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tags, err := f.store.FindOrCreateTags(ctx, []string{"alpha", " #beta", "alpha", ""})
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	again, err := f.store.FindOrCreateTags(ctx, []string{"beta"})
	require.NoError(t, err)
	assert.Equal(t, tags[1].ID, again[0].ID)

	_, err = f.store.CreateTag(ctx, "alpha", "")
	assert.ErrorIs(t, err, ErrConflict)

	list, err := f.store.ListTags(ctx, TagQuery{BaseQuery: BaseQuery{Term: "alp"}})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
	require.NoError(t, f.store.DeleteTag(ctx, tags[0].ID))

	_, err = f.store.SetMeta(ctx, models.OwnerCustomer, f.customer.ID, "region", "north", true)
	require.NoError(t, err)
	_, err = f.store.SetMeta(ctx, models.OwnerCustomer, f.customer.ID, "region", "south", true)
	require.NoError(t, err)
	_, err = f.store.SetMeta(ctx, models.OwnerCustomer, 999, "region", "x", true)
	assert.ErrorIs(t, err, ErrNotFound)

	meta, err := f.store.MetaFor(ctx, models.OwnerCustomer, f.customer.ID)
	require.NoError(t, err)
	require.Len(t, meta[f.customer.ID], 1)
	assert.Equal(t, "south", meta[f.customer.ID][0].Value)

	names, err := f.store.VisibleMetaNames(ctx, models.OwnerCustomer)
	require.NoError(t, err)
	assert.Equal(t, []string{"region"}, names)
}

func TestRatesReplaceAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.AddRate(ctx, &models.Rate{Kind: models.OwnerCustomer, OwnerID: f.customer.ID, Rate: 50}))
	require.NoError(t, f.store.AddRate(ctx, &models.Rate{Kind: models.OwnerCustomer, OwnerID: f.customer.ID, Rate: 70}))
	userRate := &models.Rate{Kind: models.OwnerCustomer, OwnerID: f.customer.ID, UserID: &f.user.ID, Rate: 90}
	require.NoError(t, f.store.AddRate(ctx, userRate))

	list, err := f.store.ListRates(ctx, models.OwnerCustomer, f.customer.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 70.0, list[0].Rate)

	assert.ErrorIs(t, f.store.AddRate(ctx, &models.Rate{Kind: "team", OwnerID: 1}), ErrValidation)
	assert.ErrorIs(t, f.store.AddRate(ctx, &models.Rate{Kind: models.OwnerProject, OwnerID: 999}), ErrNotFound)

	require.NoError(t, f.store.DeleteRate(ctx, models.OwnerCustomer, f.customer.ID, userRate.ID))
	assert.ErrorIs(t, f.store.DeleteRate(ctx, models.OwnerCustomer, f.customer.ID, userRate.ID), ErrNotFound)
}

func TestInvoicePersistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	template := &models.InvoiceTemplate{Name: "Default", Title: "Invoice", Company: "Hourly Ltd", Calculator: "default", Renderer: "html", Vat: 19}
	require.NoError(t, f.store.SaveInvoiceTemplate(ctx, template))

	ts, err := f.store.CreateTimesheet(ctx, CreateTimesheetRequest{
		UserID: f.user.ID, ProjectID: f.project.ID, ActivityID: f.activity.ID, Begin: testNow, Duration: 3600,
	})
	require.NoError(t, err)

	invoice := &models.Invoice{
		InvoiceNumber: "2026/001",
		CustomerID:    f.customer.ID,
		UserID:        f.user.ID,
		TemplateID:    template.ID,
		Subtotal:      80,
		Tax:           15.2,
		Total:         95.2,
		Items:         []models.InvoiceItem{{Description: "Development", Amount: 1, Rate: 80}},
	}
	require.NoError(t, f.store.SaveInvoice(ctx, invoice, []uint{ts.ID}, true))
	assert.Equal(t, models.InvoiceStatusNew, invoice.Status)

	duplicate := &models.Invoice{InvoiceNumber: "2026/001", CustomerID: f.customer.ID, UserID: f.user.ID, TemplateID: template.ID}
	assert.ErrorIs(t, f.store.SaveInvoice(ctx, duplicate, nil, false), ErrConflict)

	loaded, err := f.store.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Items, 1)
	assert.Len(t, loaded.Timesheets, 1)

	record, err := f.store.GetTimesheet(ctx, ts.ID)
	require.NoError(t, err)
	assert.True(t, record.Exported)

	count, err := f.store.CountInvoices(ctx, InvoiceCounter{CustomerID: &f.customer.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	updated, err := f.store.UpdateInvoiceStatus(ctx, invoice.ID, models.InvoiceStatusPending, nil, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPending, updated.Status)

	page, err := f.store.ListInvoices(ctx, InvoiceQuery{Status: []string{models.InvoiceStatusPending}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}
