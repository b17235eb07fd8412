package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/balkashynov/hourly/internal/models"
)

func newUser(id uint, roles ...string) models.User {
	u := models.User{ID: id, Username: "u", Enabled: true}
	u.SetRoles(roles)
	return u
}

func withLeadership(u models.User, team models.Team) models.User {
	u.Memberships = append(u.Memberships, models.TeamMember{TeamID: team.ID, UserID: u.ID, Teamlead: true, Team: team})
	return u
}

func TestMatrixHierarchy(t *testing.T) {
	m := DefaultMatrix(nil)

	user := newUser(1)
	admin := newUser(2, models.RoleAdmin)
	super := newUser(3, models.RoleSuperAdmin)

	assert.True(t, m.Has(user, ViewOwnTimesheet))
	assert.False(t, m.Has(user, ViewOtherTimesheet))
	assert.False(t, m.Has(user, CreateCustomer))
	assert.True(t, m.Has(admin, CreateCustomer))
	assert.False(t, m.Has(admin, CreateUser))
	assert.True(t, m.Has(super, CreateUser))
	assert.True(t, m.Has(super, ViewOwnTimesheet))
}

func TestMatrixDisabledUserHasNothing(t *testing.T) {
	m := DefaultMatrix(nil)
	admin := newUser(1, models.RoleAdmin)
	admin.Enabled = false
	assert.False(t, m.Has(admin, ViewOwnTimesheet))
	assert.ErrorIs(t, m.Require(admin, ViewOwnTimesheet), ErrAccessDenied)
}

func TestMatrixOverride(t *testing.T) {
	m := DefaultMatrix(map[string][]string{models.RoleUser: {ViewOwnTimesheet, CreateCustomer}})
	user := newUser(1)
	assert.True(t, m.Has(user, CreateCustomer))
	assert.False(t, m.Has(user, EditOwnTimesheet))
	assert.Contains(t, m.Permissions(user), CreateCustomer)
}

func TestAdminCanDeleteTeam(t *testing.T) {
	v := NewVoter(DefaultMatrix(nil))
	team := models.Team{ID: 10, Members: []models.TeamMember{{TeamID: 10, UserID: 2, Teamlead: true}}}

	admin := newUser(1, models.RoleAdmin)
	lead := withLeadership(newUser(2, models.RoleTeamlead), team)
	user := newUser(3)

	assert.True(t, v.Team(admin, AttrDelete, team))
	assert.False(t, v.Team(lead, AttrDelete, team))
	assert.False(t, v.Team(user, AttrDelete, team))

	assert.True(t, v.Team(lead, AttrEdit, team))
	assert.True(t, v.Team(admin, AttrEdit, team))
	assert.False(t, v.Team(user, AttrEdit, team))
}

func TestTimesheetVoterOwnAndOther(t *testing.T) {
	v := NewVoter(DefaultMatrix(nil))
	team := models.Team{ID: 5, Members: []models.TeamMember{
		{TeamID: 5, UserID: 2, Teamlead: true},
		{TeamID: 5, UserID: 3},
	}}

	lead := withLeadership(newUser(2, models.RoleTeamlead), team)
	member := newUser(3)
	stranger := newUser(4)
	admin := newUser(9, models.RoleAdmin)

	assert.True(t, v.Timesheet(member, AttrEdit, member.ID))
	assert.False(t, v.Timesheet(member, AttrEdit, lead.ID))
	assert.False(t, v.Timesheet(member, AttrEditRate, member.ID))

	assert.True(t, v.Timesheet(lead, AttrEdit, member.ID))
	assert.True(t, v.Timesheet(lead, AttrViewRate, member.ID))
	assert.False(t, v.Timesheet(lead, AttrEdit, stranger.ID))

	assert.True(t, v.Timesheet(admin, AttrDelete, stranger.ID))
	assert.True(t, v.Timesheet(admin, AttrEditRate, stranger.ID))
	assert.False(t, v.Timesheet(admin, "unknown", stranger.ID))
}

func TestRecordsVoteOnEveryOwner(t *testing.T) {
	v := NewVoter(DefaultMatrix(nil))
	team := models.Team{ID: 5, Members: []models.TeamMember{
		{TeamID: 5, UserID: 2, Teamlead: true},
		{TeamID: 5, UserID: 3},
	}}
	lead := withLeadership(newUser(2, models.RoleTeamlead), team)
	member := newUser(3)
	admin := newUser(9, models.RoleAdmin)

	assert.True(t, v.Records(member, AttrExport, []uint{member.ID}))
	assert.False(t, v.Records(member, AttrExport, nil))
	assert.False(t, v.Records(member, AttrViewRate, []uint{member.ID, lead.ID}))
	assert.False(t, v.Records(member, AttrEditExport, []uint{member.ID}))

	assert.True(t, v.Records(lead, AttrViewRate, []uint{lead.ID, member.ID}))
	assert.False(t, v.Records(lead, AttrViewRate, []uint{lead.ID, 4}))
	assert.False(t, v.Records(lead, AttrExport, nil))

	assert.True(t, v.Records(admin, AttrEditExport, nil))
	assert.False(t, v.Records(admin, "unknown", nil))
}

func TestRecordsNeedOtherRatePermission(t *testing.T) {
	// view_other_timesheet without view_rate_other_timesheet
	m := DefaultMatrix(map[string][]string{
		models.RoleAdmin: {ViewOwnTimesheet, ViewOtherTimesheet, ViewRateOwnTimesheet, ExportOwnTimesheet, ExportOtherTimesheet},
	})
	v := NewVoter(m)
	admin := newUser(9, models.RoleAdmin)

	assert.True(t, v.Records(admin, AttrViewRate, []uint{admin.ID}))
	assert.False(t, v.Records(admin, AttrViewRate, nil))
	assert.False(t, v.Records(admin, AttrViewRate, []uint{admin.ID, 3}))
	assert.True(t, v.Records(admin, AttrExport, nil))
}

func TestVisibleOwners(t *testing.T) {
	v := NewVoter(DefaultMatrix(nil))
	team := models.Team{ID: 5, Members: []models.TeamMember{
		{TeamID: 5, UserID: 2, Teamlead: true},
		{TeamID: 5, UserID: 3},
	}}
	lead := withLeadership(newUser(2, models.RoleTeamlead), team)

	ids, ok := v.VisibleOwners(newUser(3))
	assert.False(t, ok)
	assert.Equal(t, []uint{3}, ids)

	ids, ok = v.VisibleOwners(lead)
	assert.True(t, ok)
	assert.Equal(t, []uint{2, 3}, ids)

	ids, ok = v.VisibleOwners(newUser(9, models.RoleAdmin))
	assert.True(t, ok)
	assert.Nil(t, ids)
}

func TestTeamRestrictedEntities(t *testing.T) {
	v := NewVoter(DefaultMatrix(nil))
	team := models.Team{ID: 7}
	customer := models.Customer{ID: 1, Teams: []models.Team{team}}
	project := models.Project{ID: 2, Customer: customer}

	member := newUser(1)
	member.Memberships = []models.TeamMember{{TeamID: 7, UserID: 1}}
	outsider := newUser(2)
	admin := newUser(3, models.RoleAdmin)

	assert.True(t, v.Customer(member, AttrAccess, customer))
	assert.False(t, v.Customer(outsider, AttrAccess, customer))
	assert.True(t, v.Customer(admin, AttrDelete, customer))
	assert.False(t, v.Customer(member, AttrDelete, customer))

	assert.True(t, v.Project(member, AttrAccess, project))
	assert.False(t, v.Project(outsider, AttrAccess, project))

	activity := models.Activity{ID: 3, Project: &project}
	assert.False(t, v.Activity(outsider, AttrAccess, activity))
	assert.True(t, v.Activity(outsider, AttrAccess, models.Activity{ID: 4}))
}

func TestUserVoter(t *testing.T) {
	v := NewVoter(DefaultMatrix(nil))
	user := newUser(1)
	other := newUser(2)
	super := newUser(3, models.RoleSuperAdmin)

	assert.True(t, v.User(user, AttrView, user))
	assert.False(t, v.User(user, AttrView, other))
	assert.True(t, v.User(super, AttrEdit, other))
	assert.True(t, v.User(super, AttrDelete, other))
	assert.False(t, v.User(super, AttrDelete, super))
}

func TestLedUserIDs(t *testing.T) {
	team := models.Team{ID: 1, Members: []models.TeamMember{{UserID: 1, Teamlead: true}, {UserID: 2}, {UserID: 3}}}
	lead := withLeadership(newUser(1, models.RoleTeamlead), team)
	assert.ElementsMatch(t, []uint{1, 2, 3}, LedUserIDs(lead))
	assert.Equal(t, []uint{1}, TeamIDs(lead))
}

func TestInvoiceVoter(t *testing.T) {
	v := NewVoter(DefaultMatrix(nil))
	invoice := models.Invoice{ID: 1, Customer: models.Customer{ID: 1, Teams: []models.Team{{ID: 4}}}}

	lead := newUser(1, models.RoleTeamlead)
	lead.Memberships = []models.TeamMember{{TeamID: 4, UserID: 1, Teamlead: true}}
	otherLead := newUser(2, models.RoleTeamlead)
	user := newUser(3)
	user.Memberships = []models.TeamMember{{TeamID: 4, UserID: 3}}

	assert.True(t, v.Invoice(lead, AttrView, invoice))
	assert.True(t, v.Invoice(lead, AttrEdit, invoice))
	assert.False(t, v.Invoice(otherLead, AttrView, invoice))
	assert.False(t, v.Invoice(user, AttrView, invoice))
	assert.True(t, v.Invoice(newUser(4, models.RoleAdmin), AttrEdit, invoice))
}
