// Package permissions maps roles to permission strings and decides access
// to entities through voters.
package permissions

import (
	"errors"
	"sort"

	"github.com/balkashynov/hourly/internal/models"
)

// ErrAccessDenied is returned by Require and the voters' Deny helpers.
var ErrAccessDenied = errors.New("access denied")

// Permission strings
const (
	ViewOwnTimesheet       = "view_own_timesheet"
	StartOwnTimesheet      = "start_own_timesheet"
	EditOwnTimesheet       = "edit_own_timesheet"
	DeleteOwnTimesheet     = "delete_own_timesheet"
	ExportOwnTimesheet     = "export_own_timesheet"
	ViewRateOwnTimesheet   = "view_rate_own_timesheet"
	EditRateOwnTimesheet   = "edit_rate_own_timesheet"
	EditExportOwnTimesheet = "edit_export_own_timesheet"

	ViewOtherTimesheet       = "view_other_timesheet"
	StartOtherTimesheet      = "start_other_timesheet"
	EditOtherTimesheet       = "edit_other_timesheet"
	DeleteOtherTimesheet     = "delete_other_timesheet"
	ExportOtherTimesheet     = "export_other_timesheet"
	ViewRateOtherTimesheet   = "view_rate_other_timesheet"
	EditRateOtherTimesheet   = "edit_rate_other_timesheet"
	EditExportOtherTimesheet = "edit_export_other_timesheet"

	ViewCustomer   = "view_customer"
	CreateCustomer = "create_customer"
	EditCustomer   = "edit_customer"
	DeleteCustomer = "delete_customer"
	BudgetCustomer = "budget_customer"

	ViewProject   = "view_project"
	CreateProject = "create_project"
	EditProject   = "edit_project"
	DeleteProject = "delete_project"
	BudgetProject = "budget_project"

	ViewActivity   = "view_activity"
	CreateActivity = "create_activity"
	EditActivity   = "edit_activity"
	DeleteActivity = "delete_activity"
	BudgetActivity = "budget_activity"

	ViewTeam       = "view_team"
	ViewTeamMember = "view_team_member"
	CreateTeam     = "create_team"
	EditTeam       = "edit_team"
	DeleteTeam     = "delete_team"

	ViewUser       = "view_user"
	CreateUser     = "create_user"
	EditUser       = "edit_user"
	DeleteUser     = "delete_user"
	ViewOwnProfile = "view_own_profile"
	EditOwnProfile = "edit_own_profile"

	ViewInvoice           = "view_invoice"
	CreateInvoice         = "create_invoice"
	ManageInvoiceTemplate = "manage_invoice_template"

	ViewTag   = "view_tag"
	CreateTag = "create_tag"
	DeleteTag = "delete_tag"

	CreateExport       = "create_export"
	ViewReporting      = "view_reporting"
	ViewOtherReporting = "view_other_reporting"
)

var userPermissions = []string{
	ViewOwnTimesheet, StartOwnTimesheet, EditOwnTimesheet, DeleteOwnTimesheet, ExportOwnTimesheet,
	ViewRateOwnTimesheet, ViewOwnProfile, EditOwnProfile, ViewTag, CreateTag, ViewReporting,
}

var teamleadPermissions = append(append([]string{}, userPermissions...),
	ViewOtherTimesheet, StartOtherTimesheet, EditOtherTimesheet, DeleteOtherTimesheet, ExportOtherTimesheet,
	ViewRateOtherTimesheet, EditExportOwnTimesheet, EditExportOtherTimesheet,
	ViewCustomer, ViewProject, ViewActivity, BudgetProject, BudgetActivity,
	ViewTeam, ViewTeamMember, EditTeam, ViewInvoice, CreateInvoice, CreateExport, ViewOtherReporting,
)

var adminPermissions = append(append([]string{}, teamleadPermissions...),
	EditRateOwnTimesheet, EditRateOtherTimesheet,
	CreateCustomer, EditCustomer, DeleteCustomer, BudgetCustomer,
	CreateProject, EditProject, DeleteProject,
	CreateActivity, EditActivity, DeleteActivity,
	CreateTeam, DeleteTeam, ViewUser, ManageInvoiceTemplate, DeleteTag,
)

var superAdminPermissions = append(append([]string{}, adminPermissions...),
	CreateUser, EditUser, DeleteUser,
)

// Matrix maps each role to its permission set.
type Matrix struct {
	roles map[string]map[string]bool
}

// DefaultMatrix returns the built in role permissions. overrides replace the
// permission list of the named roles.
func DefaultMatrix(overrides map[string][]string) *Matrix {
	m := &Matrix{roles: map[string]map[string]bool{}}
	m.set(models.RoleUser, userPermissions)
	m.set(models.RoleTeamlead, teamleadPermissions)
	m.set(models.RoleAdmin, adminPermissions)
	m.set(models.RoleSuperAdmin, superAdminPermissions)
	for role, perms := range overrides {
		m.set(role, perms)
	}
	return m
}

func (m *Matrix) set(role string, perms []string) {
	set := make(map[string]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	m.roles[role] = set
}

// Permissions lists the permissions granted to the user through all roles.
func (m *Matrix) Permissions(user models.User) []string {
	seen := map[string]bool{}
	for _, role := range user.RoleList() {
		for p := range m.roles[role] {
			seen[p] = true
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Has reports whether any role of the user grants permission.
func (m *Matrix) Has(user models.User, permission string) bool {
	if !user.Enabled {
		return false
	}
	for _, role := range user.RoleList() {
		if m.roles[role][permission] {
			return true
		}
	}
	return false
}

// Require returns ErrAccessDenied unless the user has the permission.
func (m *Matrix) Require(user models.User, permission string) error {
	if m.Has(user, permission) {
		return nil
	}
	return ErrAccessDenied
}

// IsAdmin reports ROLE_ADMIN or ROLE_SUPER_ADMIN.
func IsAdmin(user models.User) bool {
	return user.HasRole(models.RoleAdmin) || user.HasRole(models.RoleSuperAdmin)
}
