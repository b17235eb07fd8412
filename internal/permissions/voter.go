package permissions

import (
	"github.com/balkashynov/hourly/internal/models"
)

// Voter attributes
const (
	AttrView       = "view"
	AttrEdit       = "edit"
	AttrDelete     = "delete"
	AttrStart      = "start"
	AttrExport     = "export"
	AttrViewRate   = "view_rate"
	AttrEditRate   = "edit_rate"
	AttrEditExport = "edit_export"
	AttrBudget     = "budget"
	AttrAccess     = "access"
)

// Voter decides access to single entities on top of the role matrix.
//
// Team based decisions need the actor's Memberships preloaded with Team.Members.
type Voter struct {
	matrix *Matrix
}

func NewVoter(matrix *Matrix) *Voter {
	return &Voter{matrix: matrix}
}

// Matrix exposes the underlying role matrix.
func (v *Voter) Matrix() *Matrix {
	return v.matrix
}

var timesheetPermission = map[string][2]string{
	AttrView:       {ViewOwnTimesheet, ViewOtherTimesheet},
	AttrEdit:       {EditOwnTimesheet, EditOtherTimesheet},
	AttrDelete:     {DeleteOwnTimesheet, DeleteOtherTimesheet},
	AttrStart:      {StartOwnTimesheet, StartOtherTimesheet},
	AttrExport:     {ExportOwnTimesheet, ExportOtherTimesheet},
	AttrViewRate:   {ViewRateOwnTimesheet, ViewRateOtherTimesheet},
	AttrEditRate:   {EditRateOwnTimesheet, EditRateOtherTimesheet},
	AttrEditExport: {EditExportOwnTimesheet, EditExportOtherTimesheet},
}

// Timesheet votes on a record owned by ownerID. Other users' records are only
// accessible to admins and to team leads of a team the owner belongs to.
func (v *Voter) Timesheet(actor models.User, attribute string, ownerID uint) bool {
	perms, ok := timesheetPermission[attribute]
	if !ok {
		return false
	}
	if ownerID == actor.ID {
		return v.matrix.Has(actor, perms[0])
	}
	if !IsAdmin(actor) && !LeadsUser(actor, ownerID) {
		return false
	}
	return v.matrix.Has(actor, perms[1])
}

// Records votes on a query over the records of ownerIDs, nil meaning all users.
// The own permission is always required. Queries reaching other users need the
// other permission too, and only admins may query all users at once.
func (v *Voter) Records(actor models.User, attribute string, ownerIDs []uint) bool {
	perms, ok := timesheetPermission[attribute]
	if !ok || !v.matrix.Has(actor, perms[0]) {
		return false
	}
	if ownerIDs == nil {
		return IsAdmin(actor) && v.matrix.Has(actor, perms[1])
	}
	for _, id := range ownerIDs {
		if !v.Timesheet(actor, attribute, id) {
			return false
		}
	}
	return true
}

// VisibleOwners returns the owners whose records the actor may list besides
// their own: nil for all users (admins) or the actor plus the members of the
// teams they lead. ok is false without view_other_timesheet.
func (v *Voter) VisibleOwners(actor models.User) (ids []uint, ok bool) {
	if !v.matrix.Has(actor, ViewOtherTimesheet) {
		return []uint{actor.ID}, false
	}
	if IsAdmin(actor) {
		return nil, true
	}
	ids = []uint{actor.ID}
	for _, id := range LedUserIDs(actor) {
		if id != actor.ID {
			ids = append(ids, id)
		}
	}
	return ids, true
}

// Team votes on a team: members may view, team leads may edit, only admins delete.
func (v *Voter) Team(actor models.User, attribute string, team models.Team) bool {
	switch attribute {
	case AttrView:
		return v.matrix.Has(actor, ViewTeam) && (IsAdmin(actor) || team.HasMember(actor.ID))
	case AttrEdit:
		if !v.matrix.Has(actor, EditTeam) {
			return false
		}
		if IsAdmin(actor) {
			return true
		}
		for _, id := range team.Teamleads() {
			if id == actor.ID {
				return true
			}
		}
		return false
	case AttrDelete:
		return v.matrix.Has(actor, DeleteTeam) && IsAdmin(actor)
	}
	return false
}

// Customer votes on a customer; AttrAccess only checks team visibility.
func (v *Voter) Customer(actor models.User, attribute string, customer models.Customer) bool {
	if !v.hasTeamAccess(actor, customer.Teams) {
		return false
	}
	return v.entityPermission(actor, attribute, ViewCustomer, EditCustomer, DeleteCustomer, BudgetCustomer)
}

// Project votes on a project; the customer's teams restrict access as well.
func (v *Voter) Project(actor models.User, attribute string, project models.Project) bool {
	if !v.hasTeamAccess(actor, project.Teams) || !v.hasTeamAccess(actor, project.Customer.Teams) {
		return false
	}
	return v.entityPermission(actor, attribute, ViewProject, EditProject, DeleteProject, BudgetProject)
}

// Activity votes on an activity; a project activity inherits the project's restrictions.
func (v *Voter) Activity(actor models.User, attribute string, activity models.Activity) bool {
	if !v.hasTeamAccess(actor, activity.Teams) {
		return false
	}
	if p := activity.Project; p != nil {
		if !v.hasTeamAccess(actor, p.Teams) || !v.hasTeamAccess(actor, p.Customer.Teams) {
			return false
		}
	}
	return v.entityPermission(actor, attribute, ViewActivity, EditActivity, DeleteActivity, BudgetActivity)
}

// User votes on a user profile.
func (v *Voter) User(actor models.User, attribute string, target models.User) bool {
	self := actor.ID == target.ID
	switch attribute {
	case AttrView:
		return (self && v.matrix.Has(actor, ViewOwnProfile)) || v.matrix.Has(actor, ViewUser)
	case AttrEdit:
		return (self && v.matrix.Has(actor, EditOwnProfile)) || v.matrix.Has(actor, EditUser)
	case AttrDelete:
		return !self && v.matrix.Has(actor, DeleteUser)
	}
	return false
}

// Invoice votes on an invoice. Viewing requires access to the invoiced customer,
// every other attribute requires create_invoice.
func (v *Voter) Invoice(actor models.User, attribute string, invoice models.Invoice) bool {
	if !v.hasTeamAccess(actor, invoice.Customer.Teams) {
		return false
	}
	switch attribute {
	case AttrView:
		return v.matrix.Has(actor, ViewInvoice)
	case AttrEdit, AttrDelete:
		return v.matrix.Has(actor, CreateInvoice)
	}
	return false
}

func (v *Voter) entityPermission(actor models.User, attribute, view, edit, del, budget string) bool {
	switch attribute {
	case AttrAccess:
		return actor.Enabled
	case AttrView:
		return v.matrix.Has(actor, view)
	case AttrEdit:
		return v.matrix.Has(actor, edit)
	case AttrDelete:
		return v.matrix.Has(actor, del)
	case AttrBudget:
		return v.matrix.Has(actor, budget)
	}
	return false
}

// hasTeamAccess is true when no team is assigned, the actor is an admin,
// or the actor is member of one of the teams.
func (v *Voter) hasTeamAccess(actor models.User, teams []models.Team) bool {
	if len(teams) == 0 || IsAdmin(actor) {
		return true
	}
	for _, team := range teams {
		for _, m := range actor.Memberships {
			if m.TeamID == team.ID {
				return true
			}
		}
	}
	return false
}

// LeadsUser reports whether actor is team lead of a team the user belongs to.
func LeadsUser(actor models.User, userID uint) bool {
	for _, m := range actor.Memberships {
		if m.Teamlead && m.Team.HasMember(userID) {
			return true
		}
	}
	return false
}

// TeamIDs returns the ids of all teams the user belongs to.
func TeamIDs(user models.User) []uint {
	ids := make([]uint, 0, len(user.Memberships))
	for _, m := range user.Memberships {
		ids = append(ids, m.TeamID)
	}
	return ids
}

// LedUserIDs returns the user ids of all members of teams the user leads.
func LedUserIDs(user models.User) []uint {
	seen := map[uint]bool{}
	var ids []uint
	for _, m := range user.Memberships {
		if !m.Teamlead {
			continue
		}
		for _, member := range m.Team.Members {
			if !seen[member.UserID] {
				seen[member.UserID] = true
				ids = append(ids, member.UserID)
			}
		}
	}
	return ids
}
