package models

import (
	"strings"
	"time"
)

// Roles, ordered from least to most privileged.
const (
	RoleUser       = "ROLE_USER"
	RoleTeamlead   = "ROLE_TEAMLEAD"
	RoleAdmin      = "ROLE_ADMIN"
	RoleSuperAdmin = "ROLE_SUPER_ADMIN"
)

// User owns timesheets and may be member or lead of teams.
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username     string `gorm:"uniqueIndex;not null;size:180" json:"username"`
	Email        string `gorm:"uniqueIndex;not null;size:180" json:"email"`
	Alias        string `gorm:"size:60" json:"alias"`
	Title        string `gorm:"size:50" json:"title"`
	AccountNo    string `gorm:"size:30" json:"account_number"`
	PasswordHash string `json:"-"`
	Roles        string `gorm:"not null" json:"-"` // comma separated
	Enabled      bool   `gorm:"not null" json:"enabled"`
	Timezone     string `gorm:"size:64" json:"timezone"`
	Language     string `gorm:"size:6" json:"language"`

	HourlyRate   float64  `json:"hourly_rate"`
	InternalRate *float64 `json:"internal_rate"`

	// Contracted working time per weekday, in seconds.
	WorkMonday    int `json:"work_monday"`
	WorkTuesday   int `json:"work_tuesday"`
	WorkWednesday int `json:"work_wednesday"`
	WorkThursday  int `json:"work_thursday"`
	WorkFriday    int `json:"work_friday"`
	WorkSaturday  int `json:"work_saturday"`
	WorkSunday    int `json:"work_sunday"`

	Memberships []TeamMember `gorm:"foreignKey:UserID" json:"teams,omitempty"`
}

// DisplayName prefers the alias over the username.
func (u User) DisplayName() string {
	if u.Alias != "" {
		return u.Alias
	}
	return u.Username
}

// RoleList returns the stored roles; every user implicitly has ROLE_USER.
func (u User) RoleList() []string {
	roles := []string{RoleUser}
	for _, role := range strings.Split(u.Roles, ",") {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role == "" || role == RoleUser {
			continue
		}
		roles = append(roles, role)
	}
	return roles
}

// SetRoles stores roles normalized.
func (u *User) SetRoles(roles []string) {
	var normalized []string
	seen := map[string]bool{}
	for _, role := range roles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role == "" || seen[role] {
			continue
		}
		seen[role] = true
		normalized = append(normalized, role)
	}
	u.Roles = strings.Join(normalized, ",")
}

// HasRole checks the stored roles only, without hierarchy.
func (u User) HasRole(role string) bool {
	for _, r := range u.RoleList() {
		if r == role {
			return true
		}
	}
	return false
}

// ExpectedSeconds returns the contracted working time for a weekday.
func (u User) ExpectedSeconds(day time.Weekday) int {
	switch day {
	case time.Monday:
		return u.WorkMonday
	case time.Tuesday:
		return u.WorkTuesday
	case time.Wednesday:
		return u.WorkWednesday
	case time.Thursday:
		return u.WorkThursday
	case time.Friday:
		return u.WorkFriday
	case time.Saturday:
		return u.WorkSaturday
	default:
		return u.WorkSunday
	}
}

// Location resolves the user's timezone, falling back to UTC.
func (u User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Team groups users and restricts access to customers, projects and activities.
type Team struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name  string `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Color string `gorm:"size:7" json:"color"`

	Members    []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Customers  []Customer   `gorm:"many2many:customer_teams;" json:"customers,omitempty"`
	Projects   []Project    `gorm:"many2many:project_teams;" json:"projects,omitempty"`
	Activities []Activity   `gorm:"many2many:activity_teams;" json:"activities,omitempty"`
}

// Teamleads returns the user ids of all team leads.
func (t Team) Teamleads() []uint {
	var ids []uint
	for _, m := range t.Members {
		if m.Teamlead {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// HasMember reports whether the user belongs to the team.
func (t Team) HasMember(userID uint) bool {
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// TeamMember is the membership join row.
type TeamMember struct {
	TeamID   uint `gorm:"primaryKey" json:"team_id"`
	UserID   uint `gorm:"primaryKey" json:"user_id"`
	Teamlead bool `gorm:"not null" json:"teamlead"`

	Team Team `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	User User `gorm:"constraint:OnDelete:CASCADE;" json:"user"`
}
