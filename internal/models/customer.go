package models

import (
	"time"
)

// Budget types. An empty budget type means the budget spans the whole lifetime.
const (
	BudgetTypeFull  = ""
	BudgetTypeMonth = "month"
)

// Customer is the root of the customer → project → activity tree.
type Customer struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `gorm:"not null;size:150;index" json:"name"`
	Number   string `gorm:"size:50" json:"number"`
	Company  string `gorm:"size:100" json:"company"`
	Contact  string `gorm:"size:100" json:"contact"`
	Address  string `json:"address"`
	Country  string `gorm:"size:2" json:"country"`
	Currency string `gorm:"size:3" json:"currency"`
	VatID    string `gorm:"size:50" json:"vat_id"`
	Email    string `gorm:"size:75" json:"email"`
	Phone    string `gorm:"size:30" json:"phone"`
	Homepage string `gorm:"size:100" json:"homepage"`
	Timezone string `gorm:"size:64" json:"timezone"`
	Comment  string `json:"comment"`
	Visible  bool   `gorm:"not null" json:"visible"`
	Billable bool   `gorm:"not null" json:"billable"`

	Budget     float64 `json:"budget"`
	TimeBudget int     `json:"time_budget"` // seconds
	BudgetType string  `gorm:"size:10" json:"budget_type"`

	// Relationships
	Teams []Team      `gorm:"many2many:customer_teams;" json:"teams,omitempty"`
	Meta  []MetaField `gorm:"polymorphic:Owner;polymorphicValue:customer" json:"meta,omitempty"`
}

// Project belongs to exactly one customer.
type Project struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CustomerID uint     `gorm:"not null;index" json:"customer_id"`
	Customer   Customer `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"customer"`

	Name             string     `gorm:"not null;size:150;index" json:"name"`
	Number           string     `gorm:"size:50" json:"number"`
	OrderNumber      string     `gorm:"size:50" json:"order_number"`
	OrderDate        *time.Time `json:"order_date"`
	Start            *time.Time `gorm:"column:start_date" json:"start"`
	End              *time.Time `gorm:"column:end_date" json:"end"`
	Comment          string     `json:"comment"`
	Visible          bool       `gorm:"not null" json:"visible"`
	Billable         bool       `gorm:"not null" json:"billable"`
	GlobalActivities bool       `gorm:"not null" json:"global_activities"`

	Budget     float64 `json:"budget"`
	TimeBudget int     `json:"time_budget"`
	BudgetType string  `gorm:"size:10" json:"budget_type"`

	Teams []Team      `gorm:"many2many:project_teams;" json:"teams,omitempty"`
	Meta  []MetaField `gorm:"polymorphic:Owner;polymorphicValue:project" json:"meta,omitempty"`
}

// EndedBefore reports whether the project end date lies before t.
func (p Project) EndedBefore(t time.Time) bool {
	return p.End != nil && p.End.Before(t)
}

// StartsAfter reports whether the project start date lies after t.
func (p Project) StartsAfter(t time.Time) bool {
	return p.Start != nil && p.Start.After(t)
}

// Activity either belongs to a project or is global (ProjectID == nil).
type Activity struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectID *uint    `gorm:"index" json:"project_id"`
	Project   *Project `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"project,omitempty"`

	Name     string `gorm:"not null;size:150;index" json:"name"`
	Number   string `gorm:"size:50" json:"number"`
	Comment  string `json:"comment"`
	Visible  bool   `gorm:"not null" json:"visible"`
	Billable bool   `gorm:"not null" json:"billable"`

	Budget     float64 `json:"budget"`
	TimeBudget int     `json:"time_budget"`
	BudgetType string  `gorm:"size:10" json:"budget_type"`

	Teams []Team      `gorm:"many2many:activity_teams;" json:"teams,omitempty"`
	Meta  []MetaField `gorm:"polymorphic:Owner;polymorphicValue:activity" json:"meta,omitempty"`
}

// IsGlobal reports whether the activity can be used with any project.
func (a Activity) IsGlobal() bool {
	return a.ProjectID == nil
}
