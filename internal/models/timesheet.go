package models

import (
	"time"
)

// Timesheet categories. Only work is billable by default.
const (
	CategoryWork     = "work"
	CategoryHoliday  = "holiday"
	CategorySickness = "sickness"
	CategoryParental = "parental"
	CategoryOvertime = "overtime"
)

// Categories lists every accepted category.
var Categories = []string{CategoryWork, CategoryHoliday, CategorySickness, CategoryParental, CategoryOvertime}

// Timesheet is a tracked time record. A nil End means the record is still running.
type Timesheet struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID     uint       `gorm:"not null;index" json:"user_id"`
	ActivityID uint       `gorm:"not null;index" json:"activity_id"`
	ProjectID  uint       `gorm:"not null;index" json:"project_id"`
	Begin      time.Time  `gorm:"column:start_time;not null;index" json:"begin"`
	End        *time.Time `gorm:"column:end_time;index" json:"end"`
	Duration   int        `json:"duration"` // seconds, calculated on stop

	Description  string   `json:"description"`
	Rate         float64  `json:"rate"`
	InternalRate float64  `json:"internal_rate"`
	HourlyRate   *float64 `json:"hourly_rate"`
	FixedRate    *float64 `json:"fixed_rate"`
	Billable     bool     `gorm:"not null" json:"billable"`
	Exported     bool     `gorm:"not null;index" json:"exported"`
	Category     string   `gorm:"size:10;not null" json:"category"`

	// Relationships
	User     User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Activity Activity    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"activity"`
	Project  Project     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"project"`
	Tags     []Tag       `gorm:"many2many:timesheet_tags;" json:"tags"`
	Meta     []MetaField `gorm:"polymorphic:Owner;polymorphicValue:timesheet" json:"meta,omitempty"`
}

// IsRunning reports whether the record has not been stopped yet.
func (t Timesheet) IsRunning() bool {
	return t.End == nil
}

// DurationAt returns the stored duration, or the elapsed time for running records.
func (t Timesheet) DurationAt(now time.Time) time.Duration {
	if t.End != nil {
		return time.Duration(t.Duration) * time.Second
	}
	if now.Before(t.Begin) {
		return 0
	}
	return now.Sub(t.Begin)
}

// TagNames returns the names of all tags.
func (t Timesheet) TagNames() []string {
	names := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		names = append(names, tag.Name)
	}
	return names
}

// Tag represents a timesheet tag
type Tag struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	Name    string `gorm:"unique;not null;size:100" json:"name"`
	Color   string `gorm:"size:7" json:"color"`
	Visible bool   `gorm:"not null" json:"visible"`

	// Relationships
	Timesheets []Timesheet `gorm:"many2many:timesheet_tags;" json:"-"`
}

// TimesheetTag is the join table for the many-to-many relationship
type TimesheetTag struct {
	TimesheetID uint `gorm:"primaryKey"`
	TagID       uint `gorm:"primaryKey"`
}
