package statistics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
)

// Source is the part of the store the statistics read from.
type Source interface {
	SumTimesheets(ctx context.Context, q db.TimesheetQuery) (db.TimesheetSums, error)
	FindTimesheets(ctx context.Context, q db.TimesheetQuery) ([]models.Timesheet, error)
}

// Service calculates statistics from stored records.
type Service struct {
	source Source
	now    func() time.Time
}

// NewService returns a statistics service reading from source.
func NewService(source Source) *Service {
	return &Service{source: source, now: time.Now}
}

// BudgetStatistic summarizes the records of one customer, project or activity against its budgets.
type BudgetStatistic struct {
	Count            int64      `json:"count"`
	Duration         int64      `json:"duration"`
	Rate             float64    `json:"rate"`
	InternalRate     float64    `json:"internal_rate"`
	BillableDuration int64      `json:"billable_duration"`
	BillableRate     float64    `json:"billable_rate"`
	Budget           float64    `json:"budget"`
	TimeBudget       int64      `json:"time_budget"`
	BudgetType       string     `json:"budget_type"`
	Begin            *time.Time `json:"begin,omitempty"`
	End              *time.Time `json:"end,omitempty"`
}

// HasBudget reports whether a money budget is configured.
func (b BudgetStatistic) HasBudget() bool { return b.Budget > 0 }

// HasTimeBudget reports whether a time budget is configured.
func (b BudgetStatistic) HasTimeBudget() bool { return b.TimeBudget > 0 }

// BudgetSpent is the billable rate counted against the money budget.
func (b BudgetStatistic) BudgetSpent() float64 { return b.BillableRate }

// TimeBudgetSpent is the billable duration counted against the time budget.
func (b BudgetStatistic) TimeBudgetSpent() int64 { return b.BillableDuration }

// BudgetPercent is the spent share of the money budget, zero without budget.
func (b BudgetStatistic) BudgetPercent() float64 {
	if !b.HasBudget() {
		return 0
	}
	return math.Round(b.BudgetSpent()/b.Budget*10000) / 100
}

// TimeBudgetPercent is the spent share of the time budget, zero without budget.
func (b BudgetStatistic) TimeBudgetPercent() float64 {
	if !b.HasTimeBudget() {
		return 0
	}
	return math.Round(float64(b.TimeBudgetSpent())/float64(b.TimeBudget)*10000) / 100
}

// BudgetRemaining is negative once the budget is exceeded.
func (b BudgetStatistic) BudgetRemaining() float64 {
	return math.Round((b.Budget-b.BudgetSpent())*100) / 100
}

// TimeBudgetRemaining is negative once the time budget is exceeded.
func (b BudgetStatistic) TimeBudgetRemaining() int64 {
	return b.TimeBudget - b.TimeBudgetSpent()
}

// CustomerBudget aggregates all records of the customer.
func (s *Service) CustomerBudget(ctx context.Context, customer models.Customer) (*BudgetStatistic, error) {
	q := db.TimesheetQuery{CustomerIDs: []uint{customer.ID}}
	return s.budget(ctx, q, customer.Budget, customer.TimeBudget, customer.BudgetType)
}

// ProjectBudget aggregates all records of the project.
func (s *Service) ProjectBudget(ctx context.Context, project models.Project) (*BudgetStatistic, error) {
	q := db.TimesheetQuery{ProjectIDs: []uint{project.ID}}
	return s.budget(ctx, q, project.Budget, project.TimeBudget, project.BudgetType)
}

// ActivityBudget aggregates all records of the activity.
func (s *Service) ActivityBudget(ctx context.Context, activity models.Activity) (*BudgetStatistic, error) {
	q := db.TimesheetQuery{ActivityIDs: []uint{activity.ID}}
	return s.budget(ctx, q, activity.Budget, activity.TimeBudget, activity.BudgetType)
}

func (s *Service) budget(ctx context.Context, q db.TimesheetQuery, budget float64, timeBudget int, budgetType string) (*BudgetStatistic, error) {
	stat := &BudgetStatistic{Budget: budget, TimeBudget: int64(timeBudget), BudgetType: budgetType}
	if budgetType == models.BudgetTypeMonth {
		begin, end := MonthRange(s.now())
		q.Begin, q.End = &begin, &end
		stat.Begin, stat.End = &begin, &end
	}
	sums, err := s.source.SumTimesheets(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate budget: %w", err)
	}
	stat.Count = sums.Count
	stat.Duration = sums.Duration
	stat.Rate = sums.Rate
	stat.InternalRate = sums.InternalRate
	stat.BillableDuration = sums.BillableDuration
	stat.BillableRate = sums.BillableRate
	return stat, nil
}

// MonthRange returns the first and the last second of the month containing t.
func MonthRange(t time.Time) (time.Time, time.Time) {
	begin := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return begin, begin.AddDate(0, 1, 0).Add(-time.Second)
}
