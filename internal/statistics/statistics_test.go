package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
)

type stubSource struct {
	sums    db.TimesheetSums
	records []models.Timesheet
	queries []db.TimesheetQuery
}

func (s *stubSource) SumTimesheets(_ context.Context, q db.TimesheetQuery) (db.TimesheetSums, error) {
	s.queries = append(s.queries, q)
	return s.sums, nil
}

func (s *stubSource) FindTimesheets(_ context.Context, q db.TimesheetQuery) ([]models.Timesheet, error) {
	s.queries = append(s.queries, q)
	var out []models.Timesheet
	for _, t := range s.records {
		if q.Begin != nil && t.Begin.Before(*q.Begin) {
			continue
		}
		if q.End != nil && t.Begin.After(*q.End) {
			continue
		}
		if q.Category != "" && t.Category != q.Category {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

var wednesday = time.Date(2026, time.April, 15, 10, 0, 0, 0, time.UTC)

func record(projectID, activityID uint, begin time.Time, seconds int) models.Timesheet {
	end := begin.Add(time.Duration(seconds) * time.Second)
	return models.Timesheet{
		ProjectID:  projectID,
		ActivityID: activityID,
		Project:    models.Project{ID: projectID, Name: map[uint]string{1: "Website", 2: "Shop"}[projectID], Customer: models.Customer{Name: "Acme"}},
		Activity:   models.Activity{ID: activityID, Name: map[uint]string{1: "Development", 2: "Support"}[activityID]},
		Begin:      begin,
		End:        &end,
		Duration:   seconds,
		Category:   models.CategoryWork,
	}
}

func TestProjectBudget(t *testing.T) {
	source := &stubSource{sums: db.TimesheetSums{
		Count: 4, Duration: 36000, Rate: 900, InternalRate: 600, BillableDuration: 27000, BillableRate: 750,
	}}
	s := NewService(source)

	stat, err := s.ProjectBudget(context.Background(), models.Project{ID: 3, Budget: 1000, TimeBudget: 36000})
	require.NoError(t, err)

	require.Len(t, source.queries, 1)
	assert.Equal(t, []uint{3}, source.queries[0].ProjectIDs)
	assert.Nil(t, source.queries[0].Begin)

	assert.True(t, stat.HasBudget())
	assert.Equal(t, 75.0, stat.BudgetPercent())
	assert.Equal(t, 250.0, stat.BudgetRemaining())
	assert.Equal(t, 75.0, stat.TimeBudgetPercent())
	assert.Equal(t, int64(9000), stat.TimeBudgetRemaining())
}

func TestMonthlyBudgetRestrictsToCurrentMonth(t *testing.T) {
	source := &stubSource{sums: db.TimesheetSums{BillableRate: 1200}}
	s := NewService(source)
	s.now = func() time.Time { return wednesday }

	stat, err := s.CustomerBudget(context.Background(), models.Customer{ID: 1, Budget: 1000, BudgetType: models.BudgetTypeMonth})
	require.NoError(t, err)

	q := source.queries[0]
	require.NotNil(t, q.Begin)
	require.NotNil(t, q.End)
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), *q.Begin)
	assert.Equal(t, time.Date(2026, time.April, 30, 23, 59, 59, 0, time.UTC), *q.End)
	assert.Equal(t, 120.0, stat.BudgetPercent())
	assert.Equal(t, -200.0, stat.BudgetRemaining())
}

func TestBudgetWithoutLimits(t *testing.T) {
	s := NewService(&stubSource{sums: db.TimesheetSums{BillableRate: 10, BillableDuration: 60}})
	stat, err := s.ActivityBudget(context.Background(), models.Activity{ID: 1})
	require.NoError(t, err)
	assert.False(t, stat.HasBudget())
	assert.False(t, stat.HasTimeBudget())
	assert.Zero(t, stat.BudgetPercent())
	assert.Zero(t, stat.TimeBudgetPercent())
}

func TestWorkingTime(t *testing.T) {
	sick := record(1, 1, time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC), 3600)
	sick.Category = models.CategorySickness
	source := &stubSource{records: []models.Timesheet{
		record(1, 1, time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC), 9*3600),
		record(1, 2, time.Date(2026, time.April, 1, 18, 0, 0, 0, time.UTC), 3600),
		sick,
		record(1, 1, time.Date(2026, time.May, 1, 8, 0, 0, 0, time.UTC), 3600),
	}}
	user := models.User{ID: 7, WorkMonday: 8 * 3600, WorkTuesday: 8 * 3600, WorkWednesday: 8 * 3600,
		WorkThursday: 8 * 3600, WorkFriday: 8 * 3600}

	month, err := NewService(source).WorkingTime(context.Background(), user, 2026, time.April)
	require.NoError(t, err)

	require.Len(t, month.Days, 30)
	first := month.Days[0]
	assert.Equal(t, time.Wednesday, first.Date.Weekday())
	assert.Equal(t, 10*3600, first.Actual)
	assert.Equal(t, 2*3600, first.Overtime())
	assert.Zero(t, month.Days[1].Actual)

	// 22 working days in april 2026
	assert.Equal(t, 22*8*3600, month.Expected)
	assert.Equal(t, 10*3600, month.Actual)
	assert.Equal(t, month.Actual-month.Expected, month.Overtime)
	assert.Equal(t, []uint{7}, source.queries[0].UserIDs)

	_, err = NewService(source).WorkingTime(context.Background(), user, 2026, 13)
	assert.ErrorIs(t, err, db.ErrValidation)
}

func TestWeekGrid(t *testing.T) {
	monday := WeekStart(wednesday)
	assert.Equal(t, time.Date(2026, time.April, 13, 0, 0, 0, 0, time.UTC), monday)
	assert.Equal(t, monday, WeekStart(monday))
	assert.Equal(t, monday, WeekStart(time.Date(2026, time.April, 19, 23, 0, 0, 0, time.UTC)))

	source := &stubSource{records: []models.Timesheet{
		record(2, 2, monday.Add(9*time.Hour), 1800),
		record(1, 1, monday.Add(10*time.Hour), 3600),
		record(1, 1, wednesday, 7200),
		record(1, 1, monday.AddDate(0, 0, 6).Add(20*time.Hour), 600),
		record(1, 1, monday.AddDate(0, 0, 7), 600),
	}}
	grid, err := NewService(source).Week(context.Background(), models.User{ID: 1}, wednesday)
	require.NoError(t, err)

	require.Len(t, grid.Rows, 2)
	assert.Equal(t, "Acme / Shop / Support", grid.Rows[0].Label())
	website := grid.Rows[1]
	assert.Equal(t, [7]int{3600, 0, 7200, 0, 0, 0, 600}, website.Days)
	assert.Equal(t, 11400, website.Total)
	assert.Equal(t, [7]int{5400, 0, 7200, 0, 0, 0, 600}, grid.DayTotals)
	assert.Equal(t, 13200, grid.Total)
}
