package db

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/hourly/internal/config"
	"github.com/balkashynov/hourly/internal/events"
	"github.com/balkashynov/hourly/internal/models"
)

func TestStartAndStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ts := f.start(t, testNow)
	assert.True(t, ts.IsRunning())
	assert.True(t, ts.Billable)
	assert.Equal(t, models.CategoryWork, ts.Category)
	assert.Equal(t, "Acme", ts.Project.Customer.Name)

	stopped, err := f.store.Stop(ctx, ts.ID, testNow.Add(90*time.Minute))
	require.NoError(t, err)
	assert.False(t, stopped.IsRunning())
	assert.Equal(t, 5400, stopped.Duration)
	assert.Equal(t, 120.0, stopped.Rate)
	require.NotNil(t, stopped.HourlyRate)
	assert.Equal(t, 80.0, *stopped.HourlyRate)

	_, err = f.store.Stop(ctx, ts.ID, testNow.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, []string{events.TimesheetStarted, events.TimesheetStopped}, f.events.Names())
}

func TestStartEnforcesHardLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.start(t, testNow)
	f.clock.Set(testNow.Add(30 * time.Minute))
	second := f.start(t, testNow.Add(30*time.Minute))

	active, err := f.store.Active(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	reloaded, err := f.store.GetTimesheet(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsRunning())
	assert.Equal(t, 1800, reloaded.Duration)
}

func TestStartWithHigherHardLimitKeepsRecordsRunning(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Timesheet.ActiveEntries.HardLimit = 2 })
	ctx := context.Background()

	f.start(t, testNow)
	f.start(t, testNow.Add(time.Minute))
	active, err := f.store.Active(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	f.start(t, testNow.Add(2*time.Minute))
	active, err = f.store.Active(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestStopAppliesRounding(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Timesheet.Rounding = []config.RoundingRule{{Name: "quarter", Begin: 15, End: 15, Duration: 15, Mode: "default"}}
	})
	ctx := context.Background()

	begin := testNow.Add(7 * time.Minute)
	ts := f.start(t, begin)
	stopped, err := f.store.Stop(ctx, ts.ID, testNow.Add(52*time.Minute))
	require.NoError(t, err)

	assert.True(t, testNow.Equal(stopped.Begin))
	assert.True(t, testNow.Add(time.Hour).Equal(*stopped.End))
	assert.Equal(t, 3600, stopped.Duration)
}

func TestWeekdayRulesUseUserTimezone(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Timesheet.Rates = []config.RateFactor{{Name: "monday", Days: []string{"monday"}, Factor: 2}}
		c.Timesheet.Rounding = []config.RoundingRule{{Name: "monday", Days: []string{"monday"}, Begin: 60, Mode: "floor"}}
	})
	ctx := context.Background()

	kiwi, err := f.store.CreateUser(ctx, CreateUserRequest{
		Username:   "aroha",
		Email:      "aroha@example.com",
		Password:   "secret-password",
		HourlyRate: 80,
		Timezone:   "Pacific/Auckland",
	})
	require.NoError(t, err)

	// sunday 20:10 UTC is monday 09:10 in Auckland
	begin := time.Date(2026, time.January, 4, 20, 10, 0, 0, time.UTC)
	f.clock.Set(begin)
	ts, err := f.store.Start(ctx, StartRequest{UserID: kiwi.ID, ProjectID: f.project.ID, ActivityID: f.activity.ID, Begin: &begin})
	require.NoError(t, err)

	stopped, err := f.store.Stop(ctx, ts.ID, time.Date(2026, time.January, 4, 21, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, time.Date(2026, time.January, 4, 20, 0, 0, 0, time.UTC).Equal(stopped.Begin))
	assert.Equal(t, 3600, stopped.Duration)
	assert.Equal(t, 160.0, stopped.Rate)

	// the same instant is still sunday for a UTC user
	utc := f.start(t, begin)
	stopped, err = f.store.Stop(ctx, utc.ID, time.Date(2026, time.January, 4, 21, 10, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3600, stopped.Duration)
	assert.Equal(t, 80.0, stopped.Rate)
}

func TestCreateTimesheetValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	end := testNow.Add(-time.Hour)
	_, err := f.store.CreateTimesheet(ctx, CreateTimesheetRequest{
		UserID: f.user.ID, ProjectID: f.project.ID, ActivityID: f.activity.ID,
		Begin: testNow, End: &end,
	})
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "end", verr.Violations[0].Field)

	_, err = f.store.CreateTimesheet(ctx, CreateTimesheetRequest{
		UserID: f.user.ID, ProjectID: f.project.ID, ActivityID: f.activity.ID, Begin: testNow,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.store.CreateTimesheet(ctx, CreateTimesheetRequest{
		UserID: f.user.ID, ProjectID: f.project.ID, ActivityID: 999, Begin: testNow, Duration: 60,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateTimesheetRejectsForeignProjectActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &models.Project{CustomerID: f.customer.ID, Name: "Other", Visible: true}
	require.NoError(t, f.store.CreateProject(ctx, other))
	activity := &models.Activity{ProjectID: &other.ID, Name: "Design", Visible: true}
	require.NoError(t, f.store.CreateActivity(ctx, activity))

	_, err := f.store.CreateTimesheet(ctx, CreateTimesheetRequest{
		UserID: f.user.ID, ProjectID: f.project.ID, ActivityID: activity.ID, Begin: testNow, Duration: 600,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateTimesheetWithTagsAndConfiguredRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.AddRate(ctx, &models.Rate{Kind: models.OwnerProject, OwnerID: f.project.ID, Rate: 120}))

	ts, err := f.store.CreateTimesheet(ctx, CreateTimesheetRequest{
		UserID: f.user.ID, ProjectID: f.project.ID, ActivityID: f.activity.ID,
		Begin: testNow, Duration: 1800, Description: " planning ", Tags: []string{"#meeting", "client", "meeting"},
	})
	require.NoError(t, err)
	assert.Equal(t, "planning", ts.Description)
	assert.Equal(t, 60.0, ts.Rate)
	assert.ElementsMatch(t, []string{"meeting", "client"}, ts.TagNames())
}

func TestNonWorkCategoryIsNotBillable(t *testing.T) {
	f := newFixture(t)
	ts, err := f.store.CreateTimesheet(context.Background(), CreateTimesheetRequest{
		UserID: f.user.ID, ProjectID: f.project.ID, ActivityID: f.activity.ID,
		Begin: testNow, Duration: 3600, Category: models.CategoryHoliday,
	})
	require.NoError(t, err)
	assert.False(t, ts.Billable)
}

func TestUpdateRecalculatesFinishedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ts, err := f.store.CreateTimesheet(ctx, CreateTimesheetRequest{
		UserID: f.user.ID, ProjectID: f.project.ID, ActivityID: f.activity.ID, Begin: testNow, Duration: 3600,
	})
	require.NoError(t, err)

	duration := 7200
	description := "updated"
	updated, err := f.store.UpdateTimesheet(ctx, ts.ID, UpdateTimesheetRequest{
		Duration:    &duration,
		Description: &description,
		Tags:        []string{"review"},
	})
	require.NoError(t, err)
	assert.Equal(t, 7200, updated.Duration)
	assert.Equal(t, 160.0, updated.Rate)
	assert.Equal(t, "updated", updated.Description)
	assert.Equal(t, []string{"review"}, updated.TagNames())
	assert.Contains(t, f.events.Names(), events.TimesheetUpdated)
}

func TestRunningCountFollowsEditsAndDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.start(t, testNow)
	n, err := f.store.CountRunning(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	end := testNow.Add(time.Hour)
	_, err = f.store.UpdateTimesheet(ctx, first.ID, UpdateTimesheetRequest{End: &end})
	require.NoError(t, err)
	assert.Equal(t, []string{events.TimesheetStarted, events.TimesheetStopped, events.TimesheetUpdated}, f.events.Names())

	second := f.start(t, end)
	require.NoError(t, f.store.DeleteTimesheet(ctx, second.ID))
	n, err = f.store.CountRunning(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRestartDuplicateToggleAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ts, err := f.store.CreateTimesheet(ctx, CreateTimesheetRequest{
		UserID: f.user.ID, ProjectID: f.project.ID, ActivityID: f.activity.ID,
		Begin: testNow, Duration: 3600, Description: "support", Tags: []string{"ops"},
	})
	require.NoError(t, err)

	copied, err := f.store.Duplicate(ctx, ts.ID)
	require.NoError(t, err)
	assert.NotEqual(t, ts.ID, copied.ID)
	assert.True(t, ts.Begin.Equal(copied.Begin))
	assert.Equal(t, ts.Rate, copied.Rate)
	assert.Equal(t, []string{"ops"}, copied.TagNames())

	restarted, err := f.store.Restart(ctx, ts.ID, f.user.ID, testNow.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, restarted.IsRunning())
	assert.Equal(t, "support", restarted.Description)

	_, err = f.store.Duplicate(ctx, restarted.ID)
	assert.ErrorIs(t, err, ErrValidation)

	toggled, err := f.store.ToggleExported(ctx, ts.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Exported)

	require.NoError(t, f.store.DeleteTimesheet(ctx, ts.ID))
	_, err = f.store.GetTimesheet(ctx, ts.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecentReturnsDistinctCombinations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second := &models.Activity{Name: "Testing", Visible: true}
	require.NoError(t, f.store.CreateActivity(ctx, second))

	for i, activityID := range []uint{f.activity.ID, second.ID, f.activity.ID} {
		_, err := f.store.CreateTimesheet(ctx, CreateTimesheetRequest{
			UserID: f.user.ID, ProjectID: f.project.ID, ActivityID: activityID,
			Begin: testNow.Add(time.Duration(i) * time.Hour), Duration: 600,
		})
		require.NoError(t, err)
	}

	recent, err := f.store.Recent(ctx, f.user.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, f.activity.ID, recent[0].ActivityID)
	assert.Equal(t, second.ID, recent[1].ActivityID)
}

func TestListAndSumTimesheets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		billable := i != 2
		_, err := f.store.CreateTimesheet(ctx, CreateTimesheetRequest{
			UserID: f.user.ID, ProjectID: f.project.ID, ActivityID: f.activity.ID,
			Begin: testNow.Add(time.Duration(i) * 24 * time.Hour), Duration: 3600, Billable: &billable,
			Tags: []string{"day"},
		})
		require.NoError(t, err)
	}

	page, err := f.store.ListTimesheets(ctx, TimesheetQuery{BaseQuery: BaseQuery{PageSize: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.TotalPages())
	assert.True(t, page.Items[0].Begin.After(page.Items[1].Begin))

	from := testNow.Add(12 * time.Hour)
	found, err := f.store.FindTimesheets(ctx, TimesheetQuery{Begin: &from, Tags: []string{"day"}})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	none, err := f.store.FindTimesheets(ctx, TimesheetQuery{UserIDs: []uint{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	sums, err := f.store.SumTimesheets(ctx, TimesheetQuery{ProjectIDs: []uint{f.project.ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), sums.Count)
	assert.Equal(t, int64(10800), sums.Duration)
	assert.Equal(t, int64(7200), sums.BillableDuration)
	assert.InDelta(t, 240.0, sums.Rate, 0.001)
	assert.InDelta(t, 160.0, sums.BillableRate, 0.001)
}
