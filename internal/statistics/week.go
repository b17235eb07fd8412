package statistics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
)

// WeekRow holds the seconds recorded for one project and activity, Monday first.
type WeekRow struct {
	Customer   string
	Project    string
	Activity   string
	ProjectID  uint
	ActivityID uint
	Days       [7]int
	Total      int
}

// WeekGrid is the weekly report of one user.
type WeekGrid struct {
	Begin     time.Time
	Rows      []WeekRow
	DayTotals [7]int
	Total     int
}

// Label names the row the way the report prints it.
func (r WeekRow) Label() string {
	return fmt.Sprintf("%s / %s / %s", r.Customer, r.Project, r.Activity)
}

// WeekStart returns Monday 00:00 of the week containing t.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

// Week loads the stopped records of the user in the week containing day.
func (s *Service) Week(ctx context.Context, user models.User, day time.Time) (*WeekGrid, error) {
	begin := WeekStart(day.In(user.Location()))
	end := begin.AddDate(0, 0, 7).Add(-time.Second)
	list, err := s.source.FindTimesheets(ctx, db.TimesheetQuery{
		UserIDs: []uint{user.ID},
		Begin:   &begin,
		End:     &end,
		State:   db.StateStopped,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load week: %w", err)
	}
	return BuildWeekGrid(begin, list), nil
}

// BuildWeekGrid groups records starting in the week by project and activity.
func BuildWeekGrid(begin time.Time, list []models.Timesheet) *WeekGrid {
	grid := &WeekGrid{Begin: begin}
	end := begin.AddDate(0, 0, 7)
	index := map[[2]uint]int{}
	for _, t := range list {
		local := t.Begin.In(begin.Location())
		if local.Before(begin) || !local.Before(end) {
			continue
		}
		day := (int(local.Weekday()) + 6) % 7
		key := [2]uint{t.ProjectID, t.ActivityID}
		i, ok := index[key]
		if !ok {
			i = len(grid.Rows)
			index[key] = i
			grid.Rows = append(grid.Rows, WeekRow{
				Customer:   t.Project.Customer.Name,
				Project:    t.Project.Name,
				Activity:   t.Activity.Name,
				ProjectID:  t.ProjectID,
				ActivityID: t.ActivityID,
			})
		}
		grid.Rows[i].Days[day] += t.Duration
		grid.Rows[i].Total += t.Duration
		grid.DayTotals[day] += t.Duration
		grid.Total += t.Duration
	}
	sort.SliceStable(grid.Rows, func(a, b int) bool {
		return grid.Rows[a].Label() < grid.Rows[b].Label()
	})
	return grid
}
