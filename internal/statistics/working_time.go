package statistics

import (
	"context"
	"fmt"
	"time"

	"github.com/balkashynov/hourly/internal/db"
	"github.com/balkashynov/hourly/internal/models"
)

// WorkingDay compares the recorded time of one day with the contract.
type WorkingDay struct {
	Date     time.Time `json:"date"`
	Expected int       `json:"expected"`
	Actual   int       `json:"actual"`
}

// Overtime is negative when less than expected was recorded.
func (d WorkingDay) Overtime() int { return d.Actual - d.Expected }

// WorkingMonth is the working time of one user in one month.
type WorkingMonth struct {
	UserID   uint         `json:"user_id"`
	Year     int          `json:"year"`
	Month    time.Month   `json:"month"`
	Days     []WorkingDay `json:"days"`
	Expected int          `json:"expected"`
	Actual   int          `json:"actual"`
	Overtime int          `json:"overtime"`
}

// WorkingTime sums the records of a user per day of the month in the user's timezone.
// Only work category records count as actual working time.
func (s *Service) WorkingTime(ctx context.Context, user models.User, year int, month time.Month) (*WorkingMonth, error) {
	if month < time.January || month > time.December {
		return nil, db.NewValidationError("month", "must be between 1 and 12")
	}
	loc := user.Location()
	begin, end := MonthRange(time.Date(year, month, 1, 0, 0, 0, 0, loc))

	list, err := s.source.FindTimesheets(ctx, db.TimesheetQuery{
		UserIDs:  []uint{user.ID},
		Begin:    &begin,
		End:      &end,
		State:    db.StateStopped,
		Category: models.CategoryWork,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load working time: %w", err)
	}

	result := &WorkingMonth{UserID: user.ID, Year: year, Month: month}
	actual := map[int]int{}
	for _, t := range list {
		actual[t.Begin.In(loc).Day()] += t.Duration
	}
	for day := begin; !day.After(end); day = day.AddDate(0, 0, 1) {
		wd := WorkingDay{
			Date:     day,
			Expected: user.ExpectedSeconds(day.Weekday()),
			Actual:   actual[day.Day()],
		}
		result.Days = append(result.Days, wd)
		result.Expected += wd.Expected
		result.Actual += wd.Actual
	}
	result.Overtime = result.Actual - result.Expected
	return result, nil
}
