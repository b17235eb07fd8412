package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	slashDate   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	isoDate     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	relativeAgo = regexp.MustCompile(`^(\d+)\s*(day|days|week|weeks)\s+ago$`)
	clockTime   = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)
)

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

// ParseDate resolves a day relative to now. Supported formats:
//   - today, yesterday
//   - yyyy-mm-dd and dd/mm/yyyy
//   - "3 days ago", "1 week ago"
//   - a weekday name, meaning its last occurrence up to today
//
// The result is midnight of that day in now's location.
func ParseDate(input string, now time.Time) (time.Time, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch input {
	case "", "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if m := isoDate.FindStringSubmatch(input); m != nil {
		return buildDate(m[1], m[2], m[3], now.Location())
	}
	if m := slashDate.FindStringSubmatch(input); m != nil {
		return buildDate(m[3], m[2], m[1], now.Location())
	}
	if m := relativeAgo.FindStringSubmatch(input); m != nil {
		amount, _ := strconv.Atoi(m[1])
		if strings.HasPrefix(m[2], "week") {
			amount *= 7
		}
		if amount > 366 {
			return time.Time{}, fmt.Errorf("cannot go back more than a year")
		}
		return today.AddDate(0, 0, -amount), nil
	}
	if wd, ok := weekdays[input]; ok {
		back := (int(today.Weekday()) - int(wd) + 7) % 7
		return today.AddDate(0, 0, -back), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q. Use: today, yesterday, yyyy-mm-dd, dd/mm/yyyy, X days ago or a weekday", input)
}

func buildDate(y, m, d string, loc *time.Location) (time.Time, error) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return time.Time{}, fmt.Errorf("year must be between 2000 and 2100")
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes 31/02 into March
	if date.Day() != day || date.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("invalid date")
	}
	return date, nil
}

// ParseClock sets the hh:mm wall clock on day.
func ParseClock(input string, day time.Time) (time.Time, error) {
	m := clockTime.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid time %q. Use hh:mm", input)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return time.Date(day.Year(), day.Month(), day.Day(), h, min, 0, 0, day.Location()), nil
}

// ParseDateTime accepts "yyyy-mm-dd hh:mm", a bare "hh:mm" for today or any ParseDate format.
func ParseDateTime(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if clockTime.MatchString(input) {
		return ParseClock(input, now)
	}
	if i := strings.LastIndex(input, " "); i > 0 && clockTime.MatchString(input[i+1:]) {
		day, err := ParseDate(input[:i], now)
		if err != nil {
			return time.Time{}, err
		}
		return ParseClock(input[i+1:], day)
	}
	return ParseDate(input, now)
}

// FormatSince describes how long ago begin was, for status lines.
func FormatSince(begin, now time.Time) string {
	elapsed := int(now.Sub(begin).Seconds())
	day := func(t time.Time) time.Time { return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()) }
	days := int(day(now).Sub(day(begin)).Hours() / 24)

	switch {
	case days == 0:
		return fmt.Sprintf("since %s (%s)", begin.Format("15:04"), FormatDuration(elapsed))
	case days == 1:
		return fmt.Sprintf("since yesterday %s (%s)", begin.Format("15:04"), FormatDuration(elapsed))
	}
	return fmt.Sprintf("since %s (%d days ago)", begin.Format("02/01/2006 15:04"), days)
}
