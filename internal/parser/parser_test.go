package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDescription(t *testing.T) {
	p := ParseDescription("Fix login #bug,auth @web_site +development ~1h30m #Bug mail me@example.com")
	require.True(t, p.Valid(), p.Errors)
	assert.Equal(t, "Fix login mail me@example.com", p.Description)
	assert.Equal(t, []string{"bug", "auth"}, p.Tags)
	assert.Equal(t, "web site", p.Project)
	assert.Equal(t, "development", p.Activity)
	assert.Equal(t, 5400, p.Duration)
}

func TestParseDescriptionErrors(t *testing.T) {
	p := ParseDescription("meeting @one @two ~forever")
	assert.False(t, p.Valid())
	assert.Len(t, p.Errors, 2)
	assert.Equal(t, "one", p.Project)
	assert.Equal(t, "meeting", p.Description)
}

func TestParseDuration(t *testing.T) {
	cases := map[string]int{
		"1h30m":     5400,
		"90m":       5400,
		"90 min":    5400,
		"1.5h":      5400,
		"1,5h":      5400,
		"1:30":      5400,
		"0:45":      2700,
		"2":         7200,
		"2 hours":   7200,
		"1h 5m 30s": 3930,
	}
	for input, want := range cases {
		got, err := ParseDuration(input)
		if assert.NoError(t, err, input) {
			assert.Equal(t, want, got, input)
		}
	}

	for _, input := range []string{"", "abc", "0m", "25h", "1h foo", "-1h"} {
		_, err := ParseDuration(input)
		assert.Error(t, err, input)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1h 30m", FormatDuration(5400))
	assert.Equal(t, "2h", FormatDuration(7200))
	assert.Equal(t, "45m", FormatDuration(2700))
	assert.Equal(t, "20s", FormatDuration(20))
	assert.Equal(t, "1:30", FormatClock(5400))
	assert.Equal(t, "-0:15", FormatClock(-900))
}

func TestParseDate(t *testing.T) {
	// wednesday
	now := time.Date(2026, time.March, 4, 15, 20, 0, 0, time.UTC)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	cases := map[string]time.Time{
		"today":      day(2026, time.March, 4),
		"yesterday":  day(2026, time.March, 3),
		"2026-02-28": day(2026, time.February, 28),
		"01/03/2026": day(2026, time.March, 1),
		"3 days ago": day(2026, time.March, 1),
		"1 week ago": day(2026, time.February, 25),
		"monday":     day(2026, time.March, 2),
		"wed":        day(2026, time.March, 4),
		"thursday":   day(2026, time.February, 26),
	}
	for input, want := range cases {
		got, err := ParseDate(input, now)
		if assert.NoError(t, err, input) {
			assert.True(t, want.Equal(got), "%s: got %s", input, got)
		}
	}

	for _, input := range []string{"31/02/2026", "2026-13-01", "someday", "500 days ago"} {
		_, err := ParseDate(input, now)
		assert.Error(t, err, input)
	}
}

func TestParseDateTime(t *testing.T) {
	now := time.Date(2026, time.March, 4, 15, 20, 0, 0, time.UTC)

	got, err := ParseDateTime("09:15", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 4, 9, 15, 0, 0, time.UTC), got)

	got, err = ParseDateTime("yesterday 17:45", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 3, 17, 45, 0, 0, time.UTC), got)

	_, err = ParseDateTime("today 25:00", now)
	assert.Error(t, err)
}

func TestFormatSince(t *testing.T) {
	now := time.Date(2026, time.March, 4, 15, 20, 0, 0, time.UTC)
	assert.Equal(t, "since 13:50 (1h 30m)", FormatSince(now.Add(-90*time.Minute), now))
	assert.Equal(t, "since yesterday 23:00 (16h 20m)", FormatSince(time.Date(2026, time.March, 3, 23, 0, 0, 0, time.UTC), now))
}
