package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/hourly/internal/models"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sampleRecords() []models.Timesheet {
	begin := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	acme := models.Customer{Name: "Acme", Currency: "EUR"}
	return []models.Timesheet{
		{
			ID: 1, Begin: begin, End: &end, Duration: 3600, Description: "Landing page",
			Project:  models.Project{Name: "Website", Customer: acme},
			Activity: models.Activity{Name: "Development"},
			Tags:     []models.Tag{{Name: "frontend"}},
		},
		{
			ID: 2, Begin: begin.Add(2 * time.Hour), Description: "Weekly sync",
			Project:  models.Project{Name: "Internal", Customer: acme},
			Activity: models.Activity{Name: "Meeting"},
		},
	}
}

func TestClockText(t *testing.T) {
	assert.Equal(t, "05:09", clockText(5*time.Minute+9*time.Second))
	assert.Equal(t, "01:02:03", clockText(time.Hour+2*time.Minute+3*time.Second))
}

func TestBigClockHasFiveLines(t *testing.T) {
	assert.Len(t, splitLines(renderBigClock(90*time.Second)), 5)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}

func TestTimerStopAndExit(t *testing.T) {
	record := sampleRecords()[1]

	model := NewTimerModel(record, time.UTC)
	next, cmd := model.Update(key("s"))
	require.NotNil(t, cmd)
	assert.True(t, next.(TimerModel).stopping)

	next, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, next.(TimerModel).exiting)
	assert.False(t, next.(TimerModel).stopping)
}

func TestTimerTickUpdatesElapsed(t *testing.T) {
	record := sampleRecords()[1]
	model := NewTimerModel(record, time.UTC)
	model.now = func() time.Time { return record.Begin.Add(10 * time.Minute) }

	next, cmd := model.Update(timerTickMsg{})
	assert.Equal(t, 10*time.Minute, next.(TimerModel).elapsed)
	assert.NotNil(t, cmd)
}

func TestListSearchFiltersRecords(t *testing.T) {
	model := NewListModel(sampleRecords(), time.UTC, false)
	assert.Len(t, model.visible, 2)

	next, _ := model.Update(key("/"))
	model = next.(ListModel)
	assert.Equal(t, FocusSearch, model.focus)

	for _, r := range "#front" {
		next, _ = model.Update(key(string(r)))
		model = next.(ListModel)
	}
	require.Len(t, model.visible, 1)
	selected, ok := model.Selected()
	require.True(t, ok)
	assert.Equal(t, uint(1), selected.ID)

	next, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = next.(ListModel)
	assert.Equal(t, FocusTable, model.focus)
	assert.Equal(t, "#front", model.searchQuery)

	next, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	model = next.(ListModel)
	assert.Len(t, model.visible, 2)
}

func TestListNavigationAndPaging(t *testing.T) {
	model := NewListModel(sampleRecords(), time.UTC, true)
	next, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 14})
	model = next.(ListModel)
	assert.Equal(t, 3, model.perPage)

	next, _ = model.Update(key("j"))
	model = next.(ListModel)
	selected, _ := model.Selected()
	assert.Equal(t, uint(2), selected.ID)

	next, _ = model.Update(key("j"))
	model = next.(ListModel)
	selected, _ = model.Selected()
	assert.Equal(t, uint(2), selected.ID)

	view := model.View()
	assert.Contains(t, view, "Internal")
	assert.Contains(t, view, "Rate")
}

func TestEntryWizardValidatesSteps(t *testing.T) {
	model := NewEntryModel(EntryDraft{Description: "Review", Tags: []string{"qa"}})
	model.now = func() time.Time { return time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC) }

	next, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = next.(EntryModel)
	assert.Equal(t, StepProject, model.step)

	next, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = next.(EntryModel)
	assert.Equal(t, StepProject, model.step)
	assert.Equal(t, "Project is required", model.validationErr)

	model.inputs[StepProject].SetValue("Website")
	model.inputs[StepActivity].SetValue("Development")
	model.inputs[StepDuration].SetValue("forever")
	assert.NotEmpty(t, model.validate(StepDuration))

	model.inputs[StepDuration].SetValue("1h30m")
	model.inputs[StepBegin].SetValue("14:00")
	for step := StepDescription; step < StepConfirm; step++ {
		assert.Empty(t, model.validate(step), "step %d", step)
	}

	model.step = StepConfirm
	next, cmd := model.Update(key("y"))
	model = next.(EntryModel)
	assert.True(t, model.confirmed)
	assert.NotNil(t, cmd)

	draft := model.Draft()
	assert.Equal(t, EntryDraft{
		Description: "Review",
		Project:     "Website",
		Activity:    "Development",
		Tags:        []string{"qa"},
		Duration:    "1h30m",
		Date:        "today",
		Begin:       "14:00",
	}, draft)
}

func TestRecordDetails(t *testing.T) {
	records := sampleRecords()
	rows := recordDetails(records[0], time.UTC)
	assert.Equal(t, "Acme", rows[0].value)
	assert.Equal(t, "#frontend", rows[3].value)
	assert.Equal(t, "End", rows[len(rows)-1].label)

	rows = recordDetails(records[1], time.UTC)
	assert.Equal(t, "none", rows[3].value)
	assert.Equal(t, "running", rows[len(rows)-1].value)
}
