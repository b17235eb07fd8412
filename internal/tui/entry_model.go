package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/hourly/internal/parser"
)

// Step is the current field of the entry wizard.
type Step int

const (
	StepDescription Step = iota
	StepProject
	StepActivity
	StepTags
	StepDuration
	StepDate
	StepBegin
	StepConfirm
)

var stepLabels = []string{"Description", "Project", "Activity", "Tags", "Duration", "Date", "Begin"}

// EntryDraft holds the raw wizard input. Durations and dates stay text and are
// parsed by the caller the same way as command line flags.
type EntryDraft struct {
	Description string
	Project     string
	Activity    string
	Tags        []string
	Duration    string
	Date        string
	Begin       string
}

// EntryModel is a step by step form for logging a finished record.
type EntryModel struct {
	step   Step
	inputs []textinput.Model
	width  int
	height int
	now    func() time.Time

	validationErr string
	confirmed     bool
	cancelled     bool
}

// NewEntryModel creates the wizard with prefilled values.
func NewEntryModel(draft EntryDraft) EntryModel {
	placeholders := []string{
		"What did you work on?",
		"Project name (required)",
		"Activity name (required)",
		"Comma separated tags (Enter to skip)",
		"1h30m, 90m, 1.5h or 1:30 (required)",
		"today, yesterday, yyyy-mm-dd, monday",
		"hh:mm (Enter for the default)",
	}
	values := []string{
		draft.Description, draft.Project, draft.Activity, strings.Join(draft.Tags, ","),
		draft.Duration, draft.Date, draft.Begin,
	}

	inputs := make([]textinput.Model, len(placeholders))
	for i := range inputs {
		in := textinput.New()
		in.Width = 60
		in.CharLimit = 200
		in.Placeholder = placeholders[i]
		in.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
		in.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPlaceholder))
		in.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))
		in.SetValue(values[i])
		inputs[i] = in
	}
	if inputs[StepDate].Value() == "" {
		inputs[StepDate].SetValue("today")
	}
	inputs[StepDescription].Focus()

	return EntryModel{inputs: inputs, now: time.Now}
}

func (m EntryModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m EntryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleEnter()
		case tea.KeyShiftTab, tea.KeyUp:
			return m.moveTo(m.step - 1)
		case tea.KeyTab, tea.KeyDown:
			if m.step == StepConfirm {
				return m, nil
			}
			if err := m.validate(m.step); err != "" {
				m.validationErr = err
				return m, nil
			}
			return m.moveTo(m.step + 1)
		}
		if m.step == StepConfirm {
			switch msg.String() {
			case "y", "Y":
				return m.handleEnter()
			case "n", "N", "q":
				m.cancelled = true
				return m, tea.Quit
			}
			return m, nil
		}
	}

	if m.step == StepConfirm {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.step], cmd = m.inputs[m.step].Update(msg)
	m.validationErr = ""
	return m, cmd
}

func (m EntryModel) handleEnter() (tea.Model, tea.Cmd) {
	if m.step == StepConfirm {
		for step := StepDescription; step < StepConfirm; step++ {
			if err := m.validate(step); err != "" {
				m.validationErr = err
				next, cmd := m.moveTo(step)
				return next, cmd
			}
		}
		m.confirmed = true
		return m, tea.Quit
	}
	if err := m.validate(m.step); err != "" {
		m.validationErr = err
		return m, nil
	}
	return m.moveTo(m.step + 1)
}

func (m EntryModel) moveTo(step Step) (EntryModel, tea.Cmd) {
	if step < StepDescription || step > StepConfirm {
		return m, nil
	}
	if m.step < StepConfirm {
		m.inputs[m.step].Blur()
	}
	m.step = step
	if step == StepConfirm {
		return m, nil
	}
	m.validationErr = ""
	return m, m.inputs[step].Focus()
}

// validate returns a message for an invalid field.
func (m EntryModel) validate(step Step) string {
	value := strings.TrimSpace(m.inputs[step].Value())
	switch step {
	case StepProject, StepActivity:
		if value == "" {
			return stepLabels[step] + " is required"
		}
	case StepDuration:
		if _, err := parser.ParseDuration(value); err != nil {
			return err.Error()
		}
	case StepDate:
		if _, err := parser.ParseDate(value, m.now()); err != nil {
			return err.Error()
		}
	case StepBegin:
		if value == "" {
			return ""
		}
		if _, err := parser.ParseClock(value, m.now()); err != nil {
			return err.Error()
		}
	}
	return ""
}

// Draft returns the current input.
func (m EntryModel) Draft() EntryDraft {
	value := func(s Step) string { return strings.TrimSpace(m.inputs[s].Value()) }
	var tags []string
	for _, tag := range strings.Split(value(StepTags), ",") {
		if tag = strings.TrimPrefix(strings.TrimSpace(tag), "#"); tag != "" {
			tags = append(tags, tag)
		}
	}
	return EntryDraft{
		Description: value(StepDescription),
		Project:     value(StepProject),
		Activity:    value(StepActivity),
		Tags:        tags,
		Duration:    value(StepDuration),
		Date:        value(StepDate),
		Begin:       value(StepBegin),
	}
}

func (m EntryModel) View() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentMain)).Bold(true).Render("⏱️  Log time"))
	b.WriteString("\n\n")

	label := lipgloss.NewStyle().Width(13)
	for i, in := range m.inputs {
		step := Step(i)
		style := label.Foreground(lipgloss.Color(ColorSecondaryText))
		marker := "  "
		if step == m.step {
			style = label.Foreground(lipgloss.Color(ColorAccentBright)).Bold(true)
			marker = "▸ "
		} else if step < m.step {
			marker = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Render("✓ ")
		}
		b.WriteString(marker + style.Render(stepLabels[i]) + in.View() + "\n")
	}

	if m.step == StepConfirm {
		draft := m.Draft()
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorAccentMain)).
			Padding(0, 1).
			Render(fmt.Sprintf("%s / %s, %s on %s\nSave this record? (y/n)", draft.Project, draft.Activity, draft.Duration, draft.Date)))
		b.WriteString("\n")
	}

	if m.validationErr != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render("⚠️  "+m.validationErr) + "\n")
	}

	b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText)).Italic(true).
		Render("enter next · tab/shift+tab move · esc cancel"))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// RunEntryTUI asks for a record interactively. ok is false when the user cancelled.
func RunEntryTUI(draft EntryDraft) (EntryDraft, bool, error) {
	final, err := tea.NewProgram(NewEntryModel(draft)).Run()
	if err != nil {
		return draft, false, err
	}
	m := final.(EntryModel)
	if !m.confirmed {
		return draft, false, nil
	}
	return m.Draft(), true, nil
}
