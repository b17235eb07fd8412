package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/hourly/internal/models"
	"github.com/balkashynov/hourly/internal/parser"
)

// TimerModel shows a running record with a big clock.
type TimerModel struct {
	width  int
	height int

	record models.Timesheet
	loc    *time.Location
	now    func() time.Time

	elapsed        time.Duration
	timerAnimation int

	stopping bool // s pressed, record gets stopped after the program exits
	exiting  bool // leave the record running
}

type timerTickMsg struct{}

type animationTickMsg struct{}

// NewTimerModel creates a timer for a running record.
func NewTimerModel(record models.Timesheet, loc *time.Location) TimerModel {
	if loc == nil {
		loc = time.Local
	}
	m := TimerModel{record: record, loc: loc, now: time.Now}
	m.elapsed = record.DurationAt(m.now())
	return m
}

func (m TimerModel) Init() tea.Cmd {
	return tea.Batch(timerTick(), animationTick())
}

func timerTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return timerTickMsg{} })
}

func animationTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg { return animationTickMsg{} })
}

func (m TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	done := m.stopping || m.exiting
	switch msg := msg.(type) {
	case timerTickMsg:
		m.elapsed = m.record.DurationAt(m.now())
		if done {
			return m, nil
		}
		return m, timerTick()

	case animationTickMsg:
		m.timerAnimation = (m.timerAnimation + 1) % 4
		if done {
			return m, nil
		}
		return m, animationTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "s", "S":
			m.stopping = true
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			m.exiting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m TimerModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	helpBar := m.renderHelpBar()
	contentHeight := m.height - 2

	if m.width < 90 {
		return lipgloss.JoinVertical(lipgloss.Left, m.renderTimerPanel(m.width, contentHeight), helpBar)
	}

	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth - 2
	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTimerPanel(leftWidth, contentHeight),
		"  ",
		m.renderDetailsPanel(rightWidth),
	)
	return lipgloss.JoinVertical(lipgloss.Left, content, helpBar)
}

func (m TimerModel) renderTimerPanel(width, height int) string {
	var components []string
	center := lipgloss.NewStyle().Align(lipgloss.Center).Width(width)

	animChars := []string{"⏱", "⏲", "⏱", "⏲"}
	anim := animChars[m.timerAnimation]
	components = append(components, center.Foreground(lipgloss.Color(ColorAccentBright)).Bold(true).
		Render(fmt.Sprintf("%s  TRACKING TIME  %s", anim, anim)))

	components = append(components, center.Foreground(lipgloss.Color(ColorAccentMain)).Bold(true).
		Render(fmt.Sprintf("#%d %s", m.record.ID, m.record.Project.Name)))

	title := m.record.Description
	if title == "" {
		title = m.record.Activity.Name
	}
	components = append(components, center.Foreground(lipgloss.Color(ColorPrimaryText)).Bold(true).
		Render(truncate(title, width-4)))

	var clock []string
	for _, line := range strings.Split(renderBigClock(m.elapsed), "\n") {
		clock = append(clock, center.Render(line))
	}
	components = append(components, strings.Join(clock, "\n"))

	components = append(components, center.Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true).
		Render(parser.FormatSince(m.record.Begin.In(m.loc), m.now().In(m.loc))))

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(strings.Join(components, "\n\n"))
}

var clockDigits = map[rune][5]string{
	'0': {" ███ ", "█   █", "█   █", "█   █", " ███ "},
	'1': {"  █  ", " ██  ", "  █  ", "  █  ", "█████"},
	'2': {" ███ ", "█   █", "   █ ", "  █  ", "█████"},
	'3': {" ███ ", "█   █", "  ██ ", "█   █", " ███ "},
	'4': {"█   █", "█   █", "█████", "    █", "    █"},
	'5': {"█████", "█    ", "████ ", "    █", "████ "},
	'6': {" ███ ", "█    ", "████ ", "█   █", " ███ "},
	'7': {"█████", "    █", "   █ ", "  █  ", " █   "},
	'8': {" ███ ", "█   █", " ███ ", "█   █", " ███ "},
	'9': {" ███ ", "█   █", " ████", "    █", " ███ "},
	':': {"     ", "  █  ", "     ", "  █  ", "     "},
}

// clockText is hh:mm:ss, or mm:ss below one hour.
func clockText(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func renderBigClock(d time.Duration) string {
	var lines [5]strings.Builder
	for _, char := range clockText(d) {
		art, ok := clockDigits[char]
		if !ok {
			continue
		}
		for i := range lines {
			lines[i].WriteString(art[i])
			lines[i].WriteString(" ")
		}
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Bold(true)
	rendered := make([]string, len(lines))
	for i := range lines {
		rendered[i] = style.Render(lines[i].String())
	}
	return strings.Join(rendered, "\n")
}

func (m TimerModel) renderDetailsPanel(width int) string {
	var b strings.Builder
	center := lipgloss.NewStyle().Align(lipgloss.Center).Width(width - 8)

	b.WriteString("\n")
	b.WriteString(center.Foreground(lipgloss.Color(ColorAccentMain)).Bold(true).Render(Logo))
	b.WriteString("\n\n")
	b.WriteString(center.Foreground(lipgloss.Color(ColorBorder)).Render(strings.Repeat("─", min(width-12, 40))))
	b.WriteString("\n\n")

	description := m.record.Description
	if description == "" {
		description = "no description"
	}
	b.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentMain)).
		Width(width-12).
		Padding(0, 1).
		Render(description))
	b.WriteString("\n\n")

	for _, row := range recordDetails(m.record, m.loc) {
		b.WriteString(center.Render(fmt.Sprintf("%s %s: %s", row.icon, row.label, row.render())))
		b.WriteString("\n")
	}
	return b.String()
}

func (m TimerModel) renderHelpBar() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width).
		Render("s stop & save · esc/q exit (keep running) · ctrl+c force quit")
}

// RunTimerTUI shows the timer for a running record. Pressing s calls stop.
func RunTimerTUI(record models.Timesheet, loc *time.Location, stop func() (*models.Timesheet, error)) error {
	p := tea.NewProgram(NewTimerModel(record, loc), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}

	timer := final.(TimerModel)
	switch {
	case timer.stopping:
		stopped, err := stop()
		if err != nil {
			return fmt.Errorf("failed to stop record #%d: %w", record.ID, err)
		}
		fmt.Printf("⏹️  Stopped record #%d: %s / %s\n", stopped.ID, stopped.Project.Name, stopped.Activity.Name)
		fmt.Printf("📊 Duration: %s\n", parser.FormatDuration(stopped.Duration))
	case timer.exiting:
		fmt.Printf("\n💡 Record #%d is still running for %s / %s\n", record.ID, record.Project.Name, record.Activity.Name)
		fmt.Println("   Use 'hourly status' to check it or 'hourly stop' to stop it.")
	}
	return nil
}
