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

// ListModel browses time records.
type ListModel struct {
	width  int
	height int

	records   []models.Timesheet
	visible   []int // indexes into records matching the search
	selected  int   // index into visible
	loc       *time.Location
	showRates bool
	now       func() time.Time

	focus       Focus
	searchQuery string
	shimmer     *shimmer

	currentPage int
	perPage     int
}

// Focus represents what UI element has focus
type Focus int

const (
	FocusTable Focus = iota
	FocusSearch
)

// NewListModel creates a list over the records. Rates are only shown when showRates is set.
func NewListModel(records []models.Timesheet, loc *time.Location, showRates bool) ListModel {
	if loc == nil {
		loc = time.Local
	}
	m := ListModel{
		records:   records,
		loc:       loc,
		showRates: showRates,
		now:       time.Now,
		shimmer:   newShimmer(),
		perPage:   10,
	}
	m.applyFilter()
	return m
}

func (m ListModel) Init() tea.Cmd {
	return m.shimmer.next()
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case shimmerTickMsg:
		m.shimmer.advance()
		if m.focus == FocusTable {
			return m, m.shimmer.next()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.perPage = max(m.height-12, 3)
		m.currentPage = m.selected / m.perPage
		return m, nil

	case tea.KeyMsg:
		if m.focus == FocusSearch {
			return m.handleSearchKeys(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.searchQuery != "" {
				m.searchQuery = ""
				m.applyFilter()
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			return m.moveSelection(-1), nil
		case "down", "j":
			return m.moveSelection(1), nil
		case "left", "h":
			return m.changePage(-1), nil
		case "right", "l":
			return m.changePage(1), nil
		case "/":
			m.focus = FocusSearch
			m.shimmer.setActive(false)
			return m, nil
		}
	}
	return m, nil
}

func (m ListModel) handleSearchKeys(msg tea.KeyMsg) (ListModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searchQuery = ""
		m.applyFilter()
		fallthrough
	case tea.KeyEnter:
		m.focus = FocusTable
		m.shimmer.setActive(true)
		return m, m.shimmer.next()
	case tea.KeyBackspace:
		if r := []rune(m.searchQuery); len(r) > 0 {
			m.searchQuery = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.searchQuery += string(msg.Runes)
	default:
		return m, nil
	}
	m.applyFilter()
	return m, nil
}

// applyFilter rebuilds the visible rows and resets the selection.
func (m *ListModel) applyFilter() {
	m.visible = m.visible[:0]
	query := strings.ToLower(strings.TrimSpace(m.searchQuery))
	for i, record := range m.records {
		if query == "" || strings.Contains(searchText(record), query) {
			m.visible = append(m.visible, i)
		}
	}
	m.selected = 0
	m.currentPage = 0
	m.shimmer.reset()
}

func searchText(t models.Timesheet) string {
	parts := []string{t.Description, t.Project.Name, t.Project.Customer.Name, t.Activity.Name, t.User.DisplayName()}
	for _, tag := range t.TagNames() {
		parts = append(parts, "#"+tag)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func (m ListModel) totalPages() int {
	return max((len(m.visible)+m.perPage-1)/m.perPage, 1)
}

func (m ListModel) moveSelection(delta int) ListModel {
	next := m.selected + delta
	if next < 0 || next >= len(m.visible) {
		return m
	}
	m.selected = next
	m.currentPage = next / m.perPage
	m.shimmer.reset()
	return m
}

func (m ListModel) changePage(delta int) ListModel {
	page := m.currentPage + delta
	if page < 0 || page >= m.totalPages() {
		return m
	}
	m.currentPage = page
	m.selected = min(page*m.perPage, max(len(m.visible)-1, 0))
	m.shimmer.reset()
	return m
}

// Selected returns the highlighted record.
func (m ListModel) Selected() (models.Timesheet, bool) {
	if len(m.visible) == 0 {
		return models.Timesheet{}, false
	}
	return m.records[m.visible[m.selected]], true
}

func (m ListModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	leftWidth := m.width * 60 / 100
	rightWidth := m.width - leftWidth - 1

	content := lipgloss.JoinHorizontal(lipgloss.Top, m.renderTable(leftWidth), " ", m.renderDetails(rightWidth))

	bar := m.renderHelpBar()
	if m.focus == FocusSearch {
		bar = m.renderSearchBar()
	}
	return lipgloss.JoinVertical(lipgloss.Left, "", content, "", bar)
}

func (m ListModel) renderTable(width int) string {
	var b strings.Builder
	accent := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright))

	title := "📋 Records"
	if m.searchQuery != "" {
		title = fmt.Sprintf("📋 Records matching %q", m.searchQuery)
	}
	b.WriteString(accent.Render(title))
	b.WriteString("\n\n")

	if len(m.visible) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true).Render("No records found"))
		return m.frame(width, b.String())
	}

	const dateWidth, durationWidth = 11, 8
	projectWidth := max((width-4-dateWidth-durationWidth-4)/2, 10)
	descWidth := max(width-4-dateWidth-durationWidth-projectWidth-4, 10)

	b.WriteString(accent.Padding(0, 1).Render(fmt.Sprintf("%-*s %-*s %-*s %*s",
		dateWidth, "DATE", projectWidth, "PROJECT", descWidth, "DESCRIPTION", durationWidth, "TIME")))
	b.WriteString("\n\n")

	now := m.now()
	start := m.currentPage * m.perPage
	end := min(start+m.perPage, len(m.visible))
	for i := start; i < end; i++ {
		record := m.records[m.visible[i]]
		desc := truncate(record.Description, descWidth)
		if i == m.selected {
			desc = m.shimmer.render(desc) + strings.Repeat(" ", descWidth-len([]rune(desc)))
		} else {
			desc = fmt.Sprintf("%-*s", descWidth, desc)
		}

		duration := parser.FormatClock(int(record.DurationAt(now).Seconds()))
		durationStyle := lipgloss.NewStyle().Width(durationWidth).Align(lipgloss.Right)
		if record.IsRunning() {
			durationStyle = durationStyle.Foreground(lipgloss.Color(ColorSuccess))
			duration = "▶ " + duration
		}

		row := fmt.Sprintf("%-*s %-*s %s %s",
			dateWidth, record.Begin.In(m.loc).Format("Mon 02/01"),
			projectWidth, truncate(record.Project.Name, projectWidth),
			desc,
			durationStyle.Render(duration))

		if i == m.selected {
			b.WriteString(lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(ColorAccentMain)).
				Bold(true).
				Padding(0, 1).
				Render(row))
		} else {
			b.WriteString(" " + row)
		}
		b.WriteString("\n")
	}

	if m.perPage < len(m.visible) {
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorHelpText)).
			Align(lipgloss.Center).
			Width(width - 2).
			MarginTop(1).
			Render(fmt.Sprintf("Page %d/%d (%d records)", m.currentPage+1, m.totalPages(), len(m.visible))))
	}
	return m.frame(width, b.String())
}

func (m ListModel) renderDetails(width int) string {
	record, ok := m.Selected()
	if !ok {
		var b strings.Builder
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentMain)).Bold(true).
			Align(lipgloss.Center).Width(width).Render("hourly"))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true).
			Align(lipgloss.Center).Width(width).MarginTop(2).Render("Select a record to view details"))
		return m.frame(width, b.String())
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPrimaryText)).Width(width).
		Render(fmt.Sprintf("📋 #%d %s", record.ID, record.Activity.Name)))
	b.WriteString("\n\n")

	for _, row := range recordDetails(record, m.loc) {
		b.WriteString(fmt.Sprintf("%s %s: %s\n", row.icon, row.label, row.render()))
	}
	if m.showRates {
		rate := fmt.Sprintf("%.2f %s", record.Rate, record.Project.Customer.Currency)
		if record.HourlyRate != nil {
			rate += fmt.Sprintf(" (%.2f/h)", *record.HourlyRate)
		}
		b.WriteString("💰 Rate: " + lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Render(rate) + "\n")
	}
	if record.Exported {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDisabledText)).Render("exported") + "\n")
	}
	if record.Description != "" {
		b.WriteString("\nDescription:\n")
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true).
			Width(width - 2).Render(record.Description))
	}
	return m.frame(width, b.String())
}

func (m ListModel) frame(width int, content string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Width(width).
		Render(content)
}

func (m ListModel) renderSearchBar() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Background(lipgloss.Color(ColorBorder)).
		Padding(0, 1).
		Width(m.width - 2).
		Render("Search: " + m.searchQuery + "█")
}

func (m ListModel) renderHelpBar() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width).
		Render("↑/↓ nav · ←/→ page · / search · esc clear · q quit")
}

// RunListTUI browses the records until the user quits.
func RunListTUI(records []models.Timesheet, loc *time.Location, showRates bool) error {
	_, err := tea.NewProgram(NewListModel(records, loc, showRates), tea.WithAltScreen()).Run()
	return err
}
