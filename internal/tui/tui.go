package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/hourly/internal/models"
)

type detailRow struct {
	icon  string
	label string
	value string
	color string
}

func (r detailRow) render() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(r.color)).Render(r.value)
}

// recordDetails lists the attributes shown next to a record.
func recordDetails(t models.Timesheet, loc *time.Location) []detailRow {
	optional := func(value, color string) (string, string) {
		if value == "" {
			return "none", ColorDisabledText
		}
		return value, color
	}

	rows := make([]detailRow, 0, 6)
	customer, color := optional(t.Project.Customer.Name, ColorAccentBright)
	rows = append(rows, detailRow{"🏢", "Customer", customer, color})
	project, color := optional(t.Project.Name, ColorAccentBright)
	rows = append(rows, detailRow{"📁", "Project", project, color})
	activity, color := optional(t.Activity.Name, ColorAccentBright)
	rows = append(rows, detailRow{"🛠️ ", "Activity", activity, color})

	var tags []string
	for _, name := range t.TagNames() {
		tags = append(tags, "#"+name)
	}
	tagText, color := optional(strings.Join(tags, " "), ColorAccentBright)
	rows = append(rows, detailRow{"🏷️ ", "Tags", tagText, color})

	rows = append(rows, detailRow{"📅", "Begin", t.Begin.In(loc).Format("Mon Jan 02, 15:04"), ColorSecondaryText})
	if t.End != nil {
		rows = append(rows, detailRow{"⏹️ ", "End", t.End.In(loc).Format("Mon Jan 02, 15:04"), ColorSecondaryText})
	} else {
		rows = append(rows, detailRow{"▶️ ", "Status", "running", ColorSuccess})
	}
	return rows
}

// truncate shortens s to width runes with an ellipsis.
func truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
