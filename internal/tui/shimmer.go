package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// shimmer sweeps a light band across the selected row.
type shimmer struct {
	interval time.Duration
	ratio    float64 // band width relative to the text
	cycle    int     // ticks for one sweep
	pause    int     // idle ticks between sweeps

	tick   int
	active bool
}

type shimmerTickMsg struct{}

func newShimmer() *shimmer {
	return &shimmer{interval: 100 * time.Millisecond, ratio: 0.25, cycle: 18, pause: 5, active: true}
}

// next schedules the following frame, nil while inactive.
func (s *shimmer) next() tea.Cmd {
	if !s.active {
		return nil
	}
	return tea.Tick(s.interval, func(time.Time) tea.Msg { return shimmerTickMsg{} })
}

func (s *shimmer) advance() {
	if s.active {
		s.tick = (s.tick + 1) % (s.cycle + s.pause)
	}
}

func (s *shimmer) reset() { s.tick = 0 }

func (s *shimmer) setActive(active bool) { s.active = active }

// center returns the band position in runes, or -1 during the pause.
func (s *shimmer) center(n int) float64 {
	if s.tick >= s.cycle {
		return -1
	}
	span := float64(n) * (1 + 2*s.ratio)
	return -float64(n)*s.ratio + span*float64(s.tick)/float64(s.cycle)
}

var (
	shimmerBase      = [3]float64{177, 184, 199}
	shimmerHighlight = [3]float64{234, 230, 255}
)

// render colors every rune by its distance to the band center.
func (s *shimmer) render(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	if !s.active {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Render(text)
	}

	center := s.center(len(runes))
	sigma := math.Max(1, s.ratio*float64(len(runes))/2)
	var b strings.Builder
	for i, r := range runes {
		weight := 0.0
		if center >= 0 {
			dx := float64(i) - center
			weight = math.Exp(-(dx * dx) / (2 * sigma * sigma))
		}
		color := fmt.Sprintf("#%02X%02X%02X",
			blend(shimmerBase[0], shimmerHighlight[0], weight),
			blend(shimmerBase[1], shimmerHighlight[1], weight),
			blend(shimmerBase[2], shimmerHighlight[2], weight))
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(r)))
	}
	return b.String()
}

func blend(base, highlight, w float64) int {
	return int(base*(1-w) + highlight*w)
}
