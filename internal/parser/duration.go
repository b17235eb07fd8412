package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	clockDuration = regexp.MustCompile(`^(\d+):([0-5]\d)(?::([0-5]\d))?$`)
	unitDuration  = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(hours?|h|minutes?|mins?|m|seconds?|secs?|s)`)
	decimalHours  = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
)

// maxDuration is the longest duration a single record may have.
const maxDuration = 24 * 3600

// ParseDuration converts "1h30m", "90m", "1.5h", "1:30" or a plain decimal hour
// count like "2" or "0,75" to seconds.
func ParseDuration(input string) (int, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return 0, fmt.Errorf("empty duration")
	}

	var seconds float64
	switch {
	case clockDuration.MatchString(input):
		m := clockDuration.FindStringSubmatch(input)
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		sec := 0
		if m[3] != "" {
			sec, _ = strconv.Atoi(m[3])
		}
		seconds = float64(h*3600 + min*60 + sec)

	case decimalHours.MatchString(input):
		hours, err := parseDecimal(input)
		if err != nil {
			return 0, err
		}
		seconds = hours * 3600

	default:
		matches := unitDuration.FindAllStringSubmatchIndex(input, -1)
		if len(matches) == 0 {
			return 0, fmt.Errorf("use formats like 1h30m, 90m, 1.5h or 1:30")
		}
		consumed := 0
		for _, idx := range matches {
			if strings.TrimSpace(input[consumed:idx[0]]) != "" {
				return 0, fmt.Errorf("unexpected %q", strings.TrimSpace(input[consumed:idx[0]]))
			}
			consumed = idx[1]
			value, err := parseDecimal(input[idx[2]:idx[3]])
			if err != nil {
				return 0, err
			}
			switch input[idx[4]] {
			case 'h':
				seconds += value * 3600
			case 'm':
				seconds += value * 60
			case 's':
				seconds += value
			}
		}
		if strings.TrimSpace(input[consumed:]) != "" {
			return 0, fmt.Errorf("unexpected %q", strings.TrimSpace(input[consumed:]))
		}
	}

	result := int(math.Round(seconds))
	if result <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	if result > maxDuration {
		return 0, fmt.Errorf("duration must not exceed 24 hours")
	}
	return result, nil
}

func parseDecimal(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.Replace(value, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", value)
	}
	return f, nil
}

// FormatDuration renders seconds the short way: 1h 30m, 45m or 20s.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FormatClock renders seconds as h:mm.
func FormatClock(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%d:%02d", sign, seconds/3600, (seconds%3600)/60)
}
