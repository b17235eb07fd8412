// Package rounding applies the configured begin, end and duration rounding rules
// to finished timesheet records.
package rounding

import (
	"time"

	"github.com/balkashynov/hourly/internal/config"
)

const (
	ModeDefault = "default" // begin floored, end and duration ceiled
	ModeClosest = "closest"
	ModeFloor   = "floor"
	ModeCeil    = "ceil"
)

// Rule is a parsed config.RoundingRule. Minutes of 0 disable rounding for that part.
type Rule struct {
	Name     string
	Days     map[time.Weekday]bool
	Begin    int
	End      int
	Duration int
	Mode     string
}

// Result holds the rounded values.
type Result struct {
	Begin    time.Time
	End      time.Time
	Duration int // seconds
}

// Rounder applies every rule matching the weekday of the begin time.
type Rounder struct {
	rules []Rule
}

// New builds a Rounder from configuration. Unknown weekdays are ignored,
// config.Validate rejects them earlier.
func New(rules []config.RoundingRule) *Rounder {
	r := &Rounder{}
	for _, raw := range rules {
		rule := Rule{
			Name:     raw.Name,
			Days:     map[time.Weekday]bool{},
			Begin:    raw.Begin,
			End:      raw.End,
			Duration: raw.Duration,
			Mode:     raw.Mode,
		}
		if rule.Mode == "" {
			rule.Mode = ModeDefault
		}
		for _, day := range raw.Days {
			if wd, ok := config.ParseWeekday(day); ok {
				rule.Days[wd] = true
			}
		}
		r.rules = append(r.rules, rule)
	}
	return r
}

// Apply rounds begin and end, then recalculates and rounds the duration.
func (r *Rounder) Apply(begin, end time.Time) Result {
	res := Result{Begin: begin, End: end}
	applied := false

	for _, rule := range r.rules {
		if len(rule.Days) > 0 && !rule.Days[begin.Weekday()] {
			continue
		}
		applied = true
		beginDir, endDir, durationDir := directions(rule.Mode)
		res.Begin = roundTime(res.Begin, rule.Begin, beginDir)
		res.End = roundTime(res.End, rule.End, endDir)
		if res.End.Before(res.Begin) {
			res.End = res.Begin
		}
		res.Duration = int(res.End.Sub(res.Begin) / time.Second)
		res.Duration = roundSeconds(res.Duration, rule.Duration*60, durationDir)
	}

	if !applied {
		res.Duration = int(res.End.Sub(res.Begin) / time.Second)
	}
	return res
}

type direction int

const (
	down direction = iota
	up
	nearest
)

func directions(mode string) (begin, end, duration direction) {
	switch mode {
	case ModeClosest:
		return nearest, nearest, nearest
	case ModeFloor:
		return down, down, down
	case ModeCeil:
		return up, up, up
	default:
		return down, up, up
	}
}

// roundTime rounds the wall clock time of t to a multiple of minutes since local midnight.
func roundTime(t time.Time, minutes int, dir direction) time.Time {
	if minutes <= 0 {
		return t
	}
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := int(t.Sub(midnight) / time.Second)
	rounded := roundSeconds(offset, minutes*60, dir)
	return midnight.Add(time.Duration(rounded) * time.Second)
}

func roundSeconds(value, step int, dir direction) int {
	if step <= 0 || value%step == 0 {
		return value
	}
	lower := value - value%step
	switch dir {
	case down:
		return lower
	case up:
		return lower + step
	default:
		if value-lower >= step/2 {
			return lower + step
		}
		return lower
	}
}
