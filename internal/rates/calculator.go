// Package rates resolves hourly, internal and fixed rates for timesheet records.
package rates

import (
	"math"
	"time"

	"github.com/balkashynov/hourly/internal/config"
	"github.com/balkashynov/hourly/internal/models"
)

// Scores decide which configured rate wins; a user specific rate adds one point.
var kindScore = map[string]int{
	models.OwnerCustomer: 1,
	models.OwnerProject:  3,
	models.OwnerActivity: 5,
}

// Input is everything needed to price one record.
type Input struct {
	Begin      time.Time
	Duration   int // seconds
	HourlyRate *float64
	FixedRate  *float64
	User       models.User
	Rates      []models.Rate // customer, project and activity rates of the record
}

// Result is the calculated pricing.
type Result struct {
	Rate         float64
	InternalRate float64
	HourlyRate   *float64
	FixedRate    *float64
}

// Calculator prices records, applying weekday rate factors.
type Calculator struct {
	factors []factor
}

type factor struct {
	days  map[time.Weekday]bool
	value float64
}

// NewCalculator parses the configured rate factors.
func NewCalculator(rules []config.RateFactor) *Calculator {
	c := &Calculator{}
	for _, rule := range rules {
		f := factor{days: map[time.Weekday]bool{}, value: rule.Factor}
		for _, day := range rule.Days {
			if wd, ok := config.ParseWeekday(day); ok {
				f.days[wd] = true
			}
		}
		c.factors = append(c.factors, f)
	}
	return c
}

// Factor sums the factors of all rules matching the weekday; a sum <= 0 means 1.
func (c *Calculator) Factor(t time.Time) float64 {
	sum := 0.0
	for _, f := range c.factors {
		if f.days[t.Weekday()] {
			sum += f.value
		}
	}
	if sum <= 0 {
		return 1
	}
	return sum
}

// Calculate resolves the rate of a record.
//
// Precedence: fixed rate of the record, hourly rate of the record, best fitting
// configured rate (activity > project > customer, user specific first), the user's rate.
// Rate factors are not applied to an hourly rate stored on the record.
func (c *Calculator) Calculate(in Input) Result {
	if in.FixedRate != nil {
		fixed := *in.FixedRate
		return Result{Rate: fixed, InternalRate: fixed, FixedRate: &fixed}
	}

	hourly := in.User.HourlyRate
	internal := hourly
	if in.User.InternalRate != nil {
		internal = *in.User.InternalRate
	}

	f := 1.0
	if in.HourlyRate != nil {
		// a stored rate was already factored when it was calculated
		hourly = *in.HourlyRate
	} else if best := BestFitting(in.Rates, in.User.ID); best != nil {
		if best.Fixed {
			fixed := best.Rate
			internalFixed := fixed
			if best.InternalRate != nil {
				internalFixed = *best.InternalRate
			}
			return Result{Rate: fixed, InternalRate: internalFixed, FixedRate: &fixed}
		}
		hourly = best.Rate
		if best.InternalRate != nil {
			internal = *best.InternalRate
		}
	}

	if in.HourlyRate == nil {
		f = c.Factor(in.Begin)
	}
	factoredHourly := hourly * f
	factoredInternal := internal * f

	return Result{
		Rate:         Total(factoredHourly, in.Duration),
		InternalRate: Total(factoredInternal, in.Duration),
		HourlyRate:   &factoredHourly,
	}
}

// BestFitting returns the highest scoring rate applicable for the user, or nil.
func BestFitting(candidates []models.Rate, userID uint) *models.Rate {
	var best *models.Rate
	bestScore := -1
	for i := range candidates {
		r := &candidates[i]
		if r.UserID != nil && *r.UserID != userID {
			continue
		}
		score := kindScore[r.Kind]
		if r.UserID != nil {
			score++
		}
		if score > bestScore {
			best = r
			bestScore = score
		}
	}
	return best
}

// Total is hourly × duration, rounded to four decimals.
func Total(hourly float64, seconds int) float64 {
	return math.Round(hourly*float64(seconds)/3600*10000) / 10000
}
