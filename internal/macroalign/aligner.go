// Package macroalign maps sparse macro observations onto the trading-day
// calendar. Forward-fill is bounded: a value is carried at most MaxGapDays
// calendar days past its print, after which the day is left absent rather
// than stale-filled.
package macroalign

import (
	"math"
	"sort"
	"time"

	"github.com/selivandex/etf-signals/pkg/models"
)

// Observation is one true print of a macro series
type Observation struct {
	Date  time.Time
	Value float64
}

// Aligner aligns sparse series onto a trading calendar
type Aligner struct {
	maxGapDays int
}

// New creates an aligner with the given staleness ceiling in calendar days
func New(maxGapDays int) *Aligner {
	return &Aligner{maxGapDays: maxGapDays}
}

// MaxGapDays returns the configured staleness ceiling
func (a *Aligner) MaxGapDays() int {
	return a.maxGapDays
}

// state is the fold accumulator: the last real print seen so far
type state struct {
	value float64
	date  time.Time
	valid bool
}

// step advances the accumulator to trading day `day`, consuming prints dated
// at or before it, and returns the admissible value for that day.
// Staleness counts calendar days since the print date, so weekend and
// holiday gaps in the trading calendar do not inflate the counter.
func (a *Aligner) step(s state, day time.Time, obs []Observation, next int) (state, int, float64, int, bool) {
	for next < len(obs) && !obs[next].Date.After(day) {
		s = state{value: obs[next].Value, date: obs[next].Date, valid: true}
		next++
	}

	if !s.valid {
		return s, next, 0, 0, false
	}

	gap := calendarDays(s.date, day)
	if gap > a.maxGapDays {
		return s, next, 0, 0, false
	}

	return s, next, s.value, gap, true
}

// Align produces at most one MacroPoint per calendar day. Days before the
// first print, and days where the gap exceeds the ceiling, are omitted.
// Both inputs must be sorted ascending by date.
func (a *Aligner) Align(calendar []time.Time, obs []Observation) []models.MacroPoint {
	out := make([]models.MacroPoint, 0, len(calendar))

	var s state
	next := 0
	for _, day := range calendar {
		var (
			value float64
			gap   int
			ok    bool
		)
		s, next, value, gap, ok = a.step(s, day, obs, next)
		if !ok {
			continue
		}
		out = append(out, models.MacroPoint{
			Date:            day,
			Value:           value,
			DaysSinceUpdate: gap,
		})
	}

	return out
}

// Values aligns a series onto the calendar as a dense float vector, one slot
// per trading day, with NaN marking absent values. Used by the feature
// engine, which treats NaN as "legitimately missing".
func (a *Aligner) Values(calendar []time.Time, obs []Observation) []float64 {
	out := make([]float64, len(calendar))
	for i := range out {
		out[i] = math.NaN()
	}

	var s state
	next := 0
	for i, day := range calendar {
		var (
			value float64
			ok    bool
		)
		s, next, value, _, ok = a.step(s, day, obs, next)
		if ok {
			out[i] = value
		}
	}

	return out
}

// SortObservations sorts prints chronologically in place
func SortObservations(obs []Observation) {
	sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
}

func calendarDays(from, to time.Time) int {
	return int(models.DateOf(to).Sub(models.DateOf(from)).Hours() / 24)
}
