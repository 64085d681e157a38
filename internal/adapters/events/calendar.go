package events

import (
	"time"

	"github.com/selivandex/etf-signals/pkg/models"
)

// Known release dates for the three tracked macro events. FOMC dates come
// from the Fed meeting calendar, CPI and NFP from the BLS release schedule.
// New years are appended here when the agencies publish their schedules.

var fomcDates = []string{
	"2024-01-31", "2024-03-20", "2024-05-01", "2024-06-12",
	"2024-07-31", "2024-09-18", "2024-11-07", "2024-12-18",
	"2025-01-29", "2025-03-19", "2025-05-07", "2025-06-18",
	"2025-07-30", "2025-09-17", "2025-11-05", "2025-12-17",
}

var cpiDates = []string{
	"2024-01-11", "2024-02-13", "2024-03-12", "2024-04-10",
	"2024-05-15", "2024-06-12", "2024-07-11", "2024-08-14",
	"2024-09-11", "2024-10-10", "2024-11-13", "2024-12-11",
	"2025-01-15", "2025-02-12", "2025-03-12", "2025-04-10",
	"2025-05-13", "2025-06-11", "2025-07-11", "2025-08-13",
	"2025-09-10", "2025-10-10", "2025-11-12", "2025-12-10",
}

var nfpDates = []string{
	"2024-01-05", "2024-02-02", "2024-03-08", "2024-04-05",
	"2024-05-03", "2024-06-07", "2024-07-05", "2024-08-02",
	"2024-09-06", "2024-10-04", "2024-11-01", "2024-12-06",
	"2025-01-10", "2025-02-07", "2025-03-07", "2025-04-04",
	"2025-05-02", "2025-06-06", "2025-07-03", "2025-08-01",
	"2025-09-05", "2025-10-03", "2025-11-07", "2025-12-05",
}

func mustParse(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic("bad hardcoded event date: " + s)
	}
	return models.DateOf(t)
}

// KnownEvents returns the built-in calendar filtered to [from, to] inclusive
func KnownEvents(from, to time.Time) []models.Event {
	from, to = models.DateOf(from), models.DateOf(to)

	var out []models.Event
	add := func(dates []string, typ models.EventType, name, source string) {
		for _, s := range dates {
			d := mustParse(s)
			if d.Before(from) || d.After(to) {
				continue
			}
			out = append(out, models.Event{Date: d, Type: typ, Name: name, Source: source})
		}
	}

	add(fomcDates, models.EventFOMC, "FOMC Meeting", "Federal Reserve")
	add(cpiDates, models.EventCPI, "CPI Release", "BLS")
	add(nfpDates, models.EventNFP, "NFP Release", "BLS")
	return out
}

// EventsOn returns the flags for one date; a date with no entry returns an
// empty set, which downstream reads as definite zeros
func EventsOn(all []models.Event, date time.Time) map[models.EventType]bool {
	d := models.DateOf(date)
	out := make(map[models.EventType]bool)
	for _, e := range all {
		if models.DateOf(e.Date).Equal(d) {
			out[e.Type] = true
		}
	}
	return out
}
