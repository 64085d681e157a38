package events

import (
	"testing"
	"time"

	"github.com/selivandex/etf-signals/pkg/models"
)

func TestKnownEvents_RangeFilter(t *testing.T) {
	from := models.Date(2024, time.January, 1)
	to := models.Date(2024, time.December, 31)

	all := KnownEvents(from, to)

	counts := make(map[models.EventType]int)
	for _, e := range all {
		if e.Date.Before(from) || e.Date.After(to) {
			t.Errorf("event %s/%s outside requested range", e.Date.Format("2006-01-02"), e.Type)
		}
		if !e.Type.Valid() {
			t.Errorf("invalid event type %q", e.Type)
		}
		counts[e.Type]++
	}

	// 2024: 8 FOMC meetings, 12 CPI and 12 NFP releases
	if counts[models.EventFOMC] != 8 {
		t.Errorf("fomc count = %d, want 8", counts[models.EventFOMC])
	}
	if counts[models.EventCPI] != 12 {
		t.Errorf("cpi count = %d, want 12", counts[models.EventCPI])
	}
	if counts[models.EventNFP] != 12 {
		t.Errorf("nfp count = %d, want 12", counts[models.EventNFP])
	}
}

func TestKnownEvents_EmptyOutsideCoverage(t *testing.T) {
	all := KnownEvents(models.Date(2010, time.January, 1), models.Date(2010, time.December, 31))
	if len(all) != 0 {
		t.Errorf("expected no events for 2010, got %d", len(all))
	}
}

func TestEventsOn_ExactDateOnly(t *testing.T) {
	all := KnownEvents(models.Date(2024, time.January, 1), models.Date(2024, time.December, 31))

	// 2024-06-12 carries both an FOMC meeting and a CPI release
	both := EventsOn(all, models.Date(2024, time.June, 12))
	if !both[models.EventFOMC] || !both[models.EventCPI] {
		t.Errorf("2024-06-12 should flag fomc and cpi, got %v", both)
	}
	if both[models.EventNFP] {
		t.Error("2024-06-12 should not flag nfp")
	}

	// Adjacent days carry nothing
	for _, d := range []time.Time{
		models.Date(2024, time.June, 11),
		models.Date(2024, time.June, 13),
	} {
		if flags := EventsOn(all, d); len(flags) != 0 {
			t.Errorf("%s should have no flags, got %v", d.Format("2006-01-02"), flags)
		}
	}
}
