package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/selivandex/etf-signals/internal/labels"
	"github.com/selivandex/etf-signals/pkg/models"
)

func weekdayBars(n int) []models.Bar {
	bars := make([]models.Bar, 0, n)
	date := models.Date(2024, time.June, 3) // a Monday
	price := 100.0
	for i := 0; i < n; i++ {
		for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)
		}
		price *= 1 + 0.002*math.Sin(float64(i))
		bars = append(bars, models.Bar{
			Date:   date,
			Open:   models.NewDecimal(price),
			High:   models.NewDecimal(price * 1.01),
			Low:    models.NewDecimal(price * 0.99),
			Close:  models.NewDecimal(price),
			Volume: 1_000_000,
		})
		date = date.AddDate(0, 0, 1)
	}
	return bars
}

// A run persists its trailing rows with NULL forward returns because the
// future closes do not exist yet. The next incremental run recomputes those
// same dates with real values; the persistence filter must keep them so the
// fill-null upsert can complete the rows, while still dropping everything
// older than the label lookback.
func TestIncrementalKeepsNewlyCompletedLabels(t *testing.T) {
	bars := weekdayBars(30)
	engine := labels.New(models.PolicyBinary, 0.25, 3.0)
	noVol := make([]float64, len(bars))
	for i := range noVol {
		noVol[i] = math.NaN()
	}

	firstRun := engine.Compute(1, bars[:25], noVol[:25])
	frontier := firstRun[len(firstRun)-1]
	if frontier.H1.Raw != nil || frontier.H5.Raw != nil {
		t.Fatal("trailing row of the first run should have nil forward returns")
	}

	// Incremental mode resumes the day after the persisted frontier
	start := frontier.Date.AddDate(0, 0, 1)

	secondRun := engine.Compute(1, bars, noVol)
	kept := filterLabelRows(secondRun, start.AddDate(0, 0, -labelLookbackDays))

	var refreshed *models.LabelRow
	for i := range kept {
		if kept[i].Date.Equal(frontier.Date) {
			refreshed = &kept[i]
		}
	}
	if refreshed == nil {
		t.Fatal("frontier row dropped by the persistence filter")
	}
	if refreshed.H1.Raw == nil || refreshed.H5.Raw == nil {
		t.Error("frontier row recomputed without forward returns")
	}

	cutoff := start.AddDate(0, 0, -labelLookbackDays)
	for _, row := range kept {
		if row.Date.Before(cutoff) {
			t.Errorf("row %s persisted before the lookback cutoff",
				row.Date.Format("2006-01-02"))
		}
	}
	if len(kept) != 15 {
		t.Errorf("kept %d label rows, want 15 inside the lookback window", len(kept))
	}
}
