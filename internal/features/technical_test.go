package features

import (
	"math"
	"testing"
	"time"

	"github.com/selivandex/etf-signals/pkg/models"
)

// syntheticBars builds n daily bars on consecutive weekdays with a gentle
// deterministic drift so every indicator has something to chew on.
func syntheticBars(n int) []models.Bar {
	bars := make([]models.Bar, 0, n)
	date := models.Date(2023, time.January, 2) // a Monday
	price := 100.0
	for i := 0; i < n; i++ {
		for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)
		}
		drift := 0.001 + 0.004*math.Sin(float64(i)/7.0)
		open := price * (1 + drift/2)
		close := price * (1 + drift)
		high := math.Max(open, close) * 1.005
		low := math.Min(open, close) * 0.995
		bars = append(bars, models.Bar{
			Date:   date,
			Open:   models.NewDecimal(open),
			High:   models.NewDecimal(high),
			Low:    models.NewDecimal(low),
			Close:  models.NewDecimal(close),
			Volume: int64(1_000_000 + 10_000*i),
		})
		price = close
		date = date.AddDate(0, 0, 1)
	}
	return bars
}

func TestComputeTechnical_WarmupNulls(t *testing.T) {
	bars := syntheticBars(220)
	vectors := ComputeTechnical(bars)

	// sma_200 must be absent until the 200th bar
	for i := 0; i < 199; i++ {
		if _, ok := vectors[i][SMA200]; ok {
			t.Fatalf("sma_200 present at row %d, inside warm-up", i)
		}
	}
	if _, ok := vectors[199][SMA200]; !ok {
		t.Error("sma_200 absent at row 199, warm-up complete")
	}

	// The first row has no prior close
	if _, ok := vectors[0][LogRet1D]; ok {
		t.Error("log_ret_1d present on the first row")
	}
	if _, ok := vectors[1][LogRet1D]; !ok {
		t.Error("log_ret_1d missing on the second row")
	}

	// vol_20 needs 20 returns, so 21 bars
	if _, ok := vectors[19][Vol20]; ok {
		t.Error("vol_20 present before its window is full")
	}
	if _, ok := vectors[20][Vol20]; !ok {
		t.Error("vol_20 absent after its window filled")
	}
}

func TestComputeTechnical_OvernightShareBounded(t *testing.T) {
	bars := syntheticBars(60)
	vectors := ComputeTechnical(bars)

	seen := false
	for i, v := range vectors {
		share, ok := v[OvernightShare]
		if !ok {
			continue
		}
		seen = true
		if share < -1 || share > 1 {
			t.Errorf("row %d overnight_share = %v outside [-1, 1]", i, share)
		}
	}
	if !seen {
		t.Fatal("overnight_share never computed")
	}
}

func TestComputeTechnical_CalendarFeatures(t *testing.T) {
	bars := syntheticBars(10)
	vectors := ComputeTechnical(bars)

	// First bar is a Monday
	if dow := vectors[0][DOW]; dow != 0 {
		t.Errorf("Monday dow = %v, want 0", dow)
	}

	// No previous trading day on the first row
	if _, ok := vectors[0][DaysSincePrev]; ok {
		t.Error("days_since_prev present on the first row")
	}
	if dsp := vectors[1][DaysSincePrev]; dsp != 1 {
		t.Errorf("second-row days_since_prev = %v, want 1", dsp)
	}

	// Find the Friday->Monday transition
	for i := 1; i < len(bars); i++ {
		if bars[i].Date.Weekday() == time.Monday {
			if dsp := vectors[i][DaysSincePrev]; dsp != 3 {
				t.Errorf("Monday days_since_prev = %v, want 3", dsp)
			}
			return
		}
	}
	t.Fatal("no Monday found after the first bar")
}

func TestComputeTechnical_DrawdownNonPositive(t *testing.T) {
	bars := syntheticBars(120)
	vectors := ComputeTechnical(bars)

	for i, v := range vectors {
		if dd, ok := v[DD60]; ok && dd > 1e-12 {
			t.Errorf("row %d dd_60 = %v, drawdown must be <= 0", i, dd)
		}
	}
}

func TestComputeTechnical_SMACrossFlag(t *testing.T) {
	bars := syntheticBars(120)
	vectors := ComputeTechnical(bars)

	for i, v := range vectors {
		flag, ok := v[SMA20GtSMA50]
		s20, ok20 := v[SMA20]
		s50, ok50 := v[SMA50]
		if ok != (ok20 && ok50) {
			t.Fatalf("row %d: cross flag presence disagrees with its inputs", i)
		}
		if !ok {
			continue
		}
		want := boolFeature(s20 > s50)
		if flag != want {
			t.Errorf("row %d cross flag = %v, want %v", i, flag, want)
		}
	}
}
