package prices

import (
	"strings"
	"testing"
	"time"

	"github.com/selivandex/etf-signals/pkg/models"
)

func TestParseDailyCSV(t *testing.T) {
	csv := `Date,Open,High,Low,Close,Volume
2024-01-03,470.12,472.30,468.90,471.55,81234567
2024-01-02,468.00,470.50,467.10,470.00,75123456
`
	bars, err := parseDailyCSV(strings.NewReader(csv), "SPY")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}

	// Rows come back sorted ascending regardless of feed order
	if !bars[0].Date.Equal(models.Date(2024, time.January, 2)) {
		t.Errorf("first bar date = %v", bars[0].Date)
	}
	if got, _ := bars[1].Close.Float64(); got != 471.55 {
		t.Errorf("close = %v, want 471.55", got)
	}
	if bars[0].Volume != 75123456 {
		t.Errorf("volume = %d", bars[0].Volume)
	}
	if bars[0].Symbol != "SPY" {
		t.Errorf("symbol = %q", bars[0].Symbol)
	}
}

func TestParseDailyCSV_IndexWithoutVolume(t *testing.T) {
	csv := `Date,Open,High,Low,Close
2024-01-02,13.1,14.2,12.9,13.8
`
	bars, err := parseDailyCSV(strings.NewReader(csv), "^VIX")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(bars) != 1 || bars[0].Volume != 0 {
		t.Fatalf("expected one volume-less bar, got %+v", bars)
	}
}

func TestParseDailyCSV_SkipsBadRows(t *testing.T) {
	csv := `Date,Open,High,Low,Close,Volume
2024-01-02,468.00,470.50,467.10,470.00,75123456
not-a-date,1,2,3,4,5
2024-01-03,470.12,472.30,468.90,n/a,81234567
`
	bars, err := parseDailyCSV(strings.NewReader(csv), "SPY")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 valid bar, got %d", len(bars))
	}
}

func TestParseDailyCSV_MissingColumn(t *testing.T) {
	csv := `Date,Open,High,Low
2024-01-02,1,2,3
`
	if _, err := parseDailyCSV(strings.NewReader(csv), "SPY"); err == nil {
		t.Fatal("expected error for missing close column")
	}
}

func TestMapSymbolToStooq(t *testing.T) {
	cases := map[string]string{
		"SPY":    "spy.us",
		"^VIX":   "^vix",
		"^VIX9D": "^vix9d",
		"hyg":    "hyg.us",
	}
	for in, want := range cases {
		if got := mapSymbolToStooq(in); got != want {
			t.Errorf("mapSymbolToStooq(%q) = %q, want %q", in, got, want)
		}
	}
}
