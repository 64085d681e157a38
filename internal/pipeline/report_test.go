package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/selivandex/etf-signals/pkg/models"
)

func TestReport_FailedAndSucceeded(t *testing.T) {
	r := &Report{
		Assets: []AssetResult{
			{Symbol: "SPY", FeatureRows: 10},
			{Symbol: "QQQ", Err: errors.New("fetch failed")},
			{Symbol: "IWM", FeatureRows: 10},
		},
	}

	failed := r.Failed()
	if len(failed) != 1 || failed["QQQ"] == "" {
		t.Errorf("failed = %v", failed)
	}

	ok := r.Succeeded()
	if len(ok) != 2 || ok[0] != "SPY" || ok[1] != "IWM" {
		t.Errorf("succeeded = %v", ok)
	}
}

func TestFilterRows_DropWarmupRegion(t *testing.T) {
	start := models.Date(2024, time.June, 1)

	mk := func(offsets ...int) []models.FeatureRow {
		rows := make([]models.FeatureRow, len(offsets))
		for i, off := range offsets {
			rows[i] = models.FeatureRow{Date: start.AddDate(0, 0, off)}
		}
		return rows
	}

	rows := filterFeatureRows(mk(-10, -1, 0, 1, 5), start)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows at or after start, got %d", len(rows))
	}
	if rows[0].Date.Before(start) {
		t.Error("warm-up row survived the filter")
	}

	labelRows := []models.LabelRow{
		{Date: start.AddDate(0, 0, -1)},
		{Date: start},
	}
	if got := filterLabelRows(labelRows, start); len(got) != 1 || !got[0].Date.Equal(start) {
		t.Errorf("label filter wrong: %v", got)
	}
}
