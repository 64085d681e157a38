package features

import (
	"testing"
	"time"

	"github.com/selivandex/etf-signals/pkg/models"
)

func contextFor(bars []models.Bar) ([]time.Time, []models.FeatureVector) {
	calendar := make([]time.Time, len(bars))
	vix := make([]float64, len(bars))
	for i, b := range bars {
		calendar[i] = b.Date
		vix[i] = 15 + float64(i%5)
	}
	ctx := ComputeContext(ContextInput{
		Calendar:  calendar,
		Proxies:   map[string][]float64{ProxyVIX: vix},
		Macro:     map[string][]float64{},
		ETFs:      map[string][]float64{},
		Benchmark: "SPY",
	})
	return calendar, ctx
}

func TestEngine_NoLeakage(t *testing.T) {
	// Features up to date T must be bit-identical whether or not later bars
	// exist: truncate the history and compare.
	full := syntheticBars(120)
	truncated := full[:100]

	calendar, ctx := contextFor(full)
	eng := NewEngine(calendar, ctx, nil)

	fullRows := eng.Compute(1, full)
	truncRows := eng.Compute(1, truncated)

	for i := range truncRows {
		a, b := fullRows[i].Features, truncRows[i].Features
		if len(a) != len(b) {
			t.Fatalf("row %d: %d features with future data, %d without", i, len(a), len(b))
		}
		for name, av := range a {
			bv, ok := b[name]
			if !ok {
				t.Fatalf("row %d: %s present only with future data", i, name)
			}
			if av != bv {
				t.Fatalf("row %d: %s = %v with future data, %v without", i, name, av, bv)
			}
		}
	}
}

func TestEngine_LagCorrectness(t *testing.T) {
	bars := syntheticBars(30)
	calendar, ctx := contextFor(bars)
	eng := NewEngine(calendar, ctx, nil)

	rows := eng.Compute(1, bars)

	for i := 5; i < len(rows); i++ {
		for _, tc := range []struct {
			target models.FeatureName
			source models.FeatureName
			lag    int
		}{
			{LogRet1DLag1, LogRet1D, 1},
			{LogRet1DLag2, LogRet1D, 2},
			{LogRet1DLag3, LogRet1D, 3},
			{LogRet1DLag5, LogRet1D, 5},
			{VIXChange1DLag1, VIXChange1D, 1},
			{VIXChange1DLag3, VIXChange1D, 3},
		} {
			src, srcOK := rows[i-tc.lag].Features[tc.source]
			got, gotOK := rows[i].Features[tc.target]
			if srcOK != gotOK {
				t.Fatalf("row %d: %s presence (%v) disagrees with source %d rows back (%v)",
					i, tc.target, gotOK, tc.lag, srcOK)
			}
			if srcOK && got != src {
				t.Errorf("row %d: %s = %v, want %v", i, tc.target, got, src)
			}
		}
	}
}

func TestEngine_EventFlags(t *testing.T) {
	bars := syntheticBars(10)
	calendar, ctx := contextFor(bars)

	fomcDay := bars[4].Date
	events := []models.Event{
		{Date: fomcDay, Type: models.EventFOMC},
		{Date: bars[6].Date, Type: models.EventCPI},
	}
	eng := NewEngine(calendar, ctx, events)

	rows := eng.Compute(1, bars)

	for i, row := range rows {
		// Flags are always present, even on quiet days
		for _, name := range []models.FeatureName{IsFOMC, IsCPI, IsNFP} {
			if _, ok := row.Features[name]; !ok {
				t.Fatalf("row %d: %s absent, event flags must always be set", i, name)
			}
		}

		wantFOMC := boolFeature(i == 4)
		if row.Features[IsFOMC] != wantFOMC {
			t.Errorf("row %d is_fomc = %v, want %v", i, row.Features[IsFOMC], wantFOMC)
		}
		// The day before and after the release carry no flag
		if i == 3 || i == 5 {
			if row.Features[IsFOMC] != 0 {
				t.Errorf("row %d is_fomc = %v, only the release day is flagged", i, row.Features[IsFOMC])
			}
		}
		if row.Features[IsCPI] != boolFeature(i == 6) {
			t.Errorf("row %d is_cpi_release = %v", i, row.Features[IsCPI])
		}
		if row.Features[IsNFP] != 0 {
			t.Errorf("row %d is_nfp_release = %v, calendar has none", i, row.Features[IsNFP])
		}
	}
}

func TestEngine_SchemaVersionStamped(t *testing.T) {
	bars := syntheticBars(5)
	calendar, ctx := contextFor(bars)
	eng := NewEngine(calendar, ctx, nil)

	for _, row := range eng.Compute(7, bars) {
		if row.SchemaVersion != SchemaVersion {
			t.Fatalf("schema_version = %d, want %d", row.SchemaVersion, SchemaVersion)
		}
		if row.AssetID != 7 {
			t.Fatalf("asset_id = %d, want 7", row.AssetID)
		}
	}
}

func TestManifest_CoversKnownNames(t *testing.T) {
	names := Manifest()
	seen := make(map[models.FeatureName]bool, len(names))
	for _, n := range names {
		if seen[n] {
			t.Fatalf("duplicate manifest name %s", n)
		}
		seen[n] = true
	}
	if !IsKnown(LogRet1D) || !IsKnown(YieldCurveSlopeLag1) {
		t.Error("manifest missing expected names")
	}
	if IsKnown("made_up_feature") {
		t.Error("unknown name reported as known")
	}
}
