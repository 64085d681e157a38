package labels

import (
	"math"
	"testing"
	"time"

	"github.com/selivandex/etf-signals/pkg/models"
)

func barsFromCloses(closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	date := models.Date(2024, time.March, 4)
	for i, c := range closes {
		bars[i] = models.Bar{
			Date:  date.AddDate(0, 0, i),
			Close: models.NewDecimal(c),
		}
	}
	return bars
}

func flatVol(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEngine_RawForwardReturns(t *testing.T) {
	closes := []float64{100, 110, 105, 120, 115, 125, 130}
	e := New(models.PolicyThreshold, 0.25, 3.0)

	rows := e.Compute(1, barsFromCloses(closes), flatVol(len(closes), 0.01))

	want1 := math.Log(110.0 / 100.0)
	if rows[0].H1.Raw == nil || math.Abs(*rows[0].H1.Raw-want1) > 1e-12 {
		t.Errorf("1d raw = %v, want %v", rows[0].H1.Raw, want1)
	}
	want5 := math.Log(125.0 / 100.0)
	if rows[0].H5.Raw == nil || math.Abs(*rows[0].H5.Raw-want5) > 1e-12 {
		t.Errorf("5d raw = %v, want %v", rows[0].H5.Raw, want5)
	}
}

func TestEngine_TailRowsStayNil(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 105, 106}
	e := New(models.PolicyThreshold, 0.25, 3.0)

	rows := e.Compute(1, barsFromCloses(closes), flatVol(len(closes), 0.01))

	last := rows[len(rows)-1]
	if last.H1.Raw != nil || last.H5.Raw != nil {
		t.Error("last row has no future close, labels must be nil")
	}
	// Rows within 5 days of the end have a 1d label but no 5d label
	penult := rows[len(rows)-3]
	if penult.H1.Raw == nil {
		t.Error("1d label should exist two rows before the end")
	}
	if penult.H5.Raw != nil {
		t.Error("5d label must be nil when the 5-day-ahead close is missing")
	}
}

func TestEngine_VolScalingAndClipping(t *testing.T) {
	// 10% jump with tiny vol: scaled return blows past the clip
	closes := []float64{100, 110}
	e := New(models.PolicyThreshold, 0.25, 3.0)

	rows := e.Compute(1, barsFromCloses(closes), flatVol(2, 0.01))

	h := rows[0].H1
	raw := math.Log(1.1)
	wantScaled := raw / (0.01 + 1e-9)
	if h.Scaled == nil || math.Abs(*h.Scaled-wantScaled) > 1e-9 {
		t.Errorf("scaled = %v, want %v", h.Scaled, wantScaled)
	}
	if h.Clipped == nil || *h.Clipped != 3.0 {
		t.Errorf("clipped = %v, want 3.0", h.Clipped)
	}
}

func TestEngine_ThresholdBoundaryIsNeutral(t *testing.T) {
	// Construct a move whose vol-scaled value lands exactly on the band edge
	vol := 0.02
	threshold := 0.25
	raw := threshold * (vol + 1e-9)
	closes := []float64{100, 100 * math.Exp(raw)}

	e := New(models.PolicyThreshold, threshold, 3.0)
	rows := e.Compute(1, barsFromCloses(closes), flatVol(2, vol))

	h := rows[0].H1
	if h.Class == nil {
		t.Fatal("class missing")
	}
	if *h.Class != models.ClassNeutral {
		t.Errorf("scaled return exactly at the threshold classified %d, want neutral", *h.Class)
	}
}

func TestEngine_ThresholdClasses(t *testing.T) {
	e := New(models.PolicyThreshold, 0.25, 3.0)
	vol := 0.01

	cases := []struct {
		next float64
		want models.Class
	}{
		{101, models.ClassUp},      // scaled ~ +1.0
		{99, models.ClassDown},     // scaled ~ -1.0
		{100.001, models.ClassNeutral}, // scaled ~ +0.001
	}
	for _, tc := range cases {
		rows := e.Compute(1, barsFromCloses([]float64{100, tc.next}), flatVol(2, vol))
		h := rows[0].H1
		if h.Class == nil || *h.Class != tc.want {
			t.Errorf("next close %v: class = %v, want %d", tc.next, h.Class, tc.want)
		}
	}
}

func TestEngine_BinaryPolicyIgnoresVol(t *testing.T) {
	e := New(models.PolicyBinary, 0.25, 3.0)

	// Vol is NaN during warm-up: binary classes still come out
	vol := []float64{math.NaN(), math.NaN()}
	rows := e.Compute(1, barsFromCloses([]float64{100, 100.001}), vol)

	h := rows[0].H1
	if h.Scaled != nil || h.Clipped != nil {
		t.Error("scaled values must be nil while vol is warming up")
	}
	if h.Class == nil || *h.Class != models.ClassUp {
		t.Errorf("binary class = %v, want up", h.Class)
	}

	rows = e.Compute(1, barsFromCloses([]float64{100, 99.999}), vol)
	if h := rows[0].H1; h.Class == nil || *h.Class != models.ClassDown {
		t.Errorf("binary class = %v, want down", h.Class)
	}
}

func TestEngine_ThresholdNeedsVol(t *testing.T) {
	e := New(models.PolicyThreshold, 0.25, 3.0)

	vol := []float64{math.NaN(), math.NaN()}
	rows := e.Compute(1, barsFromCloses([]float64{100, 110}), vol)

	h := rows[0].H1
	if h.Raw == nil {
		t.Error("raw return exists regardless of vol")
	}
	if h.Class != nil {
		t.Error("threshold class must be nil without a vol estimate")
	}
}
