package features

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestRollingMean_WarmupAndWindow(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := rollingMean(values, 3)

	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Error("warm-up region must be NaN")
	}
	if out[2] != 2 || out[3] != 3 || out[4] != 4 {
		t.Errorf("unexpected means: %v", out)
	}
}

func TestRollingStd_SampleVariance(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	out := rollingStd(values, 8)

	// Sample std of the full series is sqrt(32/7)
	want := math.Sqrt(32.0 / 7.0)
	if !almostEqual(out[7], want, 1e-12) {
		t.Errorf("std = %v, want %v", out[7], want)
	}
}

func TestRolling_NaNPoisonsWindow(t *testing.T) {
	values := []float64{1, 2, math.NaN(), 4, 5, 6, 7}
	out := rollingMean(values, 3)

	// Windows touching index 2 must be NaN
	for _, i := range []int{2, 3, 4} {
		if !math.IsNaN(out[i]) {
			t.Errorf("index %d window contains NaN, got %v", i, out[i])
		}
	}
	if out[5] != 5 || out[6] != 6 {
		t.Errorf("clean windows wrong: %v", out)
	}
}

func TestRollingQuantile_LinearInterpolation(t *testing.T) {
	values := []float64{10, 20, 30, 40}
	out := rollingQuantile(values, 4, 0.75)

	// pos = 0.75*3 = 2.25 -> 30 + 0.25*(40-30)
	if !almostEqual(out[3], 32.5, 1e-12) {
		t.Errorf("q75 = %v, want 32.5", out[3])
	}
}

func TestRollingCorr_PerfectAndInverse(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 4, 6, 8, 10}
	c := []float64{10, 8, 6, 4, 2}

	pos := rollingCorr(a, b, 5)
	neg := rollingCorr(a, c, 5)

	if !almostEqual(pos[4], 1, 1e-12) {
		t.Errorf("perfect correlation = %v", pos[4])
	}
	if !almostEqual(neg[4], -1, 1e-12) {
		t.Errorf("perfect inverse correlation = %v", neg[4])
	}
}

func TestRollingRSquared_TrendVsFlat(t *testing.T) {
	trend := make([]float64, 20)
	for i := range trend {
		trend[i] = 100 + float64(i)
	}
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 100
	}

	rsqTrend := rollingRSquared(trend, 20)
	rsqFlat := rollingRSquared(flat, 20)

	if !almostEqual(rsqTrend[19], 1, 1e-6) {
		t.Errorf("linear trend R² = %v, want ~1", rsqTrend[19])
	}
	if rsqFlat[19] != 0 {
		t.Errorf("flat series R² = %v, want 0", rsqFlat[19])
	}
}

func TestRollingZScore(t *testing.T) {
	values := []float64{1, 1, 1, 1, 10}
	out := rollingZScore(values, 5, 0)

	mean := 2.8
	std := math.Sqrt((4*math.Pow(1-mean, 2) + math.Pow(10-mean, 2)) / 4)
	if !almostEqual(out[4], (10-mean)/std, 1e-12) {
		t.Errorf("z = %v", out[4])
	}
}

func TestShiftAndDiff(t *testing.T) {
	values := []float64{1, 3, 6, 10}

	s := shift(values, 2)
	if !math.IsNaN(s[0]) || !math.IsNaN(s[1]) || s[2] != 1 || s[3] != 3 {
		t.Errorf("shift wrong: %v", s)
	}

	d := diff(values, 1)
	if !math.IsNaN(d[0]) || d[1] != 2 || d[2] != 3 || d[3] != 4 {
		t.Errorf("diff wrong: %v", d)
	}
}
