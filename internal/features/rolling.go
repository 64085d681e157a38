package features

import (
	"math"
	"sort"
)

// Rolling-window helpers used by the feature engine. Every function returns
// a slice of the input length with NaN marking the warm-up region, and NaN
// anywhere the window contains a NaN input. A full window is always
// required: a 20-day statistic first appears on the 20th value.
//
// Standard deviations are sample (n-1) throughout.

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func isBad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// shift moves values forward by lag positions (shift(1)[i] = values[i-1])
func shift(values []float64, lag int) []float64 {
	out := nanSlice(len(values))
	for i := lag; i < len(values); i++ {
		out[i] = values[i-lag]
	}
	return out
}

// diff returns values[i] - values[i-lag]
func diff(values []float64, lag int) []float64 {
	out := nanSlice(len(values))
	for i := lag; i < len(values); i++ {
		out[i] = values[i] - values[i-lag]
	}
	return out
}

// pctChange returns values[i]/values[i-lag] - 1
func pctChange(values []float64, lag int) []float64 {
	out := nanSlice(len(values))
	for i := lag; i < len(values); i++ {
		if values[i-lag] == 0 {
			continue
		}
		out[i] = values[i]/values[i-lag] - 1.0
	}
	return out
}

// logReturns returns log(values[i] / values[i-lag])
func logReturns(values []float64, lag int) []float64 {
	out := nanSlice(len(values))
	for i := lag; i < len(values); i++ {
		if values[i] <= 0 || values[i-lag] <= 0 {
			continue
		}
		out[i] = math.Log(values[i] / values[i-lag])
	}
	return out
}

func windowOK(values []float64, end, window int) bool {
	if end+1 < window {
		return false
	}
	for i := end - window + 1; i <= end; i++ {
		if isBad(values[i]) {
			return false
		}
	}
	return true
}

func rollingMean(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := range values {
		if !windowOK(values, i, window) {
			continue
		}
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(window)
	}
	return out
}

func rollingStd(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window < 2 {
		return out
	}
	for i := range values {
		if !windowOK(values, i, window) {
			continue
		}
		mean := 0.0
		for j := i - window + 1; j <= i; j++ {
			mean += values[j]
		}
		mean /= float64(window)

		ss := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}

func rollingMax(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := range values {
		if !windowOK(values, i, window) {
			continue
		}
		max := values[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if values[j] > max {
				max = values[j]
			}
		}
		out[i] = max
	}
	return out
}

// rollingQuantile computes the q-th quantile with linear interpolation
// between order statistics
func rollingQuantile(values []float64, window int, q float64) []float64 {
	out := nanSlice(len(values))
	buf := make([]float64, window)
	for i := range values {
		if !windowOK(values, i, window) {
			continue
		}
		copy(buf, values[i-window+1:i+1])
		sort.Float64s(buf)

		pos := q * float64(window-1)
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		if lo == hi {
			out[i] = buf[lo]
		} else {
			frac := pos - float64(lo)
			out[i] = buf[lo]*(1-frac) + buf[hi]*frac
		}
	}
	return out
}

func pearson(a, b []float64) float64 {
	n := len(a)
	if n < 2 {
		return math.NaN()
	}
	meanA, meanB := 0.0, 0.0
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varA*varB)
}

func rollingCorr(a, b []float64, window int) []float64 {
	out := nanSlice(len(a))
	if len(b) != len(a) {
		return out
	}
	for i := range a {
		if !windowOK(a, i, window) || !windowOK(b, i, window) {
			continue
		}
		out[i] = pearson(a[i-window+1:i+1], b[i-window+1:i+1])
	}
	return out
}

// rollingAutocorr computes the lag-1 autocorrelation inside each window:
// positive = momentum, negative = mean reversion
func rollingAutocorr(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := range values {
		if !windowOK(values, i, window) {
			continue
		}
		w := values[i-window+1 : i+1]
		out[i] = pearson(w[1:], w[:len(w)-1])
	}
	return out
}

// rollingRSquared fits price against time within the window and returns the
// fit R², clipped to [0, 1]. High values mean a clean linear trend.
func rollingRSquared(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := range values {
		if !windowOK(values, i, window) {
			continue
		}
		w := values[i-window+1 : i+1]
		n := len(w)

		xMean := float64(n-1) / 2.0
		yMean := 0.0
		for _, y := range w {
			yMean += y
		}
		yMean /= float64(n)

		ssTot := 0.0
		for _, y := range w {
			d := y - yMean
			ssTot += d * d
		}
		if ssTot < 1e-9 {
			out[i] = 0.0
			continue
		}

		var sxy, sxx float64
		for j, y := range w {
			dx := float64(j) - xMean
			sxy += dx * (y - yMean)
			sxx += dx * dx
		}
		slope := sxy / (sxx + 1e-9)
		intercept := yMean - slope*xMean

		ssRes := 0.0
		for j, y := range w {
			pred := slope*float64(j) + intercept
			d := y - pred
			ssRes += d * d
		}

		rsq := 1.0 - ssRes/ssTot
		if rsq < 0 {
			rsq = 0
		}
		if rsq > 1 {
			rsq = 1
		}
		out[i] = rsq
	}
	return out
}

// rollingZScore returns (x - mean_w) / (std_w + eps)
func rollingZScore(values []float64, window int, eps float64) []float64 {
	mean := rollingMean(values, window)
	std := rollingStd(values, window)
	out := nanSlice(len(values))
	for i := range values {
		if isBad(values[i]) || isBad(mean[i]) || isBad(std[i]) {
			continue
		}
		out[i] = (values[i] - mean[i]) / (std[i] + eps)
	}
	return out
}

// maskWarmup replaces the first n values with NaN. Used on indicator-library
// outputs, which emit partial-window values during warm-up instead of NaN.
func maskWarmup(values []float64, n int) []float64 {
	for i := 0; i < n && i < len(values); i++ {
		values[i] = math.NaN()
	}
	return values
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
