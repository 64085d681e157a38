package features

import (
	"math"
	"time"

	"github.com/cinar/indicator"

	"github.com/selivandex/etf-signals/pkg/models"
)

const (
	overnightEps = 1e-6
	zScoreEps    = 1e-9
)

// set stores a value only when it is a real number; NaN/Inf means the
// feature is legitimately absent for that date
func set(v models.FeatureVector, name models.FeatureName, value float64) {
	if isBad(value) {
		return
	}
	v[name] = value
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ComputeTechnical computes the per-asset base technical features, one
// vector per bar, using only the asset's own history up to each date.
// Rows inside the warm-up region of a window simply omit that feature.
func ComputeTechnical(bars []models.Bar) []models.FeatureVector {
	n := len(bars)
	out := make([]models.FeatureVector, n)
	for i := range out {
		out[i] = make(models.FeatureVector)
	}
	if n == 0 {
		return out
	}

	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		opens[i], _ = b.Open.Float64()
		highs[i], _ = b.High.Float64()
		lows[i], _ = b.Low.Float64()
		closes[i], _ = b.Close.Float64()
		volumes[i] = float64(b.Volume)
	}

	// Returns
	ret1 := logReturns(closes, 1)
	ret5 := logReturns(closes, 5)
	ret20 := logReturns(closes, 20)

	// Realized volatility of daily returns
	vol5 := rollingStd(ret1, 5)
	vol20 := rollingStd(ret1, 20)
	vol60 := rollingStd(ret1, 60)

	// Moving averages. The indicator library emits partial-window values
	// during warm-up; mask those so the warm-up region stays null.
	sma20 := maskWarmup(indicator.Sma(20, closes), 19)
	sma50 := maskWarmup(indicator.Sma(50, closes), 49)
	sma200 := maskWarmup(indicator.Sma(200, closes), 199)
	ema20 := indicator.Ema(20, closes)
	ema50 := indicator.Ema(50, closes)

	// Oscillators
	_, rsi := indicator.Rsi(closes)
	rsi = maskWarmup(rsi, 14)
	macdLine, signalLine := indicator.Macd(closes)
	macdHist := make([]float64, n)
	for i := range macdLine {
		macdHist[i] = macdLine[i] - signalLine[i]
	}

	// Range
	_, atr := indicator.Atr(14, highs, lows, closes)
	atr = maskWarmup(atr, 14)

	// Volume
	volumeZ := rollingZScore(volumes, 20, zScoreEps)
	volumeChg := pctChange(volumes, 1)

	// Drawdown from the trailing 60-day high, always <= 0
	rollMax60 := rollingMax(closes, 60)
	dd60 := nanSlice(n)
	for i := range closes {
		if isBad(rollMax60[i]) || rollMax60[i] == 0 {
			continue
		}
		dd60[i] = closes[i]/rollMax60[i] - 1.0
	}

	// Overnight / intraday decomposition
	overnight := nanSlice(n)
	intraday := nanSlice(n)
	for i := range closes {
		if opens[i] > 0 && closes[i] > 0 {
			intraday[i] = math.Log(closes[i] / opens[i])
		}
		if i > 0 && opens[i] > 0 && closes[i-1] > 0 {
			overnight[i] = math.Log(opens[i] / closes[i-1])
		}
	}
	overnightMean20 := rollingMean(overnight, 20)
	overnightStd20 := rollingStd(overnight, 20)
	intradayMean20 := rollingMean(intraday, 20)
	intradayStd20 := rollingStd(intraday, 20)

	// Trend quality
	adx := adxSeries(highs, lows, closes, 14)
	autocorr20 := rollingAutocorr(ret1, 20)
	rsq20 := rollingRSquared(closes, 20)

	for i := range bars {
		v := out[i]

		set(v, LogRet1D, ret1[i])
		set(v, LogRet5D, ret5[i])
		set(v, LogRet20D, ret20[i])
		set(v, RSI14, rsi[i])
		set(v, MACDHist, macdHist[i])

		set(v, Vol5, vol5[i])
		set(v, Vol20, vol20[i])
		set(v, Vol60, vol60[i])
		set(v, ATR14, atr[i])
		if closes[i] != 0 {
			set(v, HighLowPct, (highs[i]-lows[i])/closes[i])
		}
		if opens[i] != 0 {
			set(v, CloseOpenPct, (closes[i]-opens[i])/opens[i])
		}

		set(v, SMA20, sma20[i])
		set(v, SMA50, sma50[i])
		set(v, SMA200, sma200[i])
		set(v, EMA20, ema20[i])
		set(v, EMA50, ema50[i])
		if !isBad(sma20[i]) && !isBad(sma50[i]) {
			set(v, SMA20GtSMA50, boolFeature(sma20[i] > sma50[i]))
		}

		set(v, VolumeZ, volumeZ[i])
		set(v, VolumeChgPct, volumeChg[i])
		set(v, DD60, dd60[i])

		// Monday = 0, matching the stored historical rows
		set(v, DOW, float64((int(bars[i].Date.Weekday())+6)%7))
		if i > 0 {
			set(v, DaysSincePrev, float64(calendarDaysBetween(bars[i-1].Date, bars[i].Date)))
		}

		set(v, OvernightReturn, overnight[i])
		set(v, IntradayReturn, intraday[i])
		set(v, OvernightMean20, overnightMean20[i])
		set(v, OvernightStd20, overnightStd20[i])
		set(v, IntradayMean20, intradayMean20[i])
		set(v, IntradayStd20, intradayStd20[i])

		// Bounded by construction: the denominator dominates the numerator,
		// and the epsilon keeps near-zero days from blowing up
		if !isBad(overnight[i]) && !isBad(intraday[i]) {
			total := math.Abs(overnight[i]) + math.Abs(intraday[i]) + overnightEps
			set(v, OvernightShare, clip(overnight[i]/total, -1, 1))
		}

		set(v, ADX14, adx[i])
		set(v, ReturnAutocorr20, autocorr20[i])
		set(v, PriceRsq20, rsq20[i])
	}

	return out
}

// trueRange computes the Wilder true range series
func trueRange(highs, lows, closes []float64) []float64 {
	n := len(closes)
	tr := make([]float64, n)
	for i := 0; i < n; i++ {
		hl := highs[i] - lows[i]
		if i == 0 {
			tr[i] = hl
			continue
		}
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// adxSeries computes an EMA-smoothed directional-strength index.
// Above ~25 reads as a strong trend, below ~20 as chop.
func adxSeries(highs, lows, closes []float64, window int) []float64 {
	n := len(closes)
	if n == 0 {
		return nil
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	atrEMA := indicator.Ema(window, trueRange(highs, lows, closes))
	plusEMA := indicator.Ema(window, plusDM)
	minusEMA := indicator.Ema(window, minusDM)

	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		plusDI := 100 * plusEMA[i] / (atrEMA[i] + 1e-9)
		minusDI := 100 * minusEMA[i] / (atrEMA[i] + 1e-9)
		dx[i] = 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI + 1e-9)
	}

	return indicator.Ema(window, dx)
}

func calendarDaysBetween(from, to time.Time) int {
	return int(models.DateOf(to).Sub(models.DateOf(from)).Hours() / 24)
}
