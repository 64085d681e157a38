package features

import (
	"time"

	"github.com/selivandex/etf-signals/pkg/models"
)

// Proxy and macro series keys the context features read. Missing series
// degrade to absent features, never to zeros.
const (
	ProxyVIX   = "^VIX"
	ProxyVIX9D = "^VIX9D"
	ProxyVVIX  = "^VVIX"
	ProxyUUP   = "UUP"
	ProxyGLD   = "GLD"
	ProxyUSO   = "USO"
	ProxyHYG   = "HYG"
	ProxyLQD   = "LQD"
	ProxyTLT   = "TLT"
	ProxyRSP   = "RSP"

	SeriesDGS2  = "DGS2"
	SeriesDGS10 = "DGS10"
	SeriesHYOAS = "BAMLH0A0HYM2"
	SeriesWALCL = "WALCL"
	SeriesRRP   = "RRPONTSYD"
)

// ContextInput carries all series pre-aligned to the benchmark trading
// calendar: one slot per trading day, NaN where a value is unavailable.
// Macro series must already have the staleness ceiling applied.
type ContextInput struct {
	Calendar []time.Time
	Proxies  map[string][]float64
	Macro    map[string][]float64
	// ETF closes for breadth ratios, keyed by symbol; must include Benchmark
	ETFs      map[string][]float64
	Benchmark string
}

func (in ContextInput) proxy(key string) []float64 {
	if s, ok := in.Proxies[key]; ok && len(s) == len(in.Calendar) {
		return s
	}
	return nanSlice(len(in.Calendar))
}

func (in ContextInput) macro(key string) []float64 {
	if s, ok := in.Macro[key]; ok && len(s) == len(in.Calendar) {
		return s
	}
	return nanSlice(len(in.Calendar))
}

func (in ContextInput) etf(key string) []float64 {
	if s, ok := in.ETFs[key]; ok && len(s) == len(in.Calendar) {
		return s
	}
	return nanSlice(len(in.Calendar))
}

func sub(a, b []float64) []float64 {
	out := nanSlice(len(a))
	for i := range a {
		if isBad(a[i]) || isBad(b[i]) {
			continue
		}
		out[i] = a[i] - b[i]
	}
	return out
}

func div(a, b []float64) []float64 {
	out := nanSlice(len(a))
	for i := range a {
		if isBad(a[i]) || isBad(b[i]) || b[i] == 0 {
			continue
		}
		out[i] = a[i] / b[i]
	}
	return out
}

// ComputeContext computes the context feature vector shared by every asset
// on a given date: macro-derived levels and changes, vol-index features,
// cross-asset returns, breadth ratios, and regime flags. Regime percentiles
// use trailing windows only.
func ComputeContext(in ContextInput) []models.FeatureVector {
	n := len(in.Calendar)
	out := make([]models.FeatureVector, n)
	for i := range out {
		out[i] = make(models.FeatureVector)
	}
	if n == 0 {
		return out
	}

	// Macro-derived
	dgs2 := in.macro(SeriesDGS2)
	dgs10 := in.macro(SeriesDGS10)
	slope := sub(dgs10, dgs2)
	dgs10Chg5 := diff(dgs10, 5)

	hy := in.macro(SeriesHYOAS)
	hyChg1 := diff(hy, 1)
	hyChg5 := diff(hy, 5)

	walcl := in.macro(SeriesWALCL)
	fedBSChgPct := pctChange(walcl, 5)
	// Expanding balance sheet over ~4 trading weeks reads as a liquidity injection
	walclChg20 := diff(walcl, 20)

	rrp := in.macro(SeriesRRP)
	rrpChgPct5 := pctChange(rrp, 5)

	// Vol index
	vix := in.proxy(ProxyVIX)
	vix9d := in.proxy(ProxyVIX9D)
	vixChg1 := diff(vix, 1)
	vixChg5 := diff(vix, 5)
	vixTerm := div(vix9d, vix)
	vixQ75 := rollingQuantile(vix, 60, 0.75)

	// Cross-asset 5-day returns
	spy := in.etf(in.Benchmark)
	spyRet1 := pctChange(spy, 1)
	spyRet5 := pctChange(spy, 5)
	dxyRet5 := pctChange(in.proxy(ProxyUUP), 5)
	goldRet5 := pctChange(in.proxy(ProxyGLD), 5)
	oilRet5 := pctChange(in.proxy(ProxyUSO), 5)
	hygCloses := in.proxy(ProxyHYG)
	hygRet1 := pctChange(hygCloses, 1)
	hygRet5 := pctChange(hygCloses, 5)
	hygVsSpy5 := sub(hygRet5, spyRet5)
	hygSpyCorr20 := rollingCorr(hygRet1, spyRet1, 20)
	lqdRet5 := pctChange(in.proxy(ProxyLQD), 5)
	tltRet5 := pctChange(in.proxy(ProxyTLT), 5)

	// Breadth: equal-weight and style proxies against the benchmark
	rspSpy := div(in.proxy(ProxyRSP), spy)
	rspSpyZ := rollingZScore(rspSpy, 20, 0)
	qqqSpyZ := rollingZScore(div(in.etf("QQQ"), spy), 20, 0)
	iwmSpyZ := rollingZScore(div(in.etf("IWM"), spy), 20, 0)

	// Credit-stress percentile
	hyQ80 := rollingQuantile(hy, 60, 0.80)

	for i := 0; i < n; i++ {
		v := out[i]

		set(v, DGS2, dgs2[i])
		set(v, DGS10, dgs10[i])
		set(v, YieldCurveSlope, slope[i])
		set(v, DGS10Change5D, dgs10Chg5[i])
		set(v, HYOASLevel, hy[i])
		set(v, HYOASChange1D, hyChg1[i])
		set(v, HYOASChange5D, hyChg5[i])
		if !isBad(walclChg20[i]) {
			set(v, LiquidityExpanding, boolFeature(walclChg20[i] > 0))
		}
		set(v, FedBSChgPct, fedBSChgPct[i])
		set(v, RRPLevel, rrp[i])
		set(v, RRPChgPct5D, rrpChgPct5[i])

		set(v, VIXLevel, vix[i])
		set(v, VIXChange1D, vixChg1[i])
		set(v, VIXChange5D, vixChg5[i])
		set(v, VIXTermStructure, vixTerm[i])

		set(v, DXYRet5D, dxyRet5[i])
		set(v, GoldRet5D, goldRet5[i])
		set(v, OilRet5D, oilRet5[i])
		set(v, HYGRet5D, hygRet5[i])
		set(v, HYGVsSPY5D, hygVsSpy5[i])
		set(v, HYGSPYCorr20D, hygSpyCorr20[i])
		set(v, LQDRet5D, lqdRet5[i])
		set(v, TLTRet5D, tltRet5[i])

		set(v, RSPSPYRatio, rspSpy[i])
		set(v, RSPSPYRatioZ, rspSpyZ[i])
		set(v, QQQSPYRatioZ, qqqSpyZ[i])
		set(v, IWMSPYRatioZ, iwmSpyZ[i])

		// Regime flags: absent while their trailing statistics warm up
		if !isBad(vix[i]) && !isBad(vixQ75[i]) {
			set(v, HighVolRegime, boolFeature(vix[i] > 20.0 || vix[i] > vixQ75[i]))
		}
		if !isBad(dgs10[i]) && !isBad(dgs2[i]) {
			set(v, CurveInverted, boolFeature(dgs10[i] < dgs2[i]))
		}
		if !isBad(hy[i]) && !isBad(hyQ80[i]) {
			set(v, CreditStress, boolFeature(hy[i] > hyQ80[i]))
		}
		if !isBad(walclChg20[i]) {
			set(v, LiquidityExpandingRegime, boolFeature(walclChg20[i] > 0))
		}
	}

	return out
}
