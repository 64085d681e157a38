package features

import "github.com/selivandex/etf-signals/pkg/models"

// SchemaVersion identifies the feature-name set. Adding or removing a name
// is a schema migration, not a silent shape change.
const SchemaVersion = 2

// Feature names. These are stable storage identifiers: renaming one breaks
// every persisted row and every downstream model.
const (
	// Returns / momentum
	LogRet1D  models.FeatureName = "log_ret_1d"
	LogRet5D  models.FeatureName = "log_ret_5d"
	LogRet20D models.FeatureName = "log_ret_20d"
	RSI14     models.FeatureName = "rsi_14"
	MACDHist  models.FeatureName = "macd_hist"

	// Volatility / range
	Vol5         models.FeatureName = "vol_5"
	Vol20        models.FeatureName = "vol_20"
	Vol60        models.FeatureName = "vol_60"
	ATR14        models.FeatureName = "atr_14"
	HighLowPct   models.FeatureName = "high_low_pct"
	CloseOpenPct models.FeatureName = "close_open_pct"

	// Trend / levels
	SMA20        models.FeatureName = "sma_20"
	SMA50        models.FeatureName = "sma_50"
	SMA200       models.FeatureName = "sma_200"
	EMA20        models.FeatureName = "ema_20"
	EMA50        models.FeatureName = "ema_50"
	SMA20GtSMA50 models.FeatureName = "sma20_gt_sma50"

	// Volume
	VolumeZ      models.FeatureName = "volume_z"
	VolumeChgPct models.FeatureName = "volume_chg_pct"

	// Drawdown
	DD60 models.FeatureName = "dd_60"

	// Calendar
	DOW           models.FeatureName = "dow"
	DaysSincePrev models.FeatureName = "days_since_prev"

	// Overnight / intraday decomposition
	OvernightReturn models.FeatureName = "overnight_return"
	IntradayReturn  models.FeatureName = "intraday_return"
	OvernightMean20 models.FeatureName = "overnight_mean_20"
	OvernightStd20  models.FeatureName = "overnight_std_20"
	IntradayMean20  models.FeatureName = "intraday_mean_20"
	IntradayStd20   models.FeatureName = "intraday_std_20"
	OvernightShare  models.FeatureName = "overnight_share"

	// Trend quality
	ADX14            models.FeatureName = "adx_14"
	ReturnAutocorr20 models.FeatureName = "return_autocorr_20"
	PriceRsq20       models.FeatureName = "price_rsq_20"

	// Macro-derived
	DGS2               models.FeatureName = "dgs2"
	DGS10              models.FeatureName = "dgs10"
	YieldCurveSlope    models.FeatureName = "yield_curve_slope"
	DGS10Change5D      models.FeatureName = "dgs10_change_5d"
	HYOASLevel         models.FeatureName = "hy_oas_level"
	HYOASChange1D      models.FeatureName = "hy_oas_change_1d"
	HYOASChange5D      models.FeatureName = "hy_oas_change_5d"
	LiquidityExpanding models.FeatureName = "liquidity_expanding"
	FedBSChgPct        models.FeatureName = "fed_bs_chg_pct"
	RRPLevel           models.FeatureName = "rrp_level"
	RRPChgPct5D        models.FeatureName = "rrp_chg_pct_5d"

	// Volatility index
	VIXLevel         models.FeatureName = "vix_level"
	VIXChange1D      models.FeatureName = "vix_change_1d"
	VIXChange5D      models.FeatureName = "vix_change_5d"
	VIXTermStructure models.FeatureName = "vix_term_structure"

	// Cross-asset
	DXYRet5D      models.FeatureName = "dxy_ret_5d"
	GoldRet5D     models.FeatureName = "gold_ret_5d"
	OilRet5D      models.FeatureName = "oil_ret_5d"
	HYGRet5D      models.FeatureName = "hyg_ret_5d"
	HYGVsSPY5D    models.FeatureName = "hyg_vs_spy_5d"
	HYGSPYCorr20D models.FeatureName = "hyg_spy_corr_20d"
	LQDRet5D      models.FeatureName = "lqd_ret_5d"
	TLTRet5D      models.FeatureName = "tlt_ret_5d"

	// Breadth
	RSPSPYRatio  models.FeatureName = "rsp_spy_ratio"
	RSPSPYRatioZ models.FeatureName = "rsp_spy_ratio_z"
	QQQSPYRatioZ models.FeatureName = "qqq_spy_ratio_z"
	IWMSPYRatioZ models.FeatureName = "iwm_spy_ratio_z"

	// Regime flags
	HighVolRegime            models.FeatureName = "high_vol_regime"
	CurveInverted            models.FeatureName = "curve_inverted"
	CreditStress             models.FeatureName = "credit_stress"
	LiquidityExpandingRegime models.FeatureName = "liquidity_expanding_regime"

	// Event flags
	IsFOMC models.FeatureName = "is_fomc"
	IsCPI  models.FeatureName = "is_cpi_release"
	IsNFP  models.FeatureName = "is_nfp_release"

	// Lagged copies
	LogRet1DLag1        models.FeatureName = "log_ret_1d_lag1"
	LogRet1DLag2        models.FeatureName = "log_ret_1d_lag2"
	LogRet1DLag3        models.FeatureName = "log_ret_1d_lag3"
	LogRet1DLag5        models.FeatureName = "log_ret_1d_lag5"
	VIXChange1DLag1     models.FeatureName = "vix_change_1d_lag1"
	VIXChange1DLag3     models.FeatureName = "vix_change_1d_lag3"
	HYOASChange1DLag1   models.FeatureName = "hy_oas_change_1d_lag1"
	YieldCurveSlopeLag1 models.FeatureName = "yield_curve_slope_lag1"
)

// Manifest returns the full closed feature-name set for SchemaVersion
func Manifest() []models.FeatureName {
	return []models.FeatureName{
		LogRet1D, LogRet5D, LogRet20D, RSI14, MACDHist,
		Vol5, Vol20, Vol60, ATR14, HighLowPct, CloseOpenPct,
		SMA20, SMA50, SMA200, EMA20, EMA50, SMA20GtSMA50,
		VolumeZ, VolumeChgPct,
		DD60,
		DOW, DaysSincePrev,
		OvernightReturn, IntradayReturn, OvernightMean20, OvernightStd20,
		IntradayMean20, IntradayStd20, OvernightShare,
		ADX14, ReturnAutocorr20, PriceRsq20,
		DGS2, DGS10, YieldCurveSlope, DGS10Change5D,
		HYOASLevel, HYOASChange1D, HYOASChange5D,
		LiquidityExpanding, FedBSChgPct, RRPLevel, RRPChgPct5D,
		VIXLevel, VIXChange1D, VIXChange5D, VIXTermStructure,
		DXYRet5D, GoldRet5D, OilRet5D, HYGRet5D, HYGVsSPY5D, HYGSPYCorr20D,
		LQDRet5D, TLTRet5D,
		RSPSPYRatio, RSPSPYRatioZ, QQQSPYRatioZ, IWMSPYRatioZ,
		HighVolRegime, CurveInverted, CreditStress, LiquidityExpandingRegime,
		IsFOMC, IsCPI, IsNFP,
		LogRet1DLag1, LogRet1DLag2, LogRet1DLag3, LogRet1DLag5,
		VIXChange1DLag1, VIXChange1DLag3, HYOASChange1DLag1, YieldCurveSlopeLag1,
	}
}

// IsKnown reports whether a name belongs to the current schema
func IsKnown(name models.FeatureName) bool {
	for _, n := range Manifest() {
		if n == name {
			return true
		}
	}
	return false
}
