package features

import "github.com/selivandex/etf-signals/pkg/models"

// lagRule maps a source feature to a lagged copy. Lags are in trading-day
// positions within the asset's own row sequence, so a holiday simply means
// the previous trading day's value.
type lagRule struct {
	source models.FeatureName
	lag    int
	target models.FeatureName
}

var lagRules = []lagRule{
	{LogRet1D, 1, LogRet1DLag1},
	{LogRet1D, 2, LogRet1DLag2},
	{LogRet1D, 3, LogRet1DLag3},
	{LogRet1D, 5, LogRet1DLag5},
	{VIXChange1D, 1, VIXChange1DLag1},
	{VIXChange1D, 3, VIXChange1DLag3},
	{HYOASChange1D, 1, HYOASChange1DLag1},
	{YieldCurveSlope, 1, YieldCurveSlopeLag1},
}

// applyLags adds the lagged copies to each vector, reading the source value
// from the vector lag positions earlier. An absent source stays absent in
// the lagged copy.
func applyLags(vectors []models.FeatureVector) {
	for i := range vectors {
		for _, r := range lagRules {
			if i < r.lag {
				continue
			}
			if v, ok := vectors[i-r.lag][r.source]; ok {
				vectors[i][r.target] = v
			}
		}
	}
}
