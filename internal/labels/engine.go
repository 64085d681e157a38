package labels

import (
	"math"

	"github.com/selivandex/etf-signals/pkg/models"
)

const volEps = 1e-9

// Engine computes forward-return labels for the 1- and 5-day horizons.
// A label exists only when the future close actually exists: the last rows
// of a series keep nil labels until later runs fill them.
type Engine struct {
	policy    models.LabelPolicy
	threshold float64
	clipSigma float64
}

// New creates a label engine. The policy choice changes what every
// downstream consumer trains on, so it is never defaulted here; the caller
// passes an explicit, validated configuration.
func New(policy models.LabelPolicy, threshold, clipSigma float64) *Engine {
	return &Engine{policy: policy, threshold: threshold, clipSigma: clipSigma}
}

// Compute returns one label row per bar. vol20 must be aligned to bars
// (NaN during warm-up); it scales the raw return into comparable units.
func (e *Engine) Compute(assetID int64, bars []models.Bar, vol20 []float64) []models.LabelRow {
	n := len(bars)
	closes := make([]float64, n)
	for i, b := range bars {
		closes[i], _ = b.Close.Float64()
	}

	rows := make([]models.LabelRow, n)
	for i := range bars {
		rows[i] = models.LabelRow{
			AssetID: assetID,
			Date:    models.DateOf(bars[i].Date),
			H1:      e.horizon(closes, vol20, i, 1),
			H5:      e.horizon(closes, vol20, i, 5),
		}
	}
	return rows
}

func (e *Engine) horizon(closes, vol20 []float64, i, h int) models.HorizonLabel {
	var out models.HorizonLabel

	if i+h >= len(closes) {
		return out
	}
	if closes[i] <= 0 || closes[i+h] <= 0 {
		return out
	}

	raw := math.Log(closes[i+h] / closes[i])
	out.Raw = &raw

	if i < len(vol20) && !math.IsNaN(vol20[i]) {
		scaled := raw / (vol20[i] + volEps)
		clipped := scaled
		if clipped > e.clipSigma {
			clipped = e.clipSigma
		} else if clipped < -e.clipSigma {
			clipped = -e.clipSigma
		}
		out.Scaled = &scaled
		out.Clipped = &clipped
	}

	if cls := e.classify(raw, out.Scaled); cls != nil {
		out.Class = cls
	}
	return out
}

// classify discretizes the move under the configured policy. Threshold
// policy needs the vol-scaled return; a move landing exactly on the band
// edge stays neutral.
func (e *Engine) classify(raw float64, scaled *float64) *models.Class {
	var cls models.Class
	switch e.policy {
	case models.PolicyThreshold:
		if scaled == nil {
			return nil
		}
		switch {
		case *scaled > e.threshold:
			cls = models.ClassUp
		case *scaled < -e.threshold:
			cls = models.ClassDown
		default:
			cls = models.ClassNeutral
		}
	case models.PolicyBinary:
		if raw > 0 {
			cls = models.ClassUp
		} else {
			cls = models.ClassDown
		}
	default:
		return nil
	}
	return &cls
}
