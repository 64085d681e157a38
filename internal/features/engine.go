package features

import (
	"time"

	"github.com/selivandex/etf-signals/pkg/models"
)

// Engine assembles the full per-asset feature rows: technical features from
// the asset's own bars, the shared context vector joined by exact date, event
// flags, and lagged copies.
type Engine struct {
	context map[time.Time]models.FeatureVector
	events  map[time.Time]map[models.EventType]bool
}

// NewEngine builds an engine over a precomputed context (one vector per
// benchmark calendar date) and the event calendar.
func NewEngine(calendar []time.Time, context []models.FeatureVector, events []models.Event) *Engine {
	ctx := make(map[time.Time]models.FeatureVector, len(calendar))
	for i, d := range calendar {
		if i < len(context) {
			ctx[models.DateOf(d)] = context[i]
		}
	}

	ev := make(map[time.Time]map[models.EventType]bool)
	for _, e := range events {
		d := models.DateOf(e.Date)
		if ev[d] == nil {
			ev[d] = make(map[models.EventType]bool)
		}
		ev[d][e.Type] = true
	}

	return &Engine{context: ctx, events: ev}
}

// Compute returns one feature row per bar, in the bars' chronological order.
// Bars must be sorted ascending by date with no duplicates.
func (e *Engine) Compute(assetID int64, bars []models.Bar) []models.FeatureRow {
	vectors := ComputeTechnical(bars)

	for i, b := range bars {
		d := models.DateOf(b.Date)

		// Context join: no context for a date means those features are absent,
		// never zero
		if ctx, ok := e.context[d]; ok {
			for name, val := range ctx {
				vectors[i][name] = val
			}
		}

		// Event flags are always present: a date off the calendar is a
		// definite 0, not a missing value
		flags := e.events[d]
		vectors[i][IsFOMC] = boolFeature(flags[models.EventFOMC])
		vectors[i][IsCPI] = boolFeature(flags[models.EventCPI])
		vectors[i][IsNFP] = boolFeature(flags[models.EventNFP])
	}

	applyLags(vectors)

	rows := make([]models.FeatureRow, len(bars))
	for i, b := range bars {
		rows[i] = models.FeatureRow{
			AssetID:       assetID,
			Date:          models.DateOf(b.Date),
			SchemaVersion: SchemaVersion,
			Features:      vectors[i],
		}
	}
	return rows
}
