package macro

import (
	"context"
	"time"

	"github.com/selivandex/etf-signals/internal/macroalign"
)

// SeriesProvider fetches raw macro observations for a series key
type SeriesProvider interface {
	// GetObservations returns dated values for [from, to] inclusive, sorted
	// ascending. Missing prints (the source's ".") are omitted, not zeroed.
	GetObservations(ctx context.Context, seriesKey string, from, to time.Time) ([]macroalign.Observation, error)

	// GetName returns provider name
	GetName() string
}
