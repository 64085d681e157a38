package prices

import (
	"context"
	"time"

	"github.com/selivandex/etf-signals/pkg/models"
)

// BarProvider fetches daily OHLCV history for a symbol
type BarProvider interface {
	// GetDailyBars returns bars for [from, to] inclusive, sorted ascending
	GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)

	// GetName returns provider name
	GetName() string
}
