package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NewDecimal creates decimal from float64
func NewDecimal(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// RunMode represents the batch pipeline mode
type RunMode string

const (
	ModeBackfill    RunMode = "backfill"
	ModeIncremental RunMode = "incremental"
)

// AssetType tags an instrument
type AssetType string

const (
	AssetETF   AssetType = "etf"
	AssetIndex AssetType = "index"
)

// Asset represents a tradable instrument or a reference proxy
type Asset struct {
	ID       int64     `db:"id"`
	Symbol   string    `db:"symbol"`
	Name     string    `db:"name"`
	Type     AssetType `db:"asset_type"`
	Exchange string    `db:"exchange"`
	Currency string    `db:"currency"`
	Timezone string    `db:"timezone"`
}

// Bar represents one daily OHLCV row for an asset.
// Outcome prices are the closes 1 and 5 trading days ahead; they stay nil
// until the future bar exists and are then filled exactly once.
type Bar struct {
	AssetID   int64            `db:"asset_id"`
	Symbol    string           `db:"-"`
	Date      time.Time        `db:"date"`
	Open      decimal.Decimal  `db:"open"`
	High      decimal.Decimal  `db:"high"`
	Low       decimal.Decimal  `db:"low"`
	Close     decimal.Decimal  `db:"close"`
	AdjClose  decimal.Decimal  `db:"adj_close"`
	Volume    int64            `db:"volume"`
	Outcome1D *decimal.Decimal `db:"outcome_price_1d"`
	Outcome5D *decimal.Decimal `db:"outcome_price_5d"`
}

// MacroSeries is a named external time series (FRED key, e.g. DGS10)
type MacroSeries struct {
	ID        int64  `db:"id"`
	Key       string `db:"series_key"`
	Name      string `db:"name"`
	Frequency string `db:"frequency"`
	Units     string `db:"units"`
	Source    string `db:"source"`
}

// MacroPoint is one dated macro value. DaysSinceUpdate distinguishes a true
// print (0) from a forward-filled copy (calendar days since the print).
type MacroPoint struct {
	SeriesID        int64     `db:"series_id"`
	Date            time.Time `db:"date"`
	Value           float64   `db:"value"`
	DaysSinceUpdate int       `db:"days_since_update"`
}

// EventType is the closed set of macro-release event types
type EventType string

const (
	EventFOMC EventType = "fomc"
	EventCPI  EventType = "cpi_release"
	EventNFP  EventType = "nfp_release"
)

// Valid reports whether the type belongs to the closed set
func (t EventType) Valid() bool {
	switch t {
	case EventFOMC, EventCPI, EventNFP:
		return true
	}
	return false
}

// Event is one dated occurrence of a macro release
type Event struct {
	Date   time.Time `db:"date"`
	Type   EventType `db:"event_type"`
	Name   string    `db:"event_name"`
	Source string    `db:"source"`
}

// FeatureName is a stable feature identifier. The full closed list lives in
// internal/features; the name set is a versioned schema.
type FeatureName string

// FeatureVector is a named bag of feature values for one (asset, date).
// Absent keys are legitimately-missing values (warm-up, stale macro), never zero.
type FeatureVector map[FeatureName]float64

// Clone returns a shallow copy of the vector
func (v FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// FeatureRow is one persisted feature vector
type FeatureRow struct {
	AssetID       int64
	Date          time.Time
	SchemaVersion int
	Features      FeatureVector
}

// Class is a discretized directional label
type Class int16

const (
	ClassDown    Class = -1
	ClassNeutral Class = 0
	ClassUp      Class = 1
)

// LabelPolicy selects the active discretization scheme.
// The two policies are not interchangeable: the neutral band changes the
// trading-frequency semantics of every downstream consumer.
type LabelPolicy string

const (
	// PolicyThreshold classifies the vol-scaled return against a symmetric
	// band; moves inside the band are neutral.
	PolicyThreshold LabelPolicy = "threshold"
	// PolicyBinary classifies purely on the sign of the raw forward return.
	PolicyBinary LabelPolicy = "binary"
)

// HorizonLabel holds the targets for one horizon. All fields are nil until
// the future close exists, then frozen.
type HorizonLabel struct {
	Raw     *float64
	Scaled  *float64
	Clipped *float64
	Class   *Class
}

// LabelRow is one persisted label row covering the 1d and 5d horizons
type LabelRow struct {
	AssetID int64
	Date    time.Time
	H1      HorizonLabel
	H5      HorizonLabel
}

// Date normalizes a timestamp to a UTC calendar date
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its UTC calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
