package prices

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/selivandex/etf-signals/internal/adapters/database"
	"github.com/selivandex/etf-signals/pkg/models"
)

// Repository handles asset and daily-bar database operations
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new prices repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db.DB()}
}

// UpsertAsset registers a symbol and returns its id. Re-registering updates
// the descriptive columns only.
func (r *Repository) UpsertAsset(ctx context.Context, asset models.Asset) (int64, error) {
	query := `
		INSERT INTO assets (symbol, name, asset_type, exchange, currency, timezone)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			asset_type = EXCLUDED.asset_type
		RETURNING id`

	var id int64
	err := r.db.GetContext(ctx, &id, query,
		asset.Symbol, asset.Name, asset.Type, asset.Exchange, asset.Currency, asset.Timezone)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert asset %s: %w", asset.Symbol, err)
	}
	return id, nil
}

// GetAsset loads an asset by symbol
func (r *Repository) GetAsset(ctx context.Context, symbol string) (*models.Asset, error) {
	var asset models.Asset
	err := r.db.GetContext(ctx, &asset,
		`SELECT id, symbol, name, asset_type, exchange, currency, timezone FROM assets WHERE symbol = $1`,
		symbol)
	if err != nil {
		return nil, fmt.Errorf("asset %s not found: %w", symbol, err)
	}
	return &asset, nil
}

const upsertBarQuery = `
	INSERT INTO daily_bars (asset_id, date, open, high, low, close, adj_close, volume, updated_at)
	VALUES (:asset_id, :date, :open, :high, :low, :close, :adj_close, :volume, NOW())
	ON CONFLICT (asset_id, date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		adj_close = EXCLUDED.adj_close,
		volume = EXCLUDED.volume,
		updated_at = NOW()`

// UpsertBars writes bars in one transaction. Outcome columns are left alone:
// vendors revise OHLCV, but outcome prices are filled separately and frozen.
func (r *Repository) UpsertBars(ctx context.Context, assetID int64, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin bars tx: %w", err)
	}
	defer tx.Rollback()

	for _, bar := range bars {
		bar.AssetID = assetID
		if _, err := tx.NamedExecContext(ctx, upsertBarQuery, bar); err != nil {
			return fmt.Errorf("failed to upsert bar for asset %d on %s: %w",
				assetID, bar.Date.Format("2006-01-02"), err)
		}
	}

	return tx.Commit()
}

// GetBars loads bars for [from, to] inclusive, sorted ascending
func (r *Repository) GetBars(ctx context.Context, assetID int64, from, to time.Time) ([]models.Bar, error) {
	var bars []models.Bar
	err := r.db.SelectContext(ctx, &bars, `
		SELECT asset_id, date, open, high, low, close, adj_close, volume,
		       outcome_price_1d, outcome_price_5d
		FROM daily_bars
		WHERE asset_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC`,
		assetID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load bars for asset %d: %w", assetID, err)
	}
	return bars, nil
}

// LatestBarDate returns the newest persisted bar date, or zero time when the
// asset has no history yet
func (r *Repository) LatestBarDate(ctx context.Context, assetID int64) (time.Time, error) {
	var latest *time.Time
	err := r.db.GetContext(ctx, &latest,
		`SELECT MAX(date) FROM daily_bars WHERE asset_id = $1`, assetID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest bar date: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}

// FillOutcomePrices fills outcome_price_1d/5d from the closes 1 and 5
// trading rows ahead, only where they are still NULL. Positions count
// trading rows, so holidays shift the horizon naturally.
func (r *Repository) FillOutcomePrices(ctx context.Context, assetID int64) (int64, error) {
	query := `
		WITH ordered AS (
			SELECT date,
			       LEAD(close, 1) OVER (ORDER BY date) AS next_1d,
			       LEAD(close, 5) OVER (ORDER BY date) AS next_5d
			FROM daily_bars
			WHERE asset_id = $1
		)
		UPDATE daily_bars b
		SET outcome_price_1d = COALESCE(b.outcome_price_1d, o.next_1d),
		    outcome_price_5d = COALESCE(b.outcome_price_5d, o.next_5d),
		    updated_at = NOW()
		FROM ordered o
		WHERE b.asset_id = $1
		  AND b.date = o.date
		  AND (
		      (b.outcome_price_1d IS NULL AND o.next_1d IS NOT NULL) OR
		      (b.outcome_price_5d IS NULL AND o.next_5d IS NOT NULL)
		  )`

	res, err := r.db.ExecContext(ctx, query, assetID)
	if err != nil {
		return 0, fmt.Errorf("failed to fill outcome prices for asset %d: %w", assetID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// BarCount returns the number of persisted bars for an asset
func (r *Repository) BarCount(ctx context.Context, assetID int64) (int, error) {
	var cnt int
	err := r.db.GetContext(ctx, &cnt,
		`SELECT COUNT(*) FROM daily_bars WHERE asset_id = $1`, assetID)
	if err != nil {
		return 0, fmt.Errorf("failed to count bars: %w", err)
	}
	return cnt, nil
}

// DuplicateDates returns (asset_id, date) pairs appearing more than once.
// The primary key makes this structurally impossible; the validator checks
// anyway and treats a hit as corruption.
func (r *Repository) DuplicateDates(ctx context.Context) (int, error) {
	var cnt int
	err := r.db.GetContext(ctx, &cnt, `
		SELECT COUNT(*) FROM (
			SELECT asset_id, date FROM daily_bars GROUP BY asset_id, date HAVING COUNT(*) > 1
		) d`)
	if err != nil {
		return 0, fmt.Errorf("failed to check duplicate bars: %w", err)
	}
	return cnt, nil
}
