package features

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/selivandex/etf-signals/internal/adapters/database"
	"github.com/selivandex/etf-signals/pkg/models"
)

// Repository persists feature rows. Upserts are idempotent: re-running a day
// replaces the payload wholesale, so a recompute always wins.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates features repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db.DB()}
}

const upsertFeaturesQuery = `
	INSERT INTO features (asset_id, date, schema_version, payload, updated_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (asset_id, date) DO UPDATE SET
		schema_version = EXCLUDED.schema_version,
		payload = EXCLUDED.payload,
		updated_at = NOW()`

// Upsert writes the rows in one transaction
func (r *Repository) Upsert(ctx context.Context, rows []models.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin features tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, upsertFeaturesQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare features upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		payload, err := json.Marshal(row.Features)
		if err != nil {
			return fmt.Errorf("failed to marshal feature payload for %s: %w",
				row.Date.Format("2006-01-02"), err)
		}
		if _, err := stmt.ExecContext(ctx, row.AssetID, row.Date, row.SchemaVersion, payload); err != nil {
			return fmt.Errorf("failed to upsert features for asset %d on %s: %w",
				row.AssetID, row.Date.Format("2006-01-02"), err)
		}
	}

	return tx.Commit()
}

// LatestDate returns the most recent feature date for an asset, or a zero
// time when nothing is persisted yet
func (r *Repository) LatestDate(ctx context.Context, assetID int64) (time.Time, error) {
	var latest *time.Time
	err := r.db.GetContext(ctx, &latest,
		`SELECT MAX(date) FROM features WHERE asset_id = $1`, assetID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest feature date: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}

// Get loads one persisted feature row
func (r *Repository) Get(ctx context.Context, assetID int64, date time.Time) (*models.FeatureRow, error) {
	var rec struct {
		SchemaVersion int    `db:"schema_version"`
		Payload       []byte `db:"payload"`
	}
	err := r.db.GetContext(ctx, &rec,
		`SELECT schema_version, payload FROM features WHERE asset_id = $1 AND date = $2`,
		assetID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load features for asset %d on %s: %w",
			assetID, date.Format("2006-01-02"), err)
	}

	features := make(models.FeatureVector)
	if err := json.Unmarshal(rec.Payload, &features); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feature payload: %w", err)
	}

	return &models.FeatureRow{
		AssetID:       assetID,
		Date:          models.DateOf(date),
		SchemaVersion: rec.SchemaVersion,
		Features:      features,
	}, nil
}

// AvgNullRate returns the average share of manifest features absent per
// persisted row. Warm-up and stale-macro regions make some absence normal;
// the validator flags only pathological rates.
func (r *Repository) AvgNullRate(ctx context.Context, manifestSize int) (float64, error) {
	if manifestSize <= 0 {
		return 0, fmt.Errorf("manifest size must be positive")
	}

	var rate *float64
	err := r.db.GetContext(ctx, &rate, `
		SELECT AVG(1.0 - LEAST(keys.cnt::float / $1, 1.0))
		FROM features f,
		LATERAL (SELECT COUNT(*) AS cnt FROM jsonb_object_keys(f.payload)) keys`,
		manifestSize)
	if err != nil {
		return 0, fmt.Errorf("failed to compute feature null rate: %w", err)
	}
	if rate == nil {
		return 0, nil
	}
	return *rate, nil
}

// CountByAsset returns persisted row counts per asset for validation reports
func (r *Repository) CountByAsset(ctx context.Context) (map[int64]int, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT asset_id, COUNT(*) AS cnt FROM features GROUP BY asset_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to count feature rows: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var assetID int64
		var cnt int
		if err := rows.Scan(&assetID, &cnt); err != nil {
			return nil, err
		}
		out[assetID] = cnt
	}
	return out, rows.Err()
}
