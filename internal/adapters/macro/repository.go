package macro

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/selivandex/etf-signals/internal/adapters/database"
	"github.com/selivandex/etf-signals/pkg/models"
)

// Repository handles macro series and aligned daily value storage
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new macro repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db.DB()}
}

// UpsertSeries registers a series key and returns its id
func (r *Repository) UpsertSeries(ctx context.Context, key, name string) (int64, error) {
	query := `
		INSERT INTO macro_series (series_key, name)
		VALUES ($1, $2)
		ON CONFLICT (series_key) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	var id int64
	if err := r.db.GetContext(ctx, &id, query, key, name); err != nil {
		return 0, fmt.Errorf("failed to upsert macro series %s: %w", key, err)
	}
	return id, nil
}

const upsertPointQuery = `
	INSERT INTO macro_daily (series_id, date, value, days_since_update)
	VALUES (:series_id, :date, :value, :days_since_update)
	ON CONFLICT (series_id, date) DO UPDATE SET
		value = EXCLUDED.value,
		days_since_update = EXCLUDED.days_since_update`

// UpsertPoints writes aligned points in one transaction. Re-running a window
// replaces points wholesale: a late print shrinks staleness on the fill tail.
func (r *Repository) UpsertPoints(ctx context.Context, points []models.MacroPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin macro tx: %w", err)
	}
	defer tx.Rollback()

	for _, p := range points {
		if _, err := tx.NamedExecContext(ctx, upsertPointQuery, p); err != nil {
			return fmt.Errorf("failed to upsert macro point %s: %w",
				p.Date.Format("2006-01-02"), err)
		}
	}

	return tx.Commit()
}

// GetPoints loads aligned points for a series in [from, to], sorted ascending
func (r *Repository) GetPoints(ctx context.Context, seriesID int64, from, to time.Time) ([]models.MacroPoint, error) {
	var points []models.MacroPoint
	err := r.db.SelectContext(ctx, &points, `
		SELECT series_id, date, value, days_since_update
		FROM macro_daily
		WHERE series_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC`,
		seriesID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load macro points for series %d: %w", seriesID, err)
	}
	return points, nil
}

// StalenessBuckets reports how many stored points sit at each staleness
// level, for the validation summary
func (r *Repository) StalenessBuckets(ctx context.Context) (map[int]int, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT days_since_update, COUNT(*) AS cnt FROM macro_daily GROUP BY days_since_update`)
	if err != nil {
		return nil, fmt.Errorf("failed to query staleness distribution: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var days, cnt int
		if err := rows.Scan(&days, &cnt); err != nil {
			return nil, err
		}
		out[days] = cnt
	}
	return out, rows.Err()
}
