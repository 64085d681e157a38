package labels

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/selivandex/etf-signals/internal/adapters/database"
	"github.com/selivandex/etf-signals/pkg/logger"
	"github.com/selivandex/etf-signals/pkg/models"
)

// ErrFrozenLabelConflict means a recompute produced a different value for a
// label that is already persisted. Labels are append-once facts about what
// the market did; a conflict means corrupted inputs and must stop the run.
var ErrFrozenLabelConflict = errors.New("frozen label conflict")

// Tolerance for comparing a recomputed label against its frozen value
const freezeTolerance = 1e-9

// Repository persists label rows with fill-null-only semantics: an upsert
// may turn NULL into a value, never change a value already written.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates labels repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db.DB()}
}

type labelRecord struct {
	AssetID int64     `db:"asset_id"`
	Date    time.Time `db:"date"`
	Y1Raw   *float64  `db:"y_1d_raw"`
	Y1Vol   *float64  `db:"y_1d_vol"`
	Y1Clip  *float64  `db:"y_1d_vol_clip"`
	Class1D *int16    `db:"y_class_1d"`
	Y5Raw   *float64  `db:"y_5d_raw"`
	Y5Vol   *float64  `db:"y_5d_vol"`
	Y5Clip  *float64  `db:"y_5d_vol_clip"`
	Class5D *int16    `db:"y_class_5d"`
}

func toRecord(row models.LabelRow) labelRecord {
	rec := labelRecord{AssetID: row.AssetID, Date: row.Date}
	rec.Y1Raw, rec.Y1Vol, rec.Y1Clip, rec.Class1D = horizonColumns(row.H1)
	rec.Y5Raw, rec.Y5Vol, rec.Y5Clip, rec.Class5D = horizonColumns(row.H5)
	return rec
}

func horizonColumns(h models.HorizonLabel) (*float64, *float64, *float64, *int16) {
	var cls *int16
	if h.Class != nil {
		v := int16(*h.Class)
		cls = &v
	}
	return h.Raw, h.Scaled, h.Clipped, cls
}

// COALESCE keeps the existing value whenever one is present: re-runs can
// only fill NULLs, never overwrite.
const upsertLabelsQuery = `
	INSERT INTO labels (
		asset_id, date,
		y_1d_raw, y_1d_vol, y_1d_vol_clip, y_class_1d,
		y_5d_raw, y_5d_vol, y_5d_vol_clip, y_class_5d,
		updated_at
	) VALUES (
		:asset_id, :date,
		:y_1d_raw, :y_1d_vol, :y_1d_vol_clip, :y_class_1d,
		:y_5d_raw, :y_5d_vol, :y_5d_vol_clip, :y_class_5d,
		NOW()
	)
	ON CONFLICT (asset_id, date) DO UPDATE SET
		y_1d_raw      = COALESCE(labels.y_1d_raw, EXCLUDED.y_1d_raw),
		y_1d_vol      = COALESCE(labels.y_1d_vol, EXCLUDED.y_1d_vol),
		y_1d_vol_clip = COALESCE(labels.y_1d_vol_clip, EXCLUDED.y_1d_vol_clip),
		y_class_1d    = COALESCE(labels.y_class_1d, EXCLUDED.y_class_1d),
		y_5d_raw      = COALESCE(labels.y_5d_raw, EXCLUDED.y_5d_raw),
		y_5d_vol      = COALESCE(labels.y_5d_vol, EXCLUDED.y_5d_vol),
		y_5d_vol_clip = COALESCE(labels.y_5d_vol_clip, EXCLUDED.y_5d_vol_clip),
		y_class_5d    = COALESCE(labels.y_class_5d, EXCLUDED.y_class_5d),
		updated_at    = NOW()`

// Upsert persists rows after checking every recomputed value against what is
// already frozen. Returns ErrFrozenLabelConflict on the first disagreement.
func (r *Repository) Upsert(ctx context.Context, rows []models.LabelRow) error {
	if len(rows) == 0 {
		return nil
	}

	if err := r.checkFrozen(ctx, rows); err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin labels tx: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, upsertLabelsQuery, toRecord(row)); err != nil {
			return fmt.Errorf("failed to upsert labels for asset %d on %s: %w",
				row.AssetID, row.Date.Format("2006-01-02"), err)
		}
	}

	return tx.Commit()
}

func (r *Repository) checkFrozen(ctx context.Context, rows []models.LabelRow) error {
	if len(rows) == 0 {
		return nil
	}
	assetID := rows[0].AssetID
	minDate, maxDate := rows[0].Date, rows[0].Date
	for _, row := range rows[1:] {
		if row.Date.Before(minDate) {
			minDate = row.Date
		}
		if row.Date.After(maxDate) {
			maxDate = row.Date
		}
	}

	var existing []labelRecord
	err := r.db.SelectContext(ctx, &existing, `
		SELECT asset_id, date,
		       y_1d_raw, y_1d_vol, y_1d_vol_clip, y_class_1d,
		       y_5d_raw, y_5d_vol, y_5d_vol_clip, y_class_5d
		FROM labels
		WHERE asset_id = $1 AND date BETWEEN $2 AND $3`,
		assetID, minDate, maxDate)
	if err != nil {
		return fmt.Errorf("failed to load existing labels: %w", err)
	}

	byDate := make(map[time.Time]labelRecord, len(existing))
	for _, rec := range existing {
		byDate[models.DateOf(rec.Date)] = rec
	}

	for _, row := range rows {
		old, ok := byDate[row.Date]
		if !ok {
			continue
		}
		fresh := toRecord(row)
		if err := compareHorizon(old.Y1Raw, old.Y1Vol, old.Y1Clip, old.Class1D,
			fresh.Y1Raw, fresh.Y1Vol, fresh.Y1Clip, fresh.Class1D); err != nil {
			return conflictErr(row, "1d", err)
		}
		if err := compareHorizon(old.Y5Raw, old.Y5Vol, old.Y5Clip, old.Class5D,
			fresh.Y5Raw, fresh.Y5Vol, fresh.Y5Clip, fresh.Class5D); err != nil {
			return conflictErr(row, "5d", err)
		}
	}
	return nil
}

func conflictErr(row models.LabelRow, horizon string, cause error) error {
	logger.Error("frozen label disagreement",
		zap.Int64("asset_id", row.AssetID),
		zap.String("date", row.Date.Format("2006-01-02")),
		zap.String("horizon", horizon),
		zap.Error(cause),
	)
	return fmt.Errorf("asset %d on %s horizon %s: %w: %v",
		row.AssetID, row.Date.Format("2006-01-02"), horizon, ErrFrozenLabelConflict, cause)
}

func compareHorizon(oldRaw, oldVol, oldClip *float64, oldCls *int16,
	newRaw, newVol, newClip *float64, newCls *int16) error {
	if err := compareFloat("raw", oldRaw, newRaw); err != nil {
		return err
	}
	if err := compareFloat("vol", oldVol, newVol); err != nil {
		return err
	}
	if err := compareFloat("vol_clip", oldClip, newClip); err != nil {
		return err
	}
	if oldCls != nil && newCls != nil && *oldCls != *newCls {
		return fmt.Errorf("class %d -> %d", *oldCls, *newCls)
	}
	return nil
}

func compareFloat(name string, old, fresh *float64) error {
	// Either side nil is fine: NULLs are fillable, and a recompute that lost
	// an input simply leaves the frozen value alone
	if old == nil || fresh == nil {
		return nil
	}
	if math.Abs(*old-*fresh) > freezeTolerance {
		return fmt.Errorf("%s %v -> %v", name, *old, *fresh)
	}
	return nil
}

// LatestDate returns the most recent label date for an asset
func (r *Repository) LatestDate(ctx context.Context, assetID int64) (time.Time, error) {
	var latest *time.Time
	err := r.db.GetContext(ctx, &latest,
		`SELECT MAX(date) FROM labels WHERE asset_id = $1`, assetID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest label date: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}

// IncompleteCount reports rows still waiting for a future close, for the
// validation summary
func (r *Repository) IncompleteCount(ctx context.Context) (int, error) {
	var cnt int
	err := r.db.GetContext(ctx, &cnt,
		`SELECT COUNT(*) FROM labels WHERE y_1d_raw IS NULL OR y_5d_raw IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to count incomplete labels: %w", err)
	}
	return cnt, nil
}
