package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/selivandex/etf-signals/internal/adapters/config"
	"github.com/selivandex/etf-signals/pkg/logger"
	"github.com/selivandex/etf-signals/pkg/models"
)

// Archive mirrors feature and label rows into ClickHouse for analytical
// queries. Postgres stays the source of truth; a failed mirror write is
// logged and never fails the run.
type Archive struct {
	db *sqlx.DB
}

// NewArchive connects to ClickHouse and ensures the archive tables exist
func NewArchive(cfg *config.ArchiveConfig) (*Archive, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
	})

	db := sqlx.NewDb(conn, "clickhouse")
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	a := &Archive{db: db}
	if err := a.ensureTables(); err != nil {
		return nil, err
	}

	logger.Info("clickhouse archive connected", zap.String("addr", cfg.Addr))
	return a, nil
}

func (a *Archive) ensureTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS features_archive (
			asset_id Int64,
			date Date,
			schema_version Int32,
			feature_name String,
			value Float64
		) ENGINE = ReplacingMergeTree()
		ORDER BY (asset_id, date, feature_name)`,
		`CREATE TABLE IF NOT EXISTS labels_archive (
			asset_id Int64,
			date Date,
			y_1d_raw Nullable(Float64),
			y_1d_vol Nullable(Float64),
			y_1d_vol_clip Nullable(Float64),
			y_class_1d Nullable(Int16),
			y_5d_raw Nullable(Float64),
			y_5d_vol Nullable(Float64),
			y_5d_vol_clip Nullable(Float64),
			y_class_5d Nullable(Int16)
		) ENGINE = ReplacingMergeTree()
		ORDER BY (asset_id, date)`,
	}
	for _, stmt := range statements {
		if _, err := a.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create archive table: %w", err)
		}
	}
	return nil
}

// SaveFeatures mirrors feature rows in long form, one row per feature name
func (a *Archive) SaveFeatures(ctx context.Context, rows []models.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	stmt, err := tx.Preparex(`
		INSERT INTO features_archive (asset_id, date, schema_version, feature_name, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, row := range rows {
		for name, value := range row.Features {
			if _, err := stmt.ExecContext(ctx,
				row.AssetID, row.Date, int32(row.SchemaVersion), string(name), value,
			); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to insert feature: %w", err)
			}
			count++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("mirrored features to clickhouse",
		zap.Int("rows", len(rows)),
		zap.Int("values", count),
	)
	return nil
}

// SaveLabels mirrors label rows
func (a *Archive) SaveLabels(ctx context.Context, rows []models.LabelRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	stmt, err := tx.Preparex(`
		INSERT INTO labels_archive
		(asset_id, date, y_1d_raw, y_1d_vol, y_1d_vol_clip, y_class_1d,
		 y_5d_raw, y_5d_vol, y_5d_vol_clip, y_class_5d)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.AssetID, row.Date,
			row.H1.Raw, row.H1.Scaled, row.H1.Clipped, classValue(row.H1.Class),
			row.H5.Raw, row.H5.Scaled, row.H5.Clipped, classValue(row.H5.Class),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert label: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("mirrored labels to clickhouse", zap.Int("rows", len(rows)))
	return nil
}

func classValue(c *models.Class) *int16 {
	if c == nil {
		return nil
	}
	v := int16(*c)
	return &v
}

// Close closes the archive connection
func (a *Archive) Close() error {
	return a.db.Close()
}
