package events

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/selivandex/etf-signals/internal/adapters/database"
	"github.com/selivandex/etf-signals/pkg/models"
)

// Repository handles the events calendar table
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new events repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db.DB()}
}

const upsertEventQuery = `
	INSERT INTO events_calendar (date, event_type, event_name, source)
	VALUES (:date, :event_type, :event_name, :source)
	ON CONFLICT (date, event_type) DO UPDATE SET
		event_name = EXCLUDED.event_name,
		source = EXCLUDED.source`

// Upsert writes events, rejecting any type outside the closed set before
// touching the database
func (r *Repository) Upsert(ctx context.Context, events []models.Event) error {
	for _, e := range events {
		if !e.Type.Valid() {
			return fmt.Errorf("unknown event type %q on %s", e.Type, e.Date.Format("2006-01-02"))
		}
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin events tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range events {
		if _, err := tx.NamedExecContext(ctx, upsertEventQuery, e); err != nil {
			return fmt.Errorf("failed to upsert event %s/%s: %w",
				e.Date.Format("2006-01-02"), e.Type, err)
		}
	}

	return tx.Commit()
}

// GetRange loads events in [from, to] inclusive, sorted by date
func (r *Repository) GetRange(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	var events []models.Event
	err := r.db.SelectContext(ctx, &events, `
		SELECT date, event_type, event_name, source
		FROM events_calendar
		WHERE date BETWEEN $1 AND $2
		ORDER BY date ASC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return events, nil
}
