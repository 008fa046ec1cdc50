package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"meetix/entity"
	"meetix/metrics"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Store(ctx context.Context, event entity.Event, tiers []entity.PriceTier) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			err = errors.Join(err, rollbackErr)
			return
		}
		err = tx.Commit()
	}()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO events (event_id, name, venue, capacity, remaining_seats, access_type, status, starts_at, ends_at, posted_by)
		VALUES (:event_id, :name, :venue, :capacity, :remaining_seats, :access_type, :status, :starts_at, :ends_at, :posted_by)
		ON CONFLICT DO NOTHING -- ignore if already exists
	`, event)
	if err != nil {
		return fmt.Errorf("could not add event: %w", err)
	}

	for _, tier := range tiers {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO price_tiers (tier_id, event_id, name, unit_amount, seats_per_unit)
			VALUES (:tier_id, :event_id, :name, :unit_amount, :seats_per_unit)
			ON CONFLICT DO NOTHING
		`, tier)
		if err != nil {
			return fmt.Errorf("could not add price tier: %w", err)
		}
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, eventID string) (entity.Event, error) {
	var event entity.Event
	err := r.db.GetContext(ctx, &event, `
		SELECT event_id, name, venue, capacity, remaining_seats, access_type, status, starts_at, ends_at, posted_by
		FROM events
		WHERE event_id = $1
	`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Event{}, entity.ErrNotFound
	}

	return event, err
}

func (r *PostgresRepository) Tiers(ctx context.Context, eventID string) ([]entity.PriceTier, error) {
	var tiers []entity.PriceTier
	err := r.db.SelectContext(ctx, &tiers, `
		SELECT tier_id, event_id, name, unit_amount, seats_per_unit
		FROM price_tiers
		WHERE event_id = $1
	`, eventID)
	return tiers, err
}

// EnsureDefaultTier returns the event's zero-amount default tier, creating
// it on first use. Free events without configured prices are sold on it.
func (r *PostgresRepository) EnsureDefaultTier(ctx context.Context, eventID string) (entity.PriceTier, error) {
	var tier entity.PriceTier
	err := r.db.GetContext(ctx, &tier, `
		INSERT INTO price_tiers (tier_id, event_id, name, unit_amount, seats_per_unit)
		VALUES ($1, $2, 'Standard', 0, 1)
		ON CONFLICT (event_id, name) DO UPDATE SET event_id = EXCLUDED.event_id
		RETURNING tier_id, event_id, name, unit_amount, seats_per_unit
	`, uuid.NewString(), eventID)
	if err != nil {
		return entity.PriceTier{}, fmt.Errorf("could not ensure default tier: %w", err)
	}

	return tier, nil
}

// AllocateSeats decrements the event's remaining seats by the order's seat
// units, at most once per order. Returns false when the order was already
// allocated (duplicate delivery).
//
// The decrement is a single conditional UPDATE, so concurrent confirmations
// can never drive the counter negative. A rejected decrement means the
// ledger and confirmed orders disagree; it is surfaced, never clamped.
func (r *PostgresRepository) AllocateSeats(ctx context.Context, eventID, orderID string, seatUnits int) (allocated bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			err = errors.Join(err, rollbackErr)
			return
		}
		err = tx.Commit()
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO seat_allocations (order_id, event_id, seat_units)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, orderID, eventID, seatUnits)
	if err != nil {
		return false, fmt.Errorf("could not record seat allocation: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if inserted == 0 {
		// already allocated for this order
		return false, nil
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE events
		SET remaining_seats = remaining_seats - $2
		WHERE event_id = $1 AND remaining_seats >= $2
	`, eventID, seatUnits)
	if err != nil {
		return false, fmt.Errorf("could not decrement remaining seats: %w", err)
	}

	updated, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if updated == 0 {
		metrics.SeatLedgerViolations.Inc()
		return false, fmt.Errorf("allocating %d seat units for order %s on event %s: %w",
			seatUnits, orderID, eventID, entity.ErrSeatLedgerViolation)
	}

	return true, nil
}
