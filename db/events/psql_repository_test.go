package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetix/db"
	"meetix/entity"
)

func TestPostgresRepository_StoreAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	event := newEvent(10)
	tier := entity.PriceTier{
		ID:           uuid.NewString(),
		EventID:      event.ID,
		Name:         "VIP",
		UnitAmount:   decimal.NewFromInt(1000),
		SeatsPerUnit: 1,
	}

	require.NoError(t, repo.Store(ctx, event, []entity.PriceTier{tier}))
	// storing again is a no-op
	require.NoError(t, repo.Store(ctx, event, []entity.PriceTier{tier}))

	stored, err := repo.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.Capacity, stored.Capacity)
	assert.Equal(t, event.Capacity, stored.RemainingSeats)

	tiers, err := repo.Tiers(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	assert.Equal(t, "VIP", tiers[0].Name)

	_, err = repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestPostgresRepository_EnsureDefaultTier(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(db.GetDb(t))

	event := newEvent(10)
	require.NoError(t, repo.Store(ctx, event, nil))

	first, err := repo.EnsureDefaultTier(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, first.UnitAmount.IsZero())

	second, err := repo.EnsureDefaultTier(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestPostgresRepository_AllocateSeats(t *testing.T) {
	ctx := context.Background()
	dbConn := db.GetDb(t)
	repo := NewPostgresRepository(dbConn)

	event := newEvent(3)
	require.NoError(t, repo.Store(ctx, event, nil))

	orderID := storeOrder(t, dbConn, event.ID)

	allocated, err := repo.AllocateSeats(ctx, event.ID, orderID, 2)
	require.NoError(t, err)
	assert.True(t, allocated)
	assert.Equal(t, 1, remainingSeats(t, repo, event.ID))

	// same order again is a duplicate, not a second decrement
	allocated, err = repo.AllocateSeats(ctx, event.ID, orderID, 2)
	require.NoError(t, err)
	assert.False(t, allocated)
	assert.Equal(t, 1, remainingSeats(t, repo, event.ID))

	// another order exceeding what is left is a ledger violation and
	// must not touch the counter
	otherOrderID := storeOrder(t, dbConn, event.ID)
	_, err = repo.AllocateSeats(ctx, event.ID, otherOrderID, 2)
	assert.ErrorIs(t, err, entity.ErrSeatLedgerViolation)
	assert.Equal(t, 1, remainingSeats(t, repo, event.ID))
}

func remainingSeats(t *testing.T, repo *PostgresRepository, eventID string) int {
	t.Helper()
	event, err := repo.Get(context.Background(), eventID)
	require.NoError(t, err)
	return event.RemainingSeats
}

func newEvent(capacity int) entity.Event {
	return entity.Event{
		ID:             uuid.NewString(),
		Name:           "Go Conference",
		Capacity:       capacity,
		RemainingSeats: capacity,
		AccessType:     entity.EventAccessFree,
		Status:         entity.EventStatusPublished,
		StartsAt:       time.Now().Add(24 * time.Hour),
		EndsAt:         time.Now().Add(30 * time.Hour),
	}
}

// seat_allocations references orders, so allocation tests need real rows
func storeOrder(t *testing.T, dbConn *sqlx.DB, eventID string) string {
	t.Helper()

	userID := uuid.NewString()
	_, err := dbConn.Exec(`
		INSERT INTO users (user_id, email, first_name)
		VALUES ($1, $2, 'Test')
	`, userID, userID+"@example.com")
	require.NoError(t, err)

	orderID := uuid.NewString()
	_, err = dbConn.Exec(`
		INSERT INTO orders (order_id, reference, event_id, user_id, total_amount, status, payment_status)
		VALUES ($1, $2, $3, $4, 0, 'CONFIRMED', 'COMPLETED')
	`, orderID, entity.NewOrderReference(), eventID, userID)
	require.NoError(t, err)

	return orderID
}
