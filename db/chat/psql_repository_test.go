package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetix/db"
	"meetix/db/events"
	"meetix/db/users"
	"meetix/entity"
)

func TestPostgresRepository_Enroll(t *testing.T) {
	ctx := context.Background()
	dbConn := db.GetDb(t)

	repo := NewPostgresRepository(dbConn)
	eventsRepo := events.NewPostgresRepository(dbConn)
	usersRepo := users.NewPostgresRepository(dbConn)

	event := entity.Event{
		ID:             uuid.NewString(),
		Name:           "Go Conference",
		Capacity:       10,
		RemainingSeats: 10,
		AccessType:     entity.EventAccessFree,
		Status:         entity.EventStatusPublished,
		StartsAt:       time.Now().Add(24 * time.Hour),
		EndsAt:         time.Now().Add(30 * time.Hour),
	}
	require.NoError(t, eventsRepo.Store(ctx, event, nil))

	first := entity.User{ID: uuid.NewString(), Email: "first@example.com", FirstName: "Ada"}
	second := entity.User{ID: uuid.NewString(), Email: "second@example.com", FirstName: "Alan"}
	require.NoError(t, usersRepo.Store(ctx, first))
	require.NoError(t, usersRepo.Store(ctx, second))

	// first enrollment creates the room lazily
	require.NoError(t, repo.Enroll(ctx, event.ID, event.Name, first.ID))

	// redelivery is a no-op, a second member just joins
	require.NoError(t, repo.Enroll(ctx, event.ID, event.Name, first.ID))
	require.NoError(t, repo.Enroll(ctx, event.ID, event.Name, second.ID))

	members, err := repo.Members(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, first.ID, members[0].ID)
	assert.Equal(t, second.ID, members[1].ID)
}
