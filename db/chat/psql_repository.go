package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"meetix/entity"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Enroll adds the buyer to the event's chat room, creating the room on
// first enrollment. Both writes ignore conflicts, so redelivered
// enrollments are no-ops.
func (r *PostgresRepository) Enroll(ctx context.Context, eventID, eventName, userID string) (err error) {
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

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chats (chat_id, event_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING
	`, uuid.NewString(), eventID, eventName)
	if err != nil {
		return fmt.Errorf("could not create chat: %w", err)
	}

	var chatID string
	err = tx.GetContext(ctx, &chatID, `SELECT chat_id FROM chats WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("could not get chat: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_members (chat_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, chatID, userID)
	if err != nil {
		return fmt.Errorf("could not add chat member: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Members(ctx context.Context, eventID string) ([]entity.User, error) {
	var members []entity.User
	err := r.db.SelectContext(ctx, &members, `
		SELECT u.user_id, u.email, u.first_name, u.last_name, u.guest
		FROM chat_members m
		JOIN chats c ON c.chat_id = m.chat_id
		JOIN users u ON u.user_id = m.user_id
		WHERE c.event_id = $1
		ORDER BY m.joined_at
	`, eventID)
	return members, err
}
