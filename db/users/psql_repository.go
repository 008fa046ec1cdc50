package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"meetix/entity"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Store(ctx context.Context, user entity.User) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (user_id, email, first_name, last_name, guest)
		VALUES (:user_id, :email, :first_name, :last_name, :guest)
		ON CONFLICT DO NOTHING
	`, user)
	if err != nil {
		return fmt.Errorf("could not add user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (entity.User, error) {
	var user entity.User
	err := r.db.GetContext(ctx, &user, `
		SELECT user_id, email, first_name, last_name, guest
		FROM users
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.User{}, entity.ErrNotFound
	}

	return user, err
}

// ResolveGuest returns the user record for a guest buyer, creating one
// keyed by email on first purchase. A returning guest keeps their
// original id, so their orders stay under one account.
func (r *PostgresRepository) ResolveGuest(ctx context.Context, user entity.User) (entity.User, error) {
	var resolved entity.User
	err := r.db.GetContext(ctx, &resolved, `
		INSERT INTO users (user_id, email, first_name, last_name, guest)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING user_id, email, first_name, last_name, guest
	`, user.ID, user.Email, user.FirstName, user.LastName)
	if err != nil {
		return entity.User{}, fmt.Errorf("could not resolve guest user: %w", err)
	}

	return resolved, nil
}
