package transactions

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

func (r *PostgresRepository) StorePricing(ctx context.Context, pricing entity.Pricing) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO pricings (pricing_id, title, amount, duration)
		VALUES (:pricing_id, :title, :amount, :duration)
		ON CONFLICT DO NOTHING
	`, pricing)
	if err != nil {
		return fmt.Errorf("could not add pricing: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetPricing(ctx context.Context, pricingID string) (entity.Pricing, error) {
	var pricing entity.Pricing
	err := r.db.GetContext(ctx, &pricing, `
		SELECT pricing_id, title, amount, duration
		FROM pricings
		WHERE pricing_id = $1
	`, pricingID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Pricing{}, entity.ErrNotFound
	}

	return pricing, err
}

func (r *PostgresRepository) Store(ctx context.Context, transaction entity.Transaction) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO transactions (transaction_id, user_id, pricing_id, amount, status, reference, expires_at, created_at)
		VALUES (:transaction_id, :user_id, :pricing_id, :amount, :status, :reference, :expires_at, :created_at)
	`, transaction)
	if err != nil {
		return fmt.Errorf("could not add transaction: %w", err)
	}
	return nil
}

// FinishByReference moves the transaction identified by the gateway
// reference to the given terminal status. A transaction already settled
// is returned unchanged with changed=false.
func (r *PostgresRepository) FinishByReference(ctx context.Context, reference string, status entity.TransactionStatus) (transaction entity.Transaction, changed bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return entity.Transaction{}, false, fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			err = errors.Join(err, rollbackErr)
			return
		}
		err = tx.Commit()
	}()

	err = tx.GetContext(ctx, &transaction, `
		SELECT transaction_id, user_id, pricing_id, amount, status, reference, expires_at, created_at
		FROM transactions
		WHERE reference = $1
		FOR UPDATE
	`, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Transaction{}, false, entity.ErrNotFound
	}
	if err != nil {
		return entity.Transaction{}, false, fmt.Errorf("could not get transaction for update: %w", err)
	}

	if transaction.Status.Terminal() {
		return transaction, false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $2
		WHERE transaction_id = $1
	`, transaction.ID, status)
	if err != nil {
		return entity.Transaction{}, false, fmt.Errorf("could not update transaction: %w", err)
	}

	transaction.Status = status
	return transaction, true, nil
}
