package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"meetix/entity"
	"meetix/log"
	"meetix/pubsub/bus"
	"meetix/pubsub/outbox"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Store persists the order and its items atomically. A free order arrives
// already CONFIRMED; its confirmation signal is written to the outbox in
// the same transaction, so the order and its fan-out can't diverge.
func (r *PostgresRepository) Store(ctx context.Context, order entity.Order, items []entity.OrderItem) (err error) {
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
		INSERT INTO orders (order_id, reference, event_id, user_id, total_amount, status, payment_status, payment_reference, created_at)
		VALUES (:order_id, :reference, :event_id, :user_id, :total_amount, :status, :payment_status, :payment_reference, :created_at)
	`, order)
	if err != nil {
		return fmt.Errorf("could not add order: %w", err)
	}

	for _, item := range items {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO order_items (order_item_id, order_id, tier_id, quantity, unit_price, ticket_urls, ticket_keys)
			VALUES (:order_item_id, :order_id, :tier_id, :quantity, :unit_price, :ticket_urls, :ticket_keys)
		`, item)
		if err != nil {
			return fmt.Errorf("could not add order item: %w", err)
		}
	}

	if order.Status == entity.OrderStatusConfirmed {
		err = publishOrderConfirmed(ctx, tx, order)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *PostgresRepository) GetWithItems(ctx context.Context, orderID string) (entity.OrderWithItems, error) {
	return r.findOne(ctx, `WHERE o.order_id = $1`, orderID)
}

// GetByReference finds an order by its id, short reference, or external
// payment reference.
func (r *PostgresRepository) GetByReference(ctx context.Context, reference string) (entity.OrderWithItems, error) {
	return r.findOne(ctx, `WHERE o.order_id::text = $1 OR o.reference = $1 OR o.payment_reference = $1`, reference)
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (entity.OrderWithItems, error) {
	var order entity.Order
	err := r.db.GetContext(ctx, &order, `
		SELECT o.order_id, o.reference, o.event_id, o.user_id, o.total_amount, o.status, o.payment_status, o.payment_reference, o.created_at
		FROM orders o
		`+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.OrderWithItems{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.OrderWithItems{}, err
	}

	items, err := r.itemsOf(ctx, order.ID)
	if err != nil {
		return entity.OrderWithItems{}, err
	}

	return entity.OrderWithItems{Order: order, Items: items}, nil
}

func (r *PostgresRepository) itemsOf(ctx context.Context, orderID string) ([]entity.OrderItemDetail, error) {
	var items []entity.OrderItemDetail
	err := r.db.SelectContext(ctx, &items, `
		SELECT i.order_item_id, i.order_id, i.tier_id, i.quantity, i.unit_price, i.ticket_urls, i.ticket_keys,
			t.name AS tier_name, t.seats_per_unit
		FROM order_items i
		JOIN price_tiers t ON t.tier_id = i.tier_id
		WHERE i.order_id = $1
		ORDER BY i.order_item_id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("could not get order items: %w", err)
	}
	return items, nil
}

// SetPaymentReference attaches the external transaction id obtained from
// the payment gateway to a pending order.
func (r *PostgresRepository) SetPaymentReference(ctx context.Context, orderID, reference string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_reference = $2
		WHERE order_id = $1 AND status = 'PENDING'
	`, orderID, reference)
	if err != nil {
		return fmt.Errorf("could not set payment reference: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("order %s is not pending: %w", orderID, entity.ErrConflict)
	}

	return nil
}

// ConfirmByPaymentReference transitions the order referenced by the
// external transaction id to CONFIRMED and outboxes the confirmation
// signal in the same transaction. An order already in a terminal state is
// returned unchanged with changed=false, which makes duplicate webhook
// deliveries a no-op.
func (r *PostgresRepository) ConfirmByPaymentReference(ctx context.Context, reference string) (order entity.Order, changed bool, err error) {
	return r.finishByPaymentReference(ctx, reference, func(tx *sqlx.Tx, order entity.Order) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = 'CONFIRMED', payment_status = 'COMPLETED'
			WHERE order_id = $1
		`, order.ID)
		if err != nil {
			return err
		}

		return publishOrderConfirmed(ctx, tx, order)
	})
}

// CancelByPaymentReference transitions the order to CANCELLED after a
// verified terminal payment failure. Terminal orders are left untouched.
func (r *PostgresRepository) CancelByPaymentReference(ctx context.Context, reference, processorStatus string) (order entity.Order, changed bool, err error) {
	return r.finishByPaymentReference(ctx, reference, func(tx *sqlx.Tx, order entity.Order) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = 'CANCELLED', payment_status = 'FAILED'
			WHERE order_id = $1
		`, order.ID)
		if err != nil {
			return err
		}

		eventBus, err := txEventBus(ctx, tx)
		if err != nil {
			return err
		}

		return eventBus.Publish(ctx, entity.OrderPaymentFailed{
			Header:  entity.NewEventHeaderWithIdempotencyKey(order.ID),
			OrderID: order.ID,
			Status:  processorStatus,
		})
	})
}

func (r *PostgresRepository) finishByPaymentReference(
	ctx context.Context,
	reference string,
	transition func(tx *sqlx.Tx, order entity.Order) error,
) (order entity.Order, changed bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return entity.Order{}, false, fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			err = errors.Join(err, rollbackErr)
			return
		}
		err = tx.Commit()
	}()

	// the row lock serializes concurrent reconciliations of one reference
	err = tx.GetContext(ctx, &order, `
		SELECT order_id, reference, event_id, user_id, total_amount, status, payment_status, payment_reference, created_at
		FROM orders
		WHERE payment_reference = $1
		FOR UPDATE
	`, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, false, entity.ErrNotFound
	}
	if err != nil {
		return entity.Order{}, false, fmt.Errorf("could not get order for update: %w", err)
	}

	if order.Status.Terminal() {
		return order, false, nil
	}

	if err = transition(tx, order); err != nil {
		return entity.Order{}, false, fmt.Errorf("could not transition order %s: %w", order.ID, err)
	}

	return order, true, nil
}

// SetItemTicketArtifacts records the generated ticket artifacts on an
// order item.
func (r *PostgresRepository) SetItemTicketArtifacts(ctx context.Context, orderItemID string, urls, keys []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE order_items
		SET ticket_urls = $2, ticket_keys = $3
		WHERE order_item_id = $1
	`, orderItemID, pq.StringArray(urls), pq.StringArray(keys))
	if err != nil {
		return fmt.Errorf("could not set ticket artifacts: %w", err)
	}
	return nil
}

func publishOrderConfirmed(ctx context.Context, tx *sqlx.Tx, order entity.Order) error {
	eventBus, err := txEventBus(ctx, tx)
	if err != nil {
		return err
	}

	err = eventBus.Publish(ctx, entity.OrderConfirmed{
		Header:  entity.NewEventHeaderWithIdempotencyKey(order.ID),
		OrderID: order.ID,
		EventID: order.EventID,
	})
	if err != nil {
		return fmt.Errorf("could not publish order confirmed event: %w", err)
	}

	return nil
}

func txEventBus(ctx context.Context, tx *sqlx.Tx) (eventBus interface {
	Publish(ctx context.Context, event any) error
}, err error) {
	outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx, log.NewWatermill(log.FromContext(ctx)))
	if err != nil {
		return nil, fmt.Errorf("could not create outbox publisher: %w", err)
	}

	return bus.NewEventBus(outboxPublisher)
}
