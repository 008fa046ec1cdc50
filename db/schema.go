package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id UUID PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	first_name VARCHAR(255) NOT NULL,
	last_name VARCHAR(255) NOT NULL DEFAULT '',
	guest BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS events (
	event_id UUID PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	venue TEXT NOT NULL DEFAULT '',
	capacity INT NOT NULL,
	remaining_seats INT NOT NULL CHECK (remaining_seats >= 0),
	access_type VARCHAR(16) NOT NULL,
	status VARCHAR(16) NOT NULL,
	starts_at TIMESTAMPTZ NOT NULL,
	ends_at TIMESTAMPTZ NOT NULL,
	posted_by TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS price_tiers (
	tier_id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES events (event_id),
	name VARCHAR(255) NOT NULL,
	unit_amount NUMERIC(12, 2) NOT NULL,
	seats_per_unit INT NOT NULL DEFAULT 1,
	UNIQUE (event_id, name)
);

CREATE TABLE IF NOT EXISTS orders (
	order_id UUID PRIMARY KEY,
	reference VARCHAR(32) NOT NULL UNIQUE,
	event_id UUID NOT NULL REFERENCES events (event_id),
	user_id UUID NOT NULL REFERENCES users (user_id),
	total_amount NUMERIC(12, 2) NOT NULL,
	status VARCHAR(16) NOT NULL,
	payment_status VARCHAR(16) NOT NULL,
	payment_reference VARCHAR(64) UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS order_items (
	order_item_id UUID PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders (order_id),
	tier_id UUID NOT NULL REFERENCES price_tiers (tier_id),
	quantity INT NOT NULL CHECK (quantity > 0),
	unit_price NUMERIC(12, 2) NOT NULL,
	ticket_urls TEXT[] NOT NULL DEFAULT '{}',
	ticket_keys TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS seat_allocations (
	order_id UUID PRIMARY KEY REFERENCES orders (order_id),
	event_id UUID NOT NULL REFERENCES events (event_id),
	seat_units INT NOT NULL,
	allocated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pricings (
	pricing_id UUID PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	amount NUMERIC(12, 2) NOT NULL,
	duration VARCHAR(16) NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	transaction_id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users (user_id),
	pricing_id UUID NOT NULL REFERENCES pricings (pricing_id),
	amount NUMERIC(12, 2) NOT NULL,
	status VARCHAR(16) NOT NULL,
	reference VARCHAR(64) NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chats (
	chat_id UUID PRIMARY KEY,
	event_id UUID NOT NULL UNIQUE REFERENCES events (event_id),
	name VARCHAR(255) NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_members (
	chat_id UUID NOT NULL REFERENCES chats (chat_id),
	user_id UUID NOT NULL REFERENCES users (user_id),
	joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (chat_id, user_id)
);
`

func InitializeDatabaseSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}
	return nil
}
