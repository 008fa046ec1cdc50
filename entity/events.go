package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

// OrderConfirmed is the confirmation signal: payment (or free checkout)
// succeeded, fulfillment may proceed. Published exactly once per order,
// through the outbox, in the same transaction as the status change.
type OrderConfirmed struct {
	Header  EventHeader `json:"header"`
	OrderID string      `json:"order_id"`
	EventID string      `json:"event_id"`
}

// OrderSeatsAllocated follows OrderConfirmed once the seat ledger has been
// decremented. Ticket issuance subscribes to it, so tickets can never exist
// for capacity that was not granted.
type OrderSeatsAllocated struct {
	Header    EventHeader `json:"header"`
	OrderID   string      `json:"order_id"`
	EventID   string      `json:"event_id"`
	SeatUnits int         `json:"seat_units"`
}

type TicketArtifact struct {
	Code string `json:"code"`
	Key  string `json:"key"`
	URL  string `json:"url"`
}

// TicketsIssued carries every artifact of one order so the notification can
// bundle them into a single message.
type TicketsIssued struct {
	Header    EventHeader      `json:"header"`
	OrderID   string           `json:"order_id"`
	Artifacts []TicketArtifact `json:"artifacts"`
}

// OrderPaymentFailed is an audit event for verified non-approved terminal
// payment statuses.
type OrderPaymentFailed struct {
	Header  EventHeader `json:"header"`
	OrderID string      `json:"order_id"`
	Status  string      `json:"status"`
}
