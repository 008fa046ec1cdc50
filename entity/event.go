package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPending   EventStatus = "PENDING"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

type EventAccess string

const (
	EventAccessFree EventAccess = "FREE"
	EventAccessPaid EventAccess = "PAID"
)

type Event struct {
	ID             string      `json:"event_id" db:"event_id"`
	Name           string      `json:"name" db:"name"`
	Venue          string      `json:"venue" db:"venue"`
	Capacity       int         `json:"capacity" db:"capacity"`
	RemainingSeats int         `json:"remaining_seats" db:"remaining_seats"`
	AccessType     EventAccess `json:"access_type" db:"access_type"`
	Status         EventStatus `json:"status" db:"status"`
	StartsAt       time.Time   `json:"starts_at" db:"starts_at"`
	EndsAt         time.Time   `json:"ends_at" db:"ends_at"`
	PostedBy       string      `json:"posted_by" db:"posted_by"`
}

// Available reports whether the event can still be ordered.
func (e Event) Available(now time.Time) bool {
	return e.Status == EventStatusPublished && e.EndsAt.After(now)
}

// PriceTier is a priced ticket category scoped to one event. SeatsPerUnit
// is how many capacity units one purchased unit consumes.
type PriceTier struct {
	ID           string          `json:"tier_id" db:"tier_id"`
	EventID      string          `json:"event_id" db:"event_id"`
	Name         string          `json:"name" db:"name"`
	UnitAmount   decimal.Decimal `json:"unit_amount" db:"unit_amount"`
	SeatsPerUnit int             `json:"seats_per_unit" db:"seats_per_unit"`
}
