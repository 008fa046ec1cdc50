package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// Transaction is a non-ticket purchase (subscription plan checkout). It is
// reconciled by the same webhook pipeline as orders.
type Transaction struct {
	ID        string            `json:"transaction_id" db:"transaction_id"`
	UserID    string            `json:"user_id" db:"user_id"`
	PricingID string            `json:"pricing_id" db:"pricing_id"`
	Amount    decimal.Decimal   `json:"amount" db:"amount"`
	Status    TransactionStatus `json:"status" db:"status"`
	Reference string            `json:"reference" db:"reference"`
	ExpiresAt time.Time         `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

type PricingDuration string

const (
	PricingDurationWeekly  PricingDuration = "WEEKLY"
	PricingDurationMonthly PricingDuration = "MONTHLY"
	PricingDurationYearly  PricingDuration = "YEARLY"
)

// ExpiresAt computes the subscription expiry from now.
func (d PricingDuration) ExpiresAt(now time.Time) time.Time {
	switch d {
	case PricingDurationWeekly:
		return now.AddDate(0, 0, 7)
	case PricingDurationMonthly:
		return now.AddDate(0, 1, 0)
	default:
		return now.AddDate(1, 0, 0)
	}
}

type Pricing struct {
	ID       string          `json:"pricing_id" db:"pricing_id"`
	Title    string          `json:"title" db:"title"`
	Amount   decimal.Decimal `json:"amount" db:"amount"`
	Duration PricingDuration `json:"duration" db:"duration"`
}
