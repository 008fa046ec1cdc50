package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type PaymentCustomer struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
}

type CreatePaymentRequest struct {
	Amount      decimal.Decimal
	Description string
	CallbackURL string
	Customer    PaymentCustomer
}

// PaymentTransaction is the processor's authoritative view of a transaction,
// as re-fetched by the reconciler.
type PaymentTransaction struct {
	ID     int64
	Status string
}

func (t PaymentTransaction) Approved() bool {
	return t.Status == "approved"
}

// TerminalFailure reports whether the processor considers the transaction
// finished without payment.
func (t PaymentTransaction) TerminalFailure() bool {
	switch t.Status {
	case "canceled", "declined", "expired", "refunded":
		return true
	}
	return false
}

// PaymentGatewayError wraps any failure talking to the external payment
// processor. It surfaces to callers as a 5xx-class error.
type PaymentGatewayError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e PaymentGatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway: %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("payment gateway: %s: unexpected status code %d", e.Op, e.StatusCode)
}

func (e PaymentGatewayError) Unwrap() error {
	return e.Err
}

// WebhookPayload is the opaque delivery from the payment processor. Only the
// entity id is used; the status is always re-verified with the processor.
type WebhookPayload struct {
	Object string `json:"object"`
	Entity struct {
		ID int64 `json:"id"`
	} `json:"entity"`
}
