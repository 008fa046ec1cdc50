package entity

import "errors"

var (
	ErrEventNotAvailable   = errors.New("event not available for orders")
	ErrInvalidTier         = errors.New("price tier does not belong to event")
	ErrInvalidQuantity     = errors.New("item quantity must be positive")
	ErrCapacityExceeded    = errors.New("not enough remaining seats")
	ErrQuantityCapExceeded = errors.New("guest ticket quantity cap exceeded")
	ErrGuestInfoRequired   = errors.New("guest email and name are required")
	ErrInvalidPaidOrder    = errors.New("paid order requires items and a positive total")
	ErrOrphanPayment       = errors.New("payment references no known order or transaction")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	// ErrSeatLedgerViolation means a confirmed order asked for more seats
	// than the ledger holds. It indicates corrupted state, never a user error.
	ErrSeatLedgerViolation = errors.New("seat ledger would go negative")
)
