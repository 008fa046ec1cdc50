package gateway

import (
	"context"
	"fmt"
	"sync"

	"meetix/entity"
)

// FedapayMock records created transactions and serves verification from a
// programmable status map.
type FedapayMock struct {
	mock sync.Mutex

	nextID int64

	CreatedTransactions map[int64]entity.CreatePaymentRequest
	PaymentLinks        map[int64]string
	// Statuses overrides the status returned by VerifyTransaction,
	// keyed by transaction id. Unset ids verify as "pending".
	Statuses map[int64]string

	CreateErr error
	VerifyErr error
}

func (c *FedapayMock) CreateTransaction(ctx context.Context, request entity.CreatePaymentRequest) (entity.PaymentTransaction, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.CreateErr != nil {
		return entity.PaymentTransaction{}, c.CreateErr
	}

	if c.CreatedTransactions == nil {
		c.CreatedTransactions = make(map[int64]entity.CreatePaymentRequest)
	}

	c.nextID++
	c.CreatedTransactions[c.nextID] = request

	return entity.PaymentTransaction{ID: c.nextID, Status: "pending"}, nil
}

func (c *FedapayMock) CreatePaymentLink(ctx context.Context, transactionID int64) (string, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.PaymentLinks == nil {
		c.PaymentLinks = make(map[int64]string)
	}

	url := fmt.Sprintf("https://sandbox-checkout.fedapay.com/%d", transactionID)
	c.PaymentLinks[transactionID] = url

	return url, nil
}

func (c *FedapayMock) VerifyTransaction(ctx context.Context, transactionID int64) (entity.PaymentTransaction, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.VerifyErr != nil {
		return entity.PaymentTransaction{}, c.VerifyErr
	}

	status := c.Statuses[transactionID]
	if status == "" {
		status = "pending"
	}

	return entity.PaymentTransaction{ID: transactionID, Status: status}, nil
}

// SetStatus programs the verified status of a transaction.
func (c *FedapayMock) SetStatus(transactionID int64, status string) {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.Statuses == nil {
		c.Statuses = make(map[int64]string)
	}
	c.Statuses[transactionID] = status
}
